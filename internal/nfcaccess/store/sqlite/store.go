package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	dbpkg "github.com/nfcaccess/server/internal/db"
	"github.com/nfcaccess/server/internal/nfcaccess/store"
)

type Store struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func New(db *sql.DB, writer *dbpkg.Worker) *Store {
	return &Store{db: db, writer: writer}
}

// Update runs fn on the single-writer worker, inside one transaction.
func (s *Store) Update(ctx context.Context, fn store.TxFn) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &txn{tx: tx})
	})
}

// View runs fn in a transaction that is always rolled back; writes through
// it fail with store.ErrReadOnly.
func (s *Store) View(ctx context.Context, fn store.TxFn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("View begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(ctx, &txn{tx: tx, readOnly: true})
}

type txn struct {
	tx       *sql.Tx
	readOnly bool
}

var _ store.Tx = (*txn)(nil)

func (t *txn) writable() error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	return nil
}
