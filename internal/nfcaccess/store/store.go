package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: unique constraint violated")
	ErrReadOnly = errors.New("store: write attempted in read-only transaction")
)

// TxFn runs inside a single transaction.  Returning an error rolls back every
// write made through tx.
type TxFn func(ctx context.Context, tx Tx) error

// Store is the shared durable state of the system.  Update transactions are
// serialized, so a check made through tx still holds when the write that
// depends on it is applied.
type Store interface {
	Update(ctx context.Context, fn TxFn) error
	View(ctx context.Context, fn TxFn) error
}

type Tx interface {
	UserTx
	PairingTx
	AuditLogTx
}
