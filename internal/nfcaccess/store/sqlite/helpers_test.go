package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nfcaccess/server/internal/db"
	"github.com/nfcaccess/server/internal/nfcaccess/store"
	sqlitestore "github.com/nfcaccess/server/internal/nfcaccess/store/sqlite"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production.  The connection is closed automatically when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each test gets its own named in-memory database.  The shared cache
	// keeps it alive while the pool holds a connection.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestStore wires a sqlite Store over a fresh database and returns both
// so tests can inspect rows directly.
func newTestStore(t *testing.T) (*sqlitestore.Store, *sql.DB) {
	t.Helper()

	conn := openTestDB(t)
	w := db.NewWorker(conn)
	t.Cleanup(w.Close)
	return sqlitestore.New(conn, w), conn
}

func insertUser(t *testing.T, s store.Store, u types.User) types.User {
	t.Helper()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = testNow
	}
	var out types.User
	err := s.Update(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.InsertUser(ctx, u)
		return err
	})
	if err != nil {
		t.Fatalf("insertUser: %v", err)
	}
	return out
}

func ana() types.User {
	return types.User{Name: "Ana", NationalID: "12345678900", Email: "ana@example.com", Phone: "1"}
}

func bob() types.User {
	return types.User{Name: "Bob", NationalID: "98765432100", Email: "bob@example.com", Phone: "2"}
}

func countRows(t *testing.T, conn *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
