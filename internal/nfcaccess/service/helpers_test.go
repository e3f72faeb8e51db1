package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nfcaccess/server/internal/nfcaccess/service"
	"github.com/nfcaccess/server/internal/nfcaccess/store"
	"github.com/nfcaccess/server/internal/nfcaccess/store/memory"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

// testClock is a fixed, manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store   store.Store
	clock   *testClock
	dir     *service.Directory
	audit   *service.AuditLog
	pairing *service.PairingEngine
	gateway *service.AccessGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, memory.New(), service.PairingConfig{})
}

func newTestEnvWith(t *testing.T, st store.Store, cfg service.PairingConfig) *testEnv {
	t.Helper()

	clock := newTestClock()
	audit := service.NewAuditLog(st, clock.Now)
	return &testEnv{
		store:   st,
		clock:   clock,
		dir:     service.NewDirectory(st, clock.Now),
		audit:   audit,
		pairing: service.NewPairingEngine(st, audit, cfg, clock.Now),
		gateway: service.NewAccessGateway(st, audit, clock.Now),
	}
}

func (e *testEnv) createUser(t *testing.T, name, cpf, email string) types.User {
	t.Helper()

	u, err := e.dir.Create(context.Background(), types.CreateUserRequest{
		Name:       name,
		NationalID: cpf,
		Email:      email,
		Phone:      "+55 48 90000-0000",
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) logs(t *testing.T) []types.LogEntry {
	t.Helper()

	logs, err := e.audit.List(context.Background())
	require.NoError(t, err)
	return logs
}

var errAppendFailed = errors.New("disk full")

// failingAppendStore behaves like the wrapped store except that every audit
// append fails, so the enclosing transaction must roll back.
type failingAppendStore struct {
	store.Store
}

func (s failingAppendStore) Update(ctx context.Context, fn store.TxFn) error {
	return s.Store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, failingAppendTx{Tx: tx})
	})
}

type failingAppendTx struct {
	store.Tx
}

func (failingAppendTx) AppendLog(context.Context, types.LogEntry) (types.LogEntry, error) {
	return types.LogEntry{}, errAppendFailed
}

func ptr[T any](v T) *T { return &v }
