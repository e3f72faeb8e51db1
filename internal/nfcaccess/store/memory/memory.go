package memory

import (
	"context"
	"sync"

	"github.com/nfcaccess/server/internal/nfcaccess/store"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

// Store keeps all state in process memory.  It is intended for tests and dev
// environments.  Update applies fn to a private copy of the state and swaps
// it in only if fn succeeds, which gives the same all-or-nothing behaviour as
// the sqlite store.
type Store struct {
	mu    sync.RWMutex
	state *state
}

type state struct {
	users    map[int64]types.User
	sessions []types.PairingSession
	logs     []types.LogEntry

	nextUserID    int64
	nextSessionID int64
	nextLogID     int64
}

func New() *Store {
	return &Store{
		state: &state{
			users:         make(map[int64]types.User),
			nextUserID:    1,
			nextSessionID: 1,
			nextLogID:     1,
		},
	}
}

func (s *Store) Update(ctx context.Context, fn store.TxFn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(ctx, &tx{st: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Store) View(ctx context.Context, fn store.TxFn) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(ctx, &tx{st: s.state, readOnly: true})
}

func (st *state) clone() *state {
	out := &state{
		users:         make(map[int64]types.User, len(st.users)),
		sessions:      make([]types.PairingSession, len(st.sessions)),
		logs:          make([]types.LogEntry, len(st.logs)),
		nextUserID:    st.nextUserID,
		nextSessionID: st.nextSessionID,
		nextLogID:     st.nextLogID,
	}
	for id, u := range st.users {
		out.users[id] = copyUser(u)
	}
	copy(out.sessions, st.sessions)
	copy(out.logs, st.logs)
	return out
}

func copyUser(u types.User) types.User {
	if u.CardUUID != nil {
		c := *u.CardUUID
		u.CardUUID = &c
	}
	return u
}

type tx struct {
	st       *state
	readOnly bool
}

var _ store.Tx = (*tx)(nil)

func (t *tx) writable() error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	return nil
}
