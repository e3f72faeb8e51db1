package memory

import (
	"context"
	"sort"
	"time"

	"github.com/nfcaccess/server/internal/nfcaccess/store"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

func (t *tx) InsertPairingSession(_ context.Context, s types.PairingSession) (types.PairingSession, error) {
	if err := t.writable(); err != nil {
		return types.PairingSession{}, err
	}
	for _, existing := range t.st.sessions {
		if existing.Token == s.Token {
			return types.PairingSession{}, store.ErrConflict
		}
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.ID = t.st.nextSessionID
	t.st.nextSessionID++
	t.st.sessions = append(t.st.sessions, s)
	return s, nil
}

func (t *tx) PairingSessionByToken(_ context.Context, token string) (types.PairingSession, error) {
	for _, s := range t.st.sessions {
		if s.Token == token {
			return s, nil
		}
	}
	return types.PairingSession{}, store.ErrNotFound
}

func (t *tx) LatestActivePairingSession(_ context.Context, now time.Time) (types.PairingSession, error) {
	var (
		best  types.PairingSession
		found bool
	)
	for _, s := range t.st.sessions {
		if s.Bound || !s.ExpiresAt.After(now) {
			continue
		}
		if !found || newer(s, best) {
			best, found = s, true
		}
	}
	if !found {
		return types.PairingSession{}, store.ErrNotFound
	}
	return best, nil
}

func (t *tx) MarkPairingSessionBound(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i, s := range t.st.sessions {
		if s.ID == id && !s.Bound {
			t.st.sessions[i].Bound = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (t *tx) ListPairingSessions(_ context.Context) ([]types.PairingSession, error) {
	out := make([]types.PairingSession, len(t.st.sessions))
	copy(out, t.st.sessions)
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out, nil
}

func (t *tx) DeletePairingSessionsExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	kept := t.st.sessions[:0]
	var deleted int64
	for _, s := range t.st.sessions {
		if s.ExpiresAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	t.st.sessions = kept
	return deleted, nil
}

func newer(a, b types.PairingSession) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
