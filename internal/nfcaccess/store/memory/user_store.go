package memory

import (
	"context"
	"sort"
	"time"

	"github.com/nfcaccess/server/internal/nfcaccess/store"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

func (t *tx) InsertUser(_ context.Context, u types.User) (types.User, error) {
	if err := t.writable(); err != nil {
		return types.User{}, err
	}
	if t.collides(0, u) {
		return types.User{}, store.ErrConflict
	}

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	u.ID = t.st.nextUserID
	t.st.nextUserID++
	t.st.users[u.ID] = copyUser(u)
	return copyUser(u), nil
}

func (t *tx) UpdateUser(_ context.Context, u types.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	if t.collides(u.ID, u) {
		return store.ErrConflict
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = time.Now().UTC()
	}
	t.st.users[u.ID] = copyUser(u)
	return nil
}

// DeleteUser mirrors the sqlite ON DELETE SET NULL on the audit log.
func (t *tx) DeleteUser(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.st.users, id)

	for i, e := range t.st.logs {
		if e.UserID != nil && *e.UserID == id {
			t.st.logs[i].UserID = nil
		}
	}
	return nil
}

func (t *tx) UserByID(_ context.Context, id int64) (types.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return copyUser(u), nil
}

func (t *tx) UserByNationalID(_ context.Context, nationalID string) (types.User, error) {
	return t.find(func(u types.User) bool { return u.NationalID == nationalID })
}

func (t *tx) UserByEmail(_ context.Context, email string) (types.User, error) {
	return t.find(func(u types.User) bool { return u.Email == email })
}

func (t *tx) UserByCardUUID(_ context.Context, cardUUID string) (types.User, error) {
	return t.find(func(u types.User) bool { return u.HasCard() && *u.CardUUID == cardUUID })
}

func (t *tx) ListUsers(_ context.Context) ([]types.User, error) {
	out := make([]types.User, 0, len(t.st.users))
	for _, u := range t.st.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) find(match func(types.User) bool) (types.User, error) {
	for _, u := range t.st.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return types.User{}, store.ErrNotFound
}

// collides enforces the same unique columns as the sqlite schema.
func (t *tx) collides(selfID int64, u types.User) bool {
	for id, other := range t.st.users {
		if id == selfID {
			continue
		}
		if other.NationalID == u.NationalID || other.Email == u.Email {
			return true
		}
		if u.HasCard() && other.HasCard() && *other.CardUUID == *u.CardUUID {
			return true
		}
	}
	return false
}
