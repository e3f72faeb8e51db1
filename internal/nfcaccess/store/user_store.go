package store

import (
	"context"

	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

// UserTx is the user directory's view of a transaction.  Lookups return
// ErrNotFound when nothing matches; writes return ErrConflict on a unique
// violation (cpf, email or nfc_card_uuid).
type UserTx interface {
	InsertUser(ctx context.Context, u types.User) (types.User, error)
	UpdateUser(ctx context.Context, u types.User) error
	DeleteUser(ctx context.Context, id int64) error

	UserByID(ctx context.Context, id int64) (types.User, error)
	UserByNationalID(ctx context.Context, nationalID string) (types.User, error)
	UserByEmail(ctx context.Context, email string) (types.User, error)
	UserByCardUUID(ctx context.Context, cardUUID string) (types.User, error)
	ListUsers(ctx context.Context) ([]types.User, error)
}
