package store

import (
	"context"
	"time"

	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

type PairingTx interface {
	// InsertPairingSession returns ErrConflict if the token is taken.
	InsertPairingSession(ctx context.Context, s types.PairingSession) (types.PairingSession, error)
	PairingSessionByToken(ctx context.Context, token string) (types.PairingSession, error)

	// LatestActivePairingSession returns the most recently created session
	// that is unbound and expires after now.  Ties on created_at go to the
	// higher id.
	LatestActivePairingSession(ctx context.Context, now time.Time) (types.PairingSession, error)

	// MarkPairingSessionBound flips vinculado to true.  It returns
	// ErrNotFound if the session does not exist or is already bound.
	MarkPairingSessionBound(ctx context.Context, id int64) error

	// ListPairingSessions returns every session, newest first.
	ListPairingSessions(ctx context.Context) ([]types.PairingSession, error)

	DeletePairingSessionsExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
