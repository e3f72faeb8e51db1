package service

import (
	"context"
	"fmt"

	"github.com/nfcaccess/server/internal/nfcaccess/store"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

// AuditLog records binding and access events.  Entries are appended inside
// the caller's transaction, so a failed append rolls back the mutation it
// describes.
type AuditLog struct {
	store store.Store
	now   Clock
}

func NewAuditLog(st store.Store, clock Clock) *AuditLog {
	return &AuditLog{store: st, now: orSystem(clock)}
}

// Append writes one entry through tx.  user is nil when the card matched
// nobody; user_exists is derived from it.
func (a *AuditLog) Append(ctx context.Context, tx store.AuditLogTx, user *types.User, cardUUID string, action types.Action) (types.LogEntry, error) {
	e := types.LogEntry{
		CardUUID:   cardUUID,
		UserExists: user != nil,
		Action:     action,
		Timestamp:  a.now(),
	}
	if user != nil {
		id := user.ID
		e.UserID = &id
	}

	out, err := tx.AppendLog(ctx, e)
	if err != nil {
		return types.LogEntry{}, fmt.Errorf("audit %s: %w", action, err)
	}
	return out, nil
}

// List returns every entry, newest first.
func (a *AuditLog) List(ctx context.Context) ([]types.LogEntry, error) {
	logs := []types.LogEntry{}
	err := a.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		all, err := tx.ListLogs(ctx)
		if err != nil {
			return err
		}
		logs = append(logs, all...)
		return nil
	})
	return logs, err
}
