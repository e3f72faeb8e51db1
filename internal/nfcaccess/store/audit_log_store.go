package store

import (
	"context"

	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

// AuditLogTx persists the append-only audit log.  Entries are never updated
// or deleted.
type AuditLogTx interface {
	AppendLog(ctx context.Context, e types.LogEntry) (types.LogEntry, error)

	// ListLogs returns every entry ordered by timestamp descending, then id
	// descending.
	ListLogs(ctx context.Context) ([]types.LogEntry, error)
}
