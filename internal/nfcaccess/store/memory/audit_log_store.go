package memory

import (
	"context"
	"sort"
	"time"

	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

func (t *tx) AppendLog(_ context.Context, e types.LogEntry) (types.LogEntry, error) {
	if err := t.writable(); err != nil {
		return types.LogEntry{}, err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.ID = t.st.nextLogID
	t.st.nextLogID++
	t.st.logs = append(t.st.logs, e)
	return e, nil
}

func (t *tx) ListLogs(_ context.Context) ([]types.LogEntry, error) {
	out := make([]types.LogEntry, len(t.st.logs))
	copy(out, t.st.logs)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
