package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

func (t *txn) AppendLog(ctx context.Context, e types.LogEntry) (types.LogEntry, error) {
	if err := t.writable(); err != nil {
		return types.LogEntry{}, err
	}
	if !e.Action.Valid() {
		return types.LogEntry{}, fmt.Errorf("AppendLog: unknown action %q", e.Action)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var userID any
	if e.UserID != nil {
		userID = *e.UserID
	}

	res, err := t.tx.ExecContext(ctx, `
INSERT INTO access_logs(user_id, nfc_uuid, user_exists, action, timestamp_ms)
VALUES (?, ?, ?, ?, ?);
`, userID, e.CardUUID, boolInt(e.UserExists), string(e.Action), toMs(e.Timestamp))
	if err != nil {
		return types.LogEntry{}, mapErr("AppendLog", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.LogEntry{}, fmt.Errorf("AppendLog last id: %w", err)
	}
	e.ID = id
	e.Timestamp = fromMs(toMs(e.Timestamp))
	return e, nil
}

func (t *txn) ListLogs(ctx context.Context) ([]types.LogEntry, error) {
	rows, err := t.tx.QueryContext(ctx, `
SELECT id, user_id, nfc_uuid, user_exists, action, timestamp_ms
FROM access_logs
ORDER BY timestamp_ms DESC, id DESC;
`)
	if err != nil {
		return nil, mapErr("ListLogs", err)
	}
	defer rows.Close()

	var out []types.LogEntry
	for rows.Next() {
		var (
			e      types.LogEntry
			userID sql.NullInt64
			exists int
			action string
			ts     int64
		)
		if err := rows.Scan(&e.ID, &userID, &e.CardUUID, &exists, &action, &ts); err != nil {
			return nil, fmt.Errorf("ListLogs scan: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			e.UserID = &id
		}
		e.UserExists = exists == 1
		e.Action = types.Action(action)
		e.Timestamp = fromMs(ts)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListLogs rows: %w", err)
	}
	return out, nil
}
