package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

const sessionColumns = `id, pair_token, user_id, created_at_ms, expires_at_ms, vinculado`

func scanSession(row rowScanner) (types.PairingSession, error) {
	var (
		s         types.PairingSession
		createdMs int64
		expiresMs int64
		bound     int
	)
	if err := row.Scan(&s.ID, &s.Token, &s.UserID, &createdMs, &expiresMs, &bound); err != nil {
		return types.PairingSession{}, err
	}
	s.CreatedAt = fromMs(createdMs)
	s.ExpiresAt = fromMs(expiresMs)
	s.Bound = bound == 1
	return s, nil
}

func (t *txn) InsertPairingSession(ctx context.Context, s types.PairingSession) (types.PairingSession, error) {
	if err := t.writable(); err != nil {
		return types.PairingSession{}, err
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	res, err := t.tx.ExecContext(ctx, `
INSERT INTO pairing_sessions(pair_token, user_id, created_at_ms, expires_at_ms, vinculado)
VALUES (?, ?, ?, ?, ?);
`, s.Token, s.UserID, toMs(s.CreatedAt), toMs(s.ExpiresAt), boolInt(s.Bound))
	if err != nil {
		return types.PairingSession{}, mapErr("InsertPairingSession", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.PairingSession{}, fmt.Errorf("InsertPairingSession last id: %w", err)
	}
	s.ID = id
	s.CreatedAt = fromMs(toMs(s.CreatedAt))
	s.ExpiresAt = fromMs(toMs(s.ExpiresAt))
	return s, nil
}

func (t *txn) PairingSessionByToken(ctx context.Context, token string) (types.PairingSession, error) {
	row := t.tx.QueryRowContext(ctx, `
SELECT `+sessionColumns+` FROM pairing_sessions WHERE pair_token = ?;
`, token)
	s, err := scanSession(row)
	if err != nil {
		return types.PairingSession{}, mapErr("PairingSessionByToken", err)
	}
	return s, nil
}

// LatestActivePairingSession uses idx_pairing_sessions_active.
func (t *txn) LatestActivePairingSession(ctx context.Context, now time.Time) (types.PairingSession, error) {
	row := t.tx.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM pairing_sessions
WHERE vinculado = 0 AND expires_at_ms > ?
ORDER BY created_at_ms DESC, id DESC
LIMIT 1;
`, toMs(now))
	s, err := scanSession(row)
	if err != nil {
		return types.PairingSession{}, mapErr("LatestActivePairingSession", err)
	}
	return s, nil
}

func (t *txn) MarkPairingSessionBound(ctx context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, `
UPDATE pairing_sessions SET vinculado = 1 WHERE id = ? AND vinculado = 0;
`, id)
	if err != nil {
		return mapErr("MarkPairingSessionBound", err)
	}
	return requireOneRow("MarkPairingSessionBound", res)
}

func (t *txn) ListPairingSessions(ctx context.Context) ([]types.PairingSession, error) {
	rows, err := t.tx.QueryContext(ctx, `
SELECT `+sessionColumns+` FROM pairing_sessions ORDER BY created_at_ms DESC, id DESC;
`)
	if err != nil {
		return nil, mapErr("ListPairingSessions", err)
	}
	defer rows.Close()

	var out []types.PairingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPairingSessions scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListPairingSessions rows: %w", err)
	}
	return out, nil
}

func (t *txn) DeletePairingSessionsExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	res, err := t.tx.ExecContext(ctx, `
DELETE FROM pairing_sessions WHERE expires_at_ms < ?;
`, toMs(cutoff))
	if err != nil {
		return 0, mapErr("DeletePairingSessionsExpiredBefore", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
