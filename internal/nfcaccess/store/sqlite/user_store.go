package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nfcaccess/server/internal/nfcaccess/store"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

const userColumns = `id, name, cpf, email, phone, nfc_card_uuid, created_at_ms, updated_at_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var (
		u         types.User
		card      sql.NullString
		createdMs int64
		updatedMs int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.NationalID, &u.Email, &u.Phone, &card, &createdMs, &updatedMs); err != nil {
		return types.User{}, err
	}
	if card.Valid {
		c := card.String
		u.CardUUID = &c
	}
	u.CreatedAt = fromMs(createdMs)
	u.UpdatedAt = fromMs(updatedMs)
	return u, nil
}

func cardArg(u types.User) any {
	if !u.HasCard() {
		return nil
	}
	return *u.CardUUID
}

func (t *txn) InsertUser(ctx context.Context, u types.User) (types.User, error) {
	if err := t.writable(); err != nil {
		return types.User{}, err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	res, err := t.tx.ExecContext(ctx, `
INSERT INTO users(name, cpf, email, phone, nfc_card_uuid, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, u.Name, u.NationalID, u.Email, u.Phone, cardArg(u), toMs(u.CreatedAt), toMs(u.UpdatedAt))
	if err != nil {
		return types.User{}, mapErr("InsertUser", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.User{}, fmt.Errorf("InsertUser last id: %w", err)
	}
	u.ID = id
	u.CreatedAt = fromMs(toMs(u.CreatedAt))
	u.UpdatedAt = fromMs(toMs(u.UpdatedAt))
	if !u.HasCard() {
		u.CardUUID = nil
	}
	return u, nil
}

func (t *txn) UpdateUser(ctx context.Context, u types.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = time.Now().UTC()
	}

	res, err := t.tx.ExecContext(ctx, `
UPDATE users
SET name = ?,
    cpf = ?,
    email = ?,
    phone = ?,
    nfc_card_uuid = ?,
    updated_at_ms = ?
WHERE id = ?;
`, u.Name, u.NationalID, u.Email, u.Phone, cardArg(u), toMs(u.UpdatedAt), u.ID)
	if err != nil {
		return mapErr("UpdateUser", err)
	}
	return requireOneRow("UpdateUser", res)
}

func (t *txn) DeleteUser(ctx context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?;`, id)
	if err != nil {
		return mapErr("DeleteUser", err)
	}
	return requireOneRow("DeleteUser", res)
}

func (t *txn) UserByID(ctx context.Context, id int64) (types.User, error) {
	return t.userWhere(ctx, "UserByID", `id = ?`, id)
}

func (t *txn) UserByNationalID(ctx context.Context, nationalID string) (types.User, error) {
	return t.userWhere(ctx, "UserByNationalID", `cpf = ?`, nationalID)
}

func (t *txn) UserByEmail(ctx context.Context, email string) (types.User, error) {
	return t.userWhere(ctx, "UserByEmail", `email = ?`, email)
}

func (t *txn) UserByCardUUID(ctx context.Context, cardUUID string) (types.User, error) {
	return t.userWhere(ctx, "UserByCardUUID", `nfc_card_uuid = ?`, cardUUID)
}

func (t *txn) ListUsers(ctx context.Context) ([]types.User, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id;`)
	if err != nil {
		return nil, mapErr("ListUsers", err)
	}
	defer rows.Close()

	var out []types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ListUsers scan: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListUsers rows: %w", err)
	}
	return out, nil
}

func (t *txn) userWhere(ctx context.Context, op, cond string, arg any) (types.User, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond+`;`, arg)
	u, err := scanUser(row)
	if err != nil {
		return types.User{}, mapErr(op, err)
	}
	return u, nil
}

func requireOneRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	return nil
}
