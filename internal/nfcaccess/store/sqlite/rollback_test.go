package sqlite_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfcaccess/server/internal/db"
	"github.com/nfcaccess/server/internal/nfcaccess/service"
	sqlitestore "github.com/nfcaccess/server/internal/nfcaccess/store/sqlite"
)

var userRowColumns = []string{"id", "name", "cpf", "email", "phone", "nfc_card_uuid", "created_at_ms", "updated_at_ms"}

func newMockStore(t *testing.T) (*sqlitestore.Store, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	w := db.NewWorker(conn)
	t.Cleanup(func() {
		w.Close()
		conn.Close()
	})
	return sqlitestore.New(conn, w), mock
}

// A failed audit insert must roll back the card change it describes.
func TestUnlink_AuditFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	gw := service.NewAccessGateway(s, service.NewAuditLog(s, nil), nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE cpf = ?`)).
		WithArgs("12345678900").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "Ana", "12345678900", "ana@example.com", "1", "CARD-1", testNow.UnixMilli(), testNow.UnixMilli()))
	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO access_logs`).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := gw.Unlink(context.Background(), "123.456.789-00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlink_CommitsCardChangeAndLogTogether(t *testing.T) {
	s, mock := newMockStore(t)
	gw := service.NewAccessGateway(s, service.NewAuditLog(s, nil), nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE cpf = ?`)).
		WithArgs("12345678900").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "Ana", "12345678900", "ana@example.com", "1", "CARD-1", testNow.UnixMilli(), testNow.UnixMilli()))
	mock.ExpectExec(`UPDATE users`).
		WithArgs("Ana", "12345678900", "ana@example.com", "1", nil, sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO access_logs`).
		WithArgs(int64(1), "CARD-1", int64(1), "UNLINK", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	change, err := gw.Unlink(context.Background(), "12345678900")
	require.NoError(t, err)
	assert.EqualValues(t, 7, change.Log.ID)
	assert.False(t, change.User.HasCard())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorker_ClosedRejectsUpdates(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	w := db.NewWorker(conn)
	w.Close()

	s := sqlitestore.New(conn, w)
	err = s.Update(context.Background(), nil)
	assert.ErrorIs(t, err, db.ErrWorkerClosed)
}
