package customers

import (
	"context"
	stderrors "errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/models"
)

var customerColumns = []string{"id", "username", "email", "phone_number", "country", "device_token"}

const selectCustomers = "SELECT id, username, email, phone_number, country, device_token FROM customers ORDER BY id"

func setupMockDB(t *testing.T) (*PostgresSource, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	src, err := NewPostgresSource(db, "customers", logger.NewTestLogger(t))
	require.NoError(t, err)
	return src, mock
}

func TestPostgresSource_FetchCustomers(t *testing.T) {
	src, mock := setupMockDB(t)

	rows := sqlmock.NewRows(customerColumns).
		AddRow("c1", "ann", "ann@example.com", "+971", "UAE", "tok-1").
		AddRow("c2", nil, nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta(selectCustomers)).WillReturnRows(rows)

	got, err := src.FetchCustomers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []models.Customer{
		{ID: "c1", Username: "ann", Email: "ann@example.com", PhoneNumber: "+971", Country: "UAE", DeviceToken: "tok-1"},
		{ID: "c2"},
	}, got)
	assert.False(t, got[1].CanReceivePush())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_Errors(t *testing.T) {
	t.Run("query fails", func(t *testing.T) {
		src, mock := setupMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectCustomers)).WillReturnError(stderrors.New("relation does not exist"))

		_, err := src.FetchCustomers(context.Background())

		assert.Equal(t, errors.ErrCodeCustomerFetchFailed, errors.CodeOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("row error", func(t *testing.T) {
		src, mock := setupMockDB(t)
		rows := sqlmock.NewRows(customerColumns).
			AddRow("c1", "ann", "", "", "", "").
			RowError(0, stderrors.New("connection reset"))
		mock.ExpectQuery(regexp.QuoteMeta(selectCustomers)).WillReturnRows(rows)

		_, err := src.FetchCustomers(context.Background())

		assert.Equal(t, errors.ErrCodeCustomerFetchFailed, errors.CodeOf(err))
	})
}

func TestNewPostgresSource_RejectsBadTable(t *testing.T) {
	for _, table := range []string{"", "customers; DROP TABLE x", "1abc", "a.b.c"} {
		_, err := NewPostgresSource(nil, table, logger.NewNoOpLogger())
		assert.Error(t, err, table)
	}

	_, err := NewPostgresSource(nil, "loyalty.customers", logger.NewNoOpLogger())
	assert.NoError(t, err)
}
