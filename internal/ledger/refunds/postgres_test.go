package refunds

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/bkashgate/internal/models"
)

var columns = []string{
	"id", "payment_id", "original_trx_id", "refund_trx_id", "amount", "currency",
	"transaction_status", "completed_time", "reason", "created_at",
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	rf := &models.RefundRecord{
		ID:                "0b3f1c6e-1d35-4d4e-9f5c-6c1b7e1f2a10",
		PaymentID:         "PID1",
		OriginalTrxID:     "TRX1",
		RefundTrxID:       "RTRX1",
		Amount:            decimal.RequireFromString("25.50"),
		Currency:          "BDT",
		TransactionStatus: "Completed",
		CompletedTime:     now,
		Reason:            "damaged",
		CreatedAt:         now,
	}

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+refunds\b.*VALUES\s*\(\$1,.*\$10\)\s*$`).
		WithArgs(rf.ID, "PID1", "TRX1", "RTRX1", "25.5", "BDT", "Completed", now, "damaged", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), rf))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+refunds`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.RefundRecord{})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestListByPaymentID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(columns).
		AddRow("id-1", "PID1", "TRX1", "RTRX1", "25.50", "BDT", "Completed", now, "damaged", now)
	mock.ExpectQuery(`FROM\s+refunds\s+WHERE\s+payment_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at$`).
		WithArgs("PID1").
		WillReturnRows(rows)

	got, err := repo.ListByPaymentID(context.Background(), "PID1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "RTRX1", got[0].RefundTrxID)
	assert.True(t, decimal.RequireFromString("25.5").Equal(got[0].Amount))
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+refunds\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+\$1\s+OFFSET\s+\$2$`).
		WithArgs(5, 10).
		WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.List(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestList_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+refunds`).WillReturnError(errors.New("db err"))

	_, err := repo.List(context.Background(), 5, 0)
	assert.ErrorContains(t, err, "db error: db err")
}
