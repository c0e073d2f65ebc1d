package payments

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/bkashgate/internal/common"
	"github.com/dmitrijs2005/bkashgate/internal/models"
)

var columns = []string{
	"payment_id", "agreement_id", "amount", "currency", "intent", "merchant_invoice_number",
	"transaction_status", "trx_id", "customer_msisdn", "payer_reference", "create_time", "execute_time",
	"agreement_execute_time", "agreement_status", "status_code", "status_message", "updated_at",
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func strPtr(s string) *string { return &s }

func samplePayment() *models.PaymentRecord {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &models.PaymentRecord{
		PaymentID:             "PID1",
		Amount:                decimal.RequireFromString("100.00"),
		Currency:              "BDT",
		Intent:                "sale",
		MerchantInvoiceNumber: "INV-1",
		TransactionStatus:     "Initiated",
		PayerReference:        strPtr("01770618575"),
		CreateTime:            now,
		StatusCode:            "0000",
		StatusMessage:         "Successful",
		UpdatedAt:             now,
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	p := samplePayment()
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+payments\b.*VALUES\s*\(\$1,.*\$17\)\s*$`).
		WithArgs("PID1", nil, "100", "BDT", "sale", "INV-1", "Initiated", nil, nil, "01770618575",
			p.CreateTime, nil, nil, nil, "0000", "Successful", p.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+payments`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	err := repo.Create(context.Background(), samplePayment())
	assert.True(t, errors.Is(err, common.ErrorAlreadyExists))
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+payments`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), samplePayment())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByPaymentID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	executed := created.Add(time.Minute)
	rows := sqlmock.NewRows(columns).AddRow(
		"PID1", nil, "100.00", "BDT", "sale", "INV-1",
		"Completed", "TRX1", "01770618575", nil, created, executed,
		nil, nil, "0000", "Successful", executed,
	)
	mock.ExpectQuery(`(?s)^SELECT\s+payment_id,.*FROM\s+payments\s+WHERE\s+payment_id\s*=\s*\$1$`).
		WithArgs("PID1").
		WillReturnRows(rows)

	got, err := repo.FindByPaymentID(context.Background(), "PID1")
	require.NoError(t, err)

	assert.Equal(t, "PID1", got.PaymentID)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Amount))
	assert.Equal(t, "Completed", got.TransactionStatus)
	require.NotNil(t, got.TrxID)
	assert.Equal(t, "TRX1", *got.TrxID)
	assert.Equal(t, "01770618575", *got.CustomerMsisdn)
	assert.Nil(t, got.PayerReference)
	assert.Nil(t, got.AgreementID)
	require.NotNil(t, got.ExecuteTime)
	assert.True(t, executed.Equal(*got.ExecuteTime))
	assert.Nil(t, got.AgreementExecuteTime)
}

func TestFindByPaymentID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+payments\s+WHERE\s+payment_id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByPaymentID(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFindByPaymentID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+payments\s+WHERE\s+payment_id`).
		WithArgs("PID1").
		WillReturnError(errors.New("db err"))

	_, err := repo.FindByPaymentID(context.Background(), "PID1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	p := samplePayment()
	p.TrxID = strPtr("TRX1")
	p.TransactionStatus = "Completed"

	mock.ExpectExec(`(?s)^\s*UPDATE\s+payments\s+SET\s+agreement_id\s*=\s*\$2,.*WHERE\s+payment_id\s*=\s*\$1\s*$`).
		WithArgs("PID1", nil, "Completed", "TRX1", nil, "01770618575", nil, nil, nil, "0000", "Successful", p.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), p))

	mock.ExpectExec(`UPDATE\s+payments`).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), p)
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec(`^UPDATE\s+payments\s+SET\s+transaction_status\s*=\s*\$2,\s*updated_at\s*=\s*\$3\s+WHERE\s+payment_id\s*=\s*\$1$`).
		WithArgs("PID1", "REFUNDED", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), "PID1", "REFUNDED", at))

	mock.ExpectExec(`UPDATE\s+payments`).WillReturnError(errors.New("boom"))
	err := repo.UpdateStatus(context.Background(), "PID1", "REFUNDED", at)
	assert.ErrorContains(t, err, "db error: boom")
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(columns).
		AddRow("PID2", nil, "50.00", "BDT", "sale", "INV-2", "Initiated", nil, nil, nil, now, nil, nil, nil, "0000", "", now).
		AddRow("PID1", "AG1", "100.00", "BDT", "sale", "INV-1", "Completed", "TRX1", nil, nil, now, now, now, "Completed", "0000", "", now)
	mock.ExpectQuery(`ORDER\s+BY\s+create_time\s+DESC\s+LIMIT\s+\$1\s+OFFSET\s+\$2$`).
		WithArgs(20, 0).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "PID2", got[0].PaymentID)
	assert.Equal(t, "AG1", *got[1].AgreementID)
	assert.Equal(t, "Completed", *got[1].AgreementStatus)
}

func TestList_ScanError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"payment_id"}).AddRow("PID1")
	mock.ExpectQuery(`FROM\s+payments\s+ORDER`).WillReturnRows(rows)

	_, err := repo.List(context.Background(), 10, 0)
	assert.ErrorContains(t, err, "db error")
}
