package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/bkashgate/internal/common"
	"github.com/dmitrijs2005/bkashgate/internal/dbx"
	"github.com/dmitrijs2005/bkashgate/internal/models"
)

const uniqueViolation = "23505"

const selectColumns = `payment_id, agreement_id, amount, currency, intent, merchant_invoice_number,
		transaction_status, trx_id, customer_msisdn, payer_reference, create_time, execute_time,
		agreement_execute_time, agreement_status, status_code, status_message, updated_at`

// PostgresRepository stores payments over dbx.DBTX (satisfied by *sql.DB or
// *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts p. A duplicate payment_id yields common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, p *models.PaymentRecord) error {
	query := `
		INSERT INTO payments (payment_id, agreement_id, amount, currency, intent, merchant_invoice_number,
			transaction_status, trx_id, customer_msisdn, payer_reference, create_time, execute_time,
			agreement_execute_time, agreement_status, status_code, status_message, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.PaymentID, p.AgreementID, p.Amount, p.Currency, p.Intent, p.MerchantInvoiceNumber,
		p.TransactionStatus, p.TrxID, p.CustomerMsisdn, p.PayerReference, p.CreateTime, p.ExecuteTime,
		p.AgreementExecuteTime, p.AgreementStatus, p.StatusCode, p.StatusMessage, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("payment %s: %w", p.PaymentID, common.ErrorAlreadyExists)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindByPaymentID returns the payment or common.ErrorNotFound.
func (r *PostgresRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM payments WHERE payment_id = $1`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// Update overwrites every mutable column of the payment identified by
// p.PaymentID.
func (r *PostgresRepository) Update(ctx context.Context, p *models.PaymentRecord) error {
	query := `
		UPDATE payments SET agreement_id = $2, transaction_status = $3, trx_id = $4, customer_msisdn = $5,
			payer_reference = $6, execute_time = $7, agreement_execute_time = $8, agreement_status = $9,
			status_code = $10, status_message = $11, updated_at = $12
		WHERE payment_id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		p.PaymentID, p.AgreementID, p.TransactionStatus, p.TrxID, p.CustomerMsisdn,
		p.PayerReference, p.ExecuteTime, p.AgreementExecuteTime, p.AgreementStatus,
		p.StatusCode, p.StatusMessage, p.UpdatedAt,
	)
	return checkAffected(res, err)
}

// UpdateStatus sets only the transaction status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, paymentID, status string, at time.Time) error {
	query := `UPDATE payments SET transaction_status = $2, updated_at = $3 WHERE payment_id = $1`

	res, err := r.db.ExecContext(ctx, query, paymentID, status, at)
	return checkAffected(res, err)
}

// List returns payments newest first.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*models.PaymentRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM payments ORDER BY create_time DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(row scanner) (*models.PaymentRecord, error) {
	var (
		p                                    models.PaymentRecord
		agreementID, trxID, msisdn, payerRef sql.NullString
		agreementStatus                      sql.NullString
		executeTime, agreementExecuteTime    sql.NullTime
	)
	err := row.Scan(
		&p.PaymentID, &agreementID, &p.Amount, &p.Currency, &p.Intent, &p.MerchantInvoiceNumber,
		&p.TransactionStatus, &trxID, &msisdn, &payerRef, &p.CreateTime, &executeTime,
		&agreementExecuteTime, &agreementStatus, &p.StatusCode, &p.StatusMessage, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.AgreementID = nullString(agreementID)
	p.TrxID = nullString(trxID)
	p.CustomerMsisdn = nullString(msisdn)
	p.PayerReference = nullString(payerRef)
	p.AgreementStatus = nullString(agreementStatus)
	p.ExecuteTime = nullTime(executeTime)
	p.AgreementExecuteTime = nullTime(agreementExecuteTime)
	return &p, nil
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
