package refunds

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bkashgate/internal/dbx"
	"github.com/dmitrijs2005/bkashgate/internal/models"
)

const selectColumns = `id, payment_id, original_trx_id, refund_trx_id, amount, currency,
		transaction_status, completed_time, reason, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rf *models.RefundRecord) error {
	query := `
		INSERT INTO refunds (id, payment_id, original_trx_id, refund_trx_id, amount, currency,
			transaction_status, completed_time, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		rf.ID, rf.PaymentID, rf.OriginalTrxID, rf.RefundTrxID, rf.Amount, rf.Currency,
		rf.TransactionStatus, rf.CompletedTime, rf.Reason, rf.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByPaymentID(ctx context.Context, paymentID string) ([]*models.RefundRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM refunds WHERE payment_id = $1 ORDER BY created_at`
	return r.query(ctx, query, paymentID)
}

// List returns refunds newest first.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*models.RefundRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM refunds ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.query(ctx, query, limit, offset)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.RefundRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.RefundRecord
	for rows.Next() {
		var rf models.RefundRecord
		if err := rows.Scan(
			&rf.ID, &rf.PaymentID, &rf.OriginalTrxID, &rf.RefundTrxID, &rf.Amount, &rf.Currency,
			&rf.TransactionStatus, &rf.CompletedTime, &rf.Reason, &rf.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, &rf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
