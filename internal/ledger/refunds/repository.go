// Package refunds declares the repository contract for refund records.
package refunds

import (
	"context"

	"github.com/dmitrijs2005/bkashgate/internal/models"
)

type Repository interface {
	Create(ctx context.Context, r *models.RefundRecord) error
	ListByPaymentID(ctx context.Context, paymentID string) ([]*models.RefundRecord, error)
	List(ctx context.Context, limit, offset int) ([]*models.RefundRecord, error)
}
