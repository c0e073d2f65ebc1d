// Package payments declares the repository contract for locally mirrored
// checkout payments.
package payments

import (
	"context"
	"time"

	"github.com/dmitrijs2005/bkashgate/internal/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.PaymentRecord) error
	FindByPaymentID(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	Update(ctx context.Context, p *models.PaymentRecord) error
	UpdateStatus(ctx context.Context, paymentID, status string, at time.Time) error
	List(ctx context.Context, limit, offset int) ([]*models.PaymentRecord, error)
}
