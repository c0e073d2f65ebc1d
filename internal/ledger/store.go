package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/bkashgate/internal/common"
	"github.com/dmitrijs2005/bkashgate/internal/dbx"
	"github.com/dmitrijs2005/bkashgate/internal/models"
)

// Store is the ledger facade used by the orchestrator and the HTTP API.
type Store struct {
	db    *sql.DB
	repos RepositoryManager
}

func NewStore(db *sql.DB, repos RepositoryManager) *Store {
	return &Store{db: db, repos: repos}
}

// FindPayment returns common.ErrorNotFound when no record exists.
func (s *Store) FindPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	return s.repos.Payments(s.db).FindByPaymentID(ctx, paymentID)
}

func (s *Store) CreatePayment(ctx context.Context, p *models.PaymentRecord) error {
	return s.repos.Payments(s.db).Create(ctx, p)
}

func (s *Store) UpdatePayment(ctx context.Context, p *models.PaymentRecord) error {
	return s.repos.Payments(s.db).Update(ctx, p)
}

func (s *Store) ListPayments(ctx context.Context, limit, offset int) ([]*models.PaymentRecord, error) {
	return s.repos.Payments(s.db).List(ctx, limit, offset)
}

func (s *Store) ListRefunds(ctx context.Context, limit, offset int) ([]*models.RefundRecord, error) {
	return s.repos.Refunds(s.db).List(ctx, limit, offset)
}

func (s *Store) PaymentRefunds(ctx context.Context, paymentID string) ([]*models.RefundRecord, error) {
	return s.repos.Refunds(s.db).ListByPaymentID(ctx, paymentID)
}

// RecordRefund inserts rf and marks its payment REFUNDED in one transaction.
// A refund for a payment with no local record is still stored.
func (s *Store) RecordRefund(ctx context.Context, rf *models.RefundRecord) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Refunds(tx).Create(ctx, rf); err != nil {
			return err
		}
		err := s.repos.Payments(tx).UpdateStatus(ctx, rf.PaymentID, common.StatusRefunded, rf.CreatedAt)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return nil
	})
}
