package bkash

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrijs2005/bkashgate/internal/common"
	"github.com/dmitrijs2005/bkashgate/internal/models"
)

const (
	refundFailure = "Failed to refund payment"

	DefaultRefundReason = "Refund requested by customer"
	alreadyRefunded     = "This payment has already been refunded."
)

// RefundInput describes a refund. PaymentID, TrxID and Amount are required;
// an empty Reason becomes DefaultRefundReason.
type RefundInput struct {
	PaymentID string
	TrxID     string
	Amount    decimal.Decimal
	SKU       string
	Reason    string
}

func (in *RefundInput) validate() error {
	switch {
	case in.PaymentID == "":
		return fmt.Errorf("%w: payment_id is required", common.ErrorValidation)
	case in.TrxID == "":
		return fmt.Errorf("%w: trx_id is required", common.ErrorValidation)
	case !in.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", common.ErrorValidation)
	}
	return nil
}

// RefundPayment refunds an executed payment.
//
// A payment already marked REFUNDED locally is rejected before any upstream
// call. On success the refund record and the payment's REFUNDED status are
// written in one ledger transaction.
func (s *Service) RefundPayment(ctx context.Context, tenant string, in RefundInput) (data map[string]any, err error) {
	ctx, done := s.observe(ctx, "RefundPayment", tenant)
	defer func() { done(err) }()

	if err := in.validate(); err != nil {
		return nil, validationError(KindRefund, refundFailure, err)
	}

	existing, err := s.findPayment(ctx, in.PaymentID)
	if err != nil {
		return nil, wrap(KindRefund, refundFailure, err)
	}
	if existing != nil && existing.TransactionStatus == common.StatusRefunded {
		return nil, &Error{Kind: KindRefund, Message: alreadyRefunded, Code: DefaultCode, Err: common.ErrAlreadyRefunded}
	}

	token, err := s.getToken(ctx, tenant)
	if err != nil {
		return nil, wrap(KindRefund, refundFailure, err)
	}

	reason := valueOr(in.Reason, DefaultRefundReason)
	payload := map[string]any{
		"paymentID": in.PaymentID,
		"trxID":     in.TrxID,
		"amount":    in.Amount.StringFixed(2),
		"sku":       nullable(in.SKU),
		"reason":    reason,
	}

	resp, err := s.gateway.Refund(ctx, token, payload)
	if err != nil {
		return nil, wrap(KindRefund, refundFailure, err)
	}
	if !resp.Succeeded("refundTrxID") {
		return nil, upstreamError(KindRefund, resp, refundFailure)
	}

	now := s.now()
	record := &models.RefundRecord{
		ID:                s.newID(),
		PaymentID:         in.PaymentID,
		OriginalTrxID:     valueOr(resp.String("originalTrxID"), in.TrxID),
		RefundTrxID:       resp.String("refundTrxID"),
		Amount:            in.Amount.Round(2),
		Currency:          valueOr(resp.String("currency"), "BDT"),
		TransactionStatus: resp.String("transactionStatus"),
		CompletedTime:     ParseCompletedTime(resp.String("completedTime"), now),
		Reason:            reason,
		CreatedAt:         now,
	}
	if err := s.ledger.RecordRefund(ctx, record); err != nil {
		return nil, wrap(KindRefund, refundFailure, err)
	}

	s.logger.Info(ctx, "bkash payment refunded",
		"tenant", tenant, "payment_id", in.PaymentID, "refund_trx_id", record.RefundTrxID)
	return resp.Body, nil
}

func newUUID() string {
	return uuid.NewString()
}
