package bkash

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dmitrijs2005/bkashgate/internal/common"
	"github.com/dmitrijs2005/bkashgate/internal/models"
)

// checkoutMode is the tokenized checkout "URL based" mode.
const checkoutMode = "0011"

const (
	createFailure  = "Failed to create payment"
	executeFailure = "Failed to execute payment"
	queryFailure   = "Failed to query payment status"
)

// CreatePaymentInput describes a new checkout. CallbackURL, Amount and
// MerchantInvoiceNumber are required; empty Currency and Intent fall back to
// the configured defaults.
type CreatePaymentInput struct {
	CallbackURL           string
	Amount                decimal.Decimal
	MerchantInvoiceNumber string
	PayerReference        string
	Currency              string
	Intent                string
	AgreementID           string
}

func (in *CreatePaymentInput) validate() error {
	switch {
	case in.CallbackURL == "":
		return fmt.Errorf("%w: callback_url is required", common.ErrorValidation)
	case !in.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", common.ErrorValidation)
	case in.MerchantInvoiceNumber == "":
		return fmt.Errorf("%w: merchant_invoice_number is required", common.ErrorValidation)
	}
	return nil
}

// CreatePayment starts a checkout and records it locally. It returns the raw
// upstream reply, which carries the bkashURL the customer must be sent to.
func (s *Service) CreatePayment(ctx context.Context, tenant string, in CreatePaymentInput) (data map[string]any, err error) {
	ctx, done := s.observe(ctx, "CreatePayment", tenant)
	defer func() { done(err) }()

	if err := in.validate(); err != nil {
		return nil, validationError(KindPaymentCreate, createFailure, err)
	}

	token, err := s.getToken(ctx, tenant)
	if err != nil {
		return nil, wrap(KindPaymentCreate, createFailure, err)
	}

	currency := valueOr(in.Currency, s.defaultCurrency)
	intent := valueOr(in.Intent, s.defaultIntent)

	payload := map[string]any{
		"mode":                  checkoutMode,
		"payerReference":        nullable(in.PayerReference),
		"callbackURL":           in.CallbackURL,
		"amount":                in.Amount.StringFixed(2),
		"currency":              currency,
		"intent":                intent,
		"merchantInvoiceNumber": in.MerchantInvoiceNumber,
	}
	if in.AgreementID != "" {
		payload["agreementID"] = in.AgreementID
	}

	resp, err := s.gateway.Create(ctx, token, payload)
	if err != nil {
		return nil, wrap(KindPaymentCreate, createFailure, err)
	}
	if !resp.Succeeded("paymentID") {
		return nil, upstreamError(KindPaymentCreate, resp, createFailure)
	}

	now := s.now()
	record := &models.PaymentRecord{
		PaymentID:             resp.String("paymentID"),
		AgreementID:           resp.OptionalString("agreementID"),
		Amount:                in.Amount.Round(2),
		Currency:              currency,
		Intent:                intent,
		MerchantInvoiceNumber: in.MerchantInvoiceNumber,
		TransactionStatus:     resp.String("transactionStatus"),
		PayerReference:        optional(in.PayerReference),
		CreateTime:            now,
		StatusCode:            resp.String("statusCode"),
		StatusMessage:         resp.String("statusMessage"),
		UpdatedAt:             now,
	}
	if err := s.ledger.CreatePayment(ctx, record); err != nil {
		return nil, wrap(KindPaymentCreate, createFailure, err)
	}

	s.logger.Info(ctx, "bkash payment created",
		"tenant", tenant, "payment_id", record.PaymentID, "status", record.TransactionStatus)
	return resp.Body, nil
}

// ExecutePayment finalises an authorised payment and updates its local record.
//
// An unknown paymentID is not an error: upstream's reply is returned and no
// record is created. When a record was updated and the payment-succeeded event
// is enabled, the Notifier receives the updated record.
func (s *Service) ExecutePayment(ctx context.Context, tenant, paymentID string) (data map[string]any, err error) {
	ctx, done := s.observe(ctx, "ExecutePayment", tenant)
	defer func() { done(err) }()

	token, err := s.getToken(ctx, tenant)
	if err != nil {
		return nil, wrap(KindPaymentExecute, executeFailure, err)
	}

	resp, err := s.gateway.Execute(ctx, token, paymentID)
	if err != nil {
		return nil, wrap(KindPaymentExecute, executeFailure, err)
	}
	if !resp.Succeeded("trxID") {
		return nil, upstreamError(KindPaymentExecute, resp, executeFailure)
	}

	record, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return nil, wrap(KindPaymentExecute, executeFailure, err)
	}
	if record == nil {
		s.logger.Warn(ctx, "executed payment has no local record", "tenant", tenant, "payment_id", paymentID)
		return resp.Body, nil
	}

	now := s.now()
	record.TrxID = resp.OptionalString("trxID")
	record.CustomerMsisdn = resp.OptionalString("customerMsisdn")
	record.PayerReference = resp.OptionalString("payerReference")
	record.AgreementID = resp.OptionalString("agreementID")
	record.ExecuteTime = &now
	record.AgreementExecuteTime = nil
	if resp.Has("agreementExecuteTime") {
		record.AgreementExecuteTime = &now
	}
	record.AgreementStatus = resp.OptionalString("agreementStatus")
	record.TransactionStatus = resp.String("transactionStatus")
	record.StatusCode = resp.String("statusCode")
	record.StatusMessage = resp.String("statusMessage")
	record.UpdatedAt = now

	if err := s.ledger.UpdatePayment(ctx, record); err != nil {
		return nil, wrap(KindPaymentExecute, executeFailure, err)
	}

	s.logger.Info(ctx, "bkash payment executed",
		"tenant", tenant, "payment_id", paymentID, "status", record.TransactionStatus)

	if s.paymentSuccessEvent && s.notifier != nil {
		if err := s.notifier.PaymentSucceeded(ctx, record, resp.Body); err != nil {
			s.logger.Error(ctx, "payment succeeded event not delivered", "payment_id", paymentID, "error", err)
		}
	}

	return resp.Body, nil
}

// QueryPayment fetches the current upstream status and merges it into the
// local record. trxID, customerMsisdn, payerReference and agreementID keep
// their stored values when upstream omits them; the status fields are always
// overwritten.
func (s *Service) QueryPayment(ctx context.Context, tenant, paymentID string) (data map[string]any, err error) {
	ctx, done := s.observe(ctx, "QueryPayment", tenant)
	defer func() { done(err) }()

	token, err := s.getToken(ctx, tenant)
	if err != nil {
		return nil, wrap(KindPaymentQuery, queryFailure, err)
	}

	resp, err := s.gateway.Status(ctx, token, paymentID)
	if err != nil {
		return nil, wrap(KindPaymentQuery, queryFailure, err)
	}
	if !resp.Succeeded("paymentID") {
		return nil, upstreamError(KindPaymentQuery, resp, queryFailure)
	}

	record, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return nil, wrap(KindPaymentQuery, queryFailure, err)
	}
	if record == nil {
		s.logger.Warn(ctx, "queried payment has no local record", "tenant", tenant, "payment_id", paymentID)
		return resp.Body, nil
	}

	record.TrxID = keep(resp.OptionalString("trxID"), record.TrxID)
	record.CustomerMsisdn = keep(resp.OptionalString("customerMsisdn"), record.CustomerMsisdn)
	record.PayerReference = keep(resp.OptionalString("payerReference"), record.PayerReference)
	record.AgreementID = keep(resp.OptionalString("agreementID"), record.AgreementID)
	record.TransactionStatus = resp.String("transactionStatus")
	record.StatusCode = resp.String("statusCode")
	record.StatusMessage = resp.String("statusMessage")
	record.UpdatedAt = s.now()

	if err := s.ledger.UpdatePayment(ctx, record); err != nil {
		return nil, wrap(KindPaymentQuery, queryFailure, err)
	}
	return resp.Body, nil
}

// Payment returns the local record for paymentID, or common.ErrorNotFound.
func (s *Service) Payment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	return s.ledger.FindPayment(ctx, paymentID)
}

// findPayment maps common.ErrorNotFound to a nil record.
func (s *Service) findPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	p, err := s.ledger.FindPayment(ctx, paymentID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return p, err
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// nullable sends JSON null for an empty value.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func keep(fresh, stored *string) *string {
	if fresh != nil {
		return fresh
	}
	return stored
}
