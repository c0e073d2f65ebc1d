package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRecord mirrors one checkout payment as last seen upstream.
// PaymentID is the join key with bKash and is unique.
type PaymentRecord struct {
	PaymentID             string          `json:"payment_id"`
	AgreementID           *string         `json:"agreement_id,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Intent                string          `json:"intent"`
	MerchantInvoiceNumber string          `json:"merchant_invoice_number"`
	TransactionStatus     string          `json:"transaction_status"`
	TrxID                 *string         `json:"trx_id,omitempty"`
	CustomerMsisdn        *string         `json:"customer_msisdn,omitempty"`
	PayerReference        *string         `json:"payer_reference,omitempty"`
	CreateTime            time.Time       `json:"create_time"`
	ExecuteTime           *time.Time      `json:"execute_time,omitempty"`
	AgreementExecuteTime  *time.Time      `json:"agreement_execute_time,omitempty"`
	AgreementStatus       *string         `json:"agreement_status,omitempty"`
	StatusCode            string          `json:"status_code"`
	StatusMessage         string          `json:"status_message"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// HasTrxID reports whether the payment has a non-empty upstream trxID.
func (p *PaymentRecord) HasTrxID() bool {
	return p.TrxID != nil && *p.TrxID != ""
}
