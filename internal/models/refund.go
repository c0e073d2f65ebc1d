package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RefundRecord struct {
	ID                string          `json:"id"`
	PaymentID         string          `json:"payment_id"`
	OriginalTrxID     string          `json:"original_trx_id"`
	RefundTrxID       string          `json:"refund_trx_id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	TransactionStatus string          `json:"transaction_status"`
	CompletedTime     time.Time       `json:"completed_time"`
	Reason            string          `json:"reason"`
	CreatedAt         time.Time       `json:"created_at"`
}
