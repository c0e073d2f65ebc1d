package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dmitrijs2005/bkashgate/internal/bkash"
	"github.com/dmitrijs2005/bkashgate/internal/common"
	"github.com/dmitrijs2005/bkashgate/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxBodyBytes    = 64 << 10
)

type createPaymentRequest struct {
	CallbackURL           string          `json:"callback_url"`
	Amount                decimal.Decimal `json:"amount"`
	MerchantInvoiceNumber string          `json:"merchant_invoice_number"`
	PayerReference        string          `json:"payer_reference"`
	Currency              string          `json:"currency"`
	Intent                string          `json:"intent"`
	AgreementID           string          `json:"agreement_id"`
}

type refundRequest struct {
	TrxID  string          `json:"trx_id"`
	Amount decimal.Decimal `json:"amount"`
	SKU    string          `json:"sku"`
	Reason string          `json:"reason"`
}

type paymentDetails struct {
	Payment *models.PaymentRecord  `json:"payment"`
	Refunds []*models.RefundRecord `json:"refunds"`
}

// bind validates the body against schema and decodes it into dst.
func (h *Handler) bind(c *gin.Context, schema string, dst any) error {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", common.ErrorValidation, err)
	}
	if err := h.contracts.validate(schema, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}

func (h *Handler) createPayment(c *gin.Context) {
	var req createPaymentRequest
	if err := h.bind(c, schemaCreatePayment, &req); err != nil {
		h.writeError(c, err)
		return
	}

	resp, err := h.svc.CreatePayment(c.Request.Context(), tenant(c), bkash.CreatePaymentInput{
		CallbackURL:           req.CallbackURL,
		Amount:                req.Amount,
		MerchantInvoiceNumber: req.MerchantInvoiceNumber,
		PayerReference:        req.PayerReference,
		Currency:              req.Currency,
		Intent:                req.Intent,
		AgreementID:           req.AgreementID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) executePayment(c *gin.Context) {
	resp, err := h.svc.ExecutePayment(c.Request.Context(), tenant(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) queryPayment(c *gin.Context) {
	resp, err := h.svc.QueryPayment(c.Request.Context(), tenant(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) refundPayment(c *gin.Context) {
	var req refundRequest
	if err := h.bind(c, schemaRefundPayment, &req); err != nil {
		h.writeError(c, err)
		return
	}

	resp, err := h.svc.RefundPayment(c.Request.Context(), tenant(c), bkash.RefundInput{
		PaymentID: c.Param("id"),
		TrxID:     req.TrxID,
		Amount:    req.Amount,
		SKU:       req.SKU,
		Reason:    req.Reason,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// paymentRecord returns the local view of a payment with its refunds.
func (h *Handler) paymentRecord(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	p, err := h.svc.Payment(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	refunds, err := h.ledger.PaymentRefunds(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if refunds == nil {
		refunds = []*models.RefundRecord{}
	}
	c.JSON(http.StatusOK, paymentDetails{Payment: p, Refunds: refunds})
}

func (h *Handler) listPayments(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		h.writeError(c, err)
		return
	}
	limit = min(max(limit, 1), maxPageSize)

	list, err := h.ledger.ListPayments(c.Request.Context(), limit, max(offset, 0))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if list == nil {
		list = []*models.PaymentRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"payments": list, "limit": limit, "offset": max(offset, 0)})
}

// refreshToken forces a token refresh for the tenant. The token itself is
// never returned.
func (h *Handler) refreshToken(c *gin.Context) {
	if _, err := h.svc.RefreshToken(c.Request.Context(), tenant(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrorValidation, key)
	}
	return n, nil
}
