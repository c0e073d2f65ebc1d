// Package httpapi exposes the checkout flow over HTTP: the bKash callback and
// result pages for browsers, and a JSON API for the merchant backend.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/bkashgate/internal/bkash"
	"github.com/dmitrijs2005/bkashgate/internal/common"
	"github.com/dmitrijs2005/bkashgate/internal/config"
	"github.com/dmitrijs2005/bkashgate/internal/logging"
	"github.com/dmitrijs2005/bkashgate/internal/models"
)

// Orchestrator is the part of bkash.Service the handlers drive.
type Orchestrator interface {
	CreatePayment(ctx context.Context, tenant string, in bkash.CreatePaymentInput) (map[string]any, error)
	ExecutePayment(ctx context.Context, tenant, paymentID string) (map[string]any, error)
	QueryPayment(ctx context.Context, tenant, paymentID string) (map[string]any, error)
	RefundPayment(ctx context.Context, tenant string, in bkash.RefundInput) (map[string]any, error)
	RefreshToken(ctx context.Context, tenant string) (string, error)
	Payment(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
}

// Ledger is the read side used by the listing endpoints.
type Ledger interface {
	ListPayments(ctx context.Context, limit, offset int) ([]*models.PaymentRecord, error)
	PaymentRefunds(ctx context.Context, paymentID string) ([]*models.RefundRecord, error)
}

type Handler struct {
	svc       Orchestrator
	ledger    Ledger
	contracts contracts
	logger    logging.Logger
	now       func() time.Time
	ready     func(ctx context.Context) error

	successURL string
	failedURL  string
}

type HandlerOption func(*Handler)

// WithReadiness makes /healthz report 503 while check fails.
func WithReadiness(check func(ctx context.Context) error) HandlerOption {
	return func(h *Handler) { h.ready = check }
}

func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

func NewHandler(svc Orchestrator, ledger Ledger, cfg *config.Config, l logging.Logger, opts ...HandlerOption) (*Handler, error) {
	c, err := loadContracts()
	if err != nil {
		return nil, err
	}
	h := &Handler{
		svc:        svc,
		ledger:     ledger,
		contracts:  c,
		logger:     l.With("module", "httpapi"),
		now:        time.Now,
		successURL: cfg.SuccessRedirectURL,
		failedURL:  cfg.FailedRedirectURL,
	}
	for _, o := range opts {
		o(h)
	}
	return h, nil
}

// tenant reads the tenant scope from the X-Tenant-ID header, falling back to
// the tenant query parameter for browser redirects.
func tenant(c *gin.Context) string {
	if t := c.GetHeader(common.TenantHeaderName); t != "" {
		return t
	}
	return c.Query("tenant")
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Code  int    `json:"code,omitempty"`
}

// writeError maps err onto an HTTP status: validation 400, unknown local
// record 404, already refunded 409, any other orchestrator failure 502.
func (h *Handler) writeError(c *gin.Context, err error) {
	body := errorBody{Error: err.Error()}

	var be *bkash.Error
	if errors.As(err, &be) {
		body.Kind = string(be.Kind)
		body.Code = be.Code
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrorValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrAlreadyRefunded):
		status = http.StatusConflict
	case be != nil:
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}

func (h *Handler) healthz(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
