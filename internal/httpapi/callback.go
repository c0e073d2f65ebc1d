package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/bkashgate/internal/common"
)

const notSuccessful = "Payment was not successful"

type successPage struct {
	PaymentID      string
	TrxID          string
	Amount         string
	CustomerMsisdn string
	Now            time.Time
}

type failedPage struct {
	Error     string
	PaymentID string
}

// callback is where bKash sends the customer after checkout. A payment that
// is already Completed locally with a trxID is only queried; anything else is
// executed.
func (h *Handler) callback(c *gin.Context) {
	ctx := c.Request.Context()
	paymentID := c.Query("paymentID")
	t := tenant(c)

	if c.Query("status") != "success" {
		h.logger.Info(ctx, "bkash callback without success", "payment_id", paymentID, "status", c.Query("status"))
		h.fail(c, notSuccessful, paymentID)
		return
	}

	record, err := h.svc.Payment(ctx, paymentID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		h.fail(c, err.Error(), paymentID)
		return
	}

	var resp map[string]any
	if record != nil && record.TransactionStatus == common.StatusCompleted && record.HasTrxID() {
		resp, err = h.svc.QueryPayment(ctx, t, paymentID)
	} else {
		resp, err = h.svc.ExecutePayment(ctx, t, paymentID)
	}
	if err != nil {
		h.fail(c, err.Error(), paymentID)
		return
	}

	page := h.successPage(resp)
	if page.PaymentID == "" {
		page.PaymentID = paymentID
	}
	if h.successURL != "" {
		c.Redirect(http.StatusFound, withQuery(h.successURL, url.Values{
			"paymentID": {page.PaymentID},
			"trxID":     {page.TrxID},
		}))
		return
	}
	c.HTML(http.StatusOK, "success.html", page)
}

func (h *Handler) fail(c *gin.Context, msg, paymentID string) {
	if h.failedURL != "" {
		c.Redirect(http.StatusFound, withQuery(h.failedURL, url.Values{
			"paymentID": {paymentID},
			"error":     {msg},
		}))
		return
	}
	c.HTML(http.StatusOK, "failed.html", failedPage{Error: msg, PaymentID: paymentID})
}

func (h *Handler) success(c *gin.Context) {
	c.HTML(http.StatusOK, "success.html", successPage{
		PaymentID:      c.Query("paymentID"),
		TrxID:          c.Query("trxID"),
		Amount:         c.Query("amount"),
		CustomerMsisdn: c.Query("customerMsisdn"),
		Now:            h.now(),
	})
}

func (h *Handler) failed(c *gin.Context) {
	c.HTML(http.StatusOK, "failed.html", failedPage{
		Error:     c.Query("error"),
		PaymentID: c.Query("paymentID"),
	})
}

func (h *Handler) successPage(resp map[string]any) successPage {
	return successPage{
		PaymentID:      field(resp, "paymentID"),
		TrxID:          field(resp, "trxID"),
		Amount:         field(resp, "amount"),
		CustomerMsisdn: field(resp, "customerMsisdn"),
		Now:            h.now(),
	}
}

func field(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// withQuery appends q to target, keeping any query target already has.
func withQuery(target string, q url.Values) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	merged := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			if v != "" {
				merged.Set(k, v)
			}
		}
	}
	u.RawQuery = merged.Encode()
	return u.String()
}
