package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmitrijs2005/bkashgate/internal/common"
)

const (
	pathGrantToken   = "token/grant"
	pathRefreshToken = "token/refresh"
	pathCreate       = "create"
	pathExecute      = "execute"
	pathStatus       = "payment/status"
	pathRefund       = "payment/refund"
)

// Credentials are the merchant credentials issued by bKash.
type Credentials struct {
	AppKey    string
	AppSecret string
	Username  string
	Password  string
}

// Client talks to one bKash environment.
type Client struct {
	http  *resty.Client
	creds Credentials
}

type Option func(*resty.Client)

// WithTransport replaces the underlying round tripper. It is still wrapped
// with otelhttp.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *resty.Client) {
		c.SetTransport(otelhttp.NewTransport(rt))
	}
}

// New returns a Client for baseURL, the ".../tokenized/checkout/" root.
func New(baseURL string, creds Credentials, timeout time.Duration, opts ...Option) *Client {
	hc := resty.New()
	hc.SetBaseURL(baseURL)
	hc.SetTimeout(timeout)
	hc.SetTransport(otelhttp.NewTransport(http.DefaultTransport))
	hc.SetHeader("Accept", "application/json")
	hc.SetHeader("Content-Type", "application/json")

	for _, o := range opts {
		o(hc)
	}

	return &Client{http: hc, creds: creds}
}

// GrantToken requests a new id_token.
func (c *Client) GrantToken(ctx context.Context) (*Response, error) {
	return c.do(c.basicAuth(ctx), pathGrantToken, map[string]string{
		"app_key":    c.creds.AppKey,
		"app_secret": c.creds.AppSecret,
	})
}

// RefreshToken exchanges refreshToken for a new id_token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Response, error) {
	return c.do(c.basicAuth(ctx), pathRefreshToken, map[string]string{
		"app_key":       c.creds.AppKey,
		"app_secret":    c.creds.AppSecret,
		"refresh_token": refreshToken,
	})
}

// Create starts a checkout payment.
func (c *Client) Create(ctx context.Context, idToken string, payload map[string]any) (*Response, error) {
	return c.do(c.bearer(ctx, idToken), pathCreate, payload)
}

// Execute finalises a payment the customer has authorised.
func (c *Client) Execute(ctx context.Context, idToken, paymentID string) (*Response, error) {
	return c.do(c.bearer(ctx, idToken), pathExecute, map[string]string{"paymentID": paymentID})
}

// Status queries the current state of a payment.
func (c *Client) Status(ctx context.Context, idToken, paymentID string) (*Response, error) {
	return c.do(c.bearer(ctx, idToken), pathStatus, map[string]string{"paymentID": paymentID})
}

// Refund refunds all or part of an executed payment.
func (c *Client) Refund(ctx context.Context, idToken string, payload map[string]any) (*Response, error) {
	return c.do(c.bearer(ctx, idToken), pathRefund, payload)
}

func (c *Client) basicAuth(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeader(common.UsernameHeaderName, c.creds.Username).
		SetHeader(common.PasswordHeaderName, c.creds.Password)
}

func (c *Client) bearer(ctx context.Context, idToken string) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeader(common.AuthorizationHeaderName, idToken).
		SetHeader(common.AppKeyHeaderName, c.creds.AppKey)
}

func (c *Client) do(req *resty.Request, path string, body any) (*Response, error) {
	resp, err := req.SetBody(body).Post(path)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}

	out := &Response{StatusCode: resp.StatusCode(), Raw: resp.Body()}
	if err := json.Unmarshal(out.Raw, &out.Body); err != nil || out.Body == nil {
		// Upstream occasionally answers with HTML or an empty body.
		out.Body = map[string]any{}
	}
	return out, nil
}
