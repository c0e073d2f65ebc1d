package bkash

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/bkashgate/internal/config"
	"github.com/dmitrijs2005/bkashgate/internal/gateway"
	"github.com/dmitrijs2005/bkashgate/internal/logging"
	"github.com/dmitrijs2005/bkashgate/internal/metrics"
	"github.com/dmitrijs2005/bkashgate/internal/models"
)

const tracerName = "github.com/dmitrijs2005/bkashgate/internal/bkash"

// TokenCache stores bearer and refresh tokens per tenant.
type TokenCache interface {
	Get(ctx context.Context, tenant string) (*models.Token, error)
	Put(ctx context.Context, tenant, value string, ttl time.Duration) error
	GetRefresh(ctx context.Context, tenant string) (*models.Token, error)
	PutRefresh(ctx context.Context, tenant, value string, ttl time.Duration) error
}

// Gateway is the upstream checkout API.
type Gateway interface {
	GrantToken(ctx context.Context) (*gateway.Response, error)
	RefreshToken(ctx context.Context, refreshToken string) (*gateway.Response, error)
	Create(ctx context.Context, idToken string, payload map[string]any) (*gateway.Response, error)
	Execute(ctx context.Context, idToken, paymentID string) (*gateway.Response, error)
	Status(ctx context.Context, idToken, paymentID string) (*gateway.Response, error)
	Refund(ctx context.Context, idToken string, payload map[string]any) (*gateway.Response, error)
}

// Ledger is the local payment store. FindPayment returns common.ErrorNotFound
// for unknown payments. RecordRefund must store the refund and mark the
// payment refunded atomically.
type Ledger interface {
	FindPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	CreatePayment(ctx context.Context, p *models.PaymentRecord) error
	UpdatePayment(ctx context.Context, p *models.PaymentRecord) error
	RecordRefund(ctx context.Context, rf *models.RefundRecord) error
}

// Notifier receives the payment-succeeded event after a successful execute.
type Notifier interface {
	PaymentSucceeded(ctx context.Context, payment *models.PaymentRecord, response map[string]any) error
}

// Service implements the checkout flow. It holds no per-tenant state and is
// safe for concurrent use.
type Service struct {
	gateway Gateway
	cache   TokenCache
	ledger  Ledger

	defaultCurrency      string
	defaultIntent        string
	tokenLifetime        time.Duration
	refreshTokenLifetime time.Duration
	paymentSuccessEvent  bool

	notifier Notifier
	logger   logging.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithLogger(l logging.Logger) Option { return func(s *Service) { s.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDGenerator overrides the refund record id generator.
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(tracerName) }
}

// NewService builds a Service from its collaborators and runtime config.
func NewService(gw Gateway, cache TokenCache, ledger Ledger, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		gateway:              gw,
		cache:                cache,
		ledger:               ledger,
		defaultCurrency:      cfg.DefaultCurrency,
		defaultIntent:        cfg.DefaultIntent,
		tokenLifetime:        cfg.TokenLifetime,
		refreshTokenLifetime: cfg.RefreshTokenLifetime,
		paymentSuccessEvent:  cfg.PaymentSuccessEvent,
		logger:               logging.Nop(),
		tracer:               otel.Tracer(tracerName),
		now:                  time.Now,
		newID:                newUUID,
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("module", "bkash")
	return s
}

// observe wraps one operation in a span and records its metrics. Call the
// returned func with the operation's final error.
func (s *Service) observe(ctx context.Context, op, tenant string) (context.Context, func(error)) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "bkash."+op,
		trace.WithAttributes(attribute.Bool("bkash.tenant_scoped", tenant != "")),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.ObserveOperation(op, tenant != "", err, s.now().Sub(start))
	}
}
