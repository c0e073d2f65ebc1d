package bkash

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/bkashgate/internal/common"
	"github.com/dmitrijs2005/bkashgate/internal/config"
	"github.com/dmitrijs2005/bkashgate/internal/gateway"
	"github.com/dmitrijs2005/bkashgate/internal/metrics"
	"github.com/dmitrijs2005/bkashgate/internal/models"
	"github.com/dmitrijs2005/bkashgate/internal/tokencache"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type reply struct {
	status int
	body   string
}

// upstream is a scripted bKash checkout API.
type upstream struct {
	mu      sync.Mutex
	replies map[string]reply
	calls   map[string]int
	bodies  map[string]map[string]any
	headers map[string]http.Header
	srv     *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{
		replies: map[string]reply{},
		calls:   map[string]int{},
		bodies:  map[string]map[string]any{},
		headers: map[string]http.Header{},
	}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/checkout/")

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		u.mu.Lock()
		u.calls[path]++
		u.bodies[path] = body
		u.headers[path] = r.Header.Clone()
		rep, ok := u.replies[path]
		u.mu.Unlock()

		if !ok {
			rep = reply{status: http.StatusNotFound, body: `{"statusCode":"9999","statusMessage":"unscripted"}`}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rep.status)
		_, _ = w.Write([]byte(rep.body))
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) on(path string, status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.replies[path] = reply{status: status, body: body}
}

func (u *upstream) count(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[path]
}

func (u *upstream) total() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, c := range u.calls {
		n += c
	}
	return n
}

func (u *upstream) body(path string) map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bodies[path]
}

// fakeLedger is an in-memory Ledger.
type fakeLedger struct {
	mu        sync.Mutex
	payments  map[string]*models.PaymentRecord
	refunds   []*models.RefundRecord
	findErr   error
	createErr error
	updateErr error
	refundErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{payments: map[string]*models.PaymentRecord{}}
}

func (l *fakeLedger) FindPayment(_ context.Context, id string) (*models.PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.findErr != nil {
		return nil, l.findErr
	}
	p, ok := l.payments[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (l *fakeLedger) CreatePayment(_ context.Context, p *models.PaymentRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return l.createErr
	}
	cp := *p
	l.payments[p.PaymentID] = &cp
	return nil
}

func (l *fakeLedger) UpdatePayment(_ context.Context, p *models.PaymentRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.updateErr != nil {
		return l.updateErr
	}
	if _, ok := l.payments[p.PaymentID]; !ok {
		return common.ErrorNotFound
	}
	cp := *p
	l.payments[p.PaymentID] = &cp
	return nil
}

func (l *fakeLedger) RecordRefund(_ context.Context, rf *models.RefundRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.refundErr != nil {
		return l.refundErr
	}
	l.refunds = append(l.refunds, rf)
	if p, ok := l.payments[rf.PaymentID]; ok {
		p.TransactionStatus = common.StatusRefunded
	}
	return nil
}

func (l *fakeLedger) get(id string) *models.PaymentRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.payments[id]
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) PaymentSucceeded(ctx context.Context, p *models.PaymentRecord, resp map[string]any) error {
	args := m.Called(ctx, p, resp)
	return args.Error(0)
}

type harness struct {
	svc      *Service
	up       *upstream
	ledger   *fakeLedger
	cache    *tokencache.Cache
	clock    *time.Time
	registry *prometheus.Registry
}

func newHarness(t *testing.T, mutate func(*config.Config), opts ...Option) *harness {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	if mutate != nil {
		mutate(cfg)
	}

	now := testNow
	clock := func() time.Time { return now }

	up := newUpstream(t)
	gw := gateway.New(up.srv.URL+"/checkout/", gateway.Credentials{
		AppKey: "key", AppSecret: "secret", Username: "user", Password: "pass",
	}, 5*time.Second)

	cache := tokencache.New(tokencache.NewMemoryStore(), tokencache.WithClock(clock))
	ledger := newFakeLedger()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	ids := 0
	base := []Option{
		WithClock(clock),
		WithMetrics(m),
		WithIDGenerator(func() string { ids++; return "refund-" + string(rune('0'+ids)) }),
	}
	svc := NewService(gw, cache, ledger, cfg, append(base, opts...)...)

	return &harness{svc: svc, up: up, ledger: ledger, cache: cache, clock: &now, registry: reg}
}

func (h *harness) advance(d time.Duration) { *h.clock = h.clock.Add(d) }

func (h *harness) grantOK() {
	h.up.on("token/grant", http.StatusOK, `{"id_token":"T1","expires_in":3600,"token_type":"Bearer","refresh_token":"R1","statusCode":"0000","statusMessage":"Successful"}`)
}

func strPtr(s string) *string { return &s }

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	require.Error(t, err)
	e, ok := err.(*Error)
	require.Truef(t, ok, "want *Error, got %T: %v", err, err)
	require.Equal(t, kind, e.Kind)
	return e
}

// counter returns the value of the counter name with exactly labels, or 0.
func (h *harness) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := h.registry.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metricLoop:
		for _, m := range f.GetMetric() {
			if len(m.GetLabel()) != len(labels) {
				continue
			}
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metricLoop
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
