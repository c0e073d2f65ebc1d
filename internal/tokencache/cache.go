package tokencache

import (
	"context"
	"time"

	"github.com/dmitrijs2005/bkashgate/internal/models"
)

const (
	TokenKey        = "bkash_token"
	RefreshTokenKey = "bkash_refresh_token"
)

// Key returns the storage key for key scoped to tenant. An empty tenant means
// the default, unscoped entry.
func Key(tenant, key string) string {
	if tenant == "" {
		return key
	}
	return "tenant_" + tenant + "_" + key
}

// Entry is a stored value with its absolute expiry.
type Entry struct {
	Value     string
	ExpiresAt time.Time
}

// Store is a plain key/value backend. Expiry is enforced by Cache, not by the
// store.
type Store interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Save(ctx context.Context, key string, e Entry) error
}

// Cache applies token semantics over a Store: TTL on write and
// absent-on-expiry on read.
type Cache struct {
	store Store
	now   func() time.Time
}

type Option func(*Cache)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(store Store, opts ...Option) *Cache {
	c := &Cache{store: store, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the tenant's bearer token, or nil when absent or expired.
func (c *Cache) Get(ctx context.Context, tenant string) (*models.Token, error) {
	return c.get(ctx, tenant, TokenKey)
}

// Put stores the tenant's bearer token for ttl.
func (c *Cache) Put(ctx context.Context, tenant, value string, ttl time.Duration) error {
	return c.put(ctx, tenant, TokenKey, value, ttl)
}

// GetRefresh returns the tenant's refresh token, or nil when absent or expired.
func (c *Cache) GetRefresh(ctx context.Context, tenant string) (*models.Token, error) {
	return c.get(ctx, tenant, RefreshTokenKey)
}

// PutRefresh stores the tenant's refresh token for ttl.
func (c *Cache) PutRefresh(ctx context.Context, tenant, value string, ttl time.Duration) error {
	return c.put(ctx, tenant, RefreshTokenKey, value, ttl)
}

func (c *Cache) get(ctx context.Context, tenant, key string) (*models.Token, error) {
	e, ok, err := c.store.Load(ctx, Key(tenant, key))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	tok := &models.Token{Value: e.Value, ExpiresAt: e.ExpiresAt, Tenant: tenant}
	if tok.Expired(c.now()) {
		return nil, nil
	}
	return tok, nil
}

func (c *Cache) put(ctx context.Context, tenant, key, value string, ttl time.Duration) error {
	return c.store.Save(ctx, Key(tenant, key), Entry{Value: value, ExpiresAt: c.now().Add(ttl)})
}
