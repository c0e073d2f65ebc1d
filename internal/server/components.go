package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrijs2005/bkashgate/internal/bkash"
	"github.com/dmitrijs2005/bkashgate/internal/config"
	"github.com/dmitrijs2005/bkashgate/internal/cryptox"
	"github.com/dmitrijs2005/bkashgate/internal/events"
	"github.com/dmitrijs2005/bkashgate/internal/gateway"
	"github.com/dmitrijs2005/bkashgate/internal/ledger"
	"github.com/dmitrijs2005/bkashgate/internal/logging"
	"github.com/dmitrijs2005/bkashgate/internal/metrics"
	"github.com/dmitrijs2005/bkashgate/internal/tokencache"
)

// tokenCacheSalt binds the derived cache key to this use of the secret.
var tokenCacheSalt = []byte("bkashgate.tokencache.v1")

var (
	openLedger    = ledger.Open
	openCache     = tokencache.OpenSQLite
	migrateLedger = func(ctx context.Context, m ledger.RepositoryManager, db *sql.DB) error {
		return m.RunMigrations(ctx, db)
	}
)

// Components is the wired object graph shared by the server and bkashctl.
type Components struct {
	Config    *config.Config
	Logger    logging.Logger
	Registry  *prometheus.Registry
	LedgerDB  *sql.DB
	Ledger    *ledger.Store
	Cache     *tokencache.Cache
	Gateway   *gateway.Client
	Service   *bkash.Service
	Publisher *events.Publisher

	closers []func() error
}

// Build opens the ledger and token cache, applies migrations and assembles the
// bkash.Service. Close releases everything Build opened.
func Build(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Components, error) {
	c := &Components{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := c.build(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Components) build(ctx context.Context) error {
	cfg := c.Config

	db, err := openLedger(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	c.LedgerDB = db
	c.closers = append(c.closers, db.Close)

	repos := ledger.NewPostgresRepositoryManager()
	if err := migrateLedger(ctx, repos, db); err != nil {
		return fmt.Errorf("ledger migrations: %w", err)
	}
	c.Ledger = ledger.NewStore(db, repos)

	c.Cache, err = c.tokenCache(ctx)
	if err != nil {
		return err
	}

	c.Gateway = gateway.New(cfg.BaseURL(), gateway.Credentials{
		AppKey:    cfg.AppKey,
		AppSecret: cfg.AppSecret,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}, cfg.HTTPTimeout)

	opts := []bkash.Option{
		bkash.WithLogger(c.Logger),
		bkash.WithMetrics(metrics.New(c.Registry)),
	}
	if len(cfg.KafkaBrokers) > 0 {
		c.Publisher = events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, c.Logger)
		c.closers = append(c.closers, c.Publisher.Close)
		opts = append(opts, bkash.WithNotifier(c.Publisher))
	}

	c.Service = bkash.NewService(c.Gateway, c.Cache, c.Ledger, cfg, opts...)
	return nil
}

// tokenCache returns the SQLite-backed cache when a DSN is configured and an
// in-process one otherwise.
func (c *Components) tokenCache(ctx context.Context) (*tokencache.Cache, error) {
	cfg := c.Config
	if cfg.TokenCacheDSN == "" {
		c.Logger.Warn(ctx, "token cache is in memory; tokens are lost on restart")
		return tokencache.New(tokencache.NewMemoryStore()), nil
	}

	db, err := openCache(ctx, cfg.TokenCacheDSN)
	if err != nil {
		return nil, fmt.Errorf("token cache init error: %w", err)
	}
	c.closers = append(c.closers, db.Close)

	var sealer *cryptox.Sealer
	if cfg.TokenCacheSecret != "" {
		sealer, err = cryptox.NewSealer([]byte(cfg.TokenCacheSecret), tokenCacheSalt)
		if err != nil {
			return nil, fmt.Errorf("token cache sealer: %w", err)
		}
	}
	return tokencache.New(tokencache.NewSQLiteStore(db, sealer)), nil
}

// Close releases resources in reverse order of acquisition.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
