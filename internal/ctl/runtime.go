package ctl

import (
	"context"

	"github.com/dmitrijs2005/bkashgate/internal/config"
	"github.com/dmitrijs2005/bkashgate/internal/export"
	"github.com/dmitrijs2005/bkashgate/internal/logging"
	"github.com/dmitrijs2005/bkashgate/internal/server"
)

// runtime is what the commands need from a wired gateway.
type runtime interface {
	GetToken(ctx context.Context, tenant string) (string, error)
	RefreshToken(ctx context.Context, tenant string) (string, error)
	Export(ctx context.Context) (*export.Result, error)
	Close() error
}

type componentsRuntime struct {
	c        *server.Components
	exporter *export.Exporter
}

func (r *componentsRuntime) GetToken(ctx context.Context, tenant string) (string, error) {
	return r.c.Service.GetToken(ctx, tenant)
}

func (r *componentsRuntime) RefreshToken(ctx context.Context, tenant string) (string, error) {
	return r.c.Service.RefreshToken(ctx, tenant)
}

func (r *componentsRuntime) Export(ctx context.Context) (*export.Result, error) {
	return r.exporter.Export(ctx)
}

func (r *componentsRuntime) Close() error { return r.c.Close() }

// openRuntime builds the real object graph; migrations run as part of it.
var openRuntime = func(ctx context.Context, cfg *config.Config, l logging.Logger) (runtime, error) {
	c, err := server.Build(ctx, cfg, l)
	if err != nil {
		return nil, err
	}
	return &componentsRuntime{c: c, exporter: export.NewExporter(c.Ledger, cfg, l)}, nil
}
