// Package health serves the standard gRPC health protocol for the gateway.
package health

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/bkashgate/internal/logging"
)

// ServiceName is the health service name reported next to the overall status.
const ServiceName = "bkashgate.Gateway"

// Checker reports whether a dependency is usable.
type Checker func(ctx context.Context) error

type Server struct {
	address  string
	logger   logging.Logger
	health   *health.Server
	checks   map[string]Checker
	interval time.Duration
}

type Option func(*Server)

// WithCheck adds a named dependency probe. Any failing probe turns the
// gateway NOT_SERVING until the next successful round.
func WithCheck(name string, c Checker) Option {
	return func(s *Server) { s.checks[name] = c }
}

func WithInterval(d time.Duration) Option {
	return func(s *Server) { s.interval = d }
}

func NewServer(address string, l logging.Logger, opts ...Option) *Server {
	s := &Server{
		address:  address,
		logger:   l.With("module", "health"),
		health:   health.NewServer(),
		checks:   map[string]Checker{},
		interval: 15 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// probe runs every check once and publishes the combined status.
func (s *Server) probe(ctx context.Context) {
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn(ctx, "health check failed", "check", name, "error", err)
			s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
			return
		}
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.probe(ctx)
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info(ctx, "Stopping gRPC health server...")
				s.health.Shutdown()
				srv.GracefulStop()
				return
			case <-ticker.C:
				s.probe(ctx)
			}
		}
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
