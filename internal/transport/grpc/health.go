package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const ServiceName = "course-marketplace"

// Probe reports whether a dependency is usable.
type Probe func(ctx context.Context) error

// HealthServer exposes grpc.health.v1 for orchestrators.
type HealthServer struct {
	server *gogrpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewHealthServer(logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &HealthServer{
		server: gogrpc.NewServer(),
		health: health.NewServer(),
		logger: logger,
	}
	grpc_health_v1.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)
	s.SetServing(false)
	return s
}

func (s *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Watch runs the probes every interval until ctx is done and flips the
// serving status accordingly.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration, probes ...Probe) {
	check := func() {
		for _, probe := range probes {
			probeCtx, cancel := context.WithTimeout(ctx, interval)
			err := probe(probeCtx)
			cancel()
			if err != nil {
				s.logger.Warn("health probe failed", "event", "health_probe_failed", "error", err.Error())
				s.SetServing(false)
				return
			}
		}
		s.SetServing(true)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

func (s *HealthServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Stop marks the service as not serving and drains in-flight calls.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
