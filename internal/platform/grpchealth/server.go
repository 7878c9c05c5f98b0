// Package grpchealth serves the standard grpc.health.v1 service so Kubernetes
// gRPC probes can follow greeter readiness.
package grpchealth

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	applog "github.com/janisto/greeter/internal/platform/logging"
	"github.com/janisto/greeter/internal/platform/readiness"
)

// ServiceName is the named service reported alongside the overall ("") status.
const ServiceName = "greeter"

// Server wraps a grpc.Server exposing only the health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// New builds a health server whose statuses follow state.
func New(state *readiness.State) *Server {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{grpc: gs, health: hs}
	state.OnChange(s.setServing)
	return s
}

func (s *Server) setServing(ready bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve accepts connections on ln until Shutdown. It returns nil after a shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.grpc.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Shutdown reports NOT_SERVING for every service, then stops gracefully.
// If ctx ends first, open streams (e.g. Watch) are cut.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		applog.LogWarn(ctx, "grpc health graceful stop timed out", zap.Error(ctx.Err()))
		s.grpc.Stop()
		return ctx.Err()
	}
}
