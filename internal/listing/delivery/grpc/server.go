package grpc

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/tair/farm-marketplace/pkg/logger"
)

// ServiceName is the health service name reported for the listing manager
const ServiceName = "marketplace.Listings"

// ReadinessChecker reports whether the listing cache has loaded
type ReadinessChecker interface {
	Ready() bool
}

// HealthServer publishes listing manager readiness over grpc.health.v1
type HealthServer struct {
	health    *health.Server
	readiness ReadinessChecker
	interval  time.Duration
}

// NewHealthServer creates a health server that starts out NOT_SERVING
func NewHealthServer(readiness ReadinessChecker, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = time.Second
	}
	s := &HealthServer{
		health:    health.NewServer(),
		readiness: readiness,
		interval:  interval,
	}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// NewServer creates a gRPC server with tracing and logging and registers the health service on it
func NewServer(hs *HealthServer) *grpc.Server {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(LoggingInterceptor),
	)
	healthpb.RegisterHealthServer(server, hs.health)

	// Register reflection service (for grpcurl and grpc tools)
	reflection.Register(server)
	return server
}

// Run mirrors readiness into the health status until ctx is cancelled, then reports NOT_SERVING.
func (s *HealthServer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_NOT_SERVING
	for {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if s.readiness.Ready() {
			status = healthpb.HealthCheckResponse_SERVING
		}
		if status != last {
			logger.Logger.Info().Str("status", status.String()).Msg("gRPC health status changed")
			last = status
		}
		s.set(status)

		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

func (s *HealthServer) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// LoggingInterceptor logs gRPC requests
func LoggingInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	event := logger.WithContext(ctx).Debug()
	if err != nil {
		event = logger.WithContext(ctx).Warn().Err(err)
	}
	event.
		Str("method", info.FullMethod).
		Dur("duration", time.Since(start)).
		Msg("gRPC request handled")

	return resp, err
}
