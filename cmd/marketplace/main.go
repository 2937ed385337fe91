package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"google.golang.org/grpc"

	_ "github.com/tair/farm-marketplace/docs"
	"github.com/tair/farm-marketplace/internal/auth"
	"github.com/tair/farm-marketplace/internal/config"
	"github.com/tair/farm-marketplace/internal/listing"
	grpcDelivery "github.com/tair/farm-marketplace/internal/listing/delivery/grpc"
	httpDelivery "github.com/tair/farm-marketplace/internal/listing/delivery/http"
	"github.com/tair/farm-marketplace/internal/listing/domain"
	"github.com/tair/farm-marketplace/internal/listing/store"
	"github.com/tair/farm-marketplace/kafka"
	"github.com/tair/farm-marketplace/pkg/database"
	"github.com/tair/farm-marketplace/pkg/logger"
	"github.com/tair/farm-marketplace/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		logger.Logger.Error().Err(err).Msg("Marketplace service stopped with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Str("instance_id", cfg.InstanceID).
		Str("store_backend", cfg.StoreBackend).
		Msg("Starting marketplace service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitTracer(cfg.Tracing())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
		}
	}()

	listingStore, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var publisher domain.EventPublisher
	if cfg.KafkaEnabled() {
		p, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.InstanceID)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	} else {
		logger.Logger.Info().Msg("Kafka brokers not configured, listing events are not published")
	}

	var validator *auth.TokenValidator
	if cfg.JWTSecret != "" {
		validator = auth.NewTokenValidator(cfg.JWTSecret, cfg.JWTIssuer)
	} else {
		logger.Logger.Warn().Msg("JWT_SECRET not set, authenticated endpoints will reject every request")
	}

	// Initialize service with Wire DI
	svc, err := listing.InitializeService(listingStore, publisher, validator, prometheus.DefaultRegisterer, cfg.Manager())
	if err != nil {
		return err
	}

	if err := svc.Manager.Start(ctx); err != nil {
		return err
	}
	defer svc.Manager.Close()

	if cfg.KafkaEnabled() {
		// every instance needs every event, so each one joins its own group
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-"+cfg.InstanceID, []string{cfg.Kafka.Topic}, cfg.InstanceID)
		if err != nil {
			return err
		}
		refresh := func(ctx context.Context, _ domain.ListingEvent) error {
			return svc.Manager.Refresh(ctx)
		}
		for _, eventType := range []string{
			domain.EventListingCreated,
			domain.EventListingDeleted,
			domain.EventPurchaseRequested,
			domain.EventPurchaseAccepted,
		} {
			consumer.RegisterHandler(eventType, refresh)
		}
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		defer consumer.Close()
	}

	if cfg.RateLimitEnabled() {
		client, err := database.NewRedisClient(ctx, cfg.RedisConfig())
		if err != nil {
			return err
		}
		defer client.Close()
		svc.HTTPHandler.SetRateLimiter(httpDelivery.NewRateLimiter(client, cfg.Redis.Prefix, cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	go svc.Health.Run(ctx)

	grpcServer := grpcDelivery.NewServer(svc.Health)
	httpServer := newHTTPServer(cfg, svc.HTTPHandler)

	errCh := make(chan error, 2)
	go func() { errCh <- serveGRPC(grpcServer, cfg.GRPCPort) }()
	go func() {
		logger.Logger.Info().
			Str("port", cfg.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Str("swagger_endpoint", "/swagger/").
			Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Logger.Info().Msg("Shutting down server...")
	case err = <-errCh:
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
	}
	grpcServer.GracefulStop()

	return err
}

func newHTTPServer(cfg *config.Config, handler *httpDelivery.ListingHandler) *http.Server {
	router := mux.NewRouter()

	middlewareConfig := httpDelivery.DefaultMiddlewareConfig()
	middlewareConfig.TimeoutDuration = cfg.RequestTimeout
	httpDelivery.RegisterMiddlewares(router, middlewareConfig)

	handler.RegisterRoutes(router)
	handler.RegisterHealthCheck(router)
	httpDelivery.RegisterSwaggerDocs(router, httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpDelivery.SetupCORS(middlewareConfig)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func serveGRPC(server *grpc.Server, port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	logger.Logger.Info().
		Str("port", port).
		Msg("gRPC health server started")

	if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
