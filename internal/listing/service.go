// Package listing assembles the marketplace listing service.
package listing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/farm-marketplace/internal/auth"
	grpcDelivery "github.com/tair/farm-marketplace/internal/listing/delivery/grpc"
	httpDelivery "github.com/tair/farm-marketplace/internal/listing/delivery/http"
	"github.com/tair/farm-marketplace/internal/listing/domain"
	"github.com/tair/farm-marketplace/internal/listing/manager"
	"github.com/tair/farm-marketplace/internal/location"
)

// Service bundles the manager with its delivery adapters
type Service struct {
	Manager     *manager.Manager
	HTTPHandler *httpDelivery.ListingHandler
	Health      *grpcDelivery.HealthServer
}

// NewService creates a new service bundle
func NewService(m *manager.Manager, handler *httpDelivery.ListingHandler, health *grpcDelivery.HealthServer) *Service {
	return &Service{Manager: m, HTTPHandler: handler, Health: health}
}

// ProvideIdentityProvider provides the request-scoped identity provider
func ProvideIdentityProvider() domain.IdentityProvider {
	return auth.NewContextProvider()
}

// ProvideDirectory provides the location directory
func ProvideDirectory() *location.Directory {
	return location.Default()
}

// ProvideManager provides the listing manager with metrics registered on reg
func ProvideManager(store domain.Store, identity domain.IdentityProvider, publisher domain.EventPublisher, reg prometheus.Registerer, cfg manager.Config) *manager.Manager {
	return manager.New(store, identity, publisher, manager.NewMetrics(reg), cfg)
}

// ProvideHealthServer provides the gRPC health server
func ProvideHealthServer(m *manager.Manager) *grpcDelivery.HealthServer {
	return grpcDelivery.NewHealthServer(m, time.Second)
}
