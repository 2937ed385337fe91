//go:build wireinject
// +build wireinject

package listing

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/farm-marketplace/internal/auth"
	"github.com/tair/farm-marketplace/internal/listing/delivery/http"
	"github.com/tair/farm-marketplace/internal/listing/domain"
	"github.com/tair/farm-marketplace/internal/listing/manager"
	"github.com/tair/farm-marketplace/internal/listing/usecase/command"
	"github.com/tair/farm-marketplace/internal/listing/usecase/query"
)

// Wire sets
var ManagerSet = wire.NewSet(
	ProvideIdentityProvider,
	ProvideDirectory,
	ProvideManager,
	wire.Bind(new(command.Listings), new(*manager.Manager)),
	wire.Bind(new(query.Listings), new(*manager.Manager)),
	wire.Bind(new(http.ReadinessChecker), new(*manager.Manager)),
)

var CommandHandlerSet = wire.NewSet(
	command.NewCreateListingHandler,
	command.NewDeleteListingHandler,
	command.NewSubmitPurchaseRequestHandler,
	command.NewAcceptPurchaseRequestHandler,
	command.NewRefreshListingsHandler,
)

var QueryHandlerSet = wire.NewSet(
	query.NewListListingsHandler,
	query.NewGetListingHandler,
	query.NewMyListingsHandler,
	query.NewMyPurchaseRequestsHandler,
)

// InitializeService initializes the manager, HTTP handler and health server with all dependencies
func InitializeService(
	store domain.Store,
	publisher domain.EventPublisher,
	validator *auth.TokenValidator,
	reg prometheus.Registerer,
	cfg manager.Config,
) (*Service, error) {
	wire.Build(
		ManagerSet,
		CommandHandlerSet,
		QueryHandlerSet,
		http.NewListingHandler,
		ProvideHealthServer,
		NewService,
	)
	return nil, nil
}
