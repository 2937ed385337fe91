package command

import "context"

// RefreshListingsCommand asks for a full re-fetch of the listing store
type RefreshListingsCommand struct{}

// RefreshListingsHandler handles explicit refreshes
type RefreshListingsHandler struct {
	listings Listings
}

// NewRefreshListingsHandler creates a new refresh handler
func NewRefreshListingsHandler(listings Listings) *RefreshListingsHandler {
	return &RefreshListingsHandler{listings: listings}
}

// Handle executes the refresh command
func (h *RefreshListingsHandler) Handle(ctx context.Context, _ RefreshListingsCommand) error {
	return h.listings.Refresh(ctx)
}
