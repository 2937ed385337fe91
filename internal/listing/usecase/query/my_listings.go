package query

import (
	"context"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

// MyListingsQuery lists the caller's own listings
type MyListingsQuery struct{}

// MyListingsHandler handles the seller dashboard query
type MyListingsHandler struct {
	listings Listings
	identity domain.IdentityProvider
}

// NewMyListingsHandler creates a new my listings handler
func NewMyListingsHandler(listings Listings, identity domain.IdentityProvider) *MyListingsHandler {
	return &MyListingsHandler{listings: listings, identity: identity}
}

// Handle executes the my listings query
func (h *MyListingsHandler) Handle(ctx context.Context, _ MyListingsQuery) ([]ListingView, error) {
	viewer := viewerID(ctx, h.identity)
	if viewer == "" {
		return nil, domain.ErrUnauthenticated
	}
	listings := h.listings.MyListings(viewer)
	views := make([]ListingView, 0, len(listings))
	for _, l := range listings {
		views = append(views, viewOf(l, viewer))
	}
	return views, nil
}

// MyPurchaseRequestsQuery lists the requests the caller placed across all listings
type MyPurchaseRequestsQuery struct{}

// MyPurchaseRequestsHandler handles the buyer dashboard query
type MyPurchaseRequestsHandler struct {
	listings Listings
	identity domain.IdentityProvider
}

// NewMyPurchaseRequestsHandler creates a new my purchase requests handler
func NewMyPurchaseRequestsHandler(listings Listings, identity domain.IdentityProvider) *MyPurchaseRequestsHandler {
	return &MyPurchaseRequestsHandler{listings: listings, identity: identity}
}

// Handle executes the my purchase requests query
func (h *MyPurchaseRequestsHandler) Handle(ctx context.Context, _ MyPurchaseRequestsQuery) ([]domain.RequestWithListing, error) {
	viewer := viewerID(ctx, h.identity)
	if viewer == "" {
		return nil, domain.ErrUnauthenticated
	}
	return h.listings.MyPurchaseRequests(viewer), nil
}
