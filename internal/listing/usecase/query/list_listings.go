package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

// Listings is the read side of the listing manager
type Listings interface {
	Get(listingID string) (domain.Listing, bool)
	Filter(query string, category *domain.Category) []domain.Listing
	MyListings(identity string) []domain.Listing
	MyPurchaseRequests(identity string) []domain.RequestWithListing
}

// ListingView is a listing as seen by one viewer
type ListingView struct {
	domain.Listing
	State        domain.ListingState `json:"state"`
	IsOwnListing bool                `json:"is_own_listing"`
}

func viewOf(l domain.Listing, viewer string) ListingView {
	return ListingView{Listing: l, State: l.State(), IsOwnListing: l.IsOwnedBy(viewer)}
}

// ListListingsQuery filters listings by name substring and optional category
type ListListingsQuery struct {
	Query    string
	Category string
}

// ListListingsHandler handles the browse query
type ListListingsHandler struct {
	listings Listings
	identity domain.IdentityProvider
}

// NewListListingsHandler creates a new list listings handler
func NewListListingsHandler(listings Listings, identity domain.IdentityProvider) *ListListingsHandler {
	return &ListListingsHandler{listings: listings, identity: identity}
}

// Handle executes the list listings query. Anonymous viewers own nothing.
func (h *ListListingsHandler) Handle(ctx context.Context, q ListListingsQuery) ([]ListingView, error) {
	var category *domain.Category
	if c := strings.TrimSpace(q.Category); c != "" {
		parsed, ok := domain.ParseCategory(c)
		if !ok {
			return nil, domain.Invalid("category", "is not a known category")
		}
		category = &parsed
	}

	viewer := viewerID(ctx, h.identity)
	listings := h.listings.Filter(q.Query, category)
	views := make([]ListingView, 0, len(listings))
	for _, l := range listings {
		views = append(views, viewOf(l, viewer))
	}
	return views, nil
}

// GetListingQuery represents the query to get one listing
type GetListingQuery struct {
	ID string
}

// GetListingHandler handles get listing query
type GetListingHandler struct {
	listings Listings
	identity domain.IdentityProvider
}

// NewGetListingHandler creates a new get listing handler
func NewGetListingHandler(listings Listings, identity domain.IdentityProvider) *GetListingHandler {
	return &GetListingHandler{listings: listings, identity: identity}
}

// Handle executes the get listing query
func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (*ListingView, error) {
	id, err := domain.RequireText("id", q.ID)
	if err != nil {
		return nil, err
	}
	l, ok := h.listings.Get(id)
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	view := viewOf(l, viewerID(ctx, h.identity))
	return &view, nil
}

func viewerID(ctx context.Context, provider domain.IdentityProvider) string {
	if provider == nil {
		return ""
	}
	id, ok := provider.CurrentUserIdentity(ctx)
	if !ok {
		return ""
	}
	return id.ID
}
