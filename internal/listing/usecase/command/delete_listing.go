package command

import (
	"context"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

// DeleteListingCommand represents the command to delete a listing
type DeleteListingCommand struct {
	ListingID string `json:"listing_id" validate:"required"`
}

// DeleteListingHandler handles listing deletion; only the seller may delete.
type DeleteListingHandler struct {
	listings Listings
	identity domain.IdentityProvider
}

// NewDeleteListingHandler creates a new delete listing handler
func NewDeleteListingHandler(listings Listings, identity domain.IdentityProvider) *DeleteListingHandler {
	return &DeleteListingHandler{listings: listings, identity: identity}
}

// Handle executes the delete listing command
func (h *DeleteListingHandler) Handle(ctx context.Context, cmd DeleteListingCommand) error {
	if err := validateCommand(cmd); err != nil {
		return err
	}
	caller, err := requireIdentity(ctx, h.identity)
	if err != nil {
		return err
	}
	if _, err := ownedListing(h.listings, cmd.ListingID, caller); err != nil {
		return err
	}
	return h.listings.DeleteListing(ctx, cmd.ListingID)
}
