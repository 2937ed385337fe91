package command

import (
	"context"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

// AcceptPurchaseRequestCommand represents the seller accepting part of a buyer's request
type AcceptPurchaseRequestCommand struct {
	ListingID        string `json:"listing_id" validate:"required"`
	BuyerContact     string `json:"buyer_contact" validate:"required"`
	AcceptedQuantity string `json:"accepted_quantity" validate:"required"`
}

// AcceptPurchaseRequestHandler handles acceptance; only the seller may accept.
type AcceptPurchaseRequestHandler struct {
	listings Listings
	identity domain.IdentityProvider
}

// NewAcceptPurchaseRequestHandler creates a new accept purchase request handler
func NewAcceptPurchaseRequestHandler(listings Listings, identity domain.IdentityProvider) *AcceptPurchaseRequestHandler {
	return &AcceptPurchaseRequestHandler{listings: listings, identity: identity}
}

// Handle executes the accept purchase request command
func (h *AcceptPurchaseRequestHandler) Handle(ctx context.Context, cmd AcceptPurchaseRequestCommand) error {
	if err := validateCommand(cmd); err != nil {
		return err
	}
	caller, err := requireIdentity(ctx, h.identity)
	if err != nil {
		return err
	}
	quantity, err := domain.ParseQuantity("accepted_quantity", cmd.AcceptedQuantity)
	if err != nil {
		return err
	}
	if _, err := ownedListing(h.listings, cmd.ListingID, caller); err != nil {
		return err
	}
	return h.listings.AcceptPurchaseRequest(ctx, cmd.ListingID, cmd.BuyerContact, quantity)
}
