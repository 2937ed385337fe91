package command

import (
	"context"
	"strings"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

// SubmitPurchaseRequestCommand carries the raw purchase form. The buyer contact
// is always the caller's identity so that the request shows up under their requests.
type SubmitPurchaseRequestCommand struct {
	ListingID       string `json:"listing_id" validate:"required"`
	BuyerName       string `json:"buyer_name" validate:"max=100"`
	DeliveryAddress string `json:"delivery_address" validate:"required,max=300"`
	Quantity        string `json:"quantity" validate:"required"`
}

// SubmitPurchaseRequestHandler handles purchase request submission
type SubmitPurchaseRequestHandler struct {
	listings Listings
	identity domain.IdentityProvider
}

// NewSubmitPurchaseRequestHandler creates a new submit purchase request handler
func NewSubmitPurchaseRequestHandler(listings Listings, identity domain.IdentityProvider) *SubmitPurchaseRequestHandler {
	return &SubmitPurchaseRequestHandler{listings: listings, identity: identity}
}

// Handle executes the submit purchase request command
func (h *SubmitPurchaseRequestHandler) Handle(ctx context.Context, cmd SubmitPurchaseRequestCommand) (*domain.PurchaseRequest, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	caller, err := requireIdentity(ctx, h.identity)
	if err != nil {
		return nil, err
	}
	quantity, err := domain.ParseQuantity("quantity", cmd.Quantity)
	if err != nil {
		return nil, err
	}

	buyerName := strings.TrimSpace(cmd.BuyerName)
	if buyerName == "" {
		buyerName = caller.DisplayName
	}

	req, err := h.listings.SubmitPurchaseRequest(ctx, cmd.ListingID, domain.PurchaseInput{
		BuyerName:         buyerName,
		BuyerContact:      caller.ID,
		DeliveryAddress:   cmd.DeliveryAddress,
		RequestedQuantity: quantity,
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}
