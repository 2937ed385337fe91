package command

import (
	"context"
	"strings"

	"github.com/tair/farm-marketplace/internal/listing/domain"
	"github.com/tair/farm-marketplace/internal/location"
)

// CreateListingCommand carries the raw listing form. Location is either given
// directly or composed from Region and SubRegion.
type CreateListingCommand struct {
	Name          string `json:"name" validate:"required,max=100"`
	Quantity      string `json:"quantity" validate:"required"`
	Rate          string `json:"rate" validate:"required"`
	Category      string `json:"category" validate:"required"`
	Location      string `json:"location" validate:"required_without=Region,max=200"`
	Region        string `json:"region" validate:"required_with=SubRegion"`
	SubRegion     string `json:"sub_region" validate:"required_with=Region"`
	SellerName    string `json:"seller_name" validate:"max=100"`
	SellerContact string `json:"seller_contact" validate:"omitempty,numeric,len=10"`
}

// CreateListingHandler handles listing creation
type CreateListingHandler struct {
	listings  Listings
	directory *location.Directory
}

// NewCreateListingHandler creates a new create listing handler
func NewCreateListingHandler(listings Listings, directory *location.Directory) *CreateListingHandler {
	return &CreateListingHandler{listings: listings, directory: directory}
}

// Handle executes the create listing command
func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*domain.Listing, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	quantity, err := domain.ParseQuantity("quantity", cmd.Quantity)
	if err != nil {
		return nil, err
	}
	rate, err := domain.ParseQuantity("rate", cmd.Rate)
	if err != nil {
		return nil, err
	}
	category, ok := domain.ParseCategory(cmd.Category)
	if !ok {
		return nil, domain.Invalid("category", "is not a known category")
	}

	loc := strings.TrimSpace(cmd.Location)
	if strings.TrimSpace(cmd.Region) != "" {
		if loc, err = h.directory.Compose(cmd.Region, cmd.SubRegion); err != nil {
			return nil, domain.Invalid("location", err.Error())
		}
	}

	listing, err := h.listings.CreateListing(ctx, domain.NewListing{
		Name:          cmd.Name,
		Quantity:      quantity,
		Rate:          rate,
		Location:      loc,
		Category:      category,
		SellerName:    cmd.SellerName,
		SellerContact: cmd.SellerContact,
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}
