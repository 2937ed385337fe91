package command

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

// Listings is the part of the listing manager that commands drive
type Listings interface {
	Get(listingID string) (domain.Listing, bool)
	CreateListing(ctx context.Context, in domain.NewListing) (domain.Listing, error)
	DeleteListing(ctx context.Context, listingID string) error
	SubmitPurchaseRequest(ctx context.Context, listingID string, in domain.PurchaseInput) (domain.PurchaseRequest, error)
	AcceptPurchaseRequest(ctx context.Context, listingID, buyerContact string, acceptedQuantity int) error
	Refresh(ctx context.Context) error
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateCommand turns the first struct tag violation into a domain validation error
func validateCommand(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_with", "required_without":
		return domain.Invalid(field, "is required")
	case "numeric":
		return domain.Invalid(field, "must contain digits only")
	case "len":
		return domain.Invalid(field, fmt.Sprintf("must be exactly %s digits", fe.Param()))
	case "max":
		return domain.Invalid(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
	default:
		return domain.Invalid(field, "is invalid")
	}
}

// requireIdentity resolves the caller or fails with ErrUnauthenticated
func requireIdentity(ctx context.Context, provider domain.IdentityProvider) (domain.Identity, error) {
	if provider != nil {
		if id, ok := provider.CurrentUserIdentity(ctx); ok && id.ID != "" {
			return id, nil
		}
	}
	return domain.Identity{}, domain.ErrUnauthenticated
}

// ownedListing loads listingID and checks identity created it
func ownedListing(listings Listings, listingID string, identity domain.Identity) (domain.Listing, error) {
	l, ok := listings.Get(listingID)
	if !ok {
		return domain.Listing{}, fmt.Errorf("listing %s: %w", listingID, domain.ErrNotFound)
	}
	if !l.IsOwnedBy(identity.ID) {
		return domain.Listing{}, fmt.Errorf("listing %s belongs to another seller: %w", listingID, domain.ErrForbidden)
	}
	return l, nil
}
