package domain

import (
	"strconv"
	"strings"
)

// RequireText rejects blank or whitespace-only input and returns the trimmed value
func RequireText(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", Invalid(field, "is required")
	}
	return trimmed, nil
}

// ParseQuantity parses a UI supplied quantity string; it must be a positive integer.
func ParseQuantity(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, Invalid(field, "must be a whole number")
	}
	if n <= 0 {
		return 0, Invalid(field, "must be greater than 0")
	}
	return n, nil
}

// ValidatePhone checks a contact number is exactly 10 digits
func ValidatePhone(field, value string) error {
	value = strings.TrimSpace(value)
	if len(value) != 10 {
		return Invalid(field, "must be exactly 10 digits")
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return Invalid(field, "must contain digits only")
		}
	}
	return nil
}

// ValidateNewListing checks the listing preconditions that do not depend on the catalog
func ValidateNewListing(in NewListing) (NewListing, error) {
	var err error
	if in.Name, err = RequireText("name", in.Name); err != nil {
		return in, err
	}
	if in.Location, err = RequireText("location", in.Location); err != nil {
		return in, err
	}
	if in.Quantity <= 0 {
		return in, Invalid("quantity", "must be greater than 0")
	}
	if in.Rate <= 0 {
		return in, Invalid("rate", "must be greater than 0")
	}
	if _, ok := ParseCategory(string(in.Category)); !ok {
		return in, Invalid("category", "is not a known category")
	}
	in.SellerName = strings.TrimSpace(in.SellerName)
	if in.SellerContact = strings.TrimSpace(in.SellerContact); in.SellerContact != "" {
		if err := ValidatePhone("seller_contact", in.SellerContact); err != nil {
			return in, err
		}
	}
	return in, nil
}

// ValidatePurchaseInput checks the purchase request fields against the available quantity
func ValidatePurchaseInput(in PurchaseInput, available int) (PurchaseInput, error) {
	var err error
	if in.BuyerName, err = RequireText("buyer_name", in.BuyerName); err != nil {
		return in, err
	}
	if in.BuyerContact, err = RequireText("buyer_contact", in.BuyerContact); err != nil {
		return in, err
	}
	if in.DeliveryAddress, err = RequireText("delivery_address", in.DeliveryAddress); err != nil {
		return in, err
	}
	if in.RequestedQuantity <= 0 {
		return in, Invalid("requested_quantity", "must be greater than 0")
	}
	if available <= 0 {
		return in, Invalid("requested_quantity", "listing is exhausted")
	}
	if in.RequestedQuantity > available {
		return in, Invalid("requested_quantity", "exceeds available quantity")
	}
	return in, nil
}
