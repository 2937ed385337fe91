package domain

import (
	"strings"
	"time"
)

// Category is one of the fixed crop categories
type Category string

const (
	CategoryGrains     Category = "GRAINS"
	CategoryVegetables Category = "VEGETABLES"
	CategoryFruits     Category = "FRUITS"
	CategoryOilseeds   Category = "OILSEEDS"
)

// DefaultCategory is assigned to stored records whose category is unknown.
const DefaultCategory = CategoryGrains

// Categories lists every category in display order
var Categories = []Category{
	CategoryGrains,
	CategoryVegetables,
	CategoryFruits,
	CategoryOilseeds,
}

// ParseCategory matches s case-insensitively against the known categories
func ParseCategory(s string) (Category, bool) {
	candidate := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, c := range Categories {
		if c == candidate {
			return c, true
		}
	}
	return "", false
}

// CategoryOrDefault tolerates legacy records by falling back to DefaultCategory.
func CategoryOrDefault(s string) Category {
	if c, ok := ParseCategory(s); ok {
		return c
	}
	return DefaultCategory
}

// ListingState is derived from the remaining quantity
type ListingState string

const (
	StateActive    ListingState = "ACTIVE"
	StateExhausted ListingState = "EXHAUSTED"
)

// Listing represents a crop offered for sale
type Listing struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	QuantityAvailable int               `json:"quantity_available"`
	Rate              int               `json:"rate"`
	Location          string            `json:"location"`
	Category          Category          `json:"category"`
	SellerIdentity    string            `json:"seller_identity"`
	SellerDisplayName string            `json:"seller_display_name,omitempty"`
	SellerContact     string            `json:"seller_contact,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	PurchaseRequests  []PurchaseRequest `json:"purchase_requests"`
	Revision          int64             `json:"revision"`
}

// State reports whether the listing still accepts purchase requests
func (l Listing) State() ListingState {
	if l.QuantityAvailable > 0 {
		return StateActive
	}
	return StateExhausted
}

// IsOwnedBy checks if identity created the listing
func (l Listing) IsOwnedBy(identity string) bool {
	return identity != "" && l.SellerIdentity == identity
}

// Clone returns a copy that shares no request slice with l
func (l Listing) Clone() Listing {
	c := l
	if l.PurchaseRequests != nil {
		c.PurchaseRequests = make([]PurchaseRequest, len(l.PurchaseRequests))
		copy(c.PurchaseRequests, l.PurchaseRequests)
	}
	return c
}

// PendingRequestIndex returns the oldest pending request placed with buyerContact, or -1.
func (l Listing) PendingRequestIndex(buyerContact string) int {
	for i, r := range l.PurchaseRequests {
		if r.Status == RequestPending && r.BuyerContact == buyerContact {
			return i
		}
	}
	return -1
}

// RequestStatus is the lifecycle state of a purchase request
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
)

// PurchaseRequest is a buyer's ask against a listing
type PurchaseRequest struct {
	RequestID         string        `json:"request_id"`
	BuyerName         string        `json:"buyer_name"`
	BuyerContact      string        `json:"buyer_contact"`
	DeliveryAddress   string        `json:"delivery_address"`
	RequestedQuantity int           `json:"requested_quantity"`
	AcceptedQuantity  int           `json:"accepted_quantity,omitempty"`
	Status            RequestStatus `json:"status"`
	RequestedAt       time.Time     `json:"requested_at"`
}

// RequestWithListing is a purchase request together with the listing it was placed on
type RequestWithListing struct {
	Request           PurchaseRequest `json:"request"`
	ListingID         string          `json:"listing_id"`
	ListingName       string          `json:"listing_name"`
	Location          string          `json:"location"`
	Rate              int             `json:"rate"`
	SellerDisplayName string          `json:"seller_display_name,omitempty"`
	SellerContact     string          `json:"seller_contact,omitempty"`
}

// NewListing carries the seller supplied fields of a listing
type NewListing struct {
	Name          string
	Quantity      int
	Rate          int
	Location      string
	Category      Category
	SellerName    string
	SellerContact string
}

// PurchaseInput carries the buyer supplied fields of a purchase request
type PurchaseInput struct {
	BuyerName         string
	BuyerContact      string
	DeliveryAddress   string
	RequestedQuantity int
}
