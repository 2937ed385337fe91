package domain

import (
	"context"
	"time"
)

// Event types published after successful listing mutations
const (
	EventListingCreated    = "listing.created"
	EventListingDeleted    = "listing.deleted"
	EventPurchaseRequested = "purchase.requested"
	EventPurchaseAccepted  = "purchase.accepted"
)

// ListingEvent describes one applied listing mutation
type ListingEvent struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	ListingID      string    `json:"listing_id"`
	ListingName    string    `json:"listing_name,omitempty"`
	SellerIdentity string    `json:"seller_identity,omitempty"`
	BuyerContact   string    `json:"buyer_contact,omitempty"`
	Quantity       int       `json:"quantity,omitempty"`
	Revision       int64     `json:"revision"`
	Timestamp      time.Time `json:"timestamp"`
}

// EventPublisher fans listing events out to other consumers
type EventPublisher interface {
	PublishListingEvent(ctx context.Context, event ListingEvent) error
}
