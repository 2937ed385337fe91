package manager

import (
	"strings"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

// Filter selects listings by name substring and category. A nil Category matches all.
type Filter struct {
	Query    string
	Category *domain.Category
}

// State is the view published to watchers after every change
type State struct {
	Listings  []domain.Listing
	Filtered  []domain.Listing
	Filter    Filter
	Loading   bool
	LastError error
	Revision  int64
}

// MyListings returns the listings created by identity
func (s State) MyListings(identity string) []domain.Listing {
	return ownedBy(s.Listings, identity)
}

// MyPurchaseRequests returns every request placed with identity as buyer contact
func (s State) MyPurchaseRequests(identity string) []domain.RequestWithListing {
	return requestsBy(s.Listings, identity)
}

// filterListings keeps the relative order of listings.
func filterListings(listings []domain.Listing, f Filter) []domain.Listing {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if f.Category != nil && l.Category != *f.Category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(l.Name), q) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func ownedBy(listings []domain.Listing, identity string) []domain.Listing {
	out := make([]domain.Listing, 0)
	for _, l := range listings {
		if l.IsOwnedBy(identity) {
			out = append(out, l)
		}
	}
	return out
}

func requestsBy(listings []domain.Listing, identity string) []domain.RequestWithListing {
	out := make([]domain.RequestWithListing, 0)
	if identity == "" {
		return out
	}
	for _, l := range listings {
		for _, r := range l.PurchaseRequests {
			if r.BuyerContact != identity {
				continue
			}
			out = append(out, domain.RequestWithListing{
				Request:           r,
				ListingID:         l.ID,
				ListingName:       l.Name,
				Location:          l.Location,
				Rate:              l.Rate,
				SellerDisplayName: l.SellerDisplayName,
				SellerContact:     l.SellerContact,
			})
		}
	}
	return out
}
