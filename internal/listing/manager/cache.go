package manager

import (
	"sort"
	"sync"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

// cache is the manager's projection of the listing store.
//
// Full snapshots and single-listing mirrors both carry store revisions. A snapshot
// never overrides a listing or deletion that was mirrored at a newer revision, and a
// snapshot older than the last applied one is dropped.
type cache struct {
	mu               sync.RWMutex
	listings         map[string]domain.Listing
	tombstones       map[string]int64
	ordered          []domain.Listing
	snapshotRevision int64
	revision         int64
	loaded           bool
}

func newCache() *cache {
	return &cache{
		listings:   make(map[string]domain.Listing),
		tombstones: make(map[string]int64),
	}
}

// applySnapshot replaces the cache with snap. It reports false for stale snapshots.
func (c *cache) applySnapshot(revision int64, listings []domain.Listing) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded && revision < c.snapshotRevision {
		return false
	}

	next := make(map[string]domain.Listing, len(listings))
	for _, l := range listings {
		next[l.ID] = l
	}
	for id, cached := range c.listings {
		if cached.Revision > revision {
			if incoming, ok := next[id]; !ok || incoming.Revision < cached.Revision {
				next[id] = cached
			}
		}
	}
	for id, rev := range c.tombstones {
		if rev > revision {
			delete(next, id)
			continue
		}
		delete(c.tombstones, id)
	}

	c.listings = next
	c.snapshotRevision = revision
	c.loaded = true
	if revision > c.revision {
		c.revision = revision
	}
	c.reorderLocked()
	return true
}

// applyListing mirrors one written listing unless a newer state is already cached.
func (c *cache) applyListing(l domain.Listing) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.listings[l.ID]; ok && cached.Revision >= l.Revision {
		return false
	}
	if rev, ok := c.tombstones[l.ID]; ok && rev >= l.Revision {
		return false
	}
	c.listings[l.ID] = l.Clone()
	if l.Revision > c.revision {
		c.revision = l.Revision
	}
	c.reorderLocked()
	return true
}

// applyDelete removes a listing deleted at revision.
func (c *cache) applyDelete(id string, revision int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.listings, id)
	if revision > c.tombstones[id] {
		c.tombstones[id] = revision
	}
	if revision > c.revision {
		c.revision = revision
	}
	c.reorderLocked()
}

// reorderLocked sorts newest listings first, ties broken by id.
func (c *cache) reorderLocked() {
	ordered := make([]domain.Listing, 0, len(c.listings))
	for _, l := range c.listings {
		ordered = append(ordered, l)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})
	c.ordered = ordered
}

// list returns deep copies of every cached listing in display order
func (c *cache) list() ([]domain.Listing, int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Listing, len(c.ordered))
	for i, l := range c.ordered {
		out[i] = l.Clone()
	}
	return out, c.revision
}

func (c *cache) get(id string) (domain.Listing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.listings[id]
	if !ok {
		return domain.Listing{}, false
	}
	return l.Clone(), true
}

func (c *cache) ids() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]bool, len(c.listings))
	for id := range c.listings {
		out[id] = true
	}
	return out
}

func (c *cache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listings)
}
