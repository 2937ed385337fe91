package manager

import (
	"sync"
	"time"

	"github.com/tair/farm-marketplace/pkg/logger"
)

// ListingLockManager hands out one mutex per listing id so that mutations of
// the same listing run one at a time while different listings proceed in parallel.
type ListingLockManager struct {
	locks    map[string]*sync.Mutex
	locksMux sync.RWMutex
}

// NewListingLockManager creates an empty lock manager
func NewListingLockManager() *ListingLockManager {
	return &ListingLockManager{
		locks: make(map[string]*sync.Mutex),
	}
}

// GetListingLock returns the mutex for listingID, creating it on first use
func (lm *ListingLockManager) GetListingLock(listingID string) *sync.Mutex {
	lm.locksMux.RLock()
	if lock, exists := lm.locks[listingID]; exists {
		lm.locksMux.RUnlock()
		return lock
	}
	lm.locksMux.RUnlock()

	lm.locksMux.Lock()
	defer lm.locksMux.Unlock()

	// Double-check in case another goroutine created it
	if lock, exists := lm.locks[listingID]; exists {
		return lock
	}

	newLock := &sync.Mutex{}
	lm.locks[listingID] = newLock
	logger.Logger.Debug().Str("listing_id", listingID).Msg("Created listing lock")
	return newLock
}

// WithListingLock runs fn while holding the listing's lock
func (lm *ListingLockManager) WithListingLock(listingID string, fn func() error) error {
	start := time.Now()
	lock := lm.lockCurrent(listingID, lm.GetListingLock(listingID))
	defer lock.Unlock()

	err := fn()

	logger.Logger.Debug().
		Str("listing_id", listingID).
		Dur("duration", time.Since(start)).
		Msg("Listing mutation completed")
	return err
}

// lockCurrent locks candidate and returns it if it is still the listing's registered
// mutex. A candidate dropped by CleanupUnusedLocks before it was locked is released and
// the current mutex is taken instead.
func (lm *ListingLockManager) lockCurrent(listingID string, candidate *sync.Mutex) *sync.Mutex {
	lock := candidate
	for {
		lock.Lock()
		lm.locksMux.RLock()
		current := lm.locks[listingID] == lock
		lm.locksMux.RUnlock()
		if current {
			return lock
		}
		lock.Unlock()
		lock = lm.GetListingLock(listingID)
	}
}

// Size returns the number of tracked locks
func (lm *ListingLockManager) Size() int {
	lm.locksMux.RLock()
	defer lm.locksMux.RUnlock()
	return len(lm.locks)
}

// CleanupUnusedLocks drops the locks of listings that are no longer active.
// Locks currently held are kept.
func (lm *ListingLockManager) CleanupUnusedLocks(active map[string]bool) {
	lm.locksMux.Lock()
	defer lm.locksMux.Unlock()

	removed := 0
	for id, lock := range lm.locks {
		if active[id] {
			continue
		}
		if !lock.TryLock() {
			continue
		}
		delete(lm.locks, id)
		lock.Unlock()
		removed++
	}

	if removed > 0 {
		logger.Logger.Debug().
			Int("removed_locks", removed).
			Int("remaining_locks", len(lm.locks)).
			Msg("Cleaned up unused listing locks")
	}
}
