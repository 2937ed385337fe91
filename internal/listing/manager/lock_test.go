package manager

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingLockManager_SerializesSameListing(t *testing.T) {
	lm := NewListingLockManager()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = lm.WithListingLock("listing-1", func() error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside.Load())
	assert.Equal(t, 1, lm.Size())
}

func TestListingLockManager_SameMutexPerListing(t *testing.T) {
	lm := NewListingLockManager()
	assert.Same(t, lm.GetListingLock("a"), lm.GetListingLock("a"))
	assert.NotSame(t, lm.GetListingLock("a"), lm.GetListingLock("b"))
}

func TestListingLockManager_CleanupKeepsActiveAndHeld(t *testing.T) {
	lm := NewListingLockManager()
	lm.GetListingLock("active")
	lm.GetListingLock("gone")
	held := lm.GetListingLock("held")
	held.Lock()
	defer held.Unlock()

	lm.CleanupUnusedLocks(map[string]bool{"active": true})
	assert.Equal(t, 2, lm.Size())
}

func TestListingLockManager_StaleMutexAfterCleanup(t *testing.T) {
	lm := NewListingLockManager()

	// A fetched the mutex but had not locked it when cleanup dropped the entry.
	stale := lm.GetListingLock("x")
	lm.CleanupUnusedLocks(map[string]bool{})
	assert.Equal(t, 0, lm.Size())

	// B registers and holds the replacement.
	held := lm.lockCurrent("x", lm.GetListingLock("x"))
	require.NotSame(t, stale, held)

	acquired := make(chan *sync.Mutex, 1)
	go func() {
		acquired <- lm.lockCurrent("x", stale)
	}()

	select {
	case <-acquired:
		t.Fatal("stale mutex granted while the current one is held")
	case <-time.After(50 * time.Millisecond):
	}

	held.Unlock()
	select {
	case got := <-acquired:
		assert.Same(t, held, got)
		got.Unlock()
	case <-time.After(time.Second):
		t.Fatal("lock not acquired after release")
	}
}

func TestListingLockManager_SerializesDuringCleanup(t *testing.T) {
	lm := NewListingLockManager()

	var inside, overlaps atomic.Int32
	stop := make(chan struct{})
	cleaned := make(chan struct{})
	go func() {
		defer close(cleaned)
		for {
			select {
			case <-stop:
				return
			default:
				lm.CleanupUnusedLocks(map[string]bool{})
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = lm.WithListingLock("listing-1", func() error {
					if inside.Add(1) > 1 {
						overlaps.Add(1)
					}
					inside.Add(-1)
					return nil
				})
			}
		}()
	}
	wg.Wait()
	close(stop)
	<-cleaned

	assert.Zero(t, overlaps.Load())
}
