// Package manager owns the live view of crop listings and mediates every
// listing mutation against the listing store.
package manager

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tair/farm-marketplace/internal/catalog"
	"github.com/tair/farm-marketplace/internal/listing/domain"
	"github.com/tair/farm-marketplace/pkg/logger"
)

// Config holds the manager tuning knobs
type Config struct {
	StoreTimeout       time.Duration
	MaxConflictRetries int
	ResubscribeDelay   time.Duration
}

// DefaultConfig returns the default manager configuration
func DefaultConfig() Config {
	return Config{
		StoreTimeout:       15 * time.Second,
		MaxConflictRetries: 3,
		ResubscribeDelay:   time.Second,
	}
}

// Manager is the single owner of the listing cache for one process.
type Manager struct {
	store     domain.Store
	identity  domain.IdentityProvider
	publisher domain.EventPublisher
	metrics   *Metrics
	cfg       Config
	locks     *ListingLockManager
	cache     *cache

	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	filter   Filter
	loading  int
	lastErr  error
	watchers map[chan State]struct{}

	refreshGen atomic.Uint64

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Manager. publisher and metrics may be nil.
func New(store domain.Store, identity domain.IdentityProvider, publisher domain.EventPublisher, metrics *Metrics, cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = def.StoreTimeout
	}
	if cfg.MaxConflictRetries < 0 {
		cfg.MaxConflictRetries = def.MaxConflictRetries
	}
	if cfg.ResubscribeDelay <= 0 {
		cfg.ResubscribeDelay = def.ResubscribeDelay
	}
	return &Manager{
		store:     store,
		identity:  identity,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		locks:     NewListingLockManager(),
		cache:     newCache(),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		watchers:  make(map[chan State]struct{}),
	}
}

// Start subscribes to the store and keeps the cache in sync until Close or ctx ends.
func (m *Manager) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return fmt.Errorf("listing manager already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	snapshots, err := m.store.Subscribe(runCtx)
	if err != nil {
		cancel()
		return m.storeError("subscribe", err)
	}

	m.cancel = cancel
	m.done = make(chan struct{})
	m.setLoading(1)
	go m.syncLoop(runCtx, snapshots, m.done)

	logger.Logger.Info().Msg("Listing manager subscribed to store")
	return nil
}

// Close stops the subscription and waits for the sync loop to exit
func (m *Manager) Close() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Ready reports whether a first snapshot has been applied
func (m *Manager) Ready() bool {
	m.cache.mu.RLock()
	defer m.cache.mu.RUnlock()
	return m.cache.loaded
}

func (m *Manager) syncLoop(ctx context.Context, snapshots <-chan domain.Snapshot, done chan struct{}) {
	defer close(done)
	first := true
	for {
		select {
		case <-ctx.Done():
			if first {
				m.setLoading(-1)
			}
			return
		case snap, ok := <-snapshots:
			if !ok {
				if ctx.Err() != nil {
					continue
				}
				logger.Logger.Warn().Msg("Listing store subscription closed, resubscribing")
				snapshots = m.resubscribe(ctx)
				continue
			}
			m.applySnapshot(ctx, "subscription", snap)
			if first {
				first = false
				m.setLoading(-1)
			}
		}
	}
}

func (m *Manager) resubscribe(ctx context.Context) <-chan domain.Snapshot {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(m.cfg.ResubscribeDelay):
		}
		ch, err := m.store.Subscribe(ctx)
		if err == nil {
			return ch
		}
		logger.Logger.Error().Err(err).Msg("Failed to resubscribe to listing store")
	}
}

// applySnapshot decodes snap and installs it atomically; undecodable records are skipped.
func (m *Manager) applySnapshot(ctx context.Context, source string, snap domain.Snapshot) bool {
	listings := make([]domain.Listing, 0, len(snap.Documents))
	for _, doc := range snap.Documents {
		l, err := domain.DecodeListing(doc)
		if err != nil {
			logger.WithContext(ctx).Warn().Err(err).Str("listing_id", doc.ID).Msg("Skipping malformed listing record")
			continue
		}
		listings = append(listings, l)
	}

	applied := m.cache.applySnapshot(snap.Revision, listings)
	m.metrics.snapshot(source, applied)
	if !applied {
		logger.WithContext(ctx).Debug().
			Str("source", source).
			Int64("revision", snap.Revision).
			Msg("Discarded stale listing snapshot")
		return false
	}

	m.locks.CleanupUnusedLocks(m.cache.ids())
	m.metrics.setCached(m.cache.size())
	m.notify()
	return true
}

// Refresh re-fetches the whole collection. A refresh overtaken by a newer one drops its result.
func (m *Manager) Refresh(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { m.metrics.observe("refresh", start, err) }()

	gen := m.refreshGen.Add(1)
	m.setLoading(1)
	defer m.setLoading(-1)

	sctx, cancel := m.storeContext(ctx)
	defer cancel()
	snap, err := m.store.List(sctx)
	if err != nil {
		err = m.storeError("refresh listings", err)
		m.setLastError(err)
		return err
	}

	if m.refreshGen.Load() != gen {
		logger.WithContext(ctx).Debug().Uint64("generation", gen).Msg("Refresh superseded, discarding result")
		return nil
	}
	m.applySnapshot(ctx, "refresh", snap)
	m.setLastError(nil)
	return nil
}

// CreateListing validates and persists a new listing owned by the current user.
func (m *Manager) CreateListing(ctx context.Context, in domain.NewListing) (listing domain.Listing, err error) {
	start := time.Now()
	defer func() { m.finish(ctx, "create_listing", start, err) }()

	id, ok := m.currentIdentity(ctx)
	if !ok {
		return domain.Listing{}, fmt.Errorf("create listing: %w", domain.ErrUnauthenticated)
	}
	if in, err = domain.ValidateNewListing(in); err != nil {
		return domain.Listing{}, err
	}
	name, ok := catalog.Canonical(in.Category, in.Name)
	if !ok {
		return domain.Listing{}, domain.Invalid("name", fmt.Sprintf("is not a %s crop", in.Category))
	}
	if in.SellerName == "" {
		in.SellerName = id.DisplayName
	}

	listing = domain.Listing{
		ID:                m.newID(),
		Name:              name,
		QuantityAvailable: in.Quantity,
		Rate:              in.Rate,
		Location:          in.Location,
		Category:          in.Category,
		SellerIdentity:    id.ID,
		SellerDisplayName: in.SellerName,
		SellerContact:     in.SellerContact,
		CreatedAt:         m.now().UTC().Truncate(time.Millisecond),
		PurchaseRequests:  []domain.PurchaseRequest{},
	}

	sctx, cancel := m.storeContext(ctx)
	defer cancel()
	doc, err := m.store.Set(sctx, listing.ID, domain.EncodeListing(listing))
	if err != nil {
		return domain.Listing{}, m.storeError("create listing", err)
	}
	listing.Revision = doc.Revision
	m.mirror(listing)

	logger.WithContext(ctx).Info().
		Str("listing_id", listing.ID).
		Str("name", listing.Name).
		Int("quantity", listing.QuantityAvailable).
		Int("rate", listing.Rate).
		Str("category", string(listing.Category)).
		Msg("Listing created")

	m.publish(ctx, domain.ListingEvent{
		EventType:      domain.EventListingCreated,
		ListingID:      listing.ID,
		ListingName:    listing.Name,
		SellerIdentity: listing.SellerIdentity,
		Quantity:       listing.QuantityAvailable,
		Revision:       listing.Revision,
	})
	return listing.Clone(), nil
}

// DeleteListing removes a listing from the store and then from the cache.
func (m *Manager) DeleteListing(ctx context.Context, listingID string) (err error) {
	start := time.Now()
	defer func() { m.finish(ctx, "delete_listing", start, err) }()

	if listingID, err = domain.RequireText("listing_id", listingID); err != nil {
		return err
	}

	var rev int64
	err = m.locks.WithListingLock(listingID, func() error {
		sctx, cancel := m.storeContext(ctx)
		defer cancel()
		var derr error
		rev, derr = m.store.Delete(sctx, listingID)
		if derr != nil {
			return m.storeError("delete listing", derr)
		}
		m.cache.applyDelete(listingID, rev)
		return nil
	})
	if err != nil {
		return err
	}
	m.metrics.setCached(m.cache.size())
	m.notify()

	logger.WithContext(ctx).Info().Str("listing_id", listingID).Msg("Listing deleted")
	m.publish(ctx, domain.ListingEvent{
		EventType: domain.EventListingDeleted,
		ListingID: listingID,
		Revision:  rev,
	})
	return nil
}

// SubmitPurchaseRequest appends a pending request and takes its quantity off the listing.
//
// The read-modify-write runs under the listing lock and is committed with a revision
// precondition; a conflicting external write is retried up to MaxConflictRetries times.
func (m *Manager) SubmitPurchaseRequest(ctx context.Context, listingID string, in domain.PurchaseInput) (req domain.PurchaseRequest, err error) {
	start := time.Now()
	defer func() { m.finish(ctx, "submit_purchase_request", start, err) }()

	if listingID, err = domain.RequireText("listing_id", listingID); err != nil {
		return req, err
	}
	if in, err = domain.ValidatePurchaseInput(in, math.MaxInt); err != nil {
		return req, err
	}

	var updated domain.Listing
	err = m.locks.WithListingLock(listingID, func() error {
		return m.retryOnConflict(ctx, "submit purchase request", func() error {
			current, doc, gerr := m.load(ctx, listingID)
			if gerr != nil {
				return gerr
			}
			valid, verr := domain.ValidatePurchaseInput(in, current.QuantityAvailable)
			if verr != nil {
				return verr
			}

			req = domain.PurchaseRequest{
				RequestID:         m.newID(),
				BuyerName:         valid.BuyerName,
				BuyerContact:      valid.BuyerContact,
				DeliveryAddress:   valid.DeliveryAddress,
				RequestedQuantity: valid.RequestedQuantity,
				Status:            domain.RequestPending,
				RequestedAt:       m.now().UTC().Truncate(time.Millisecond),
			}
			next := current.Clone()
			next.QuantityAvailable -= req.RequestedQuantity
			next.PurchaseRequests = append(next.PurchaseRequests, req)

			written, uerr := m.commit(ctx, next, doc.Revision)
			if uerr != nil {
				return uerr
			}
			updated = written
			return nil
		})
	})
	if err != nil {
		return domain.PurchaseRequest{}, err
	}

	logger.WithContext(ctx).Info().
		Str("listing_id", listingID).
		Str("request_id", req.RequestID).
		Int("requested_quantity", req.RequestedQuantity).
		Int("quantity_available", updated.QuantityAvailable).
		Msg("Purchase request submitted")

	m.publish(ctx, domain.ListingEvent{
		EventType:      domain.EventPurchaseRequested,
		ListingID:      listingID,
		ListingName:    updated.Name,
		SellerIdentity: updated.SellerIdentity,
		BuyerContact:   req.BuyerContact,
		Quantity:       req.RequestedQuantity,
		Revision:       updated.Revision,
	})
	return req, nil
}

// AcceptPurchaseRequest marks the oldest pending request from buyerContact as accepted.
// The quantity was already taken off the listing at submission, so availability is unchanged.
func (m *Manager) AcceptPurchaseRequest(ctx context.Context, listingID, buyerContact string, acceptedQuantity int) (err error) {
	start := time.Now()
	defer func() { m.finish(ctx, "accept_purchase_request", start, err) }()

	if listingID, err = domain.RequireText("listing_id", listingID); err != nil {
		return err
	}
	if buyerContact, err = domain.RequireText("buyer_contact", buyerContact); err != nil {
		return err
	}
	if acceptedQuantity <= 0 {
		return domain.Invalid("accepted_quantity", "must be greater than 0")
	}

	var updated domain.Listing
	err = m.locks.WithListingLock(listingID, func() error {
		return m.retryOnConflict(ctx, "accept purchase request", func() error {
			current, doc, gerr := m.load(ctx, listingID)
			if gerr != nil {
				return gerr
			}
			idx := current.PendingRequestIndex(buyerContact)
			if idx < 0 {
				return fmt.Errorf("no pending purchase request from %q on listing %s: %w",
					buyerContact, listingID, domain.ErrNotFound)
			}
			if acceptedQuantity > current.PurchaseRequests[idx].RequestedQuantity {
				return domain.Invalid("accepted_quantity", "exceeds requested quantity")
			}

			next := current.Clone()
			next.PurchaseRequests[idx].Status = domain.RequestAccepted
			next.PurchaseRequests[idx].AcceptedQuantity = acceptedQuantity

			written, uerr := m.commit(ctx, next, doc.Revision)
			if uerr != nil {
				return uerr
			}
			updated = written
			return nil
		})
	})
	if err != nil {
		return err
	}

	logger.WithContext(ctx).Info().
		Str("listing_id", listingID).
		Str("buyer_contact", buyerContact).
		Int("accepted_quantity", acceptedQuantity).
		Msg("Purchase request accepted")

	m.publish(ctx, domain.ListingEvent{
		EventType:      domain.EventPurchaseAccepted,
		ListingID:      listingID,
		ListingName:    updated.Name,
		SellerIdentity: updated.SellerIdentity,
		BuyerContact:   buyerContact,
		Quantity:       acceptedQuantity,
		Revision:       updated.Revision,
	})
	return nil
}

// ListAll returns the current snapshot of every listing
func (m *Manager) ListAll() []domain.Listing {
	listings, _ := m.cache.list()
	return listings
}

// Get returns one cached listing
func (m *Manager) Get(listingID string) (domain.Listing, bool) {
	return m.cache.get(listingID)
}

// Filter returns listings whose name contains query and whose category matches.
func (m *Manager) Filter(query string, category *domain.Category) []domain.Listing {
	return filterListings(m.ListAll(), Filter{Query: query, Category: category})
}

// MyListings returns the listings created by identity
func (m *Manager) MyListings(identity string) []domain.Listing {
	return ownedBy(m.ListAll(), identity)
}

// MyPurchaseRequests scans every listing for requests placed with identity as contact
func (m *Manager) MyPurchaseRequests(identity string) []domain.RequestWithListing {
	return requestsBy(m.ListAll(), identity)
}

// SetFilter replaces the filter behind State.Filtered; the newest call wins.
func (m *Manager) SetFilter(query string, category *domain.Category) {
	m.mu.Lock()
	f := Filter{Query: query}
	if category != nil {
		c := *category
		f.Category = &c
	}
	m.filter = f
	m.mu.Unlock()
	m.notify()
}

// State returns the current view
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Watch publishes the current State and every later change until ctx ends.
// A slow reader only sees the newest state.
func (m *Manager) Watch(ctx context.Context) <-chan State {
	ch := make(chan State, 1)
	m.mu.Lock()
	m.watchers[ch] = struct{}{}
	ch <- m.stateLocked()
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers, ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch
}

func (m *Manager) stateLocked() State {
	listings, rev := m.cache.list()
	return State{
		Listings:  listings,
		Filtered:  filterListings(listings, m.filter),
		Filter:    m.filter,
		Loading:   m.loading > 0,
		LastError: m.lastErr,
		Revision:  rev,
	}
}

func (m *Manager) notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.watchers) == 0 {
		return
	}
	st := m.stateLocked()
	for ch := range m.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func (m *Manager) setLoading(delta int) {
	m.mu.Lock()
	m.loading += delta
	if m.loading < 0 {
		m.loading = 0
	}
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) finish(ctx context.Context, operation string, start time.Time, err error) {
	m.metrics.observe(operation, start, err)
	m.setLastError(err)
	if err != nil {
		ev := logger.WithContext(ctx).Warn()
		if !errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrNotFound) {
			ev = logger.WithContext(ctx).Error()
		}
		ev.Err(err).Str("operation", operation).Msg("Listing operation failed")
	}
}

func (m *Manager) currentIdentity(ctx context.Context) (domain.Identity, bool) {
	if m.identity == nil {
		return domain.Identity{}, false
	}
	id, ok := m.identity.CurrentUserIdentity(ctx)
	if !ok || id.ID == "" {
		return domain.Identity{}, false
	}
	return id, true
}

// load reads the authoritative listing from the store
func (m *Manager) load(ctx context.Context, listingID string) (domain.Listing, domain.Document, error) {
	sctx, cancel := m.storeContext(ctx)
	defer cancel()
	doc, err := m.store.Get(sctx, listingID)
	if err != nil {
		return domain.Listing{}, domain.Document{}, m.storeError("load listing", err)
	}
	l, err := domain.DecodeListing(doc)
	if err != nil {
		return domain.Listing{}, domain.Document{}, fmt.Errorf("load listing: %w: %w", domain.ErrStore, err)
	}
	return l, doc, nil
}

// commit writes quantity and requests of next conditioned on expectedRevision and mirrors the result.
func (m *Manager) commit(ctx context.Context, next domain.Listing, expectedRevision int64) (domain.Listing, error) {
	sctx, cancel := m.storeContext(ctx)
	defer cancel()
	doc, err := m.store.Update(sctx, next.ID, domain.Record{
		domain.FieldQuantity:         next.QuantityAvailable,
		domain.FieldPurchaseRequests: domain.EncodeRequests(next.PurchaseRequests),
	}, expectedRevision)
	if err != nil {
		return domain.Listing{}, m.storeError("update listing", err)
	}

	written, derr := domain.DecodeListing(doc)
	if derr != nil {
		written = next
	}
	written.Revision = doc.Revision
	m.mirror(written)
	return written, nil
}

func (m *Manager) mirror(l domain.Listing) {
	if m.cache.applyListing(l) {
		m.metrics.setCached(m.cache.size())
		m.notify()
	}
}

func (m *Manager) retryOnConflict(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= m.cfg.MaxConflictRetries; attempt++ {
		err = fn()
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		m.metrics.conflict()
		logger.WithContext(ctx).Warn().
			Err(err).
			Str("operation", op).
			Int("attempt", attempt+1).
			Msg("Listing revision conflict, retrying")
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", op, m.cfg.MaxConflictRetries+1, err)
}

func (m *Manager) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.StoreTimeout)
}

// storeError classifies a store failure into the manager error taxonomy.
func (m *Manager) storeError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConflict):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTimeout, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStore, err)
	}
}

func (m *Manager) publish(ctx context.Context, event domain.ListingEvent) {
	if m.publisher == nil {
		return
	}
	event.EventID = uuid.New().String()
	event.Timestamp = m.now().UTC()
	if err := m.publisher.PublishListingEvent(ctx, event); err != nil {
		logger.WithContext(ctx).Error().
			Err(err).
			Str("event_type", event.EventType).
			Str("listing_id", event.ListingID).
			Msg("Failed to publish listing event")
	}
}
