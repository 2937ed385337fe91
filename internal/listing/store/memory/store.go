// Package memory implements an in-process listing store with push subscriptions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

type document struct {
	fields   domain.Record
	revision int64
}

// Store keeps listing documents in memory. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]document
	revision int64

	subsMu sync.Mutex
	subs   map[chan domain.Snapshot]struct{}
}

// New creates an empty Store
func New() *Store {
	return &Store{
		docs: make(map[string]document),
		subs: make(map[chan domain.Snapshot]struct{}),
	}
}

// Subscribe delivers the current snapshot and then one snapshot per change.
// Slow subscribers only ever see the most recent snapshot.
func (s *Store) Subscribe(ctx context.Context) (<-chan domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan domain.Snapshot, 1)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	snap, _ := s.List(ctx)
	s.subsMu.Lock()
	offer(ch, snap)
	s.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subsMu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.subsMu.Unlock()
	}()
	return ch, nil
}

// List returns every document ordered by id
func (s *Store) List(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// Get returns one document
func (s *Store) Get(ctx context.Context, id string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	return domain.Document{ID: id, Revision: d.revision, Fields: copyRecord(d.fields)}, nil
}

// Set creates or replaces a document
func (s *Store) Set(ctx context.Context, id string, fields domain.Record) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	s.mu.Lock()
	s.revision++
	d := document{fields: copyRecord(fields), revision: s.revision}
	s.docs[id] = d
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
	return domain.Document{ID: id, Revision: d.revision, Fields: copyRecord(d.fields)}, nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, id string, fields domain.Record, expectedRevision int64) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	s.mu.Lock()
	d, ok := s.docs[id]
	if !ok {
		s.mu.Unlock()
		return domain.Document{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	if expectedRevision != domain.AnyRevision && d.revision != expectedRevision {
		s.mu.Unlock()
		return domain.Document{}, fmt.Errorf("listing %s at revision %d, expected %d: %w",
			id, d.revision, expectedRevision, domain.ErrConflict)
	}
	merged := copyRecord(d.fields)
	for k, v := range fields {
		merged[k] = v
	}
	s.revision++
	d = document{fields: merged, revision: s.revision}
	s.docs[id] = d
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
	return domain.Document{ID: id, Revision: d.revision, Fields: copyRecord(d.fields)}, nil
}

// Delete removes a document and returns the revision of the deletion
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	if _, ok := s.docs[id]; !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	delete(s.docs, id)
	s.revision++
	rev := s.revision
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snap)
	return rev, nil
}

func (s *Store) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{Revision: s.revision, Documents: make([]domain.Document, 0, len(s.docs))}
	for id, d := range s.docs {
		snap.Documents = append(snap.Documents, domain.Document{ID: id, Revision: d.revision, Fields: copyRecord(d.fields)})
	}
	sort.Slice(snap.Documents, func(i, j int) bool { return snap.Documents[i].ID < snap.Documents[j].ID })
	return snap
}

func (s *Store) broadcast(snap domain.Snapshot) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		offer(ch, snap)
	}
}

// offer leaves the newer of snap and any undelivered snapshot in ch.
// Callers hold subsMu, so the send below never blocks.
func offer(ch chan domain.Snapshot, snap domain.Snapshot) {
	select {
	case pending := <-ch:
		if pending.Revision > snap.Revision {
			snap = pending
		}
	default:
	}
	ch <- snap
}

func copyRecord(r domain.Record) domain.Record {
	out := make(domain.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
