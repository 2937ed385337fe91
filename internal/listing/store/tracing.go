// Package store holds the listing store backends and the decorators shared by them.
package store

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

var tracer = otel.Tracer("listing-store")

// TracingStore wraps a domain.Store and records one span per call
type TracingStore struct {
	next    domain.Store
	backend string
}

// WithTracing decorates next with tracing spans tagged with backend
func WithTracing(next domain.Store, backend string) *TracingStore {
	return &TracingStore{next: next, backend: backend}
}

func (s *TracingStore) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("store.backend", s.backend))
	return tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Subscribe with tracing; only the subscription call itself is traced.
func (s *TracingStore) Subscribe(ctx context.Context) (<-chan domain.Snapshot, error) {
	_, span := s.start(ctx, "Subscribe")
	ch, err := s.next.Subscribe(ctx)
	finish(span, err)
	return ch, err
}

// List with tracing
func (s *TracingStore) List(ctx context.Context) (domain.Snapshot, error) {
	ctx, span := s.start(ctx, "List")
	snap, err := s.next.List(ctx)
	if err == nil {
		span.SetAttributes(
			attribute.Int64("store.revision", snap.Revision),
			attribute.Int("store.documents", len(snap.Documents)),
		)
	}
	finish(span, err)
	return snap, err
}

// Get with tracing
func (s *TracingStore) Get(ctx context.Context, id string) (domain.Document, error) {
	ctx, span := s.start(ctx, "Get", attribute.String("listing.id", id))
	doc, err := s.next.Get(ctx, id)
	if err == nil {
		span.SetAttributes(attribute.Int64("listing.revision", doc.Revision))
	}
	finish(span, err)
	return doc, err
}

// Set with tracing
func (s *TracingStore) Set(ctx context.Context, id string, fields domain.Record) (domain.Document, error) {
	ctx, span := s.start(ctx, "Set", attribute.String("listing.id", id))
	doc, err := s.next.Set(ctx, id, fields)
	if err == nil {
		span.SetAttributes(attribute.Int64("listing.revision", doc.Revision))
	}
	finish(span, err)
	return doc, err
}

// Update with tracing
func (s *TracingStore) Update(ctx context.Context, id string, fields domain.Record, expectedRevision int64) (domain.Document, error) {
	ctx, span := s.start(ctx, "Update",
		attribute.String("listing.id", id),
		attribute.Int64("listing.expected_revision", expectedRevision),
	)
	doc, err := s.next.Update(ctx, id, fields, expectedRevision)
	if err == nil {
		span.SetAttributes(attribute.Int64("listing.revision", doc.Revision))
	}
	finish(span, err)
	return doc, err
}

// Delete with tracing
func (s *TracingStore) Delete(ctx context.Context, id string) (int64, error) {
	ctx, span := s.start(ctx, "Delete", attribute.String("listing.id", id))
	rev, err := s.next.Delete(ctx, id)
	finish(span, err)
	return rev, err
}
