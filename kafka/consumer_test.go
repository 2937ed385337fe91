package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

func message(t *testing.T, event domain.ListingEvent, origin string) *sarama.ConsumerMessage {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	headers := []*sarama.RecordHeader{
		{Key: []byte(HeaderEventType), Value: []byte(event.EventType)},
		{Key: []byte(HeaderEventID), Value: []byte(event.EventID)},
	}
	if origin != "" {
		headers = append(headers, &sarama.RecordHeader{Key: []byte(HeaderOrigin), Value: []byte(origin)})
	}
	return &sarama.ConsumerMessage{
		Topic:   TopicListingEvents,
		Key:     []byte(event.ListingID),
		Value:   value,
		Headers: headers,
	}
}

func TestConsumer_DispatchesByEventType(t *testing.T) {
	c := newConsumer(nil, "group", []string{TopicListingEvents}, "node-a")

	var got []domain.ListingEvent
	c.RegisterHandler(domain.EventPurchaseRequested, func(_ context.Context, e domain.ListingEvent) error {
		got = append(got, e)
		return nil
	})

	event := sampleEvent()
	event.EventID = "evt-1"
	c.handleMessage(context.Background(), message(t, event, "node-b"))

	require.Len(t, got, 1)
	assert.Equal(t, "listing-1", got[0].ListingID)
	assert.Equal(t, 4, got[0].Quantity)
}

func TestConsumer_SkipsOwnOriginAndUnknownTypes(t *testing.T) {
	c := newConsumer(nil, "group", []string{TopicListingEvents}, "node-a")

	calls := 0
	c.RegisterHandler(domain.EventPurchaseRequested, func(context.Context, domain.ListingEvent) error {
		calls++
		return nil
	})

	c.handleMessage(context.Background(), message(t, sampleEvent(), "node-a"))

	other := sampleEvent()
	other.EventType = domain.EventListingDeleted
	c.handleMessage(context.Background(), message(t, other, "node-b"))

	assert.Equal(t, 0, calls)
}

func TestConsumer_BadPayloadAndHandlerErrorDoNotPanic(t *testing.T) {
	c := newConsumer(nil, "group", nil, "")
	calls := 0
	c.RegisterHandler(domain.EventListingCreated, func(context.Context, domain.ListingEvent) error {
		calls++
		return errors.New("refresh failed")
	})

	bad := &sarama.ConsumerMessage{
		Value:   []byte("{not json"),
		Headers: []*sarama.RecordHeader{{Key: []byte(HeaderEventType), Value: []byte(domain.EventListingCreated)}},
	}
	c.handleMessage(context.Background(), bad)
	assert.Equal(t, 0, calls)

	event := sampleEvent()
	event.EventType = domain.EventListingCreated
	c.handleMessage(context.Background(), message(t, event, ""))
	assert.Equal(t, 1, calls)

	assert.NoError(t, c.Close())
}
