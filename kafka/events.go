package kafka

// Kafka topics
const (
	TopicListingEvents = "listing-events"
)

// Message headers set by the publisher
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
	HeaderOrigin    = "origin"
)
