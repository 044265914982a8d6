package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateInterval = "interval"

	EventIntervalCreated = "availability.interval.created.v1"
	EventIntervalUpdated = "availability.interval.updated.v1"
	EventIntervalDeleted = "availability.interval.deleted.v1"
)
