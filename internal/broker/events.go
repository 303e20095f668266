package broker

import (
	"context"
	"fmt"

	"sample-app/internal/correlation"
	"sample-app/internal/models"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCreated publishes OrderCreated event keyed by product so that
// events for one product stay ordered.
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	key := fmt.Sprintf("product-%d", event.ProductID)
	return ep.producer.PublishEvent(ctx, key, event, messageHeaders(ctx, event.CorrelationID))
}

// messageHeaders carries the correlation id and the W3C trace context
func messageHeaders(ctx context.Context, correlationID string) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := make([]kafka.Header, 0, len(carrier)+1)
	if correlationID != "" {
		headers = append(headers, kafka.Header{Key: correlation.HeaderName, Value: []byte(correlationID)})
	}
	for _, k := range carrier.Keys() {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(carrier.Get(k))})
	}
	return headers
}
