package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderCreated = "ORDER_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// OrderCreatedEvent published after an order is committed
type OrderCreatedEvent struct {
	BaseEvent
	OrderID    int64           `json:"order_id"`
	UserID     int64           `json:"user_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}
