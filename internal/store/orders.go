package store

import (
	"errors"
	"fmt"
	"sync"

	"sample-app/internal/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOutOfOrder    = errors.New("order id not greater than last appended")
)

// Ledger is the append-only sequence of committed orders
type Ledger struct {
	mu     sync.RWMutex
	lastID int64
	orders []models.Order
	index  map[int64]int
}

// NewLedger creates an empty ledger whose first order id is 1
func NewLedger() *Ledger {
	return &Ledger{index: make(map[int64]int)}
}

// NextOrderID allocates the next order id
func (l *Ledger) NextOrderID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastID++
	return l.lastID
}

// Append adds an order to the end of the ledger.
// Ids must be strictly increasing in append order.
func (l *Ledger) Append(order models.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(order)
}

// Record allocates the next id, builds the order with it and appends it,
// all within one critical section.
func (l *Ledger) Record(build func(id int64) models.Order) models.Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastID++
	order := build(l.lastID)
	order.ID = l.lastID
	// cannot fail: the id was allocated under the same lock
	_ = l.appendLocked(order)
	return order
}

func (l *Ledger) appendLocked(order models.Order) error {
	if n := len(l.orders); n > 0 && order.ID <= l.orders[n-1].ID {
		return fmt.Errorf("%w: id=%d, last=%d", ErrOutOfOrder, order.ID, l.orders[n-1].ID)
	}
	if order.ID > l.lastID {
		l.lastID = order.ID
	}
	l.index[order.ID] = len(l.orders)
	l.orders = append(l.orders, order)
	return nil
}

// Get retrieves an order by ID
func (l *Ledger) Get(id int64) (models.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[id]
	if !ok {
		return models.Order{}, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	return l.orders[i], nil
}

// List returns all orders in insertion order
func (l *Ledger) List() []models.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	orders := make([]models.Order, len(l.orders))
	copy(orders, l.orders)
	return orders
}

// Len returns the number of committed orders
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders)
}

// LastID returns the most recently allocated order id, 0 if none
func (l *Ledger) LastID() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastID
}
