package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"sample-app/internal/correlation"
	"sample-app/internal/models"
	"sample-app/internal/store"
	"sample-app/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Reason identifies why an order request was rejected
type Reason string

const (
	ReasonUserNotFound      Reason = "user_not_found"
	ReasonProductNotFound   Reason = "product_not_found"
	ReasonInsufficientStock Reason = "insufficient_stock"
	ReasonInvalidQuantity   Reason = "invalid_quantity"
)

var reasonMessages = map[Reason]string{
	ReasonUserNotFound:      "User not found",
	ReasonProductNotFound:   "Product not found",
	ReasonInsufficientStock: "Insufficient stock",
	ReasonInvalidQuantity:   "Quantity must be positive",
}

// RejectionError is returned when an order request fails a precondition.
// Nothing is mutated when it is returned.
type RejectionError struct {
	Reason Reason
}

func (e *RejectionError) Error() string {
	return reasonMessages[e.Reason]
}

// AsRejection reports whether err is an order rejection
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// EventPublisher publishes order domain events
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
}

// OrderService validates order requests and commits them against the
// inventory and the order ledger
type OrderService struct {
	inventory *store.Inventory
	ledger    *store.Ledger
	publisher EventPublisher
	delay     DelayRange
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time

	// beforeCommit runs between validation and the stock decrement
	beforeCommit func()
}

// NewOrderService creates a new order service. publisher may be nil.
func NewOrderService(
	inventory *store.Inventory,
	ledger *store.Ledger,
	publisher EventPublisher,
	delay DelayRange,
	opts ...Option,
) *OrderService {
	o := newOptions(opts)
	return &OrderService{
		inventory: inventory,
		ledger:    ledger,
		publisher: publisher,
		delay:     delay,
		logger:    o.logger,
		tracer:    o.tracer,
		now:       o.now,
	}
}

// CreateOrder validates req and, if every precondition holds, decrements
// stock and records the order. Preconditions are checked in order: user,
// product, quantity, stock; the first failure is returned as a *RejectionError.
func (s *OrderService) CreateOrder(ctx context.Context, cc correlation.Context, req *models.OrderRequest) (*models.Order, error) {
	start := time.Now()
	defer func() {
		util.OrderProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	ctx, span := s.startSpan(ctx, "ProcessOrder", trace.WithAttributes(
		attribute.Int64("order.user_id", req.UserID),
		attribute.Int64("order.product_id", req.ProductID),
		attribute.Int("order.quantity", req.Quantity),
		cc.Attribute(),
	))
	defer span.End()

	log := cc.Logger(s.logger)
	log.Info("Processing order",
		zap.Int64("userId", req.UserID),
		zap.Int64("productId", req.ProductID),
		zap.Int("quantity", req.Quantity))

	if _, err := Sleep(ctx, s.delay); err != nil {
		return nil, s.abort(span, log, err)
	}

	user, err := s.inventory.FindUser(req.UserID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, s.reject(span, log, ReasonUserNotFound, zap.Int64("userId", req.UserID))
	}
	if err != nil {
		return nil, s.fail(span, err)
	}

	product, err := s.inventory.FindProduct(req.ProductID)
	if errors.Is(err, store.ErrProductNotFound) {
		return nil, s.reject(span, log, ReasonProductNotFound, zap.Int64("productId", req.ProductID))
	}
	if err != nil {
		return nil, s.fail(span, err)
	}

	if req.Quantity <= 0 {
		return nil, s.reject(span, log, ReasonInvalidQuantity, zap.Int("quantity", req.Quantity))
	}

	if product.Stock < req.Quantity {
		return nil, s.reject(span, log, ReasonInsufficientStock,
			zap.Int64("productId", req.ProductID),
			zap.Int("requested", req.Quantity),
			zap.Int("available", product.Stock))
	}

	if err := ctx.Err(); err != nil {
		return nil, s.abort(span, log, err)
	}

	if s.beforeCommit != nil {
		s.beforeCommit()
	}

	order, err := s.commit(log, user, product, req.Quantity)
	if err != nil {
		if _, ok := AsRejection(err); ok {
			span.SetAttributes(attribute.String("order.rejection_reason", string(ReasonInsufficientStock)))
			util.OrdersRejectedTotal.WithLabelValues(string(ReasonInsufficientStock)).Inc()
			return nil, err
		}
		return nil, s.fail(span, err)
	}

	util.OrdersCreatedTotal.Inc()
	span.SetAttributes(
		attribute.Int64("order.id", order.ID),
		attribute.String("order.total_price", order.TotalPrice.StringFixed(2)),
	)
	log.Info("Order created successfully",
		zap.Int64("orderId", order.ID),
		zap.String("totalPrice", order.TotalPrice.StringFixed(2)))

	s.publishOrderCreated(ctx, cc, log, order)
	return order, nil
}

func (s *OrderService) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if s.tracer != nil {
		return s.tracer.Start(ctx, name, opts...)
	}
	return util.StartSpan(ctx, name, opts...)
}

// commit re-checks stock atomically while decrementing it, then records the
// order. A stock conflict here means a concurrent order consumed the stock
// after validation.
func (s *OrderService) commit(log *zap.Logger, user models.User, product models.Product, quantity int) (*models.Order, error) {
	remaining, err := s.inventory.DecrementStock(product.ID, quantity)
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		util.OrderStockConflictsTotal.Inc()
		log.Warn("Order failed: stock consumed concurrently",
			zap.Int64("productId", product.ID),
			zap.Int("requested", quantity),
			zap.Int("available", remaining))
		return nil, &RejectionError{Reason: ReasonInsufficientStock}
	case err != nil:
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	util.ProductStock.WithLabelValues(strconv.FormatInt(product.ID, 10)).Set(float64(remaining))

	order := s.ledger.Record(func(id int64) models.Order {
		return models.Order{
			ID:          id,
			UserID:      user.ID,
			UserName:    user.Name,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantity,
			TotalPrice:  product.Price.Mul(decimal.NewFromInt(int64(quantity))),
			OrderDate:   s.now().UTC(),
			Status:      models.OrderStatusConfirmed,
		}
	})
	return &order, nil
}

func (s *OrderService) reject(span trace.Span, log *zap.Logger, reason Reason, fields ...zap.Field) error {
	err := &RejectionError{Reason: reason}
	span.SetAttributes(attribute.String("order.rejection_reason", string(reason)))
	util.OrdersRejectedTotal.WithLabelValues(string(reason)).Inc()
	log.Warn("Order failed: "+err.Error(), fields...)
	return err
}

func (s *OrderService) abort(span trace.Span, log *zap.Logger, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "order processing cancelled")
	log.Warn("Order processing cancelled", zap.Error(err))
	return fmt.Errorf("order processing cancelled: %w", err)
}

func (s *OrderService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *OrderService) publishOrderCreated(ctx context.Context, cc correlation.Context, log *zap.Logger, order *models.Order) {
	if s.publisher == nil {
		return
	}

	// the order is committed; a cancelled request must not drop the event
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:       correlation.NewID(),
			EventType:     models.EventTypeOrderCreated,
			CorrelationID: cc.CorrelationID,
			Timestamp:     s.now().UTC(),
		},
		OrderID:    order.ID,
		UserID:     order.UserID,
		ProductID:  order.ProductID,
		Quantity:   order.Quantity,
		TotalPrice: order.TotalPrice,
	}

	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(models.EventTypeOrderCreated).Inc()
		log.Error("Failed to publish OrderCreated event", zap.Int64("orderId", order.ID), zap.Error(err))
	}
}

// ListOrders returns all committed orders in creation order
func (s *OrderService) ListOrders(cc correlation.Context) []models.Order {
	orders := s.ledger.List()
	cc.Logger(s.logger).Info("Fetching all orders", zap.Int("count", len(orders)))
	return orders
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(cc correlation.Context, id int64) (models.Order, error) {
	log := cc.Logger(s.logger)
	log.Info("Fetching order", zap.Int64("orderId", id))

	order, err := s.ledger.Get(id)
	if errors.Is(err, store.ErrOrderNotFound) {
		log.Warn("Order not found", zap.Int64("orderId", id))
	}
	return order, err
}
