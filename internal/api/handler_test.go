package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"sample-app/internal/correlation"
	"sample-app/internal/models"
	"sample-app/internal/service"
	"sample-app/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	handler   http.Handler
	inventory *store.Inventory
	ledger    *store.Ledger
	logs      *observer.ObservedLogs
	spans     *tracetest.SpanRecorder
}

func newTestServer(t *testing.T, products []models.Product, cfg Config) *testServer {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	inv := store.NewInventory(store.SeedUsers(), products)
	ledger := store.NewLedger()
	opts := []service.Option{service.WithLogger(logger), service.WithTracer(tp.Tracer("test"))}

	cfg.Logger = logger
	h := NewHandler(
		service.NewCatalogService(inv, opts...),
		service.NewOrderService(inv, ledger, nil, service.DelayRange{}, opts...),
		cfg,
	)

	router := gin.New()
	h.SetupRoutes(router)

	return &testServer{
		handler:   Instrument(router, tp),
		inventory: inv,
		ledger:    ledger,
		logs:      logs,
		spans:     spans,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestCorrelationHeaderPropagation(t *testing.T) {
	s := newTestServer(t, store.SeedProducts(), Config{})

	w := s.do(t, http.MethodPost, "/api/orders",
		models.OrderRequest{UserID: 1, ProductID: 2, Quantity: 1},
		map[string]string{correlation.HeaderName: "abc-123"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(correlation.HeaderName))

	entries := s.logs.All()
	require.NotEmpty(t, entries)
	for _, e := range entries {
		fields := e.ContextMap()
		assert.Equal(t, "abc-123", fields[correlation.FieldCorrelationID], e.Message)
		assert.NotEmpty(t, fields[correlation.FieldTraceID], e.Message)
		assert.NotEmpty(t, fields[correlation.FieldSpanID], e.Message)
	}
}

func TestCorrelationHeaderGenerated(t *testing.T) {
	s := newTestServer(t, store.SeedProducts(), Config{})

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		w := s.do(t, http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		id := w.Header().Get(correlation.HeaderName)
		assert.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate correlation id %s", id)
		seen[id] = true
	}
}

func TestCreateOrder_MissingIdsRejectedAsUnknownUser(t *testing.T) {
	s := newTestServer(t, store.SeedProducts(), Config{})

	w := s.do(t, http.MethodPost, "/api/orders", map[string]interface{}{"quantity": 1}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"User not found"}`, w.Body.String())
	assert.Equal(t, 0, s.ledger.Len())
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, store.SeedProducts(), Config{Version: "1.2.3"})

	w := s.do(t, http.MethodGet, "/health", nil, map[string]string{correlation.HeaderName: "health-1"})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status       string            `json:"status"`
		Timestamp    time.Time         `json:"timestamp"`
		Version      string            `json:"version"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
	assert.False(t, body.Timestamp.IsZero())
	assert.Equal(t, map[string]string{"database": "healthy", "cache": "healthy"}, body.Dependencies)

	entries := s.logs.FilterMessage("Health check endpoint accessed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "health-1", entries[0].ContextMap()[correlation.FieldCorrelationID])
}

func TestLogsCarryServerSpanTraceID(t *testing.T) {
	s := newTestServer(t, store.SeedProducts(), Config{})

	w := s.do(t, http.MethodGet, "/api/users", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var server sdktrace.ReadOnlySpan
	for _, sp := range s.spans.Ended() {
		if sp.Name() == "GET /api/users" {
			server = sp
		}
	}
	require.NotNil(t, server)

	entries := s.logs.FilterMessage("Fetching all users").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, server.SpanContext().TraceID().String(), fields[correlation.FieldTraceID])
	assert.Equal(t, server.SpanContext().SpanID().String(), fields[correlation.FieldSpanID])
	assert.Equal(t, w.Header().Get(correlation.HeaderName), fields[correlation.FieldCorrelationID])
}

func TestCreateOrder_TotalPrice(t *testing.T) {
	s := newTestServer(t, store.SeedProducts(), Config{})

	w := s.do(t, http.MethodPost, "/api/orders", models.OrderRequest{UserID: 1, ProductID: 2, Quantity: 3}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/api/orders/1", w.Header().Get("Location"))

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.True(t, decimal.RequireFromString("89.97").Equal(order.TotalPrice), order.TotalPrice.String())
	assert.Equal(t, "Confirmed", order.Status)
	assert.Contains(t, w.Body.String(), `"totalPrice":89.97`)

	p, err := s.inventory.FindProduct(2)
	require.NoError(t, err)
	assert.Equal(t, 197, p.Stock)
}

func TestCreateOrder_RejectionsLeaveStateUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		req     models.OrderRequest
		message string
	}{
		{"unknown user and product", models.OrderRequest{UserID: 99, ProductID: 99, Quantity: 1}, "User not found"},
		{"unknown product", models.OrderRequest{UserID: 1, ProductID: 99, Quantity: 1}, "Product not found"},
		{"zero user id", models.OrderRequest{UserID: 0, ProductID: 2, Quantity: 1}, "User not found"},
		{"zero product id", models.OrderRequest{UserID: 1, ProductID: 0, Quantity: 1}, "Product not found"},
		{"too many", models.OrderRequest{UserID: 1, ProductID: 2, Quantity: 201}, "Insufficient stock"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, store.SeedProducts(), Config{})

			w := s.do(t, http.MethodPost, "/api/orders", tc.req, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"`+tc.message+`"}`, w.Body.String())

			p, err := s.inventory.FindProduct(2)
			require.NoError(t, err)
			assert.Equal(t, 200, p.Stock)
			assert.Equal(t, 0, s.ledger.Len())
		})
	}
}

func TestCreateOrder_InvalidBody(t *testing.T) {
	s := newTestServer(t, store.SeedProducts(), Config{})

	w := s.do(t, http.MethodPost, "/api/orders", map[string]interface{}{"userId": 1, "productId": 2, "quantity": 0}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decodeError(t, w))
	assert.Equal(t, 0, s.ledger.Len())
}

func TestCreateOrder_ConcurrentLastUnit(t *testing.T) {
	s := newTestServer(t, []models.Product{
		{ID: 1, Name: "Laptop", Price: decimal.RequireFromString("999.99"), Stock: 1},
	}, Config{})

	var wg sync.WaitGroup
	codes := make([]int, 2)
	bodies := make([]string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := s.do(t, http.MethodPost, "/api/orders", models.OrderRequest{UserID: 1, ProductID: 1, Quantity: 1}, nil)
			codes[i] = w.Code
			bodies[i] = w.Body.String()
		}(i)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusBadRequest}, codes)
	for i, code := range codes {
		if code == http.StatusBadRequest {
			assert.JSONEq(t, `{"error":"Insufficient stock"}`, bodies[i])
		}
	}

	p, err := s.inventory.FindProduct(1)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, 1, s.ledger.Len())
}

func TestOrdersListedInCreationOrder(t *testing.T) {
	s := newTestServer(t, store.SeedProducts(), Config{})

	for _, pid := range []int64{3, 1, 4} {
		w := s.do(t, http.MethodPost, "/api/orders", models.OrderRequest{UserID: 2, ProductID: pid, Quantity: 1}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(t, http.MethodGet, "/api/orders", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var orders []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 3)
	for i, o := range orders {
		assert.Equal(t, int64(i+1), o.ID)
	}
	assert.Equal(t, int64(4), orders[2].ProductID)

	w = s.do(t, http.MethodGet, "/api/orders/2", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/orders/9", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order not found", decodeError(t, w))
}

func TestUsersAndProducts(t *testing.T) {
	s := newTestServer(t, store.SeedProducts(), Config{})

	w := s.do(t, http.MethodPost, "/api/users", models.CreateUserRequest{Name: "Dave", Email: "dave@example.com"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/users/4", w.Header().Get("Location"))

	w = s.do(t, http.MethodGet, "/api/users/4", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/users/40", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decodeError(t, w))
	w = s.do(t, http.MethodGet, "/api/users/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/products?search=mon", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var products []models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Monitor", products[0].Name)

	w = s.do(t, http.MethodGet, "/api/products/99", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", decodeError(t, w))
}

func TestPanicIsolatedToRequest(t *testing.T) {
	s := newTestServer(t, store.SeedProducts(), Config{})

	w := s.do(t, http.MethodGet, "/api/error", nil, map[string]string{correlation.HeaderName: "boom-1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeError(t, w))
	assert.Equal(t, "boom-1", w.Header().Get(correlation.HeaderName))

	panics := s.logs.FilterMessage("Unhandled panic in request").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "boom-1", panics[0].ContextMap()[correlation.FieldCorrelationID])

	w = s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestTimeoutCancelsSlowRequest(t *testing.T) {
	s := newTestServer(t, store.SeedProducts(), Config{
		RequestTimeout: 20 * time.Millisecond,
		SlowDelay:      service.DelayRange{Min: time.Second, Max: time.Second},
	})

	start := time.Now()
	w := s.do(t, http.MethodGet, "/api/slow", nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.NotEmpty(t, w.Header().Get(correlation.HeaderName))
}

func TestSlowEndpoint(t *testing.T) {
	s := newTestServer(t, store.SeedProducts(), Config{
		SlowDelay: service.DelayRange{Min: time.Millisecond, Max: 2 * time.Millisecond},
	})

	w := s.do(t, http.MethodGet, "/api/slow", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Slow operation completed")
}
