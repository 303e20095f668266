package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sample-app/internal/models"
	"sample-app/internal/service"
	"sample-app/internal/store"
	"sample-app/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config holds handler settings
type Config struct {
	Version        string
	SlowDelay      service.DelayRange
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// Handler contains HTTP handlers
type Handler struct {
	catalog *service.CatalogService
	orders  *service.OrderService
	cfg     Config
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(catalog *service.CatalogService, orders *service.OrderService, cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = util.GetLogger()
	}
	return &Handler{
		catalog: catalog,
		orders:  orders,
		cfg:     cfg,
		logger:  logger,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(recoveryMiddleware(h.logger))
	router.Use(correlationMiddleware())
	router.Use(timeoutMiddleware(h.cfg.RequestTimeout))
	router.Use(prometheusMiddleware())
	router.Use(accessLogMiddleware(h.logger))

	router.GET("/", h.root)
	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api")
	{
		v1.GET("/users", h.listUsers)
		v1.GET("/users/:id", h.getUser)
		v1.POST("/users", h.createUser)

		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)

		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders", h.createOrder)

		v1.GET("/slow", h.slow)
		v1.GET("/error", h.fail)
	}
}

// root describes the service
func (h *Handler) root(c *gin.Context) {
	requestCorrelation(c).Logger(h.logger).Info("Root endpoint accessed")
	c.JSON(http.StatusOK, gin.H{
		"message": "GitOps Sample App with Observability",
		"version": h.cfg.Version,
		"endpoints": []string{
			"GET /health - Health check",
			"GET /api/users - List all users",
			"GET /api/users/{id} - Get user by ID",
			"POST /api/users - Create new user",
			"GET /api/products - List all products",
			"GET /api/products?search={term} - Search products",
			"GET /api/products/{id} - Get product by ID",
			"POST /api/orders - Create new order",
			"GET /api/orders - List all orders",
			"GET /api/orders/{id} - Get order by ID",
			"GET /api/slow - Simulate slow request",
			"GET /api/error - Simulate error",
		},
	})
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	requestCorrelation(c).Logger(h.logger).Info("Health check endpoint accessed")

	// state is in-process; there is no external database or cache to probe
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   h.cfg.Version,
		"dependencies": gin.H{
			"database": "healthy",
			"cache":    "healthy",
		},
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.ListUsers(requestCorrelation(c)))
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := parseID(c, "Invalid user ID")
	if !ok {
		return
	}

	user, err := h.catalog.GetUser(requestCorrelation(c), id)
	if errors.Is(err, store.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) createUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	user, err := h.catalog.CreateUser(requestCorrelation(c), &req)
	if errors.Is(err, store.ErrInvalidUser) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and email are required"})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/users/%d", user.ID))
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.ListProducts(requestCorrelation(c), c.Query("search")))
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := parseID(c, "Invalid product ID")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(requestCorrelation(c), id)
	if errors.Is(err, store.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) listOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.orders.ListOrders(requestCorrelation(c)))
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := parseID(c, "Invalid order ID")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(requestCorrelation(c), id)
	if errors.Is(err, store.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), requestCorrelation(c), &req)
	if rej, ok := service.AsRejection(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": rej.Error()})
		return
	}
	if isCancellation(err) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request cancelled"})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/orders/%d", order.ID))
	c.JSON(http.StatusCreated, order)
}

// slow simulates a slow dependency
func (h *Handler) slow(c *gin.Context) {
	log := requestCorrelation(c).Logger(h.logger)

	delay, err := service.Sleep(c.Request.Context(), h.cfg.SlowDelay)
	if err != nil {
		log.Warn("Slow endpoint cancelled", zap.Duration("delay", delay), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request cancelled"})
		return
	}

	log.Info("Slow endpoint completed", zap.Int64("delayMs", delay.Milliseconds()))
	c.JSON(http.StatusOK, gin.H{
		"message": "Slow operation completed",
		"delayMs": delay.Milliseconds(),
	})
}

// fail panics to exercise per-request fault isolation
func (h *Handler) fail(c *gin.Context) {
	requestCorrelation(c).Logger(h.logger).Error("Error endpoint accessed - panicking")
	panic("Simulated error for testing observability alerts")
}

func (h *Handler) internalError(c *gin.Context, err error) {
	requestCorrelation(c).Logger(h.logger).Error("Request failed",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func parseID(c *gin.Context, message string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return 0, false
	}
	return id, true
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
