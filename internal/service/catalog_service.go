package service

import (
	"errors"

	"sample-app/internal/correlation"
	"sample-app/internal/models"
	"sample-app/internal/store"
	"sample-app/internal/util"

	"go.uber.org/zap"
)

// CatalogService serves user and product reads and user registration
type CatalogService struct {
	inventory *store.Inventory
	logger    *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(inventory *store.Inventory, opts ...Option) *CatalogService {
	o := newOptions(opts)
	return &CatalogService{
		inventory: inventory,
		logger:    o.logger,
	}
}

// ListUsers returns all users
func (cs *CatalogService) ListUsers(cc correlation.Context) []models.User {
	users := cs.inventory.ListUsers()
	cc.Logger(cs.logger).Info("Fetching all users", zap.Int("count", len(users)))
	return users
}

// GetUser retrieves a user by ID
func (cs *CatalogService) GetUser(cc correlation.Context, id int64) (models.User, error) {
	log := cc.Logger(cs.logger)
	log.Info("Fetching user", zap.Int64("userId", id))

	user, err := cs.inventory.FindUser(id)
	if errors.Is(err, store.ErrUserNotFound) {
		log.Warn("User not found", zap.Int64("userId", id))
	}
	return user, err
}

// CreateUser registers a new user
func (cs *CatalogService) CreateUser(cc correlation.Context, req *models.CreateUserRequest) (models.User, error) {
	log := cc.Logger(cs.logger)

	user, err := cs.inventory.CreateUser(req.Name, req.Email)
	if err != nil {
		log.Warn("User creation rejected", zap.Error(err))
		return models.User{}, err
	}

	util.UsersCreatedTotal.Inc()
	log.Info("Created new user", zap.Int64("userId", user.ID), zap.String("userName", user.Name))
	return user, nil
}

// ListProducts returns all products, or those matching search when it is non-empty
func (cs *CatalogService) ListProducts(cc correlation.Context, search string) []models.Product {
	log := cc.Logger(cs.logger)

	if search != "" {
		products := cs.inventory.SearchProducts(search)
		log.Info("Searching products", zap.String("searchTerm", search), zap.Int("count", len(products)))
		return products
	}

	products := cs.inventory.ListProducts()
	log.Info("Fetching all products", zap.Int("count", len(products)))
	return products
}

// GetProduct retrieves a product by ID
func (cs *CatalogService) GetProduct(cc correlation.Context, id int64) (models.Product, error) {
	log := cc.Logger(cs.logger)
	log.Info("Fetching product", zap.Int64("productId", id))

	product, err := cs.inventory.FindProduct(id)
	if errors.Is(err, store.ErrProductNotFound) {
		log.Warn("Product not found", zap.Int64("productId", id))
	}
	return product, err
}
