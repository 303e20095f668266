package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"sample-app/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidUser       = errors.New("name and email are required")
)

// productEntry pairs a product with the lock that guards its stock.
// Name and Price are never mutated after seeding.
type productEntry struct {
	mu      sync.Mutex
	product models.Product
}

// Inventory owns the users and products collections.
// Users and products are guarded independently; stock is guarded per product.
type Inventory struct {
	usersMu sync.RWMutex
	users   map[int64]models.User
	maxUser int64

	productsMu sync.RWMutex
	products   map[int64]*productEntry
}

// NewInventory creates an inventory seeded with the given users and products
func NewInventory(users []models.User, products []models.Product) *Inventory {
	inv := &Inventory{
		users:    make(map[int64]models.User, len(users)),
		products: make(map[int64]*productEntry, len(products)),
	}

	for _, u := range users {
		inv.users[u.ID] = u
		if u.ID > inv.maxUser {
			inv.maxUser = u.ID
		}
	}

	for _, p := range products {
		inv.products[p.ID] = &productEntry{product: p}
	}

	return inv
}

// FindUser retrieves a user by ID
func (s *Inventory) FindUser(id int64) (models.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("%w: %d", ErrUserNotFound, id)
	}
	return u, nil
}

// ListUsers returns all users ordered by ID
func (s *Inventory) ListUsers() []models.User {
	s.usersMu.RLock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.usersMu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// CreateUser registers a user with ID max(existing)+1
func (s *Inventory) CreateUser(name, email string) (models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return models.User{}, ErrInvalidUser
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	s.maxUser++
	u := models.User{ID: s.maxUser, Name: name, Email: email}
	s.users[u.ID] = u
	return u, nil
}

// FindProduct retrieves a snapshot of a product by ID
func (s *Inventory) FindProduct(id int64) (models.Product, error) {
	s.productsMu.RLock()
	entry, ok := s.products[id]
	s.productsMu.RUnlock()

	if !ok {
		return models.Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return entry.snapshot(), nil
}

// ListProducts returns snapshots of all products ordered by ID
func (s *Inventory) ListProducts() []models.Product {
	return s.filterProducts(func(models.Product) bool { return true })
}

// SearchProducts returns products whose name contains term, ignoring case
func (s *Inventory) SearchProducts(term string) []models.Product {
	needle := strings.ToLower(term)
	return s.filterProducts(func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	})
}

func (s *Inventory) filterProducts(keep func(models.Product) bool) []models.Product {
	s.productsMu.RLock()
	entries := make([]*productEntry, 0, len(s.products))
	for _, e := range s.products {
		entries = append(entries, e)
	}
	s.productsMu.RUnlock()

	products := make([]models.Product, 0, len(entries))
	for _, e := range entries {
		if p := e.snapshot(); keep(p) {
			products = append(products, p)
		}
	}

	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}

// DecrementStock atomically checks and subtracts quantity from a product's stock.
// It returns the remaining stock on success.
func (s *Inventory) DecrementStock(productID int64, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}

	s.productsMu.RLock()
	entry, ok := s.products[productID]
	s.productsMu.RUnlock()

	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.product.Stock < quantity {
		return entry.product.Stock, fmt.Errorf("%w: available=%d, requested=%d",
			ErrInsufficientStock, entry.product.Stock, quantity)
	}

	entry.product.Stock -= quantity
	return entry.product.Stock, nil
}

func (e *productEntry) snapshot() models.Product {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.product
}
