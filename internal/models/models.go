package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices are rendered as JSON numbers (89.97), not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// User represents a registered customer
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Product represents a catalog item and its available stock
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// Order is an immutable record of a committed purchase.
// UserName, ProductName and TotalPrice are snapshots taken at commit time.
type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	UserName    string          `json:"userName"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	OrderDate   time.Time       `json:"orderDate"`
	Status      string          `json:"status"`
}

// OrderRequest is the transient input of order creation.
// Unknown or zero ids are resolved by the order service, not by binding.
type OrderRequest struct {
	UserID    int64 `json:"userId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// CreateUserRequest is the input of user registration
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// Order statuses
const (
	OrderStatusConfirmed = "Confirmed"
)
