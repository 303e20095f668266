package store

import (
	"sample-app/internal/models"

	"github.com/shopspring/decimal"
)

// SeedUsers returns the users available at startup
func SeedUsers() []models.User {
	return []models.User{
		{ID: 1, Name: "Alice Johnson", Email: "alice@example.com"},
		{ID: 2, Name: "Bob Smith", Email: "bob@example.com"},
		{ID: 3, Name: "Carol Williams", Email: "carol@example.com"},
	}
}

// SeedProducts returns the catalog available at startup
func SeedProducts() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Laptop", Price: decimal.RequireFromString("999.99"), Stock: 50},
		{ID: 2, Name: "Mouse", Price: decimal.RequireFromString("29.99"), Stock: 200},
		{ID: 3, Name: "Keyboard", Price: decimal.RequireFromString("79.99"), Stock: 150},
		{ID: 4, Name: "Monitor", Price: decimal.RequireFromString("299.99"), Stock: 75},
	}
}
