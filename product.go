package pricewatch

import (
	"context"
	"strings"
	"time"
)

// Product represents an item a user is tracking the price of.
// CurrentPrice and LastChecked are written only by the scrape pipeline and
// always reflect the most recent successful extraction.
type Product struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Name         string     `json:"name"`
	TargetPrice  *float64   `json:"targetPrice,omitempty"`
	CurrentPrice *float64   `json:"currentPrice,omitempty"`
	LastChecked  *time.Time `json:"lastChecked,omitempty"`
	AddedAt      time.Time  `json:"addedAt"`
}

// Validate returns an error if the product contains invalid fields.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Errorf(EINVALID, "product name required")
	}
	if p.UserID == "" {
		return Errorf(EINVALID, "product user ID required")
	}
	if p.TargetPrice != nil && *p.TargetPrice < 0 {
		return Errorf(EINVALID, "product target price must not be negative")
	}
	return nil
}

// BelowTarget reports whether the current price has reached the target price.
// Returns false if either price is unknown.
func (p *Product) BelowTarget() bool {
	if p.TargetPrice == nil || p.CurrentPrice == nil {
		return false
	}
	return *p.CurrentPrice <= *p.TargetPrice
}

// ProductService represents a service for managing tracked products.
type ProductService interface {
	// CreateProduct creates a new product.
	CreateProduct(ctx context.Context, product *Product) error

	// FindProductByID retrieves a product by ID.
	// Returns ENOTFOUND if product does not exist.
	FindProductByID(ctx context.Context, id string) (*Product, error)

	// FindProducts retrieves products matching the filter.
	// An empty filter returns every tracked product.
	FindProducts(ctx context.Context, filter ProductFilter) ([]*Product, error)

	// UpdateProduct updates the owner-editable fields of a product.
	// Returns ENOTFOUND if product does not exist.
	UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (*Product, error)

	// DeleteProduct permanently removes a product, its URLs and its history.
	// Returns ENOTFOUND if product does not exist.
	DeleteProduct(ctx context.Context, id string) error
}

// ProductFilter represents a filter for FindProducts.
type ProductFilter struct {
	ID     *string `json:"id"`
	UserID *string `json:"userId"`
	Name   *string `json:"name"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// ProductUpdate represents fields the owner can change on a product.
// Current price and last-checked are deliberately absent; only
// ObservationService.RecordObservation writes them.
type ProductUpdate struct {
	Name        *string  `json:"name"`
	TargetPrice *float64 `json:"targetPrice"`
}
