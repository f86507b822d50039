package pricewatch

import (
	"context"
	"strings"
)

// ProductURL is a retailer page a product's price is scraped from.
// A (product, URL) pair is unique.
type ProductURL struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	URL       string `json:"url"`
	Retailer  string `json:"retailer,omitempty"`
	IsPrimary bool   `json:"isPrimary"`
}

// Validate returns an error if the product URL contains invalid fields.
// The URL is trimmed of surrounding whitespace.
func (u *ProductURL) Validate() error {
	u.URL = strings.TrimSpace(u.URL)
	if u.ProductID == "" {
		return Errorf(EINVALID, "product URL product ID required")
	}
	if u.URL == "" {
		return Errorf(EINVALID, "product URL required")
	}
	return nil
}

// PrimaryURL returns the URL flagged as primary, falling back to the first
// URL. Returns nil if urls is empty.
func PrimaryURL(urls []*ProductURL) *ProductURL {
	for _, u := range urls {
		if u.IsPrimary {
			return u
		}
	}
	if len(urls) > 0 {
		return urls[0]
	}
	return nil
}

// URLOrder is the order a product's URLs are visited in during a scan.
// Because every successful URL overwrites the product's current price, the
// order decides which URL's price "wins": the last one visited.
type URLOrder string

// URLOrder constants for ProductURLFilter and the scraper.
const (
	// OrderStored visits URLs in the order they were stored.
	OrderStored URLOrder = "stored"

	// OrderPrimaryFirst visits the primary URL first, then the rest in
	// stored order.
	OrderPrimaryFirst URLOrder = "primary_first"
)

// ProductURLService represents a service for managing product URLs.
type ProductURLService interface {
	// CreateProductURL attaches a URL to a product. If the product already
	// has the URL, the existing record is copied into u and no row is added.
	CreateProductURL(ctx context.Context, u *ProductURL) error

	// FindProductURLs retrieves product URLs matching the filter,
	// in the filter's order.
	FindProductURLs(ctx context.Context, filter ProductURLFilter) ([]*ProductURL, error)

	// DeleteProductURL removes a URL and its history.
	// Returns ENOTFOUND if the URL does not exist.
	DeleteProductURL(ctx context.Context, id string) error
}

// ProductURLFilter represents a filter for FindProductURLs.
type ProductURLFilter struct {
	ID        *string `json:"id"`
	ProductID *string `json:"productId"`

	Order URLOrder `json:"order"`
}
