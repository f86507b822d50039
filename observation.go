package pricewatch

import (
	"context"
	"time"
)

// Observation is one successfully extracted price, recorded against the
// product and the URL it came from. Observations are append-only.
type Observation struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"productId"`
	ProductURLID string    `json:"productUrlId"`
	Price        float64   `json:"price"`
	ContentHash  string    `json:"contentHash,omitempty"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// Validate returns an error if the observation contains invalid fields.
func (o *Observation) Validate() error {
	if o.ProductID == "" {
		return Errorf(EINVALID, "observation product ID required")
	}
	if o.ProductURLID == "" {
		return Errorf(EINVALID, "observation product URL ID required")
	}
	if o.RecordedAt.IsZero() {
		return Errorf(EINVALID, "observation timestamp required")
	}
	return nil
}

// ObservationService represents a service for recording price history.
type ObservationService interface {
	// RecordObservation sets the product's current price and last-checked
	// time to the observation's price and timestamp, and appends the
	// observation to the history. Both writes commit together or not at all.
	// Returns ENOTFOUND if the product does not exist and ECONFLICT if the
	// URL already has an observation at that timestamp.
	RecordObservation(ctx context.Context, obs *Observation) error

	// FindObservations retrieves history rows matching the filter,
	// newest first.
	FindObservations(ctx context.Context, filter ObservationFilter) ([]*Observation, error)
}

// ObservationFilter represents a filter for FindObservations.
type ObservationFilter struct {
	ProductID    *string `json:"productId"`
	ProductURLID *string `json:"productUrlId"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
