package mock

import (
	"context"

	"github.com/fwojciec/pricewatch"
)

var _ pricewatch.ObservationService = (*ObservationService)(nil)

// ObservationService is a mock implementation of pricewatch.ObservationService.
type ObservationService struct {
	RecordObservationFn func(ctx context.Context, obs *pricewatch.Observation) error
	FindObservationsFn  func(ctx context.Context, filter pricewatch.ObservationFilter) ([]*pricewatch.Observation, error)
}

func (s *ObservationService) RecordObservation(ctx context.Context, obs *pricewatch.Observation) error {
	return s.RecordObservationFn(ctx, obs)
}

func (s *ObservationService) FindObservations(ctx context.Context, filter pricewatch.ObservationFilter) ([]*pricewatch.Observation, error) {
	return s.FindObservationsFn(ctx, filter)
}
