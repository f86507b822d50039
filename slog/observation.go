package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/pricewatch"
)

// Ensure LoggingObservationService implements pricewatch.ObservationService.
var _ pricewatch.ObservationService = (*LoggingObservationService)(nil)

// LoggingObservationService wraps an ObservationService with logging.
type LoggingObservationService struct {
	next   pricewatch.ObservationService
	logger *slog.Logger
}

// NewLoggingObservationService creates a new LoggingObservationService.
func NewLoggingObservationService(next pricewatch.ObservationService, logger *slog.Logger) *LoggingObservationService {
	return &LoggingObservationService{next: next, logger: logger}
}

// RecordObservation delegates to the wrapped service and logs the write.
func (s *LoggingObservationService) RecordObservation(ctx context.Context, obs *pricewatch.Observation) (err error) {
	defer func(begin time.Time) {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "record observation",
			"product", obs.ProductID,
			"product_url", obs.ProductURLID,
			"price", obs.Price,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.RecordObservation(ctx, obs)
}

// FindObservations delegates to the wrapped service and logs the query.
func (s *LoggingObservationService) FindObservations(ctx context.Context, filter pricewatch.ObservationFilter) (observations []*pricewatch.Observation, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find observations",
			"count", len(observations),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindObservations(ctx, filter)
}
