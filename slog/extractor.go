package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/pricewatch"
)

// Ensure LoggingExtractor implements pricewatch.PriceExtractor.
var _ pricewatch.PriceExtractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps a PriceExtractor with debug logging.
type LoggingExtractor struct {
	next   pricewatch.PriceExtractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next pricewatch.PriceExtractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// ExtractPrice delegates to the wrapped extractor and logs the result.
func (e *LoggingExtractor) ExtractPrice(html string) (extraction pricewatch.Extraction, ok bool) {
	defer func(begin time.Time) {
		e.logger.Debug("extract price",
			"bytes", len(html),
			"found", ok,
			"price", extraction.Price,
			"strategy", extraction.Strategy,
			"match", extraction.Match,
			"duration", time.Since(begin),
		)
	}(time.Now())
	return e.next.ExtractPrice(html)
}
