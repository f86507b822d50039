package mock

import "github.com/fwojciec/pricewatch"

var _ pricewatch.PriceExtractor = (*PriceExtractor)(nil)

// PriceExtractor is a mock implementation of pricewatch.PriceExtractor.
type PriceExtractor struct {
	ExtractPriceFn func(html string) (pricewatch.Extraction, bool)
}

func (e *PriceExtractor) ExtractPrice(html string) (pricewatch.Extraction, bool) {
	return e.ExtractPriceFn(html)
}
