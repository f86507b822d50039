package pricewatch

// ExtractStrategy names the heuristic that produced a price.
type ExtractStrategy string

// ExtractStrategy constants, in priority order.
const (
	// StrategyPattern matched a currency-prefixed number in the visible text.
	StrategyPattern ExtractStrategy = "pattern"

	// StrategyClass read the text of an element with a price-bearing class.
	StrategyClass ExtractStrategy = "class"
)

// Extraction holds a price extracted from a page.
type Extraction struct {
	Price    float64
	Strategy ExtractStrategy

	// Match is the raw text the price was parsed from.
	Match string
}

// PriceExtractor derives a price from unstructured page markup.
type PriceExtractor interface {
	// ExtractPrice returns the page's price and true, or false if no price
	// could be found. Not finding a price is a normal outcome, not an error.
	// Prices are not checked for plausibility.
	ExtractPrice(html string) (Extraction, bool)
}
