package pricewatch

import (
	"context"
	"fmt"
	"time"
)

// Outcome classifies a single URL attempt within a scan.
type Outcome int

// Outcome constants.
const (
	// OutcomeFound means a price was extracted and recorded.
	OutcomeFound Outcome = iota

	// OutcomeNoPrice means the page was fetched but held no price.
	OutcomeNoPrice

	// OutcomeFetchFailed means the page could not be retrieved.
	OutcomeFetchFailed

	// OutcomeStoreFailed means a price was extracted but could not be
	// recorded. Nothing was written for the URL.
	OutcomeStoreFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNoPrice:
		return "no_price"
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomeStoreFailed:
		return "store_failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// URLResult is the outcome of scraping one product URL.
type URLResult struct {
	URL     *ProductURL
	Outcome Outcome

	// Extraction and Observation are set when Outcome is OutcomeFound.
	Extraction  Extraction
	Observation *Observation

	// Err is set for OutcomeFetchFailed and OutcomeStoreFailed.
	Err error
}

// ProductResult is the outcome of scanning one product.
type ProductResult struct {
	Product *Product
	URLs    []URLResult

	// Err is set when the scan could not run at all, e.g. the product's
	// URLs could not be listed.
	Err error
}

// Prices returns the recorded prices in visit order.
// Returns nil, not an empty slice, when no URL yielded a price.
func (r *ProductResult) Prices() []float64 {
	var prices []float64
	for _, u := range r.URLs {
		if u.Outcome == OutcomeFound {
			prices = append(prices, u.Extraction.Price)
		}
	}
	return prices
}

// Count returns the number of URL results with the given outcome.
func (r *ProductResult) Count(o Outcome) int {
	var n int
	for _, u := range r.URLs {
		if u.Outcome == o {
			n++
		}
	}
	return n
}

// ReportEntry summarizes the prices collected for one product in a batch.
type ReportEntry struct {
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Prices    []float64 `json:"prices"`
}

// Report is the result of a batch run. It only lists products that
// yielded at least one price.
type Report struct {
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Scanned    int           `json:"scanned"`
	Failed     int           `json:"failed"`
	Entries    []ReportEntry `json:"entries"`

	// Results holds the per-product outcomes, including products that
	// yielded nothing, in product-list order.
	Results []*ProductResult `json:"-"`
}

// Observations returns the total number of prices in the report.
func (r *Report) Observations() int {
	var n int
	for _, e := range r.Entries {
		n += len(e.Prices)
	}
	return n
}

// ReportWriter persists batch reports outside the database.
type ReportWriter interface {
	// WriteReport stores the report. A nil report is a no-op.
	WriteReport(ctx context.Context, report *Report) error
}
