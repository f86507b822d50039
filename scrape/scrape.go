// Package scrape scans tracked products for current prices.
// It fetches each product URL, extracts a price from the page and records
// the observation, isolating failures per URL and per product.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/pricewatch"
	"golang.org/x/sync/errgroup"
)

// Scraper scans products and records the prices it finds.
type Scraper struct {
	Products     pricewatch.ProductService
	URLs         pricewatch.ProductURLService
	Observations pricewatch.ObservationService
	Fetcher      pricewatch.Fetcher
	Extractor    pricewatch.PriceExtractor

	// RateLimiter, if set, is waited on per URL host before each fetch.
	RateLimiter pricewatch.DomainLimiter

	// RetryDelays are the backoff delays between fetch attempts.
	// Nil means each URL is fetched once.
	RetryDelays []time.Duration

	// Concurrency is the number of products scanned in parallel by RunBatch.
	// Values below 1 scan sequentially.
	Concurrency int

	// URLOrder is the order a product's URLs are visited in. The last URL
	// that yields a price sets the product's current price.
	URLOrder pricewatch.URLOrder

	// Now returns the observation timestamp. Defaults to time.Now.
	Now func() time.Time

	// OnResult, if set, is called with each product's result as soon as its
	// scan ends, including scans that failed. Calls may be concurrent when
	// Concurrency is above 1.
	OnResult func(*pricewatch.ProductResult)

	Logger *slog.Logger
}

// StoreError reports an observation write that failed for a reason other
// than the observation itself, such as an unreachable database.
type StoreError struct {
	ProductURLID string
	Err          error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record observation for URL %s: %v", e.ProductURLID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// rejected reports whether a write error concerns only the observation:
// a duplicate timestamp, a vanished product or URL, or invalid data.
func rejected(err error) bool {
	switch pricewatch.ErrorCode(err) {
	case pricewatch.ECONFLICT, pricewatch.ENOTFOUND, pricewatch.EINVALID:
		return true
	}
	return false
}

// ScanProduct visits each of the product's URLs in order and records every
// price found. A URL that fails to fetch or holds no price is skipped, as is
// an observation the store rejects. On success the product's CurrentPrice
// and LastChecked reflect the last recorded observation.
//
// An error is returned when the product's URLs cannot be listed, or as a
// *StoreError when the store fails outright. In the latter case the scan
// stops and the partial result is returned with the error.
func (s *Scraper) ScanProduct(ctx context.Context, product *pricewatch.Product) (*pricewatch.ProductResult, error) {
	urls, err := s.URLs.FindProductURLs(ctx, pricewatch.ProductURLFilter{
		ProductID: &product.ID,
		Order:     s.urlOrder(),
	})
	if err != nil {
		return nil, fmt.Errorf("list URLs for product %s: %w", product.ID, err)
	}

	result := &pricewatch.ProductResult{
		Product: product,
		URLs:    make([]pricewatch.URLResult, 0, len(urls)),
	}

	var last time.Time
	for _, u := range urls {
		r, err := s.scanURL(ctx, product, u, &last)
		result.URLs = append(result.URLs, r)
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

func (s *Scraper) scanURL(ctx context.Context, product *pricewatch.Product, u *pricewatch.ProductURL, last *time.Time) (pricewatch.URLResult, error) {
	logger := s.logger().With("product", product.ID, "url", u.URL)
	result := pricewatch.URLResult{URL: u}

	if s.RateLimiter != nil {
		if err := s.RateLimiter.Wait(ctx, Host(u.URL)); err != nil {
			result.Outcome = pricewatch.OutcomeFetchFailed
			result.Err = err
			return result, nil
		}
	}

	html, err := FetchWithRetryDelays(ctx, u.URL, s.Fetcher.Fetch, s.logRetry, s.RetryDelays)
	if err != nil {
		logger.Warn("fetch failed", "err", err)
		result.Outcome = pricewatch.OutcomeFetchFailed
		result.Err = err
		return result, nil
	}

	extraction, ok := s.Extractor.ExtractPrice(html)
	if !ok {
		logger.Info("no price found")
		result.Outcome = pricewatch.OutcomeNoPrice
		return result, nil
	}

	at := s.now().UTC().Truncate(time.Microsecond)
	if !at.After(*last) {
		at = last.Add(time.Microsecond)
	}

	obs := &pricewatch.Observation{
		ProductID:    product.ID,
		ProductURLID: u.ID,
		Price:        extraction.Price,
		ContentHash:  ComputeHash(html),
		RecordedAt:   at,
	}
	if err := s.Observations.RecordObservation(ctx, obs); err != nil {
		logger.Error("record observation failed", "price", extraction.Price, "err", err)
		result.Outcome = pricewatch.OutcomeStoreFailed
		result.Extraction = extraction
		result.Err = err
		if !rejected(err) {
			return result, &StoreError{ProductURLID: u.ID, Err: err}
		}
		return result, nil
	}
	*last = at

	price := extraction.Price
	product.CurrentPrice = &price
	product.LastChecked = &at

	logger.Info("price recorded", "price", price, "strategy", extraction.Strategy)
	result.Outcome = pricewatch.OutcomeFound
	result.Extraction = extraction
	result.Observation = obs
	return result, nil
}

// RunBatch scans every tracked product. A product whose URLs cannot be
// listed is logged and counted as failed; it never stops the batch.
//
// The report lists only products that yielded at least one price, in
// product-list order. RunBatch returns a nil report when nothing was
// recorded. An error is returned when the product list cannot be read or
// when a scan hits a *StoreError, which aborts the remaining scans.
func (s *Scraper) RunBatch(ctx context.Context) (*pricewatch.Report, error) {
	started := s.now()

	products, err := s.Products.FindProducts(ctx, pricewatch.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	concurrency := s.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*pricewatch.ProductResult, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, product := range products {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			result, err := s.scanIsolated(gctx, product)
			results[i] = result
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.logger().Error("batch aborted", "err", err)
		return nil, fmt.Errorf("batch aborted: %w", err)
	}

	report := &pricewatch.Report{
		StartedAt: started,
		Scanned:   len(results),
		Results:   results,
	}
	for _, r := range results {
		if r.Err != nil {
			report.Failed++
			continue
		}
		if prices := r.Prices(); prices != nil {
			report.Entries = append(report.Entries, pricewatch.ReportEntry{
				ProductID: r.Product.ID,
				Name:      r.Product.Name,
				Prices:    prices,
			})
		}
	}
	report.FinishedAt = s.now()

	s.logger().Info("batch finished",
		"scanned", report.Scanned,
		"failed", report.Failed,
		"products_with_prices", len(report.Entries),
		"observations", report.Observations(),
		"duration", report.FinishedAt.Sub(started),
	)

	if len(report.Entries) == 0 {
		return nil, nil
	}
	return report, nil
}

// scanIsolated scans one product, turning a failure to list its URLs into
// a failed result. Only a *StoreError is returned.
func (s *Scraper) scanIsolated(ctx context.Context, product *pricewatch.Product) (*pricewatch.ProductResult, error) {
	result, err := s.ScanProduct(ctx, product)
	if err != nil {
		s.logger().Error("scan product failed", "product", product.ID, "err", err)
		if result == nil {
			result = &pricewatch.ProductResult{Product: product}
		}
		result.Err = err
	}
	if s.OnResult != nil {
		s.OnResult(result)
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return result, err
	}
	return result, nil
}

func (s *Scraper) logRetry(url string, attempt int, err error) {
	s.logger().Warn("retrying fetch", "url", url, "attempt", attempt, "err", err)
}

func (s *Scraper) urlOrder() pricewatch.URLOrder {
	if s.URLOrder == "" {
		return pricewatch.OrderStored
	}
	return s.URLOrder
}

func (s *Scraper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scraper) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// ComputeHash returns the hex xxhash of page content.
func ComputeHash(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}
