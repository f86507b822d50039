package pricewatch

import "context"

// Fetcher retrieves raw page markup from URLs.
type Fetcher interface {
	// Fetch performs a single GET of the URL and returns the body.
	// Timeouts, connection failures and non-2xx statuses are errors.
	// Implementations do not retry; retry policy belongs to the caller.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases fetcher resources.
	Close() error
}
