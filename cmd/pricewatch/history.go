package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/pricewatch"
	"github.com/fwojciec/pricewatch/scrape"
)

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	product, err := findProduct(deps, c.Name)
	if err != nil {
		return err
	}

	urls, err := deps.URLs.FindProductURLs(deps.Ctx, pricewatch.ProductURLFilter{ProductID: &product.ID})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
		return err
	}
	byID := make(map[string]string, len(urls))
	for _, u := range urls {
		byID[u.ID] = u.URL
	}

	history, err := deps.Observations.FindObservations(deps.Ctx, pricewatch.ObservationFilter{
		ProductID: &product.ID,
		Limit:     c.Limit,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
		return err
	}

	if len(history) == 0 {
		fmt.Fprintf(deps.Stdout, "No price history for %q. Use 'pricewatch scrape %s' to check now.\n", product.Name, product.Name)
		return nil
	}

	for _, obs := range history {
		fmt.Fprintf(deps.Stdout, "%s  %10s  %s\n",
			obs.RecordedAt.Local().Format(time.DateTime),
			scrape.FormatPrice(&obs.Price),
			scrape.TruncateURL(byID[obs.ProductURLID], 60))
	}

	return nil
}
