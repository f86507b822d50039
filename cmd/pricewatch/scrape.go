package main

import (
	"fmt"
	"sync"

	"github.com/fwojciec/pricewatch"
	"github.com/fwojciec/pricewatch/scrape"
)

// Run executes the scrape command.
func (c *ScrapeCmd) Run(deps *Dependencies) error {
	if c.Name != "" {
		return c.scrapeOne(deps)
	}

	scraper := *deps.Scraper
	if c.Verbose {
		var mu sync.Mutex
		scraper.OnResult = func(r *pricewatch.ProductResult) {
			mu.Lock()
			defer mu.Unlock()
			printProductResult(deps, r)
		}
	}

	report, err := scraper.RunBatch(deps.Ctx)
	if c.Verbose {
		fmt.Fprintln(deps.Stdout)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
		return err
	}

	scrape.FormatReport(deps.Stdout, report)

	if deps.Reports != nil && report != nil {
		if err := deps.Reports.WriteReport(deps.Ctx, report); err != nil {
			fmt.Fprintf(deps.Stderr, "error: writing report: %v\n", err)
			return err
		}
	}

	return nil
}

func (c *ScrapeCmd) scrapeOne(deps *Dependencies) error {
	product, err := findProduct(deps, c.Name)
	if err != nil {
		return err
	}

	result, err := deps.Scraper.ScanProduct(deps.Ctx, product)
	if c.Verbose && result != nil {
		printProductResult(deps, result)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
		return err
	}

	prices := result.Prices()
	if prices == nil {
		fmt.Fprintf(deps.Stdout, "No prices found for %q.\n", product.Name)
		return nil
	}

	fmt.Fprintf(deps.Stdout, "%s: %s (current %s)\n",
		product.Name, scrape.FormatPrices(prices), scrape.FormatPrice(product.CurrentPrice))
	return nil
}

func printProductResult(deps *Dependencies, r *pricewatch.ProductResult) {
	if r.Err != nil {
		fmt.Fprintf(deps.Stdout, "%s: scan failed: %v\n", r.Product.Name, r.Err)
		return
	}
	fmt.Fprintf(deps.Stdout, "%s:\n", r.Product.Name)
	for _, u := range r.URLs {
		switch u.Outcome {
		case pricewatch.OutcomeFound:
			fmt.Fprintf(deps.Stdout, "  %-12s %s  %s (%s)\n", u.Outcome, scrape.TruncateURL(u.URL.URL, 60),
				scrape.FormatPrice(&u.Extraction.Price), u.Extraction.Strategy)
		case pricewatch.OutcomeNoPrice:
			fmt.Fprintf(deps.Stdout, "  %-12s %s\n", u.Outcome, scrape.TruncateURL(u.URL.URL, 60))
		default:
			fmt.Fprintf(deps.Stdout, "  %-12s %s  %v\n", u.Outcome, scrape.TruncateURL(u.URL.URL, 60), u.Err)
		}
	}
}
