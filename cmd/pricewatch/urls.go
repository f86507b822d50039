package main

import (
	"fmt"

	"github.com/fwojciec/pricewatch"
)

// Run executes the urls command.
func (c *URLsCmd) Run(deps *Dependencies) error {
	product, err := findProduct(deps, c.Name)
	if err != nil {
		return err
	}

	urls, err := deps.URLs.FindProductURLs(deps.Ctx, pricewatch.ProductURLFilter{
		ProductID: &product.ID,
		Order:     pricewatch.OrderPrimaryFirst,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
		return err
	}

	if len(urls) == 0 {
		fmt.Fprintf(deps.Stdout, "No URLs for %q. Use 'pricewatch add %s URL' to add one.\n", product.Name, product.Name)
		return nil
	}

	// The primary URL is the flagged one, or the first when none is flagged.
	primary := pricewatch.PrimaryURL(urls)
	for _, u := range urls {
		marker := " "
		if u == primary {
			marker = "*"
		}
		fmt.Fprintf(deps.Stdout, "%s %s  %s  %s\n", marker, u.ID, u.Retailer, u.URL)
	}

	return nil
}
