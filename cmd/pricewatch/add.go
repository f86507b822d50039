package main

import (
	"fmt"

	"github.com/fwojciec/pricewatch"
	"github.com/fwojciec/pricewatch/scrape"
)

// Run executes the add command. Adding to an existing product attaches
// any URLs it does not already have.
func (c *AddCmd) Run(deps *Dependencies) error {
	if c.Primary < 0 || c.Primary > len(c.URLs) {
		fmt.Fprintf(deps.Stderr, "error: --primary must be between 1 and %d\n", len(c.URLs))
		return pricewatch.Errorf(pricewatch.EINVALID, "primary URL position out of range")
	}

	existing, err := deps.Products.FindProducts(deps.Ctx, pricewatch.ProductFilter{Name: &c.Name, UserID: &c.User, Limit: 1})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
		return err
	}

	var product *pricewatch.Product
	if len(existing) > 0 {
		product = existing[0]
		fmt.Fprintf(deps.Stdout, "Using existing product %q (%s)\n", product.Name, product.ID)
	} else {
		product = &pricewatch.Product{Name: c.Name, UserID: c.User}
		if c.Target > 0 {
			target := c.Target
			product.TargetPrice = &target
		}
		if err := deps.Products.CreateProduct(deps.Ctx, product); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
			return err
		}
		fmt.Fprintf(deps.Stdout, "Added product %q (%s)\n", product.Name, product.ID)
	}

	tracked, err := deps.URLs.FindProductURLs(deps.Ctx, pricewatch.ProductURLFilter{ProductID: &product.ID})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
		return err
	}
	seen := make(map[string]bool, len(tracked))
	for _, u := range tracked {
		seen[u.URL] = true
	}

	for i, raw := range c.URLs {
		u := &pricewatch.ProductURL{
			ProductID: product.ID,
			URL:       raw,
			Retailer:  c.Retailer,
			IsPrimary: c.Primary == i+1,
		}
		if err := u.Validate(); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
			return err
		}
		if u.Retailer == "" {
			u.Retailer = scrape.Host(u.URL)
		}
		if seen[u.URL] {
			fmt.Fprintf(deps.Stdout, "  = %s (already tracked)\n", u.URL)
			continue
		}
		if err := deps.URLs.CreateProductURL(deps.Ctx, u); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
			return err
		}
		seen[u.URL] = true
		fmt.Fprintf(deps.Stdout, "  + %s\n", u.URL)
	}

	return nil
}
