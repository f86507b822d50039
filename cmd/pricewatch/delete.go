package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/pricewatch"
)

// Run executes the delete command.
func (c *DeleteCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintf(deps.Stderr, "error: use --force to confirm deletion\n")
		return pricewatch.Errorf(pricewatch.EINVALID, "use --force to confirm deletion")
	}

	product, err := findProduct(deps, c.Name)
	if err != nil {
		return err
	}

	if c.URL != "" {
		return c.deleteURL(deps, product)
	}

	if err := deps.Products.DeleteProduct(deps.Ctx, product.ID); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Deleted product %q\n", product.Name)
	return nil
}

func (c *DeleteCmd) deleteURL(deps *Dependencies, product *pricewatch.Product) error {
	urls, err := deps.URLs.FindProductURLs(deps.Ctx, pricewatch.ProductURLFilter{ProductID: &product.ID})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
		return err
	}

	want := strings.TrimSpace(c.URL)
	for _, u := range urls {
		if u.URL != want && u.ID != want {
			continue
		}
		if err := deps.URLs.DeleteProductURL(deps.Ctx, u.ID); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
			return err
		}
		fmt.Fprintf(deps.Stdout, "Deleted URL %s from %q\n", u.URL, product.Name)
		return nil
	}

	fmt.Fprintf(deps.Stderr, "error: %q has no URL %s. Use 'pricewatch urls %s' to list them.\n", product.Name, want, product.Name)
	return pricewatch.Errorf(pricewatch.ENOTFOUND, "product URL not found")
}
