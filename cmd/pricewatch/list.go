package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/pricewatch"
	"github.com/fwojciec/pricewatch/scrape"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	products, err := deps.Products.FindProducts(deps.Ctx, pricewatch.ProductFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
		return err
	}

	if len(products) == 0 {
		fmt.Fprintln(deps.Stdout, "No products found. Use 'pricewatch add' to track one.")
		return nil
	}

	for _, p := range products {
		checked := "never"
		if p.LastChecked != nil {
			checked = p.LastChecked.Local().Format(time.DateTime)
		}
		line := fmt.Sprintf("%s  %s  price=%s  target=%s  checked=%s",
			p.ID, p.Name, scrape.FormatPrice(p.CurrentPrice), scrape.FormatPrice(p.TargetPrice), checked)
		if p.BelowTarget() {
			line += "  (at or below target)"
		}
		fmt.Fprintln(deps.Stdout, line)
	}

	return nil
}
