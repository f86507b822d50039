package scrape

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/pricewatch"
)

// FormatPrice formats a price with two decimals. Nil formats as "-".
func FormatPrice(price *float64) string {
	if price == nil {
		return "-"
	}
	return strconv.FormatFloat(*price, 'f', 2, 64)
}

// FormatPrices formats a list of prices as a comma-separated string.
func FormatPrices(prices []float64) string {
	parts := make([]string, len(prices))
	for i := range prices {
		parts[i] = FormatPrice(&prices[i])
	}
	return strings.Join(parts, ", ")
}

// FormatReport writes a human-readable summary of a batch report.
// A nil report is written as a single "nothing scraped" line.
func FormatReport(w io.Writer, report *pricewatch.Report) {
	if report == nil {
		fmt.Fprintln(w, "No products were scraped.")
		return
	}

	for _, e := range report.Entries {
		fmt.Fprintf(w, "%s: %s\n", e.Name, FormatPrices(e.Prices))
	}
	fmt.Fprintf(w, "\nScraped %d price(s) for %d of %d product(s)",
		report.Observations(), len(report.Entries), report.Scanned)
	if report.Failed > 0 {
		fmt.Fprintf(w, ", %d failed", report.Failed)
	}
	fmt.Fprintf(w, " in %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
}

// TruncateURL shortens a URL for display, keeping the end which is more informative.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 4 {
		return url[:min(len(url), maxLen)]
	}
	if len(url) <= maxLen {
		return url
	}
	return "..." + url[len(url)-maxLen+3:]
}
