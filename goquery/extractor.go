// Package goquery implements pricewatch.PriceExtractor on top of goquery.
package goquery

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/pricewatch"
	"golang.org/x/net/html"
)

// DefaultPricePattern matches a currency symbol followed by a number with
// optional thousands separators and decimal fraction, e.g. "$1,299.99".
// The optional separator after the symbol may be any Unicode space, such
// as the no-break and narrow no-break spaces common in European prices.
const DefaultPricePattern = `[$€£₦][\s\p{Zs}\v]?[\d,]+(?:\.\d+)?`

// DefaultPriceClasses returns the class names probed when the visible text
// holds no currency-prefixed number, in probe order.
func DefaultPriceClasses() []string {
	return []string{"price", "current-price", "product-price", "amount", "cost"}
}

// Ensure PriceExtractor implements pricewatch.PriceExtractor at compile time.
var _ pricewatch.PriceExtractor = (*PriceExtractor)(nil)

// PriceExtractor finds a price in page markup using two heuristics in
// strict priority order:
//
//  1. The first match of the price pattern in the page's visible text,
//     in document order. If that match does not parse as a number the
//     page has no price; the class probe is not consulted.
//  2. For each class in order, the text of the first element carrying the
//     class. A class whose text does not parse is skipped.
//
// Multi-price pages (crossed-out "was" prices, shipping costs, bundles)
// yield whichever price comes first.
type PriceExtractor struct {
	pattern *regexp.Regexp
	classes []string
}

// Option configures a PriceExtractor.
type Option func(*PriceExtractor)

// WithPattern replaces the visible-text price pattern.
func WithPattern(re *regexp.Regexp) Option {
	return func(e *PriceExtractor) {
		e.pattern = re
	}
}

// WithClasses replaces the ordered list of fallback class names.
func WithClasses(classes ...string) Option {
	return func(e *PriceExtractor) {
		e.classes = classes
	}
}

// NewPriceExtractor creates a PriceExtractor with the default pattern and
// class list.
func NewPriceExtractor(opts ...Option) *PriceExtractor {
	e := &PriceExtractor{
		pattern: regexp.MustCompile(DefaultPricePattern),
		classes: DefaultPriceClasses(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractPrice returns the page's price, or false if none was found.
func (e *PriceExtractor) ExtractPrice(markup string) (pricewatch.Extraction, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return pricewatch.Extraction{}, false
	}

	if match := e.pattern.FindString(VisibleText(doc)); match != "" {
		price, ok := ParsePrice(match)
		if !ok {
			return pricewatch.Extraction{}, false
		}
		return pricewatch.Extraction{
			Price:    price,
			Strategy: pricewatch.StrategyPattern,
			Match:    match,
		}, true
	}

	for _, class := range e.classes {
		sel := doc.Find("." + class).First()
		if sel.Length() == 0 {
			continue
		}
		text := sel.Text()
		price, ok := ParsePrice(text)
		if !ok {
			continue
		}
		return pricewatch.Extraction{
			Price:    price,
			Strategy: pricewatch.StrategyClass,
			Match:    strings.TrimSpace(text),
		}, true
	}

	return pricewatch.Extraction{}, false
}

// ParsePrice discards every character that is not a digit or a decimal
// point and parses the rest as a float. Separators and currency symbols
// are stripped, not interpreted, so "1.299,99" parses as 1.29999.
func ParsePrice(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// invisible lists elements whose text content is never rendered.
var invisible = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// VisibleText concatenates the document's text nodes in document order,
// skipping elements that browsers do not render.
func VisibleText(doc *goquery.Document) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if invisible[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return b.String()
}
