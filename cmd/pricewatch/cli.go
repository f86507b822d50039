package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/pricewatch"
	"github.com/fwojciec/pricewatch/scrape"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx          context.Context
	Stdout       io.Writer
	Stderr       io.Writer
	Logger       *slog.Logger
	Products     pricewatch.ProductService
	URLs         pricewatch.ProductURLService
	Observations pricewatch.ObservationService
	Scraper      *scrape.Scraper
	Reports      pricewatch.ReportWriter
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB          string        `name:"db" env:"PRICEWATCH_DB" default:"${db_path}" help:"SQLite database path"`
	Postgres    string        `env:"PRICEWATCH_POSTGRES_URL" help:"PostgreSQL connection string (overrides --db)"`
	Timeout     time.Duration `env:"PRICEWATCH_TIMEOUT" default:"10s" help:"Per-page fetch timeout"`
	UserAgent   string        `env:"PRICEWATCH_USER_AGENT" default:"pricewatch/1.0" help:"User-Agent header sent to retailers"`
	Retries     int           `env:"PRICEWATCH_RETRIES" default:"0" help:"Fetch retries per URL (backoff 1s, 2s, 4s, ...)"`
	Concurrency int           `env:"PRICEWATCH_CONCURRENCY" default:"1" help:"Products scanned in parallel"`
	RPS         float64       `name:"rps" env:"PRICEWATCH_RPS" default:"1" help:"Requests per second per retailer host (0 for unlimited)"`
	URLOrder    string        `name:"url-order" env:"PRICEWATCH_URL_ORDER" enum:"stored,primary_first" default:"stored" help:"Order product URLs are visited in; the last price found wins"`
	LogLevel    string        `env:"PRICEWATCH_LOG_LEVEL" enum:"debug,info,warn,error" default:"warn" help:"Log level"`

	Add     AddCmd     `cmd:"" help:"Track a product and its retailer URLs"`
	List    ListCmd    `cmd:"" help:"List tracked products"`
	URLs    URLsCmd    `cmd:"" name:"urls" help:"List a product's URLs"`
	Delete  DeleteCmd  `cmd:"" help:"Delete a product or one of its URLs"`
	Scrape  ScrapeCmd  `cmd:"" help:"Scrape prices now"`
	History HistoryCmd `cmd:"" help:"Show a product's price history"`
	Run     RunCmd     `cmd:"" help:"Scrape all products on a schedule"`
}

// AddCmd is the "add" subcommand.
type AddCmd struct {
	Name     string   `arg:"" help:"Product name"`
	URLs     []string `arg:"" optional:"" name:"url" help:"Retailer page URLs"`
	User     string   `env:"PRICEWATCH_USER" default:"local" help:"Owner of the product"`
	Target   float64  `help:"Target price (0 for none)"`
	Retailer string   `help:"Retailer name for the URLs (defaults to the URL host)"`
	Primary  int      `help:"1-based position of the primary URL (0 for none)"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct{}

// URLsCmd is the "urls" subcommand.
type URLsCmd struct {
	Name string `arg:"" help:"Product name"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	Name  string `arg:"" help:"Product name"`
	URL   string `help:"Delete only this URL from the product"`
	Force bool   `help:"Confirm deletion"`
}

// ScrapeCmd is the "scrape" subcommand.
type ScrapeCmd struct {
	Name      string `arg:"" optional:"" help:"Product name (all products if omitted)"`
	Verbose   bool   `short:"v" help:"Show the outcome of every URL"`
	ReportDir string `env:"PRICEWATCH_REPORT_DIR" help:"Write batch reports as JSON to this directory"`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	Name  string `arg:"" help:"Product name"`
	Limit int    `short:"n" default:"20" help:"Maximum rows to show (0 for all)"`
}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	Interval   string `env:"PRICEWATCH_INTERVAL" default:"1h" help:"Time between scrapes (e.g. 30m, 1h, 1d)"`
	RunOnStart bool   `help:"Scrape immediately instead of waiting for the first interval"`
	ReportDir  string `env:"PRICEWATCH_REPORT_DIR" help:"Write batch reports as JSON to this directory"`
}

// findProduct returns the product with the given name.
// Errors are printed to stderr.
func findProduct(deps *Dependencies, name string) (*pricewatch.Product, error) {
	products, err := deps.Products.FindProducts(deps.Ctx, pricewatch.ProductFilter{Name: &name, Limit: 1})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", pricewatch.ErrorMessage(err))
		return nil, err
	}
	if len(products) == 0 {
		fmt.Fprintf(deps.Stderr, "error: product %q not found. Use 'pricewatch list' to see tracked products.\n", name)
		return nil, pricewatch.Errorf(pricewatch.ENOTFOUND, "product %q not found", name)
	}
	return products[0], nil
}
