package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/pricewatch"
	"github.com/fwojciec/pricewatch/fs"
	"github.com/fwojciec/pricewatch/goquery"
	pwhttp "github.com/fwojciec/pricewatch/http"
	"github.com/fwojciec/pricewatch/postgres"
	"github.com/fwojciec/pricewatch/scrape"
	pwslog "github.com/fwojciec/pricewatch/slog"
	"github.com/fwojciec/pricewatch/sqlite"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Default database path, used when --db is not given.
	DBPath string

	// SQLite database, set when Run opens SQLite storage.
	DB *sqlite.DB

	// PostgreSQL database, set when Run opens PostgreSQL storage.
	Postgres *postgres.DB

	// Services for end-to-end testing.
	ProductService     pricewatch.ProductService
	ProductURLService  pricewatch.ProductURLService
	ObservationService pricewatch.ObservationService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.Postgres != nil {
		m.Postgres.Close()
	}
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("pricewatch"),
		kong.Description("Track product prices across retailer pages."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Vars{"db_path": m.DBPath},
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'pricewatch --help' to see available commands")
	}

	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	deps.Logger, err = newLogger(stderr, cli.LogLevel)
	if err != nil {
		return err
	}

	if err := m.openStorage(ctx, cli, stderr); err != nil {
		return err
	}
	defer m.Close()

	deps.Products = m.ProductService
	deps.URLs = m.ProductURLService
	deps.Observations = m.ObservationService

	switch command := strings.Fields(kongCtx.Command())[0]; command {
	case "scrape", "run":
		fetcher := pwhttp.NewFetcher(
			pwhttp.WithTimeout(cli.Timeout),
			pwhttp.WithUserAgent(cli.UserAgent),
		)
		defer fetcher.Close()

		deps.Scraper = &scrape.Scraper{
			Products:     m.ProductService,
			URLs:         m.ProductURLService,
			Observations: pwslog.NewLoggingObservationService(m.ObservationService, deps.Logger),
			Fetcher:      pwslog.NewLoggingFetcher(fetcher, deps.Logger),
			Extractor:    pwslog.NewLoggingExtractor(goquery.NewPriceExtractor(), deps.Logger),
			RateLimiter:  scrape.NewDomainLimiter(cli.RPS),
			RetryDelays:  scrape.RetryDelays(cli.Retries),
			Concurrency:  cli.Concurrency,
			URLOrder:     pricewatch.URLOrder(cli.URLOrder),
			Logger:       deps.Logger,
		}

		reportDir := cli.Scrape.ReportDir
		if command == "run" {
			reportDir = cli.Run.ReportDir
		}
		if reportDir != "" {
			deps.Reports = fs.NewReportWriter(reportDir)
		}
	}

	return kongCtx.Run(deps)
}

// openStorage opens PostgreSQL when a connection string is configured and
// SQLite otherwise.
func (m *Main) openStorage(ctx context.Context, cli *CLI, stderr io.Writer) error {
	if cli.Postgres != "" {
		m.Postgres = postgres.NewDB(cli.Postgres)
		if err := m.Postgres.Open(ctx); err != nil {
			fmt.Fprintf(stderr, "Hint: Check PRICEWATCH_POSTGRES_URL or unset it to use SQLite\n")
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		m.ProductService = postgres.NewProductService(m.Postgres)
		m.ProductURLService = postgres.NewProductURLService(m.Postgres)
		m.ObservationService = postgres.NewObservationService(m.Postgres)
		return nil
	}

	m.DB = sqlite.NewDB(cli.DB)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set PRICEWATCH_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", cli.DB, err)
	}
	m.ProductService = sqlite.NewProductService(m.DB)
	m.ProductURLService = sqlite.NewProductURLService(m.DB)
	m.ObservationService = sqlite.NewObservationService(m.DB)
	return nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pricewatch.db"
	}
	dir := filepath.Join(home, ".pricewatch")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "pricewatch.db")
}
