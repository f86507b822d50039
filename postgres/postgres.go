// Package postgres provides PostgreSQL-based storage implementations for
// pricewatch services.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB represents a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
	DSN  string
}

// NewDB creates a new DB instance for the given connection string.
func NewDB(dsn string) *DB {
	return &DB{DSN: dsn}
}

// Open connects to the database, verifies the connection and creates the
// schema if needed.
func (db *DB) Open(ctx context.Context) error {
	if db.DSN == "" {
		return fmt.Errorf("dsn required")
	}

	pool, err := pgxpool.New(ctx, db.DSN)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return fmt.Errorf("create schema: %w", err)
	}

	db.pool = pool
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	seq BIGSERIAL UNIQUE,
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	target_price DOUBLE PRECISION,
	current_price DOUBLE PRECISION,
	last_checked TIMESTAMPTZ,
	added_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS product_urls (
	seq BIGSERIAL UNIQUE,
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	retailer TEXT NOT NULL DEFAULT '',
	is_primary BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (product_id, url)
);

CREATE TABLE IF NOT EXISTS price_history (
	seq BIGSERIAL UNIQUE,
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	product_url_id TEXT NOT NULL REFERENCES product_urls(id) ON DELETE CASCADE,
	price DOUBLE PRECISION NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL,
	UNIQUE (product_url_id, recorded_at)
);

CREATE INDEX IF NOT EXISTS idx_products_user_id ON products(user_id);
CREATE INDEX IF NOT EXISTS idx_product_urls_product_id ON product_urls(product_id);
CREATE INDEX IF NOT EXISTS idx_price_history_product_recorded ON price_history(product_id, recorded_at);
CREATE INDEX IF NOT EXISTS idx_price_history_url_recorded ON price_history(product_url_id, recorded_at);
`

// query builds a statement with numbered placeholders.
type query struct {
	b    strings.Builder
	args []any
}

func (q *query) WriteString(s string) {
	q.b.WriteString(s)
}

// Arg appends a bound argument and returns its placeholder.
func (q *query) Arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) String() string {
	return q.b.String()
}

// paginate appends LIMIT and OFFSET clauses if values are > 0.
func (q *query) paginate(limit, offset int) {
	if limit > 0 {
		q.WriteString(" LIMIT " + q.Arg(limit))
	}
	if offset > 0 {
		q.WriteString(" OFFSET " + q.Arg(offset))
	}
}

// isUniqueViolation reports whether err is a unique_violation error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
