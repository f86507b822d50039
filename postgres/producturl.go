package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fwojciec/pricewatch"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Compile-time interface verification.
var _ pricewatch.ProductURLService = (*ProductURLService)(nil)

// ProductURLService implements pricewatch.ProductURLService using PostgreSQL.
type ProductURLService struct {
	db *DB
}

// NewProductURLService creates a new ProductURLService.
func NewProductURLService(db *DB) *ProductURLService {
	return &ProductURLService{db: db}
}

const productURLColumns = "id, product_id, url, retailer, is_primary"

// CreateProductURL attaches a URL to a product. Adding a URL the product
// already has is a no-op that loads the existing record into u.
func (s *ProductURLService) CreateProductURL(ctx context.Context, u *pricewatch.ProductURL) error {
	if err := u.Validate(); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.db.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", u.ProductID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pricewatch.Errorf(pricewatch.ENOTFOUND, "product not found")
		}

		existing, err := scanProductURL(tx.QueryRow(ctx,
			"SELECT "+productURLColumns+" FROM product_urls WHERE product_id = $1 AND url = $2",
			u.ProductID, u.URL))
		if err == nil {
			*u = *existing
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		if u.IsPrimary {
			if _, err := tx.Exec(ctx, "UPDATE product_urls SET is_primary = FALSE WHERE product_id = $1", u.ProductID); err != nil {
				return fmt.Errorf("clear primary flag: %w", err)
			}
		}

		id := uuid.New().String()
		if _, err := tx.Exec(ctx, `
			INSERT INTO product_urls (id, product_id, url, retailer, is_primary)
			VALUES ($1, $2, $3, $4, $5)
		`, id, u.ProductID, u.URL, u.Retailer, u.IsPrimary); err != nil {
			if isUniqueViolation(err) {
				return pricewatch.Errorf(pricewatch.ECONFLICT, "product URL already exists")
			}
			return err
		}
		u.ID = id
		return nil
	})
}

// FindProductURLs retrieves product URLs matching the filter.
func (s *ProductURLService) FindProductURLs(ctx context.Context, filter pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
	var q query
	q.WriteString("SELECT " + productURLColumns + " FROM product_urls WHERE TRUE")

	if filter.ID != nil {
		q.WriteString(" AND id = " + q.Arg(*filter.ID))
	}
	if filter.ProductID != nil {
		q.WriteString(" AND product_id = " + q.Arg(*filter.ProductID))
	}

	switch filter.Order {
	case pricewatch.OrderPrimaryFirst:
		q.WriteString(" ORDER BY is_primary DESC, seq ASC")
	default:
		q.WriteString(" ORDER BY seq ASC")
	}

	rows, err := s.db.pool.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []*pricewatch.ProductURL
	for rows.Next() {
		u, err := scanProductURL(rows)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

// DeleteProductURL removes a product URL.
func (s *ProductURLService) DeleteProductURL(ctx context.Context, id string) error {
	tag, err := s.db.pool.Exec(ctx, "DELETE FROM product_urls WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pricewatch.Errorf(pricewatch.ENOTFOUND, "product URL not found")
	}
	return nil
}

func scanProductURL(row pgx.Row) (*pricewatch.ProductURL, error) {
	var u pricewatch.ProductURL
	if err := row.Scan(&u.ID, &u.ProductID, &u.URL, &u.Retailer, &u.IsPrimary); err != nil {
		return nil, err
	}
	return &u, nil
}
