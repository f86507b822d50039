package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fwojciec/pricewatch"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ pricewatch.ProductURLService = (*ProductURLService)(nil)

// ProductURLService implements pricewatch.ProductURLService using SQLite.
type ProductURLService struct {
	db *DB
}

// NewProductURLService creates a new ProductURLService.
func NewProductURLService(db *DB) *ProductURLService {
	return &ProductURLService{db: db}
}

// CreateProductURL attaches a URL to a product. Adding a URL the product
// already has is a no-op that loads the existing record into u.
// Marking a URL primary clears the flag on the product's other URLs.
func (s *ProductURLService) CreateProductURL(ctx context.Context, u *pricewatch.ProductURL) error {
	if err := u.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM products WHERE id = ?", u.ProductID).Scan(&exists)
	if err == sql.ErrNoRows {
		return pricewatch.Errorf(pricewatch.ENOTFOUND, "product not found")
	}
	if err != nil {
		return err
	}

	existing, err := scanProductURL(tx.QueryRowContext(ctx, `
		SELECT id, product_id, url, retailer, is_primary
		FROM product_urls
		WHERE product_id = ? AND url = ?
	`, u.ProductID, u.URL))
	if err == nil {
		*u = *existing
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}

	if u.IsPrimary {
		if _, err := tx.ExecContext(ctx, "UPDATE product_urls SET is_primary = 0 WHERE product_id = ?", u.ProductID); err != nil {
			return fmt.Errorf("clear primary flag: %w", err)
		}
	}

	u.ID = uuid.New().String()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO product_urls (id, product_id, url, retailer, is_primary)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.ProductID, u.URL, u.Retailer, u.IsPrimary); err != nil {
		return err
	}

	return tx.Commit()
}

// FindProductURLs retrieves product URLs matching the filter.
func (s *ProductURLService) FindProductURLs(ctx context.Context, filter pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, product_id, url, retailer, is_primary FROM product_urls WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.ProductID != nil {
		query.WriteString(" AND product_id = ?")
		args = append(args, *filter.ProductID)
	}

	switch filter.Order {
	case pricewatch.OrderPrimaryFirst:
		query.WriteString(" ORDER BY is_primary DESC, rowid ASC")
	default:
		query.WriteString(" ORDER BY rowid ASC")
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
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
	result, err := s.db.ExecContext(ctx, "DELETE FROM product_urls WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return pricewatch.Errorf(pricewatch.ENOTFOUND, "product URL not found")
	}

	return nil
}

func scanProductURL(row scanner) (*pricewatch.ProductURL, error) {
	var u pricewatch.ProductURL
	if err := row.Scan(&u.ID, &u.ProductID, &u.URL, &u.Retailer, &u.IsPrimary); err != nil {
		return nil, err
	}
	return &u, nil
}
