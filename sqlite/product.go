package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fwojciec/pricewatch"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ pricewatch.ProductService = (*ProductService)(nil)

// ProductService implements pricewatch.ProductService using SQLite.
type ProductService struct {
	db *DB
}

// NewProductService creates a new ProductService.
func NewProductService(db *DB) *ProductService {
	return &ProductService{db: db}
}

const productColumns = "id, user_id, name, target_price, current_price, last_checked, added_at"

// CreateProduct creates a new product.
func (s *ProductService) CreateProduct(ctx context.Context, product *pricewatch.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}

	product.ID = uuid.New().String()
	product.AddedAt = time.Now().UTC()
	product.CurrentPrice = nil
	product.LastChecked = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, user_id, name, target_price, added_at)
		VALUES (?, ?, ?, ?, ?)
	`, product.ID, product.UserID, product.Name, nullFloat(product.TargetPrice), formatTime(product.AddedAt))

	return err
}

// FindProductByID retrieves a product by ID.
func (s *ProductService) FindProductByID(ctx context.Context, id string) (*pricewatch.Product, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)

	product, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, pricewatch.Errorf(pricewatch.ENOTFOUND, "product not found")
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

// FindProducts retrieves products matching the filter in the order they
// were added.
func (s *ProductService) FindProducts(ctx context.Context, filter pricewatch.ProductFilter) ([]*pricewatch.Product, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + productColumns + " FROM products WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.UserID != nil {
		query.WriteString(" AND user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Name != nil {
		query.WriteString(" AND name = ?")
		args = append(args, *filter.Name)
	}

	query.WriteString(" ORDER BY rowid ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*pricewatch.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	return products, rows.Err()
}

// UpdateProduct updates the owner-editable fields of a product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, upd pricewatch.ProductUpdate) (*pricewatch.Product, error) {
	product, err := s.FindProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		product.Name = *upd.Name
	}
	if upd.TargetPrice != nil {
		product.TargetPrice = upd.TargetPrice
	}

	if err := product.Validate(); err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE products SET name = ?, target_price = ? WHERE id = ?
	`, product.Name, nullFloat(product.TargetPrice), id)
	if err != nil {
		return nil, err
	}

	return product, nil
}

// DeleteProduct permanently removes a product.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return pricewatch.Errorf(pricewatch.ENOTFOUND, "product not found")
	}

	return nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*pricewatch.Product, error) {
	var product pricewatch.Product
	var target, current sql.NullFloat64
	var lastChecked sql.NullString
	var addedAt string

	if err := row.Scan(&product.ID, &product.UserID, &product.Name, &target, &current,
		&lastChecked, &addedAt); err != nil {
		return nil, err
	}

	product.TargetPrice = floatPtr(target)
	product.CurrentPrice = floatPtr(current)

	var err error
	if product.AddedAt, err = parseTime(addedAt, "added_at"); err != nil {
		return nil, err
	}
	if lastChecked.Valid {
		t, err := parseTime(lastChecked.String, "last_checked")
		if err != nil {
			return nil, err
		}
		product.LastChecked = &t
	}

	return &product, nil
}
