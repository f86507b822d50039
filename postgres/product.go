package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/fwojciec/pricewatch"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Compile-time interface verification.
var _ pricewatch.ProductService = (*ProductService)(nil)

// ProductService implements pricewatch.ProductService using PostgreSQL.
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
	product.AddedAt = time.Now().UTC().Truncate(time.Microsecond)
	product.CurrentPrice = nil
	product.LastChecked = nil

	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO products (id, user_id, name, target_price, added_at)
		VALUES ($1, $2, $3, $4, $5)
	`, product.ID, product.UserID, product.Name, product.TargetPrice, product.AddedAt)

	return err
}

// FindProductByID retrieves a product by ID.
func (s *ProductService) FindProductByID(ctx context.Context, id string) (*pricewatch.Product, error) {
	row := s.db.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)

	product, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
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
	var q query
	q.WriteString("SELECT " + productColumns + " FROM products WHERE TRUE")

	if filter.ID != nil {
		q.WriteString(" AND id = " + q.Arg(*filter.ID))
	}
	if filter.UserID != nil {
		q.WriteString(" AND user_id = " + q.Arg(*filter.UserID))
	}
	if filter.Name != nil {
		q.WriteString(" AND name = " + q.Arg(*filter.Name))
	}

	q.WriteString(" ORDER BY seq ASC")
	q.paginate(filter.Limit, filter.Offset)

	rows, err := s.db.pool.Query(ctx, q.String(), q.args...)
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

	if _, err := s.db.pool.Exec(ctx, `
		UPDATE products SET name = $1, target_price = $2 WHERE id = $3
	`, product.Name, product.TargetPrice, id); err != nil {
		return nil, err
	}

	return product, nil
}

// DeleteProduct permanently removes a product.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	tag, err := s.db.pool.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pricewatch.Errorf(pricewatch.ENOTFOUND, "product not found")
	}
	return nil
}

func scanProduct(row pgx.Row) (*pricewatch.Product, error) {
	var product pricewatch.Product
	if err := row.Scan(&product.ID, &product.UserID, &product.Name, &product.TargetPrice,
		&product.CurrentPrice, &product.LastChecked, &product.AddedAt); err != nil {
		return nil, err
	}
	product.AddedAt = product.AddedAt.UTC()
	if product.LastChecked != nil {
		t := product.LastChecked.UTC()
		product.LastChecked = &t
	}
	return &product, nil
}
