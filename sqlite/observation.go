package sqlite

import (
	"context"
	"strings"

	"github.com/fwojciec/pricewatch"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ pricewatch.ObservationService = (*ObservationService)(nil)

// ObservationService implements pricewatch.ObservationService using SQLite.
type ObservationService struct {
	db *DB
}

// NewObservationService creates a new ObservationService.
func NewObservationService(db *DB) *ObservationService {
	return &ObservationService{db: db}
}

// RecordObservation updates the product's current price and appends the
// observation in a single transaction.
func (s *ObservationService) RecordObservation(ctx context.Context, obs *pricewatch.Observation) error {
	if err := obs.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	recordedAt := formatTime(obs.RecordedAt)

	result, err := tx.ExecContext(ctx, `
		UPDATE products SET current_price = ?, last_checked = ? WHERE id = ?
	`, obs.Price, recordedAt, obs.ProductID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return pricewatch.Errorf(pricewatch.ENOTFOUND, "product not found")
	}

	id := uuid.New().String()
	result, err = tx.ExecContext(ctx, `
		INSERT INTO price_history (id, product_id, product_url_id, price, content_hash, recorded_at)
		SELECT ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM product_urls WHERE id = ? AND product_id = ?)
	`, id, obs.ProductID, obs.ProductURLID, obs.Price, obs.ContentHash, recordedAt,
		obs.ProductURLID, obs.ProductID)
	if isUniqueViolation(err) {
		return pricewatch.Errorf(pricewatch.ECONFLICT, "observation already recorded for URL at %s", recordedAt)
	}
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return pricewatch.Errorf(pricewatch.ENOTFOUND, "product URL not found")
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	obs.ID = id
	return nil
}

// FindObservations retrieves price history matching the filter, newest first.
func (s *ObservationService) FindObservations(ctx context.Context, filter pricewatch.ObservationFilter) ([]*pricewatch.Observation, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, product_id, product_url_id, price, content_hash, recorded_at FROM price_history WHERE 1=1")

	if filter.ProductID != nil {
		query.WriteString(" AND product_id = ?")
		args = append(args, *filter.ProductID)
	}
	if filter.ProductURLID != nil {
		query.WriteString(" AND product_url_id = ?")
		args = append(args, *filter.ProductURLID)
	}

	query.WriteString(" ORDER BY recorded_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []*pricewatch.Observation
	for rows.Next() {
		var obs pricewatch.Observation
		var recordedAt string
		if err := rows.Scan(&obs.ID, &obs.ProductID, &obs.ProductURLID, &obs.Price,
			&obs.ContentHash, &recordedAt); err != nil {
			return nil, err
		}
		if obs.RecordedAt, err = parseTime(recordedAt, "recorded_at"); err != nil {
			return nil, err
		}
		observations = append(observations, &obs)
	}

	return observations, rows.Err()
}
