package postgres

import (
	"context"

	"github.com/fwojciec/pricewatch"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Compile-time interface verification.
var _ pricewatch.ObservationService = (*ObservationService)(nil)

// ObservationService implements pricewatch.ObservationService using PostgreSQL.
type ObservationService struct {
	db *DB
}

// NewObservationService creates a new ObservationService.
func NewObservationService(db *DB) *ObservationService {
	return &ObservationService{db: db}
}

// RecordObservation updates the product's current price and appends the
// observation in a single transaction.
// Timestamps are stored with microsecond precision.
func (s *ObservationService) RecordObservation(ctx context.Context, obs *pricewatch.Observation) error {
	if err := obs.Validate(); err != nil {
		return err
	}

	id := uuid.New().String()
	err := pgx.BeginFunc(ctx, s.db.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE products SET current_price = $1, last_checked = $2 WHERE id = $3
		`, obs.Price, obs.RecordedAt, obs.ProductID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pricewatch.Errorf(pricewatch.ENOTFOUND, "product not found")
		}

		tag, err = tx.Exec(ctx, `
			INSERT INTO price_history (id, product_id, product_url_id, price, content_hash, recorded_at)
			SELECT $1::text, $2::text, $3::text, $4::double precision, $5::text, $6::timestamptz
			WHERE EXISTS (SELECT 1 FROM product_urls WHERE id = $3::text AND product_id = $2::text)
		`, id, obs.ProductID, obs.ProductURLID, obs.Price, obs.ContentHash, obs.RecordedAt)
		if isUniqueViolation(err) {
			return pricewatch.Errorf(pricewatch.ECONFLICT, "observation already recorded for URL at %s", obs.RecordedAt)
		}
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pricewatch.Errorf(pricewatch.ENOTFOUND, "product URL not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	obs.ID = id
	return nil
}

// FindObservations retrieves price history matching the filter, newest first.
func (s *ObservationService) FindObservations(ctx context.Context, filter pricewatch.ObservationFilter) ([]*pricewatch.Observation, error) {
	var q query
	q.WriteString("SELECT id, product_id, product_url_id, price, content_hash, recorded_at FROM price_history WHERE TRUE")

	if filter.ProductID != nil {
		q.WriteString(" AND product_id = " + q.Arg(*filter.ProductID))
	}
	if filter.ProductURLID != nil {
		q.WriteString(" AND product_url_id = " + q.Arg(*filter.ProductURLID))
	}

	q.WriteString(" ORDER BY recorded_at DESC, seq DESC")
	q.paginate(filter.Limit, filter.Offset)

	rows, err := s.db.pool.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []*pricewatch.Observation
	for rows.Next() {
		var obs pricewatch.Observation
		if err := rows.Scan(&obs.ID, &obs.ProductID, &obs.ProductURLID, &obs.Price,
			&obs.ContentHash, &obs.RecordedAt); err != nil {
			return nil, err
		}
		obs.RecordedAt = obs.RecordedAt.UTC()
		observations = append(observations, &obs)
	}

	return observations, rows.Err()
}
