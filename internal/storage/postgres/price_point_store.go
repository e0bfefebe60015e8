package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fc-market-lab/internal/domain"
	"fc-market-lab/internal/storage"
)

// PricePointStore implements storage.PricePointStore using PostgreSQL.
type PricePointStore struct {
	pool *Pool
}

// NewPricePointStore creates a new PricePointStore.
func NewPricePointStore(pool *Pool) *PricePointStore {
	return &PricePointStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PricePointStore = (*PricePointStore)(nil)

var pricePointColumns = []string{
	"asset_id", "asset_name", "date", "price", "event", "rating", "league", "nation",
}

// InsertBulk adds multiple points atomically. Fails entire batch on any duplicate.
func (s *PricePointStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if err := storage.ValidatePoint(p); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows := make([][]any, len(points))
	for i, p := range points {
		rows[i] = []any{
			p.AssetID, p.AssetName, p.Date.UTC(), p.Price,
			string(p.Event), p.Rating, p.League, p.Nation,
		}
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"price_points"}, pricePointColumns, pgx.CopyFromRows(rows))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy price points: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAll retrieves all points ordered by asset_id ASC, date ASC.
func (s *PricePointStore) GetAll(ctx context.Context) ([]*domain.PricePoint, error) {
	query := `
		SELECT asset_id, asset_name, date, price, event, rating, league, nation
		FROM price_points
		ORDER BY asset_id ASC, date ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all price points: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// GetByAssetID retrieves all points of one asset ordered by date ASC.
func (s *PricePointStore) GetByAssetID(ctx context.Context, assetID int64) ([]*domain.PricePoint, error) {
	query := `
		SELECT asset_id, asset_name, date, price, event, rating, league, nation
		FROM price_points
		WHERE asset_id = $1
		ORDER BY date ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("get price points by asset id: %w", err)
	}
	defer rows.Close()

	points, err := scanPricePoints(rows)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	return points, nil
}

// Count returns the number of stored points.
func (s *PricePointStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM price_points`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count price points: %w", err)
	}
	return count, nil
}

// scanPricePoints scans multiple rows into a slice of PricePoint.
func scanPricePoints(rows pgx.Rows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint

	for rows.Next() {
		var p domain.PricePoint
		var event string

		err := rows.Scan(
			&p.AssetID,
			&p.AssetName,
			&p.Date,
			&p.Price,
			&event,
			&p.Rating,
			&p.League,
			&p.Nation,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price point row: %w", err)
		}

		p.Date = p.Date.UTC()
		p.Event = domain.NormalizeEvent(event)
		p.InputIndex = len(points)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price point rows: %w", err)
	}

	return points, nil
}
