package clickhouse

import (
	"context"
	"fmt"
	"time"

	"fc-market-lab/internal/domain"
	"fc-market-lab/internal/storage"
)

// PricePointStore implements storage.PricePointStore using ClickHouse.
type PricePointStore struct {
	conn *Conn
}

// NewPricePointStore creates a new PricePointStore.
func NewPricePointStore(conn *Conn) *PricePointStore {
	return &PricePointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PricePointStore = (*PricePointStore)(nil)

type pointKey struct {
	assetID int64
	day     string
}

func keyOf(assetID int64, date time.Time) pointKey {
	return pointKey{assetID: assetID, day: date.UTC().Format("2006-01-02")}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate (asset_id, date).
// MergeTree does not enforce uniqueness, so duplicates are checked before the batch is sent.
func (s *PricePointStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	seen := make(map[pointKey]struct{}, len(points))
	var minDate, maxDate time.Time
	for i, p := range points {
		if err := storage.ValidatePoint(p); err != nil {
			return err
		}
		k := keyOf(p.AssetID, p.Date)
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		if i == 0 || p.Date.Before(minDate) {
			minDate = p.Date
		}
		if i == 0 || p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}

	existing, err := s.keysInRange(ctx, minDate, maxDate)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for k := range seen {
		if _, exists := existing[k]; exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_points (
			asset_id, asset_name, date, price, event, rating, league, nation
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.AssetID, p.AssetName, p.Date.UTC(), p.Price,
			string(p.Event), int32(p.Rating), p.League, p.Nation,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetAll retrieves all points ordered by asset_id ASC, date ASC.
func (s *PricePointStore) GetAll(ctx context.Context) ([]*domain.PricePoint, error) {
	query := `
		SELECT asset_id, asset_name, date, price, event, rating, league, nation
		FROM price_points
		ORDER BY asset_id ASC, date ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all price points: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// GetByAssetID retrieves all points of one asset ordered by date ASC.
func (s *PricePointStore) GetByAssetID(ctx context.Context, assetID int64) ([]*domain.PricePoint, error) {
	query := `
		SELECT asset_id, asset_name, date, price, event, rating, league, nation
		FROM price_points
		WHERE asset_id = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("query by asset id: %w", err)
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
	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM price_points`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count price points: %w", err)
	}
	return int(count), nil
}

// keysInRange loads the (asset_id, date) keys already stored within [start, end].
func (s *PricePointStore) keysInRange(ctx context.Context, start, end time.Time) (map[pointKey]struct{}, error) {
	query := `
		SELECT asset_id, date FROM price_points
		WHERE date >= ? AND date <= ?
	`

	rows, err := s.conn.Query(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[pointKey]struct{})
	for rows.Next() {
		var assetID int64
		var date time.Time
		if err := rows.Scan(&assetID, &date); err != nil {
			return nil, err
		}
		keys[keyOf(assetID, date)] = struct{}{}
	}
	return keys, rows.Err()
}

// scanPricePoints scans multiple rows.
func scanPricePoints(rows chRows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint

	for rows.Next() {
		var p domain.PricePoint
		var event string
		var rating int32

		err := rows.Scan(
			&p.AssetID, &p.AssetName, &p.Date, &p.Price,
			&event, &rating, &p.League, &p.Nation,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price point row: %w", err)
		}

		p.Date = p.Date.UTC()
		p.Event = domain.NormalizeEvent(event)
		p.Rating = int(rating)
		p.InputIndex = len(points)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price point rows: %w", err)
	}

	return points, nil
}
