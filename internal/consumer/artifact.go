// Package consumer is the presentation-side contract: it reads the
// recommendations artifact and launches the pipeline when it is missing.
package consumer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"fc-market-lab/internal/domain"
)

// Sentinel errors for consumer operations.
var (
	// ErrArtifactMissing is returned when the artifact does not exist.
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrInvalidArtifact is returned when the artifact cannot be parsed.
	ErrInvalidArtifact = errors.New("invalid artifact")
)

var requiredArtifactColumns = []string{
	"player_name",
	"rating",
	"league",
	"nation",
	"price",
	"buy_below",
	"expected_profit_coins",
}

// ReadArtifact loads recommendations from the artifact at path.
// player_id, position, segment, date, pred_pct_change_7d, target_sell,
// confidence and window are optional and left zero when absent.
func ReadArtifact(path string) ([]*domain.Recommendation, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", path, ErrArtifactMissing)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	recs, err := parseArtifact(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return recs, nil
}

type artifactRow struct {
	cols   map[string]int
	record []string
	line   int
}

func (r artifactRow) has(name string) bool {
	_, ok := r.cols[name]
	return ok
}

func (r artifactRow) str(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r artifactRow) integer(name string) (int64, error) {
	raw := r.str(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// tolerate float formatting of integer columns
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0, fmt.Errorf("line %d: %s %q: %w", r.line, name, raw, ErrInvalidArtifact)
		}
		return int64(f), nil
	}
	return v, nil
}

func (r artifactRow) number(name string) (float64, error) {
	raw := r.str(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s %q: %w", r.line, name, raw, ErrInvalidArtifact)
	}
	return v, nil
}

func parseArtifact(rd io.Reader) ([]*domain.Recommendation, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", ErrInvalidArtifact)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredArtifactColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", name, ErrInvalidArtifact)
		}
	}

	var recs []*domain.Recommendation
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", line, err, ErrInvalidArtifact)
		}

		rec, err := parseRecommendation(artifactRow{cols: cols, record: record, line: line})
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func parseRecommendation(row artifactRow) (*domain.Recommendation, error) {
	rec := &domain.Recommendation{
		AssetName: row.str("player_name"),
		Position:  row.str("position"),
		League:    row.str("league"),
		Nation:    row.str("nation"),
		Segment:   domain.Segment(row.str("segment")),
		Window:    row.str("window"),
	}

	var err error
	if rec.AssetID, err = row.integer("player_id"); err != nil {
		return nil, err
	}
	rating, err := row.integer("rating")
	if err != nil {
		return nil, err
	}
	rec.Rating = int(rating)
	if rec.Price, err = row.number("price"); err != nil {
		return nil, err
	}
	if rec.PredPctChange7d, err = row.number("pred_pct_change_7d"); err != nil {
		return nil, err
	}
	if rec.BuyBelow, err = row.integer("buy_below"); err != nil {
		return nil, err
	}
	if rec.TargetSell, err = row.integer("target_sell"); err != nil {
		return nil, err
	}
	if rec.ExpectedProfit, err = row.integer("expected_profit_coins"); err != nil {
		return nil, err
	}
	if rec.Confidence, err = row.number("confidence"); err != nil {
		return nil, err
	}

	if row.has("date") && row.str("date") != "" {
		d, err := time.Parse("2006-01-02", row.str("date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: date %q: %w", row.line, row.str("date"), ErrInvalidArtifact)
		}
		rec.Date = d
	}
	return rec, nil
}
