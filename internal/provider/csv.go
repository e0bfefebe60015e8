package provider

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fc-market-lab/internal/domain"
)

// Accepted header names per column. The first name is canonical.
var columnAliases = map[string][]string{
	"asset_id":   {"asset_id", "player_id", "id"},
	"asset_name": {"asset_name", "player_name", "name"},
	"date":       {"date", "day"},
	"price":      {"price"},
	"event":      {"event"},
	"rating":     {"rating"},
	"league":     {"league"},
	"nation":     {"nation"},
}

var requiredColumns = []string{"asset_id", "date", "price"}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// CSVSource reads a header-driven delimited file.
type CSVSource struct {
	Path   string
	logger zerolog.Logger
}

// NewCSVSource creates a CSV source for path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path, logger: zerolog.Nop()}
}

// WithLogger sets the logger.
func (s *CSVSource) WithLogger(logger zerolog.Logger) *CSVSource {
	s.logger = logger.With().Str("component", "csv_source").Logger()
	return s
}

// Name returns "csv".
func (s *CSVSource) Name() string {
	return "csv"
}

// Load reads and parses the file.
func (s *CSVSource) Load(ctx context.Context) ([]*domain.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", s.Path, ErrSourceNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()

	points, skipped, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}

	s.logger.Info().
		Str("path", s.Path).
		Int("rows", len(points)).
		Int("skipped_invalid_price", skipped).
		Msg("loaded price history")

	return points, nil
}

// ReadCSV parses price points from r. Rows whose price is empty, unparseable
// or not positive are skipped and counted. A table without any valid price
// yields ErrNoPriceData.
func ReadCSV(r io.Reader) ([]*domain.PricePoint, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("empty file: %w", ErrNoPriceData)
		}
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, 0, err
	}

	var points []*domain.PricePoint
	skipped := 0
	line := 1

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		price, ok := parsePrice(field(record, cols, "price"))
		if !ok {
			skipped++
			continue
		}

		p, err := parseRecord(record, cols)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}
		p.Price = price
		points = append(points, p)
	}

	if len(points) == 0 {
		return nil, skipped, fmt.Errorf("%d rows without a valid price: %w", skipped, ErrNoPriceData)
	}

	assignInputIndex(points)
	return points, skipped, nil
}

func resolveColumns(header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := byName[name]; !dup {
			byName[name] = i
		}
	}

	cols := make(map[string]int, len(columnAliases))
	for canonical, aliases := range columnAliases {
		for _, alias := range aliases {
			if idx, ok := byName[alias]; ok {
				cols[canonical] = idx
				break
			}
		}
	}

	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", name, ErrInvalidRow)
		}
	}
	return cols, nil
}

func parseRecord(record []string, cols map[string]int) (*domain.PricePoint, error) {
	rawID := field(record, cols, "asset_id")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("asset_id %q: %w", rawID, ErrInvalidRow)
	}

	rawDate := field(record, cols, "date")
	date, err := parseDate(rawDate)
	if err != nil {
		return nil, fmt.Errorf("date %q: %w", rawDate, ErrInvalidRow)
	}

	rating := 0
	if raw := field(record, cols, "rating"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("rating %q: %w", raw, ErrInvalidRow)
		}
		rating = int(f)
	}

	name := field(record, cols, "asset_name")
	if name == "" {
		name = fmt.Sprintf("Player_%d", id)
	}

	return &domain.PricePoint{
		AssetID:   id,
		AssetName: name,
		Date:      date,
		Event:     domain.NormalizeEvent(field(record, cols, "event")),
		Rating:    rating,
		League:    field(record, cols, "league"),
		Nation:    field(record, cols, "nation"),
	}, nil
}

func field(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parsePrice(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// parseDate truncates to the UTC calendar day.
func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format")
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
