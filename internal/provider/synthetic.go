package provider

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"fc-market-lab/internal/domain"
)

// SyntheticConfig parameterizes the synthetic market generator.
type SyntheticConfig struct {
	Seed             uint64
	Assets           int
	Days             int
	Start            time.Time
	EventProbability float64
	NoiseStdDev      float64
	MinBasePrice     int // inclusive
	MaxBasePrice     int // exclusive
	PriceFloor       float64
	MinRating        int // inclusive
	MaxRating        int // inclusive
	Leagues          []string
	Nations          []string
}

// DefaultSyntheticConfig returns the demo market: 50 cards over 200 days.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Seed:             42,
		Assets:           50,
		Days:             200,
		Start:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EventProbability: 0.02,
		NoiseStdDev:      0.01,
		MinBasePrice:     800,
		MaxBasePrice:     50000,
		PriceFloor:       50,
		MinRating:        75,
		MaxRating:        91,
		Leagues:          []string{"EPL", "LaLiga", "Bundesliga", "SerieA"},
		Nations:          []string{"ENG", "ESP", "GER", "ITA", "FRA"},
	}
}

// SyntheticSource generates a seeded multiplicative random walk per card.
// The same config always yields the same table.
type SyntheticSource struct {
	cfg SyntheticConfig
}

// NewSyntheticSource creates a generator.
func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	return &SyntheticSource{cfg: cfg}
}

// Name returns "synthetic".
func (s *SyntheticSource) Name() string {
	return "synthetic"
}

// Load generates the table.
func (s *SyntheticSource) Load(ctx context.Context) ([]*domain.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.cfg.validate(); err != nil {
		return nil, err
	}
	return Generate(s.cfg), nil
}

func (c SyntheticConfig) validate() error {
	switch {
	case c.Assets <= 0:
		return fmt.Errorf("synthetic assets must be positive, got %d", c.Assets)
	case c.Days <= 0:
		return fmt.Errorf("synthetic days must be positive, got %d", c.Days)
	case c.MaxBasePrice <= c.MinBasePrice || c.MinBasePrice <= 0:
		return fmt.Errorf("synthetic base price range [%d, %d) is empty", c.MinBasePrice, c.MaxBasePrice)
	case c.MaxRating < c.MinRating:
		return fmt.Errorf("synthetic rating range [%d, %d] is empty", c.MinRating, c.MaxRating)
	case len(c.Leagues) == 0 || len(c.Nations) == 0:
		return fmt.Errorf("synthetic leagues and nations must not be empty")
	case c.PriceFloor <= 0:
		return fmt.Errorf("synthetic price floor must be positive, got %v", c.PriceFloor)
	}
	return nil
}

type syntheticCard struct {
	id     int64
	name   string
	rating int
	league string
	nation string
}

// Generate builds the synthetic table. Card attributes are drawn for every
// card first, then each card's price path in id order.
func Generate(cfg SyntheticConfig) []*domain.PricePoint {
	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	cards := make([]syntheticCard, cfg.Assets)
	for i := range cards {
		id := int64(i + 1)
		cards[i] = syntheticCard{
			id:     id,
			name:   fmt.Sprintf("Player_%d", id),
			rating: cfg.MinRating + r.IntN(cfg.MaxRating-cfg.MinRating+1),
			league: cfg.Leagues[r.IntN(len(cfg.Leagues))],
			nation: cfg.Nations[r.IntN(len(cfg.Nations))],
		}
	}

	start := time.Date(cfg.Start.Year(), cfg.Start.Month(), cfg.Start.Day(), 0, 0, 0, 0, time.UTC)
	points := make([]*domain.PricePoint, 0, cfg.Assets*cfg.Days)

	for _, c := range cards {
		price := float64(cfg.MinBasePrice + r.IntN(cfg.MaxBasePrice-cfg.MinBasePrice))

		for d := 0; d < cfg.Days; d++ {
			event := domain.EventNone
			if r.Float64() < cfg.EventProbability {
				event = domain.SyntheticEvents[r.IntN(len(domain.SyntheticEvents))]
				price *= event.PriceMultiplier()
			}
			price = math.Max(cfg.PriceFloor, price*(1+r.NormFloat64()*cfg.NoiseStdDev))

			points = append(points, &domain.PricePoint{
				AssetID:   c.id,
				AssetName: c.name,
				Date:      start.AddDate(0, 0, d),
				Price:     price,
				Event:     event,
				Rating:    c.rating,
				League:    c.league,
				Nation:    c.nation,
			})
		}
	}

	assignInputIndex(points)
	return points
}
