// Package ranking selects buy candidates from the latest snapshot of each card.
package ranking

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"fc-market-lab/internal/domain"
	"fc-market-lab/internal/model"
)

// Predictor forecasts the 7-day change of one feature row.
type Predictor interface {
	Predict(r *domain.FeatureRow) (model.Prediction, error)
}

// Ranker turns per-asset predictions into a top-K recommendation list.
type Ranker struct {
	TopK    int     // maximum recommendations returned
	Damping float64 // share of the predicted move captured by buy_below
	Window  string  // forecast horizon label
}

// NewRanker returns the default ranker: top 20, damping 0.3, window "7d".
func NewRanker() *Ranker {
	return &Ranker{TopK: 20, Damping: 0.3, Window: "7d"}
}

// Rank predicts the latest row of every asset and returns the TopK rows
// by predicted change, descending. Equal predictions keep ascending asset
// order. Coin amounts are truncated toward zero.
func (r *Ranker) Rank(rows []*domain.FeatureRow, predictor Predictor) ([]*domain.Recommendation, error) {
	latest := LatestPerAsset(rows)

	recs := make([]*domain.Recommendation, 0, len(latest))
	for _, row := range latest {
		p, err := predictor.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("predict asset %d: %w", row.AssetID, err)
		}
		recs = append(recs, r.recommendation(row, p))
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].PredPctChange7d > recs[j].PredPctChange7d
	})

	if r.TopK > 0 && len(recs) > r.TopK {
		recs = recs[:r.TopK]
	}
	return recs, nil
}

func (r *Ranker) recommendation(row *domain.FeatureRow, p model.Prediction) *domain.Recommendation {
	price := decimal.NewFromFloat(row.Price)
	pred := decimal.NewFromFloat(p.PctChange)
	one := decimal.NewFromInt(1)
	damping := decimal.NewFromFloat(r.Damping)

	return &domain.Recommendation{
		AssetID:         row.AssetID,
		AssetName:       row.AssetName,
		Rating:          row.Rating,
		League:          row.League,
		Nation:          row.Nation,
		Segment:         domain.SegmentForRating(row.Rating),
		Date:            row.Date,
		Price:           row.Price,
		PredPctChange7d: p.PctChange,
		BuyBelow:        coins(price.Mul(one.Add(pred.Mul(damping)))),
		TargetSell:      coins(price.Mul(one.Add(pred))),
		ExpectedProfit:  coins(pred.Mul(price)),
		Confidence:      p.Confidence,
		Window:          r.Window,
	}
}

func coins(d decimal.Decimal) int64 {
	return d.Truncate(0).IntPart()
}

// LatestPerAsset reduces rows to one row per asset: the one with the
// maximum date, and among equal dates the largest input index. The result
// is ordered by ascending asset id.
func LatestPerAsset(rows []*domain.FeatureRow) []*domain.FeatureRow {
	best := make(map[int64]int, len(rows))
	for i, row := range rows {
		j, ok := best[row.AssetID]
		if !ok || newer(row, rows[j]) {
			best[row.AssetID] = i
		}
	}

	latest := make([]*domain.FeatureRow, 0, len(best))
	for _, i := range best {
		latest = append(latest, rows[i])
	}
	sort.Slice(latest, func(i, j int) bool {
		return latest[i].AssetID < latest[j].AssetID
	})
	return latest
}

func newer(a, b *domain.FeatureRow) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.InputIndex > b.InputIndex
}
