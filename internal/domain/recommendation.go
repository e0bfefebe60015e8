package domain

import "time"

// Recommendation is a ranked buy candidate derived from the latest FeatureRow
// of an asset plus the model prediction.
type Recommendation struct {
	AssetID         int64
	AssetName       string
	Rating          int
	Position        string // not part of the price data; written empty
	League          string
	Nation          string
	Segment         Segment
	Date            time.Time // date of the latest snapshot
	Price           float64
	PredPctChange7d float64 // predicted 7-day percentage change
	BuyBelow        int64   // trunc(price * (1 + damping * pred))
	TargetSell      int64   // trunc(price * (1 + pred))
	ExpectedProfit  int64   // trunc(pred * price), in coins
	Confidence      float64 // share of trees agreeing with the sign of the prediction
	Window          string  // forecast horizon label, e.g. "7d"
}

// Segment is a coarse market tier used by the presentation layer filters.
type Segment string

const (
	SegmentElite  Segment = "elite"
	SegmentMeta   Segment = "meta"
	SegmentFodder Segment = "fodder"
)

// Rating thresholds for segment assignment.
const (
	EliteMinRating = 87
	MetaMinRating  = 83
)

// SegmentForRating assigns a segment from the card rating.
func SegmentForRating(rating int) Segment {
	switch {
	case rating >= EliteMinRating:
		return SegmentElite
	case rating >= MetaMinRating:
		return SegmentMeta
	default:
		return SegmentFodder
	}
}
