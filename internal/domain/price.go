package domain

import "time"

// PricePoint represents one daily market price of a card.
// Corresponds to price_points table in PostgreSQL and ClickHouse.
type PricePoint struct {
	AssetID    int64     // player card identifier (player_id)
	AssetName  string    // display name (player_name)
	Date       time.Time // observation day, UTC midnight
	Price      float64   // market price in coins, always > 0
	Event      EventTag  // event tag of the day, EventNone when nothing happened
	Rating     int       // card rating
	League     string    // league name (categorical)
	Nation     string    // nation code (categorical)
	InputIndex int       // position in the loaded table, used to break date ties
}

// FeatureRow is a PricePoint extended with the supervised-learning features
// and the 7-day-ahead regression target.
type FeatureRow struct {
	PricePoint

	PriceNext7d      float64 // price 7 rows later in the same asset's series
	PctChange7d      float64 // (PriceNext7d - Price) / Price, the regression target
	RollingMedian7d  float64 // trailing median of the last 7 observations (min 1)
	RollingMedian30d float64 // trailing median of the last 30 observations (min 1)
	IsEvent          int     // 1 if the day carries an event tag, else 0
	DayOfWeek        int     // Monday=0 ... Sunday=6
	DaysFromStart    int     // whole days since the global minimum date
}
