package reporting

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"fc-market-lab/internal/domain"
)

// ArtifactColumns is the stable column order of the recommendations file.
var ArtifactColumns = []string{
	"player_id",
	"player_name",
	"rating",
	"position",
	"league",
	"nation",
	"segment",
	"date",
	"price",
	"pred_pct_change_7d",
	"buy_below",
	"target_sell",
	"expected_profit_coins",
	"confidence",
	"window",
}

// RenderCSV renders recommendations as the artifact CSV.
func RenderCSV(recs []*domain.Recommendation) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(ArtifactColumns); err != nil {
		return nil, err
	}

	for _, r := range recs {
		record := []string{
			strconv.FormatInt(r.AssetID, 10),
			r.AssetName,
			strconv.Itoa(r.Rating),
			r.Position,
			r.League,
			r.Nation,
			string(r.Segment),
			r.Date.Format("2006-01-02"),
			strconv.FormatFloat(r.Price, 'f', 2, 64),
			strconv.FormatFloat(r.PredPctChange7d, 'f', 6, 64),
			strconv.FormatInt(r.BuyBelow, 10),
			strconv.FormatInt(r.TargetSell, 10),
			strconv.FormatInt(r.ExpectedProfit, 10),
			strconv.FormatFloat(r.Confidence, 'f', 4, 64),
			r.Window,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
