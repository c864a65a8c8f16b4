package normalize

import (
	"github.com/tidwall/gjson"

	"github.com/tokenlens/tokenlens/internal/core"
)

// Klines converts upstream candles (unix seconds) to points in unix milliseconds.
func Klines(payload gjson.Result) []core.KlinePoint {
	if !payload.IsArray() {
		return []core.KlinePoint{}
	}
	rows := payload.Array()
	points := make([]core.KlinePoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, core.KlinePoint{
			Timestamp: Int(row.Get("time")) * 1000,
			Open:      Float(row.Get("open")),
			High:      Float(row.Get("high")),
			Low:       Float(row.Get("low")),
			Close:     Float(row.Get("close")),
			Volume:    Float(row.Get("volume")),
		})
	}
	return points
}
