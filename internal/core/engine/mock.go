package engine

import (
	"math"
	"time"

	"github.com/tokenlens/tokenlens/internal/core"
)

const (
	mockBasePrice  = 0.007354
	mockVolatility = 0.005
)

var mockSteps = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// MockKlines synthesizes limit candles ending at now. random must return
// values in [0, 1).
func MockKlines(interval string, limit int, now time.Time, random func() float64) []core.KlinePoint {
	if limit <= 0 {
		return []core.KlinePoint{}
	}
	step, ok := mockSteps[interval]
	if !ok {
		step = time.Hour
	}

	nowSeconds := now.Unix()
	stepSeconds := int64(step / time.Second)
	points := make([]core.KlinePoint, 0, limit)
	for i := 0; i < limit; i++ {
		timestamp := (nowSeconds - int64(limit-i)*stepSeconds) * 1000
		change := mockBasePrice * mockVolatility * (0.5 - random())

		open := mockBasePrice + change*float64(i-1)/float64(limit)
		closing := mockBasePrice + change*float64(i)/float64(limit)
		high := math.Max(open, closing) * (1 + random()*0.02)
		low := math.Min(open, closing) * (1 - random()*0.02)

		points = append(points, core.KlinePoint{
			Timestamp: timestamp,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closing,
			Volume:    100 + random()*2000,
		})
	}
	return points
}
