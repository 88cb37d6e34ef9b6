package strategy

import (
	"time"

	"market-scanner/internal/models"
)

// Test fixtures shared by the detector tests. Candle windows are built
// oldest-first with a fixed one-bar spacing so DetectedAt assertions
// stay deterministic.

var fixtureStart = time.Date(2024, 6, 3, 9, 15, 0, 0, time.UTC)

func buildSnapshot(candles []models.Candle, indicators map[string]float64) *models.MarketSnapshot {
	return models.NewSnapshot("RELIANCE", models.Timeframe15Min, candles, indicators, nil)
}

// makeCandles builds n candles using the supplied shape function and
// stamps them fifteen minutes apart.
func makeCandles(n int, shape func(i int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		c := shape(i)
		c.Timestamp = fixtureStart.Add(time.Duration(i) * 15 * time.Minute)
		candles[i] = c
	}
	return candles
}

// risingCandles produces a steadily climbing series where every bar
// closes in the top of its range.
func risingCandles(n int, start, step float64, vol int64) []models.Candle {
	return makeCandles(n, func(i int) models.Candle {
		open := start + step*float64(i)
		return models.Candle{
			Open:   open,
			Close:  open + 0.4,
			High:   open + 0.5,
			Low:    open - 0.1,
			Volume: vol,
		}
	})
}

// fallingCandles mirrors risingCandles downward.
func fallingCandles(n int, start, step float64, vol int64) []models.Candle {
	return makeCandles(n, func(i int) models.Candle {
		open := start - step*float64(i)
		return models.Candle{
			Open:   open,
			Close:  open - 0.4,
			High:   open + 0.1,
			Low:    open - 0.5,
			Volume: vol,
		}
	})
}

// flatCandles produces a sideways series oscillating inside a fixed
// band around base.
func flatCandles(n int, base float64, vol int64) []models.Candle {
	return makeCandles(n, func(i int) models.Candle {
		open := base - 0.1
		close := base + 0.1
		if i%2 == 1 {
			open, close = close, open
		}
		return models.Candle{
			Open:   open,
			Close:  close,
			High:   base + 0.5,
			Low:    base - 0.5,
			Volume: vol,
		}
	})
}

func setLast(candles []models.Candle, c models.Candle) []models.Candle {
	c.Timestamp = candles[len(candles)-1].Timestamp
	candles[len(candles)-1] = c
	return candles
}
