// Package regime classifies market behavior from trend-strength and
// volatility indicators.
package regime

import (
	"market-scanner/internal/errors"
	"market-scanner/internal/models"
)

// Thresholds holds the classification thresholds. All values come from
// configuration; the classifier hard-codes nothing.
type Thresholds struct {
	StrongTrend  float64 // trend strength at or above this is trending
	WeakTrend    float64 // trend strength below this is ranging
	HighVolRatio float64 // volatility ratio at or above this is high volatility
	LowVolRatio  float64 // volatility ratio at or below this is low volatility
}

// Validate checks that the thresholds are internally consistent.
func (t Thresholds) Validate() error {
	if t.StrongTrend <= 0 || t.WeakTrend < 0 {
		return errors.NewValidationError("regime.trend_thresholds", t, "trend thresholds must be positive")
	}
	if t.WeakTrend > t.StrongTrend {
		return errors.NewValidationError("regime.weak_trend", t.WeakTrend, "weak threshold above strong threshold")
	}
	if t.HighVolRatio <= t.LowVolRatio {
		return errors.NewValidationError("regime.vol_ratios", t, "high volatility ratio must exceed low")
	}
	return nil
}

// Classify derives a regime label from a trend-strength value (an
// ADX-like reading) and a volatility ratio (current range indicator vs
// its moving average). Pure function: identical inputs always yield
// identical output.
//
// A volatility extreme overrides the trend classification. Trend
// strength between the weak and strong thresholds classifies as
// ranging.
func Classify(trendStrength, volRatio float64, t Thresholds) models.RegimeLabel {
	if volRatio >= t.HighVolRatio {
		return models.RegimeHighVol
	}
	if volRatio <= t.LowVolRatio {
		return models.RegimeLowVol
	}
	if trendStrength >= t.StrongTrend {
		return models.RegimeTrending
	}
	return models.RegimeRanging
}

// FromSnapshot classifies the snapshot using its ADX and ATR
// indicators. The volatility ratio is ATR over its moving average;
// when the average is absent or zero the ratio is treated as neutral
// (1.0) so the trend rule decides.
func FromSnapshot(snap *models.MarketSnapshot, t Thresholds) models.RegimeLabel {
	adx, _ := snap.Indicator(models.IndicatorADX)

	volRatio := 1.0
	atr, okATR := snap.Indicator(models.IndicatorATR)
	atrMA, okMA := snap.Indicator(models.IndicatorATRMA)
	if okATR && okMA && atrMA > 0 {
		volRatio = atr / atrMA
	}

	return Classify(adx, volRatio, t)
}
