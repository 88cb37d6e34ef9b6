package strategy

import (
	"market-scanner/internal/models"
)

// TrendAlignmentDetector fires when price and a cascade of moving
// averages are monotonically ordered in one direction, the momentum
// oscillator confirms, and volume reaches its configured multiple.
type TrendAlignmentDetector struct{}

// NewTrendAlignmentDetector creates the detector.
func NewTrendAlignmentDetector() *TrendAlignmentDetector {
	return &TrendAlignmentDetector{}
}

func (d *TrendAlignmentDetector) Name() string {
	return TrendAlignment
}

// Detect evaluates the moving-average cascade on the snapshot.
func (d *TrendAlignmentDetector) Detect(snap *models.MarketSnapshot, p Params) (*models.CandidateSignal, error) {
	if err := requireHistory(snap, p.MinHistory); err != nil {
		return nil, err
	}
	ema9, err := requireIndicator(snap, models.IndicatorEMA9)
	if err != nil {
		return nil, err
	}
	ema21, err := requireIndicator(snap, models.IndicatorEMA21)
	if err != nil {
		return nil, err
	}
	ema50, err := requireIndicator(snap, models.IndicatorEMA50)
	if err != nil {
		return nil, err
	}
	rsi, err := requireIndicator(snap, models.IndicatorRSI)
	if err != nil {
		return nil, err
	}
	atr, err := requireIndicator(snap, models.IndicatorATR)
	if err != nil {
		return nil, err
	}

	close := snap.Close()

	var dir models.Direction
	switch {
	case close > ema9 && ema9 > ema21 && ema21 > ema50:
		dir = models.DirectionLong
	case close < ema9 && ema9 < ema21 && ema21 < ema50:
		dir = models.DirectionShort
	default:
		return nil, nil
	}

	// Momentum must confirm the cascade direction without being at an
	// exhaustion extreme.
	if dir == models.DirectionLong {
		if rsi < p.MomentumBullMin || rsi > p.MomentumOverbought+10 {
			return nil, nil
		}
	} else {
		if rsi > p.MomentumBearMax || rsi < p.MomentumOversold-10 {
			return nil, nil
		}
	}

	if !volumeConfirmed(snap, p.VolumeMultiple) {
		return nil, nil
	}

	factors := models.NewFactorSet(
		models.FactorTrend,
		models.FactorMomentum,
		models.FactorVolume,
	)
	if strongClose(snap.Last(), dir) {
		factors.Add(models.FactorPattern)
	}

	return buildSignal(snap, d.Name(), dir, atr, p, factors, nil), nil
}
