package strategy

import (
	"fmt"

	"market-scanner/internal/models"
)

// BreakoutDetector fires when the latest close escapes the trading
// range established over the lookback window with above-average volume
// and momentum clear of the neutral band.
type BreakoutDetector struct{}

// NewBreakoutDetector creates the detector.
func NewBreakoutDetector() *BreakoutDetector {
	return &BreakoutDetector{}
}

func (d *BreakoutDetector) Name() string {
	return Breakout
}

func (d *BreakoutDetector) Detect(snap *models.MarketSnapshot, p Params) (*models.CandidateSignal, error) {
	minBars := p.MinHistory
	if p.RangeLookback+1 > minBars {
		minBars = p.RangeLookback + 1
	}
	if err := requireHistory(snap, minBars); err != nil {
		return nil, err
	}
	atr, err := requireIndicator(snap, models.IndicatorATR)
	if err != nil {
		return nil, err
	}
	rsi, err := requireIndicator(snap, models.IndicatorRSI)
	if err != nil {
		return nil, err
	}

	// Range boundaries exclude the breakout bar itself.
	n := snap.Len()
	rangeHigh := highestHigh(snap, n-1-p.RangeLookback, n-1)
	rangeLow := lowestLow(snap, n-1-p.RangeLookback, n-1)

	close := snap.Close()

	var dir models.Direction
	switch {
	case close > rangeHigh && rsi > p.NeutralBandHigh:
		dir = models.DirectionLong
	case close < rangeLow && rsi < p.NeutralBandLow:
		dir = models.DirectionShort
	default:
		return nil, nil
	}

	if !volumeConfirmed(snap, p.VolumeMultiple) {
		return nil, nil
	}

	factors := models.NewFactorSet(
		models.FactorTrend,
		models.FactorVolume,
		models.FactorMomentum,
	)
	// A decisive full-bodied breakout bar counts as pattern evidence.
	last := snap.Last()
	if last.Body() >= 0.6*last.Range() && strongClose(last, dir) {
		factors.Add(models.FactorPattern)
	}

	meta := map[string]string{
		"range_high": fmt.Sprintf("%.2f", rangeHigh),
		"range_low":  fmt.Sprintf("%.2f", rangeLow),
	}

	return buildSignal(snap, d.Name(), dir, atr, p, factors, meta), nil
}
