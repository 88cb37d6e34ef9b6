package strategy

import (
	"fmt"

	"market-scanner/internal/models"
)

// MeanReversionDetector fires when price has stretched a volatility-
// scaled distance away from the session fair value (VWAP), the
// momentum oscillator sits at an extreme, and the latest candle shows
// a reversal shape back toward fair value.
type MeanReversionDetector struct{}

// NewMeanReversionDetector creates the detector.
func NewMeanReversionDetector() *MeanReversionDetector {
	return &MeanReversionDetector{}
}

func (d *MeanReversionDetector) Name() string {
	return MeanReversion
}

func (d *MeanReversionDetector) Detect(snap *models.MarketSnapshot, p Params) (*models.CandidateSignal, error) {
	if err := requireHistory(snap, p.MinHistory); err != nil {
		return nil, err
	}
	vwap, err := requireIndicator(snap, models.IndicatorVWAP)
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
	if atr <= 0 {
		return nil, nil
	}

	close := snap.Close()
	deviation := (close - vwap) / atr

	var dir models.Direction
	switch {
	case deviation <= -p.DeviationATR && rsi <= p.MomentumOversold:
		dir = models.DirectionLong
	case deviation >= p.DeviationATR && rsi >= p.MomentumOverbought:
		dir = models.DirectionShort
	default:
		return nil, nil
	}

	if !isReversalBar(snap.Last(), dir) {
		return nil, nil
	}

	factors := models.NewFactorSet(
		models.FactorLevel,
		models.FactorMomentum,
		models.FactorPattern,
	)
	if volumeConfirmed(snap, p.VolumeMultiple) {
		factors.Add(models.FactorVolume)
	}

	meta := map[string]string{
		"deviation_atr": fmt.Sprintf("%.2f", deviation),
	}
	return buildSignal(snap, d.Name(), dir, atr, p, factors, meta), nil
}
