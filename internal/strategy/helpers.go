package strategy

import (
	"market-scanner/internal/errors"
	"market-scanner/internal/models"
)

// requireHistory returns a data error when the snapshot window is
// shorter than the detector's minimum.
func requireHistory(snap *models.MarketSnapshot, minBars int) error {
	if snap.Len() < minBars {
		return errors.NewDataError(snap.Symbol, string(snap.Timeframe),
			"insufficient history", errors.ErrInsufficientHistory)
	}
	return nil
}

// requireIndicator fetches a named indicator or returns a data error.
func requireIndicator(snap *models.MarketSnapshot, name string) (float64, error) {
	v, ok := snap.Indicator(name)
	if !ok {
		return 0, errors.NewDataError(snap.Symbol, string(snap.Timeframe),
			name, errors.ErrMissingIndicator)
	}
	return v, nil
}

// volumeRatio returns the last candle's volume relative to the volume
// moving average. When the snapshot carries no volume_ma indicator the
// average of the preceding 20 candles is used instead.
func volumeRatio(snap *models.MarketSnapshot) float64 {
	last := snap.Last()
	if ma, ok := snap.Indicator(models.IndicatorVolumeMA); ok && ma > 0 {
		return float64(last.Volume) / ma
	}

	n := snap.Len()
	lookback := 20
	if n-1 < lookback {
		lookback = n - 1
	}
	if lookback <= 0 {
		return 0
	}
	var sum int64
	for i := n - 1 - lookback; i < n-1; i++ {
		sum += snap.Candle(i).Volume
	}
	avg := float64(sum) / float64(lookback)
	if avg == 0 {
		return 0
	}
	return float64(last.Volume) / avg
}

// volumeConfirmed reports whether the last candle's volume reaches the
// configured multiple of its average.
func volumeConfirmed(snap *models.MarketSnapshot, multiple float64) bool {
	return volumeRatio(snap) >= multiple
}

// isReversalBar reports whether the candle is a recognizable reversal
// shape against the prior move: a rejection wick at least twice the
// body on the reversal side, or a narrow body closing in the reversal
// half of the range.
func isReversalBar(c models.Candle, dir models.Direction) bool {
	rng := c.Range()
	if rng <= 0 {
		return false
	}
	body := c.Body()

	if dir == models.DirectionLong {
		if c.LowerWick() >= 2*body && c.LowerWick() >= 0.4*rng {
			return true
		}
		// Narrow body closing in the upper half.
		return body <= 0.35*rng && c.Close >= c.Low+0.5*rng
	}
	if c.UpperWick() >= 2*body && c.UpperWick() >= 0.4*rng {
		return true
	}
	return body <= 0.35*rng && c.Close <= c.High-0.5*rng
}

// strongClose reports whether the candle closed in the leading portion
// of its range for the given direction.
func strongClose(c models.Candle, dir models.Direction) bool {
	rng := c.Range()
	if rng <= 0 {
		return false
	}
	pos := (c.Close - c.Low) / rng
	if dir == models.DirectionLong {
		return pos >= 0.6
	}
	return pos <= 0.4
}

// buildSignal assembles a candidate with volatility-scaled stop and
// target: both are expressed as ATR multiples from the entry, which is
// the latest close.
func buildSignal(snap *models.MarketSnapshot, strategyName string, dir models.Direction, atr float64, p Params, factors models.FactorSet, meta map[string]string) *models.CandidateSignal {
	entry := snap.Close()
	stop := entry - p.StopATR*atr
	target := entry + p.TargetATR*atr
	if dir == models.DirectionShort {
		stop = entry + p.StopATR*atr
		target = entry - p.TargetATR*atr
	}
	return &models.CandidateSignal{
		Symbol:     snap.Symbol,
		Timeframe:  snap.Timeframe,
		Strategy:   strategyName,
		Direction:  dir,
		Entry:      entry,
		Stop:       stop,
		Target:     target,
		Factors:    factors,
		Meta:       meta,
		DetectedAt: snap.Last().Timestamp,
	}
}

// highestHigh returns the highest high over candles [from, to).
func highestHigh(snap *models.MarketSnapshot, from, to int) float64 {
	h := snap.Candle(from).High
	for i := from + 1; i < to; i++ {
		if v := snap.Candle(i).High; v > h {
			h = v
		}
	}
	return h
}

// lowestLow returns the lowest low over candles [from, to).
func lowestLow(snap *models.MarketSnapshot, from, to int) float64 {
	l := snap.Candle(from).Low
	for i := from + 1; i < to; i++ {
		if v := snap.Candle(i).Low; v < l {
			l = v
		}
	}
	return l
}
