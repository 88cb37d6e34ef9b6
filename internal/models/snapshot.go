package models

import (
	"fmt"
	"math"
)

// Well-known indicator names supplied by the market-data collaborator.
// The scanner does not compute indicator arithmetic; it only reads
// values the snapshot carries.
const (
	IndicatorADX      = "adx"
	IndicatorATR      = "atr"
	IndicatorATRMA    = "atr_ma"
	IndicatorRSI      = "rsi"
	IndicatorEMA9     = "ema9"
	IndicatorEMA21    = "ema21"
	IndicatorEMA50    = "ema50"
	IndicatorVWAP     = "vwap"
	IndicatorVolumeMA = "volume_ma"
)

// MarketSnapshot is a validated window of candles plus the indicator
// values for the most recent candle. Snapshots are immutable once
// constructed; NewSnapshot copies its inputs.
type MarketSnapshot struct {
	Symbol    string
	Timeframe Timeframe

	candles    []Candle
	indicators map[string]float64

	valid         bool
	invalidReason string
}

// NewSnapshot builds a snapshot and validates that every indicator in
// required is present and numeric. A snapshot that fails validation is
// still returned (so callers can log why) but reports Valid() == false
// and must be skipped.
func NewSnapshot(symbol string, tf Timeframe, candles []Candle, indicators map[string]float64, required []string) *MarketSnapshot {
	s := &MarketSnapshot{
		Symbol:     symbol,
		Timeframe:  tf,
		candles:    append([]Candle(nil), candles...),
		indicators: make(map[string]float64, len(indicators)),
		valid:      true,
	}
	for k, v := range indicators {
		s.indicators[k] = v
	}

	if len(s.candles) == 0 {
		s.valid = false
		s.invalidReason = "no candles"
		return s
	}
	for _, name := range required {
		v, ok := s.indicators[name]
		if !ok {
			s.valid = false
			s.invalidReason = fmt.Sprintf("missing indicator %q", name)
			return s
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.valid = false
			s.invalidReason = fmt.Sprintf("indicator %q is not numeric", name)
			return s
		}
	}
	return s
}

// Valid reports whether the snapshot passed validation.
func (s *MarketSnapshot) Valid() bool {
	return s.valid
}

// InvalidReason returns why validation failed, or "" if it passed.
func (s *MarketSnapshot) InvalidReason() string {
	return s.invalidReason
}

// Len returns the number of candles in the window.
func (s *MarketSnapshot) Len() int {
	return len(s.candles)
}

// Candle returns the candle at index i, oldest first.
func (s *MarketSnapshot) Candle(i int) Candle {
	return s.candles[i]
}

// Last returns the most recent candle.
func (s *MarketSnapshot) Last() Candle {
	return s.candles[len(s.candles)-1]
}

// Candles returns a copy of the candle window.
func (s *MarketSnapshot) Candles() []Candle {
	return append([]Candle(nil), s.candles...)
}

// Indicator returns the named indicator value for the latest candle.
func (s *MarketSnapshot) Indicator(name string) (float64, bool) {
	v, ok := s.indicators[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Close returns the latest close price.
func (s *MarketSnapshot) Close() float64 {
	return s.Last().Close
}
