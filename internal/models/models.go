// Package models provides domain models for the market scanner.
package models

import (
	"time"
)

// Timeframe represents a candle aggregation period.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1minute"
	Timeframe5Min  Timeframe = "5minute"
	Timeframe15Min Timeframe = "15minute"
	Timeframe1Hour Timeframe = "60minute"
	Timeframe4Hour Timeframe = "4hour"
	Timeframe1Day  Timeframe = "day"
)

// AllTimeframes returns the supported timeframes, lowest first.
func AllTimeframes() []Timeframe {
	return []Timeframe{
		Timeframe1Min,
		Timeframe5Min,
		Timeframe15Min,
		Timeframe1Hour,
		Timeframe4Hour,
		Timeframe1Day,
	}
}

// Priority returns the conflict precedence of the timeframe.
// Higher timeframes outrank lower ones: day > 4hour > 60minute >
// 15minute > 5minute > 1minute. Unknown timeframes rank lowest.
func (tf Timeframe) Priority() int {
	switch tf {
	case Timeframe1Min:
		return 1
	case Timeframe5Min:
		return 2
	case Timeframe15Min:
		return 3
	case Timeframe1Hour:
		return 4
	case Timeframe4Hour:
		return 5
	case Timeframe1Day:
		return 6
	default:
		return 0
	}
}

// Valid reports whether the timeframe is one of the supported values.
func (tf Timeframe) Valid() bool {
	return tf.Priority() != 0
}

// IsIntraday returns true for timeframes below one day.
func (tf Timeframe) IsIntraday() bool {
	return tf != Timeframe1Day
}

// Duration returns the nominal candle duration of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe1Min:
		return time.Minute
	case Timeframe5Min:
		return 5 * time.Minute
	case Timeframe15Min:
		return 15 * time.Minute
	case Timeframe1Hour:
		return time.Hour
	case Timeframe4Hour:
		return 4 * time.Hour
	case Timeframe1Day:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Direction represents the side of a signal or trade.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Opposite returns the opposing direction.
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// RegimeLabel is a coarse classification of current market behavior,
// derived per snapshot and never persisted.
type RegimeLabel string

const (
	RegimeTrending RegimeLabel = "trending"
	RegimeRanging  RegimeLabel = "ranging"
	RegimeHighVol  RegimeLabel = "high_volatility"
	RegimeLowVol   RegimeLabel = "low_volatility"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Body returns the absolute size of the candle body.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-low range of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// UpperWick returns the distance from the body top to the high.
func (c Candle) UpperWick() float64 {
	top := c.Close
	if c.Open > c.Close {
		top = c.Open
	}
	return c.High - top
}

// LowerWick returns the distance from the body bottom to the low.
func (c Candle) LowerWick() float64 {
	bottom := c.Close
	if c.Open < c.Close {
		bottom = c.Open
	}
	return bottom - c.Low
}

// IsBullish returns true when the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}
