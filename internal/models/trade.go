package models

import (
	"math"
	"time"
)

// TradeStatus is the lifecycle state of an active trade.
type TradeStatus string

const (
	TradeOpen        TradeStatus = "open"
	TradeEvaluating  TradeStatus = "evaluating"
	TradeAtBreakeven TradeStatus = "at_breakeven"
	TradeClosed      TradeStatus = "closed"
)

// ExitReason describes why an exit signal fired.
type ExitReason string

const (
	ExitGiveback ExitReason = "profit_giveback"
	ExitExternal ExitReason = "external"
)

// ActiveTrade tracks one open trade per symbol. It is owned by the
// lifecycle tracker and mutated on every price update.
type ActiveTrade struct {
	Symbol    string
	Timeframe Timeframe
	Signal    *ConfirmedSignal
	Direction Direction

	EntryTime  time.Time
	EntryPrice float64

	CurrentProfitPct float64
	PeakProfitPct    float64 // monotonic non-decreasing
	LastPrice        float64

	Status         TradeStatus
	LastExitSignal time.Time
	ClosedAt       time.Time
	ExitReason     ExitReason
}

// ProfitPct returns the unrealized profit percent for the trade at the
// given price, positive when the trade is in profit.
func (t *ActiveTrade) ProfitPct(price float64) float64 {
	if t.EntryPrice == 0 {
		return 0
	}
	pct := (price - t.EntryPrice) / t.EntryPrice * 100
	if t.Direction == DirectionShort {
		pct = -pct
	}
	return pct
}

// TargetDistancePct returns the original target distance as a percent
// of the entry price.
func (t *ActiveTrade) TargetDistancePct() float64 {
	if t.EntryPrice == 0 || t.Signal == nil {
		return 0
	}
	return math.Abs(t.Signal.Target-t.EntryPrice) / t.EntryPrice * 100
}

// Giveback returns the fraction of peak profit given back, or 0 when
// there is no recorded peak.
func (t *ActiveTrade) Giveback() float64 {
	if t.PeakProfitPct <= 0 {
		return 0
	}
	return (t.PeakProfitPct - t.CurrentProfitPct) / t.PeakProfitPct
}

// ExitSignal is emitted by the lifecycle tracker when an exit
// condition fires. Execution belongs to the external trade-management
// consumer.
type ExitSignal struct {
	Symbol    string
	Direction Direction
	Reason    ExitReason
	Price     float64
	ProfitPct float64
	PeakPct   float64
	Giveback  float64
	Timestamp time.Time
}
