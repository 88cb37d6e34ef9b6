// Package lifecycle tracks open trades through the
// open → evaluating → at_breakeven → closed state machine and emits
// profit-giveback exit signals.
package lifecycle

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/errors"
	"market-scanner/internal/models"
)

// Config holds the exit-timing thresholds.
type Config struct {
	// GraceIntraday and GraceDaily delay exit evaluation after entry.
	GraceIntraday time.Duration
	GraceDaily    time.Duration

	// BreakevenFraction of the original target distance at which the
	// trade moves to at_breakeven.
	BreakevenFraction float64

	// Giveback exit thresholds: current profit must be at least
	// MinCurrentPct, peak at least MinPeakPct, and the giveback ratio
	// above MaxGiveback.
	MinCurrentPct float64
	MinPeakPct    float64
	MaxGiveback   float64

	// ExitCooldown suppresses repeat exit signals for the same trade.
	ExitCooldown time.Duration
}

// DefaultConfig returns the stock exit-timing thresholds.
func DefaultConfig() Config {
	return Config{
		GraceIntraday:     15 * time.Minute,
		GraceDaily:        45 * time.Minute,
		BreakevenFraction: 0.5,
		MinCurrentPct:     0.3,
		MinPeakPct:        1.0,
		MaxGiveback:       0.4,
		ExitCooldown:      10 * time.Minute,
	}
}

// Validate checks the thresholds.
func (c Config) Validate() error {
	if c.GraceIntraday < 0 || c.GraceDaily < 0 {
		return fmt.Errorf("grace periods must be non-negative")
	}
	if c.BreakevenFraction <= 0 || c.BreakevenFraction >= 1 {
		return fmt.Errorf("breakeven_fraction must be in (0, 1)")
	}
	if c.MaxGiveback <= 0 || c.MaxGiveback >= 1 {
		return fmt.Errorf("max_giveback must be in (0, 1)")
	}
	if c.MinPeakPct <= 0 || c.MinCurrentPct < 0 {
		return fmt.Errorf("profit thresholds must be positive")
	}
	if c.ExitCooldown < 0 {
		return fmt.Errorf("exit_cooldown must be non-negative")
	}
	return nil
}

// Tracker owns the per-symbol active-trade registry. At most one trade
// may be open per symbol.
type Tracker struct {
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	trades map[string]*models.ActiveTrade
}

// New creates a tracker.
func New(cfg Config, logger zerolog.Logger) *Tracker {
	return &Tracker{
		cfg:    cfg,
		logger: logger.With().Str("component", "lifecycle").Logger(),
		trades: make(map[string]*models.ActiveTrade),
	}
}

// Open registers a trade seeded from a confirmed signal. It fails with
// ErrTradeExists when the symbol already has an open trade.
func (t *Tracker) Open(sig *models.ConfirmedSignal, now time.Time) (*models.ActiveTrade, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.trades[sig.Symbol]; ok {
		return nil, errors.Wrapf(errors.ErrTradeExists, "symbol %s", sig.Symbol)
	}

	trade := &models.ActiveTrade{
		Symbol:     sig.Symbol,
		Timeframe:  sig.Timeframe,
		Signal:     sig,
		Direction:  sig.Direction,
		EntryTime:  now,
		EntryPrice: sig.Entry,
		LastPrice:  sig.Entry,
		Status:     models.TradeOpen,
	}
	t.trades[sig.Symbol] = trade

	t.logger.Info().
		Str("symbol", trade.Symbol).
		Str("timeframe", string(trade.Timeframe)).
		Str("direction", string(trade.Direction)).
		Float64("entry", trade.EntryPrice).
		Msg("trade opened")
	return trade, nil
}

// OpenTrade returns a copy of the active trade for the symbol.
func (t *Tracker) OpenTrade(symbol string) (*models.ActiveTrade, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	trade, ok := t.trades[symbol]
	if !ok {
		return nil, false
	}
	cp := *trade
	return &cp, true
}

// UpdatePrice feeds the latest price to the symbol's trade, advancing
// the state machine and possibly emitting an exit signal. Repeated
// identical prices are idempotent: profit and peak land on the same
// values and no duplicate exit fires within the cooldown.
func (t *Tracker) UpdatePrice(symbol string, price float64, now time.Time) (*models.ExitSignal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	trade, ok := t.trades[symbol]
	if !ok {
		return nil, errors.Wrapf(errors.ErrTradeNotFound, "symbol %s", symbol)
	}

	trade.LastPrice = price
	trade.CurrentProfitPct = trade.ProfitPct(price)
	if trade.CurrentProfitPct > trade.PeakProfitPct {
		trade.PeakProfitPct = trade.CurrentProfitPct
	}

	// No exit evaluation of any kind during the grace period.
	if trade.Status == models.TradeOpen {
		if now.Sub(trade.EntryTime) < t.grace(trade.Timeframe) {
			return nil, nil
		}
		trade.Status = models.TradeEvaluating
	}

	if trade.Status == models.TradeEvaluating {
		if target := trade.TargetDistancePct(); target > 0 &&
			trade.CurrentProfitPct >= t.cfg.BreakevenFraction*target {
			trade.Status = models.TradeAtBreakeven
			t.logger.Info().
				Str("symbol", symbol).
				Float64("profit_pct", trade.CurrentProfitPct).
				Msg("stop to breakeven")
		}
	}

	if !t.givebackExit(trade) {
		return nil, nil
	}
	if !trade.LastExitSignal.IsZero() && now.Sub(trade.LastExitSignal) < t.cfg.ExitCooldown {
		return nil, nil
	}
	trade.LastExitSignal = now

	exit := &models.ExitSignal{
		Symbol:    symbol,
		Direction: trade.Direction,
		Reason:    models.ExitGiveback,
		Price:     price,
		ProfitPct: trade.CurrentProfitPct,
		PeakPct:   trade.PeakProfitPct,
		Giveback:  trade.Giveback(),
		Timestamp: now,
	}
	t.logger.Info().
		Str("symbol", symbol).
		Float64("profit_pct", exit.ProfitPct).
		Float64("peak_pct", exit.PeakPct).
		Float64("giveback", exit.Giveback).
		Msg("giveback exit")
	return exit, nil
}

// givebackExit applies the exit rule: positive current profit above
// the minimum, a peak above its minimum, and too much of that peak
// given back. Losing trades never exit through this path.
func (t *Tracker) givebackExit(trade *models.ActiveTrade) bool {
	if trade.Status != models.TradeEvaluating && trade.Status != models.TradeAtBreakeven {
		return false
	}
	if trade.CurrentProfitPct <= 0 || trade.CurrentProfitPct < t.cfg.MinCurrentPct {
		return false
	}
	if trade.PeakProfitPct < t.cfg.MinPeakPct {
		return false
	}
	return trade.Giveback() > t.cfg.MaxGiveback
}

// Close removes the trade from the registry and returns its final
// state with the reason recorded.
func (t *Tracker) Close(symbol string, reason models.ExitReason, now time.Time) (*models.ActiveTrade, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	trade, ok := t.trades[symbol]
	if !ok {
		return nil, errors.Wrapf(errors.ErrTradeNotFound, "symbol %s", symbol)
	}
	delete(t.trades, symbol)

	trade.Status = models.TradeClosed
	trade.ClosedAt = now
	trade.ExitReason = reason

	t.logger.Info().
		Str("symbol", symbol).
		Str("reason", string(reason)).
		Float64("profit_pct", trade.CurrentProfitPct).
		Msg("trade closed")
	return trade, nil
}

// Active returns the symbols with open trades.
func (t *Tracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.trades))
	for sym := range t.trades {
		out = append(out, sym)
	}
	return out
}

func (t *Tracker) grace(tf models.Timeframe) time.Duration {
	if tf.IsIntraday() {
		return t.cfg.GraceIntraday
	}
	return t.cfg.GraceDaily
}
