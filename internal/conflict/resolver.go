// Package conflict suppresses confirmed signals that oppose a
// higher-priority signal or an open trade on the same symbol.
package conflict

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/models"
)

// TradeView is the read side of the trade registry the resolver
// consults. Implemented by the lifecycle tracker.
type TradeView interface {
	// OpenTrade returns the active trade for the symbol, if any.
	OpenTrade(symbol string) (*models.ActiveTrade, bool)
}

// CrossSymbolCheck is an optional extension point for correlated
// symbol conflicts. A non-empty return detail suppresses the signal.
type CrossSymbolCheck func(sig *models.ConfirmedSignal) (detail string, conflict bool)

// Config controls signal validity windows.
type Config struct {
	// ValidityBars is how many bars of its own timeframe a tracked
	// signal stays active for conflict purposes.
	ValidityBars int
}

// DefaultConfig returns the stock resolver settings.
func DefaultConfig() Config {
	return Config{ValidityBars: 6}
}

// Validate checks the resolver settings.
func (c Config) Validate() error {
	if c.ValidityBars < 1 {
		return fmt.Errorf("validity_bars must be at least 1")
	}
	return nil
}

type tracked struct {
	timeframe models.Timeframe
	direction models.Direction
	strategy  string
	expiresAt time.Time
}

// Resolver tracks recent confirmed signals per symbol across
// timeframes and decides whether a new signal may be emitted.
type Resolver struct {
	cfg    Config
	trades TradeView
	cross  CrossSymbolCheck
	logger zerolog.Logger

	mu     sync.Mutex
	active map[string][]tracked
}

// New creates a resolver. trades may be nil until SetTradeView is
// called during wiring.
func New(cfg Config, trades TradeView, logger zerolog.Logger) *Resolver {
	return &Resolver{
		cfg:    cfg,
		trades: trades,
		logger: logger.With().Str("component", "conflict").Logger(),
		active: make(map[string][]tracked),
	}
}

// SetTradeView wires the trade registry after construction, breaking
// the resolver/tracker initialization cycle.
func (r *Resolver) SetTradeView(trades TradeView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = trades
}

// SetCrossSymbolCheck installs the optional correlated-symbol hook.
func (r *Resolver) SetCrossSymbolCheck(check CrossSymbolCheck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cross = check
}

// Check decides whether the confirmed signal may be emitted. A nil
// rejection means accepted, and the signal is tracked for future
// conflict checks. The check spans all timeframes of the symbol under
// one short-lived lock.
func (r *Resolver) Check(sig *models.ConfirmedSignal, now time.Time) *models.Rejection {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.trades != nil {
		if trade, ok := r.trades.OpenTrade(sig.Symbol); ok {
			if trade.Direction != sig.Direction && trade.Timeframe.Priority() >= sig.Timeframe.Priority() {
				return r.suppress(sig, trade.Timeframe, trade.Direction, "open trade")
			}
			// One active trade per symbol: a same-direction or
			// lower-priority signal still cannot open a second one.
			return r.rejectTradeOpen(sig, trade)
		}
	}

	live := r.pruneLocked(sig.Symbol, now)
	for _, t := range live {
		if t.direction != sig.Direction && t.timeframe.Priority() >= sig.Timeframe.Priority() {
			return r.suppress(sig, t.timeframe, t.direction, "active signal")
		}
	}

	if r.cross != nil {
		if detail, conflict := r.cross(sig); conflict {
			r.logger.Info().
				Str("symbol", sig.Symbol).
				Str("detail", detail).
				Msg("signal suppressed by cross-symbol check")
			return &models.Rejection{Reason: models.RejectConflict, Detail: detail}
		}
	}

	r.active[sig.Symbol] = append(live, tracked{
		timeframe: sig.Timeframe,
		direction: sig.Direction,
		strategy:  sig.Strategy,
		expiresAt: now.Add(time.Duration(r.cfg.ValidityBars) * sig.Timeframe.Duration()),
	})
	return nil
}

func (r *Resolver) suppress(sig *models.ConfirmedSignal, tf models.Timeframe, dir models.Direction, source string) *models.Rejection {
	detail := fmt.Sprintf("opposing %s %s on %s", string(dir), source, string(tf))
	r.logger.Info().
		Str("symbol", sig.Symbol).
		Str("timeframe", string(sig.Timeframe)).
		Str("direction", string(sig.Direction)).
		Str("conflict_timeframe", string(tf)).
		Str("conflict_direction", string(dir)).
		Str("conflict_source", source).
		Msg("signal suppressed")
	return &models.Rejection{Reason: models.RejectConflict, Detail: detail}
}

func (r *Resolver) rejectTradeOpen(sig *models.ConfirmedSignal, trade *models.ActiveTrade) *models.Rejection {
	detail := fmt.Sprintf("%s trade already open on %s", string(trade.Direction), string(trade.Timeframe))
	r.logger.Info().
		Str("symbol", sig.Symbol).
		Str("timeframe", string(sig.Timeframe)).
		Str("direction", string(sig.Direction)).
		Str("trade_direction", string(trade.Direction)).
		Msg("signal rejected, trade open")
	return &models.Rejection{Reason: models.RejectTradeOpen, Detail: detail}
}

func (r *Resolver) pruneLocked(symbol string, now time.Time) []tracked {
	entries := r.active[symbol]
	keep := entries[:0]
	for _, t := range entries {
		if now.Before(t.expiresAt) {
			keep = append(keep, t)
		}
	}
	if len(keep) == 0 {
		delete(r.active, symbol)
		return nil
	}
	r.active[symbol] = keep
	return keep
}
