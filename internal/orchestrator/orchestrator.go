// Package orchestrator selects which strategies to run for a market
// snapshot based on the prevailing regime and returns the first
// candidate signal produced by the priority-ordered detectors.
package orchestrator

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/models"
	"market-scanner/internal/strategy"
)

// defaultPriorities maps each regime to the strategy execution order.
// Earlier entries win: the first detector to produce a candidate stops
// the scan for that snapshot.
var defaultPriorities = map[models.RegimeLabel][]string{
	models.RegimeTrending: {
		strategy.TrendAlignment,
		strategy.Breakout,
		strategy.LevelReaction,
	},
	models.RegimeHighVol: {
		strategy.Breakout,
		strategy.TrendAlignment,
		strategy.LevelReaction,
	},
	models.RegimeRanging: {
		strategy.MeanReversion,
		strategy.LevelReaction,
		strategy.Breakout,
	},
	models.RegimeLowVol: {
		strategy.MeanReversion,
		strategy.LevelReaction,
	},
}

// preferred marks the strategies considered a natural fit for a
// regime. The quality filter credits signals from a preferred strategy
// with the volatility-fit confluence factor.
var preferred = map[models.RegimeLabel]map[string]bool{
	models.RegimeTrending: {strategy.TrendAlignment: true, strategy.Breakout: true},
	models.RegimeHighVol:  {strategy.Breakout: true, strategy.TrendAlignment: true},
	models.RegimeRanging:  {strategy.MeanReversion: true, strategy.LevelReaction: true},
	models.RegimeLowVol:   {strategy.MeanReversion: true, strategy.LevelReaction: true},
}

// StrategyStats accumulates per-strategy execution counters.
type StrategyStats struct {
	Runs       int64
	Signals    int64
	Errors     int64
	TotalTime  time.Duration
	LastRun    time.Time
	LastSignal time.Time
}

// Orchestrator runs the regime-appropriate detectors in priority
// order. Detector failures are isolated: an erroring strategy is
// logged and skipped, never aborting the scan.
type Orchestrator struct {
	registry   *strategy.Registry
	priorities map[models.RegimeLabel][]string
	logger     zerolog.Logger

	mu    sync.Mutex
	stats map[string]*StrategyStats
}

// New creates an orchestrator around the given strategy registry using
// the default regime priority tables.
func New(registry *strategy.Registry, logger zerolog.Logger) *Orchestrator {
	priorities := make(map[models.RegimeLabel][]string, len(defaultPriorities))
	for regime, order := range defaultPriorities {
		priorities[regime] = append([]string(nil), order...)
	}
	return &Orchestrator{
		registry:   registry,
		priorities: priorities,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
		stats:      make(map[string]*StrategyStats),
	}
}

// SetPriorities replaces the execution order for a regime. Unknown
// strategy names are ignored at run time via the registry lookup.
func (o *Orchestrator) SetPriorities(regime models.RegimeLabel, order []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := make([]string, len(order))
	copy(cp, order)
	o.priorities[regime] = cp
}

// Priorities returns the execution order for a regime.
func (o *Orchestrator) Priorities(regime models.RegimeLabel) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	order := o.priorities[regime]
	cp := make([]string, len(order))
	copy(cp, order)
	return cp
}

// IsPreferred reports whether a strategy is a natural fit for the
// regime.
func IsPreferred(regime models.RegimeLabel, strategyName string) bool {
	return preferred[regime][strategyName]
}

// Scan runs the detectors for the snapshot's regime in priority order
// and returns the first candidate produced, or nil when no strategy
// finds a setup. detectorErrs counts strategies that failed and were
// skipped; the health guard treats those as failure outcomes.
func (o *Orchestrator) Scan(snap *models.MarketSnapshot, regime models.RegimeLabel) (sig *models.CandidateSignal, detectorErrs int) {
	for _, name := range o.Priorities(regime) {
		if !o.registry.IsEnabled(name) {
			continue
		}
		det, ok := o.registry.Detector(name)
		if !ok {
			continue
		}
		params := o.registry.Params(name, snap.Symbol)

		start := time.Now()
		candidate, err := det.Detect(snap, params)
		elapsed := time.Since(start)

		o.record(name, elapsed, candidate != nil, err != nil)

		if err != nil {
			detectorErrs++
			o.logger.Warn().
				Err(err).
				Str("strategy", name).
				Str("symbol", snap.Symbol).
				Str("timeframe", string(snap.Timeframe)).
				Msg("detector failed, skipping")
			continue
		}
		if candidate != nil {
			o.logger.Debug().
				Str("strategy", name).
				Str("symbol", candidate.Symbol).
				Str("direction", string(candidate.Direction)).
				Int("factors", candidate.Factors.Count()).
				Msg("candidate signal")
			return candidate, detectorErrs
		}
	}
	return nil, detectorErrs
}

func (o *Orchestrator) record(name string, elapsed time.Duration, signalled, errored bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.stats[name]
	if st == nil {
		st = &StrategyStats{}
		o.stats[name] = st
	}
	st.Runs++
	st.TotalTime += elapsed
	st.LastRun = time.Now()
	if signalled {
		st.Signals++
		st.LastSignal = st.LastRun
	}
	if errored {
		st.Errors++
	}
}

// Stats returns a copy of the per-strategy execution counters.
func (o *Orchestrator) Stats() map[string]StrategyStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]StrategyStats, len(o.stats))
	for name, st := range o.stats {
		out[name] = *st
	}
	return out
}
