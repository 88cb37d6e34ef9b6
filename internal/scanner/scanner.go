// Package scanner wires the evaluation pipeline: regime
// classification, strategy orchestration, quality filtering, conflict
// resolution, trade lifecycle tracking and health guarding.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/conflict"
	"market-scanner/internal/filter"
	"market-scanner/internal/health"
	"market-scanner/internal/lifecycle"
	"market-scanner/internal/logging"
	"market-scanner/internal/models"
	"market-scanner/internal/notify"
	"market-scanner/internal/orchestrator"
	"market-scanner/internal/regime"
	"market-scanner/internal/store"
	"market-scanner/internal/strategy"
)

// SnapshotProvider is the market-data collaborator. Snapshot returns
// the latest validated candle window plus indicators; LastPrice
// returns the latest traded price for lifecycle updates.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, symbol string, tf models.Timeframe) (*models.MarketSnapshot, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// Scanner runs the full pipeline for one snapshot at a time,
// serialized per symbol.
type Scanner struct {
	registry   *strategy.Registry
	orch       *orchestrator.Orchestrator
	thresholds regime.Thresholds
	filter     *filter.QualityFilter
	resolver   *conflict.Resolver
	tracker    *lifecycle.Tracker
	guard      *health.Guard
	notifier   notify.Notifier
	store      store.Store
	logger     zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Deps bundles the pipeline components the scanner coordinates.
type Deps struct {
	Registry   *strategy.Registry
	Orch       *orchestrator.Orchestrator
	Thresholds regime.Thresholds
	Filter     *filter.QualityFilter
	Resolver   *conflict.Resolver
	Tracker    *lifecycle.Tracker
	Guard      *health.Guard
	Notifier   notify.Notifier
	Store      store.Store
}

// New creates a scanner. Nil Notifier and Store fall back to no-ops.
func New(deps Deps, logger zerolog.Logger) *Scanner {
	if deps.Notifier == nil {
		deps.Notifier = notify.NewNoOpNotifier()
	}
	if deps.Store == nil {
		deps.Store = store.NewNopStore()
	}
	return &Scanner{
		registry:   deps.Registry,
		orch:       deps.Orch,
		thresholds: deps.Thresholds,
		filter:     deps.Filter,
		resolver:   deps.Resolver,
		tracker:    deps.Tracker,
		guard:      deps.Guard,
		notifier:   deps.Notifier,
		store:      deps.Store,
		logger:     logger.With().Str("component", "scanner").Logger(),
		locks:      make(map[string]*sync.Mutex),
	}
}

// symbolLock returns the mutex serializing evaluations for a symbol.
func (s *Scanner) symbolLock(symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		s.locks[symbol] = l
	}
	return l
}

// EvaluateSnapshot runs one snapshot through the pipeline and returns
// the confirmed signal if one was emitted. Overlapping evaluations for
// the same symbol are serialized; different symbols never block each
// other.
func (s *Scanner) EvaluateSnapshot(ctx context.Context, snap *models.MarketSnapshot, now time.Time) (*models.ConfirmedSignal, error) {
	lock := s.symbolLock(snap.Symbol)
	lock.Lock()
	defer lock.Unlock()

	if s.guard.IsPaused(snap.Symbol) {
		return nil, nil
	}

	if !snap.Valid() {
		s.logger.Warn().
			Str("symbol", snap.Symbol).
			Str("timeframe", string(snap.Timeframe)).
			Str("reason", snap.InvalidReason()).
			Msg("invalid snapshot")
		s.recordFailure(ctx, snap.Symbol, snap.InvalidReason(), now)
		return nil, nil
	}

	label := regime.FromSnapshot(snap, s.thresholds)

	candidate, detectorErrs := s.orch.Scan(snap, label)
	if detectorErrs > 0 {
		s.recordFailure(ctx, snap.Symbol, "detector failure", now)
	} else {
		s.guard.Success(snap.Symbol)
	}
	if candidate == nil {
		return nil, nil
	}

	params := s.registry.Params(candidate.Strategy, candidate.Symbol)
	confirmed, rejection := s.filter.Evaluate(candidate, filter.EvalContext{
		Regime:        label,
		Now:           now,
		MinConfluence: params.MinConfluence,
	})
	if rejection != nil {
		s.saveRejection(ctx, candidate, rejection, now)
		return nil, nil
	}

	if rejection := s.resolver.Check(confirmed, now); rejection != nil {
		s.saveRejection(ctx, candidate, rejection, now)
		return nil, nil
	}

	if err := s.store.SaveSignal(ctx, confirmed); err != nil {
		s.logger.Error().Err(err).Str("symbol", confirmed.Symbol).Msg("persisting signal failed")
	}
	if err := s.notifier.SignalConfirmed(ctx, confirmed); err != nil {
		s.logger.Error().Err(err).Str("symbol", confirmed.Symbol).Msg("signal notification failed")
	}

	if _, err := s.tracker.Open(confirmed, now); err != nil {
		// The resolver already blocks signals against open trades; a
		// failure here indicates a race lost to another timeframe.
		s.logger.Warn().Err(err).Str("symbol", confirmed.Symbol).Msg("trade not opened")
	}

	logging.LogSignal(logging.WithRegime(s.logger, label), confirmed)
	return confirmed, nil
}

// UpdateTrade feeds the latest price to the symbol's open trade and
// delivers any exit signal. A missing trade is not an error here.
func (s *Scanner) UpdateTrade(ctx context.Context, symbol string, price float64, now time.Time) (*models.ExitSignal, error) {
	lock := s.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := s.tracker.OpenTrade(symbol); !ok {
		return nil, nil
	}

	exit, err := s.tracker.UpdatePrice(symbol, price, now)
	if err != nil {
		return nil, err
	}
	if exit == nil {
		return nil, nil
	}

	logging.LogExit(s.logger, exit)
	if err := s.notifier.TradeExit(ctx, exit); err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("exit notification failed")
	}
	return exit, nil
}

// CloseTrade finalizes the symbol's trade and persists the outcome.
func (s *Scanner) CloseTrade(ctx context.Context, symbol string, reason models.ExitReason, now time.Time) error {
	lock := s.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	trade, err := s.tracker.Close(symbol, reason, now)
	if err != nil {
		return err
	}
	if err := s.store.SaveClosedTrade(ctx, trade); err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("persisting closed trade failed")
	}
	return nil
}

// ResumeSymbol clears a health pause, typically from an operator
// action.
func (s *Scanner) ResumeSymbol(ctx context.Context, symbol string, now time.Time) bool {
	resumed := s.guard.Resume(symbol, now)
	if resumed {
		if err := s.store.SaveHealthEvent(ctx, symbol, false, 0, "", now); err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("persisting health event failed")
		}
	}
	return resumed
}

// SeedHistory warms the filter's signal history from persisted
// signals, restoring duplicate suppression across restarts.
func (s *Scanner) SeedHistory(ctx context.Context, symbols []string, now time.Time) error {
	for _, symbol := range symbols {
		records, err := s.store.RecentSignals(ctx, symbol, now.Add(-24*time.Hour))
		if err != nil {
			return err
		}
		for _, r := range records {
			s.filter.History().Record(filter.Entry{
				Symbol:    r.Symbol,
				Timeframe: r.Timeframe,
				Direction: r.Direction,
				Entry:     r.Entry,
				Strategy:  r.Strategy,
				CreatedAt: r.CreatedAt,
			}, now)
		}
	}
	return nil
}

func (s *Scanner) recordFailure(ctx context.Context, symbol, reason string, now time.Time) {
	if paused := s.guard.Failure(symbol, reason, now); paused {
		if err := s.store.SaveHealthEvent(ctx, symbol, true, 0, reason, now); err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("persisting health event failed")
		}
	}
}

func (s *Scanner) saveRejection(ctx context.Context, c *models.CandidateSignal, rej *models.Rejection, now time.Time) {
	logging.LogRejection(s.logger, c, rej)
	if err := s.store.SaveRejection(ctx, c.Symbol, c.Timeframe, c.Strategy, rej, now); err != nil {
		s.logger.Error().Err(err).Str("symbol", c.Symbol).Msg("persisting rejection failed")
	}
}
