package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/health"
	"market-scanner/internal/logging"
	"market-scanner/internal/models"
)

// Schedule describes what the scheduler evaluates and how often.
type Schedule struct {
	Symbols    []string
	Timeframes []models.Timeframe
	Poll       time.Duration
}

// Scheduler runs each symbol/timeframe pair on its own ticker. A slow
// evaluation for one symbol never blocks another; overlapping ticks
// for the same symbol serialize inside the scanner.
type Scheduler struct {
	scanner  *Scanner
	provider SnapshotProvider
	schedule Schedule
	events   <-chan health.Event
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler. events may be nil when health
// notifications are not wired.
func NewScheduler(s *Scanner, provider SnapshotProvider, schedule Schedule, events <-chan health.Event, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		scanner:  s,
		provider: provider,
		schedule: schedule,
		events:   events,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run blocks until ctx is cancelled, evaluating every symbol/timeframe
// pair on its poll cadence and feeding prices to open trades.
func (sch *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, symbol := range sch.schedule.Symbols {
		for _, tf := range sch.schedule.Timeframes {
			wg.Add(1)
			go func(symbol string, tf models.Timeframe) {
				defer wg.Done()
				sch.evalLoop(ctx, symbol, tf)
			}(symbol, tf)
		}

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sch.priceLoop(ctx, symbol)
		}(symbol)
	}

	if sch.events != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sch.healthLoop(ctx)
		}()
	}

	wg.Wait()
}

func (sch *Scheduler) evalLoop(ctx context.Context, symbol string, tf models.Timeframe) {
	logger := logging.WithTimeframe(logging.WithSymbol(sch.logger, symbol), tf)
	ticker := time.NewTicker(sch.schedule.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			snap, err := sch.provider.Snapshot(ctx, symbol, tf)
			if err != nil {
				logger.Warn().Err(err).Msg("snapshot fetch failed")
				continue
			}
			if _, err := sch.scanner.EvaluateSnapshot(ctx, snap, now); err != nil {
				logger.Error().Err(err).Msg("evaluation failed")
			}
		}
	}
}

// priceLoop polls the latest price for lifecycle updates. It runs at
// the same cadence as evaluations; the tracker's own cooldown and
// grace rules decide whether anything happens.
func (sch *Scheduler) priceLoop(ctx context.Context, symbol string) {
	logger := logging.WithSymbol(sch.logger, symbol)
	ticker := time.NewTicker(sch.schedule.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			price, err := sch.provider.LastPrice(ctx, symbol)
			if err != nil {
				continue
			}
			if _, err := sch.scanner.UpdateTrade(ctx, symbol, price, now); err != nil {
				logger.Warn().Err(err).Msg("trade update failed")
			}
		}
	}
}

func (sch *Scheduler) healthLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sch.events:
			if err := sch.scanner.notifier.HealthChanged(ctx, event); err != nil {
				sch.logger.Error().
					Err(err).
					Str("symbol", event.Symbol).
					Msg("health notification failed")
			}
		}
	}
}
