// Package health pauses symbols whose evaluations keep failing.
package health

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/logging"
)

// Config controls the consecutive-failure pause threshold.
type Config struct {
	FailureThreshold int
}

// DefaultConfig returns the stock guard settings.
func DefaultConfig() Config {
	return Config{FailureThreshold: 3}
}

// Validate checks the guard settings.
func (c Config) Validate() error {
	if c.FailureThreshold < 1 {
		return fmt.Errorf("failure_threshold must be at least 1")
	}
	return nil
}

// Event is a pause or resume notification for the operations layer.
type Event struct {
	Symbol   string
	Paused   bool
	Failures int
	Reason   string
	At       time.Time
}

type symbolState struct {
	failures   int
	paused     bool
	lastReason string
	pausedAt   time.Time
}

// Guard counts consecutive evaluation failures per symbol and pauses
// the symbol at the threshold. Only an explicit Resume clears a pause;
// a later success does not.
type Guard struct {
	cfg    Config
	logger zerolog.Logger
	events chan<- Event

	mu      sync.Mutex
	symbols map[string]*symbolState
}

// New creates a guard. events may be nil when no operations consumer
// is wired; sends never block either way.
func New(cfg Config, logger zerolog.Logger, events chan<- Event) *Guard {
	return &Guard{
		cfg:     cfg,
		logger:  logger.With().Str("component", "health").Logger(),
		events:  events,
		symbols: make(map[string]*symbolState),
	}
}

// Failure records a failed evaluation for the symbol and returns true
// if this failure triggered a pause.
func (g *Guard) Failure(symbol, reason string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(symbol)
	if st.paused {
		return false
	}
	st.failures++
	st.lastReason = reason

	if st.failures < g.cfg.FailureThreshold {
		g.logger.Warn().
			Str("symbol", symbol).
			Int("failures", st.failures).
			Str("reason", reason).
			Msg("evaluation failure")
		return false
	}

	st.paused = true
	st.pausedAt = now
	logging.LogPause(g.logger, symbol, st.failures, reason)
	g.emit(Event{Symbol: symbol, Paused: true, Failures: st.failures, Reason: reason, At: now})
	return true
}

// Success records a successful evaluation, resetting the failure
// count. A paused symbol stays paused.
func (g *Guard) Success(symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(symbol)
	if st.paused {
		return
	}
	st.failures = 0
}

// IsPaused reports whether the symbol is currently paused.
func (g *Guard) IsPaused(symbol string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.symbols[symbol]
	return ok && st.paused
}

// Resume clears a pause. Returns false when the symbol was not paused.
func (g *Guard) Resume(symbol string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.symbols[symbol]
	if !ok || !st.paused {
		return false
	}
	st.paused = false
	st.failures = 0

	logging.LogResume(g.logger, symbol)
	g.emit(Event{Symbol: symbol, Paused: false, At: now})
	return true
}

// Paused returns the currently paused symbols.
func (g *Guard) Paused() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for sym, st := range g.symbols {
		if st.paused {
			out = append(out, sym)
		}
	}
	return out
}

func (g *Guard) state(symbol string) *symbolState {
	st, ok := g.symbols[symbol]
	if !ok {
		st = &symbolState{}
		g.symbols[symbol] = st
	}
	return st
}

func (g *Guard) emit(e Event) {
	if g.events == nil {
		return
	}
	select {
	case g.events <- e:
	default:
		g.logger.Warn().Str("symbol", e.Symbol).Msg("health event dropped, consumer slow")
	}
}
