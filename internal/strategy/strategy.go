// Package strategy provides the pattern-detection strategies and their
// registry. Detectors are pure functions over a market snapshot: no
// I/O, no hidden state, deterministic for identical input.
package strategy

import (
	"fmt"
	"sync"

	"market-scanner/internal/errors"
	"market-scanner/internal/models"
)

// Strategy identifiers.
const (
	TrendAlignment = "trend_alignment"
	MeanReversion  = "mean_reversion"
	LevelReaction  = "level_reaction"
	Breakout       = "breakout"
)

// Detector is the uniform strategy contract. Detect returns (nil, nil)
// when no setup is present, and an error only for data-quality
// problems (insufficient history, missing indicator). It never panics
// on bad market data; misconfiguration surfaces at registration time.
type Detector interface {
	Name() string
	Detect(snap *models.MarketSnapshot, p Params) (*models.CandidateSignal, error)
}

// Params holds the per-asset, per-strategy tunables. All fields are
// explicit; nothing defaults silently inside detector logic.
type Params struct {
	MinHistory int

	// Volatility-scaled exit distances, in ATR multiples.
	StopATR   float64
	TargetATR float64

	// Volume confirmation: last volume must reach this multiple of the
	// volume moving average.
	VolumeMultiple float64

	// Momentum oscillator bands (RSI-like, 0..100).
	MomentumBullMin    float64
	MomentumBearMax    float64
	MomentumOversold   float64
	MomentumOverbought float64
	NeutralBandLow     float64
	NeutralBandHigh    float64

	// Mean-reversion: minimum distance from fair value, in ATRs.
	DeviationATR float64

	// Level-reaction.
	LevelTolerancePct  float64
	LevelLookback      int
	SwingStrength      int
	MinLevelTouches    int
	StrongLevelTouches int

	// Breakout range window.
	RangeLookback int

	// Minimum confluence factors the quality filter requires for this
	// asset/strategy pair.
	MinConfluence int
}

// DefaultParams returns the baseline parameter set.
func DefaultParams() Params {
	return Params{
		MinHistory:         50,
		StopATR:            1.5,
		TargetATR:          3.0,
		VolumeMultiple:     1.2,
		MomentumBullMin:    55,
		MomentumBearMax:    45,
		MomentumOversold:   30,
		MomentumOverbought: 70,
		NeutralBandLow:     40,
		NeutralBandHigh:    60,
		DeviationATR:       2.0,
		LevelTolerancePct:  0.3,
		LevelLookback:      100,
		SwingStrength:      3,
		MinLevelTouches:    2,
		StrongLevelTouches: 3,
		RangeLookback:      20,
		MinConfluence:      4,
	}
}

// Validate checks the parameter set for programmer error.
func (p Params) Validate() error {
	if p.MinHistory <= 0 {
		return errors.NewValidationError("min_history", p.MinHistory, "must be positive")
	}
	if p.StopATR <= 0 || p.TargetATR <= 0 {
		return errors.NewValidationError("atr_multiples", p, "stop and target ATR multiples must be positive")
	}
	if p.VolumeMultiple <= 0 {
		return errors.NewValidationError("volume_multiple", p.VolumeMultiple, "must be positive")
	}
	if p.MinConfluence < 1 {
		return errors.NewValidationError("min_confluence", p.MinConfluence, "must be at least 1")
	}
	if p.NeutralBandLow >= p.NeutralBandHigh {
		return errors.NewValidationError("neutral_band", p, "low bound must be below high bound")
	}
	return nil
}

// Registry holds detector implementations plus per-asset parameter
// overrides. The orchestrator depends only on this registry and the
// Detector interface.
type Registry struct {
	mu        sync.RWMutex
	detectors map[string]Detector
	enabled   map[string]bool
	defaults  map[string]Params
	overrides map[string]map[string]Params // strategy -> symbol -> params
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		detectors: make(map[string]Detector),
		enabled:   make(map[string]bool),
		defaults:  make(map[string]Params),
		overrides: make(map[string]map[string]Params),
	}
}

// NewDefaultRegistry returns a registry with all built-in detectors
// registered and enabled under default parameters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	p := DefaultParams()
	// Registration with validated defaults cannot fail.
	_ = r.Register(NewTrendAlignmentDetector(), p)
	_ = r.Register(NewMeanReversionDetector(), p)
	_ = r.Register(NewLevelReactionDetector(), p)
	_ = r.Register(NewBreakoutDetector(), p)
	return r
}

// Register adds a detector with its default parameters and enables it.
func (r *Registry) Register(d Detector, p Params) error {
	if err := p.Validate(); err != nil {
		return errors.Wrapf(err, "registering %s", d.Name())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.detectors[d.Name()]; exists {
		return fmt.Errorf("strategy %s already registered", d.Name())
	}
	r.detectors[d.Name()] = d
	r.defaults[d.Name()] = p
	r.enabled[d.Name()] = true
	return nil
}

// SetDefaults replaces the strategy-wide default parameters.
func (r *Registry) SetDefaults(strategy string, p Params) error {
	if err := p.Validate(); err != nil {
		return errors.Wrapf(err, "defaults %s", strategy)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.detectors[strategy]; !ok {
		return errors.Wrapf(errors.ErrStrategyUnknown, "defaults %s", strategy)
	}
	r.defaults[strategy] = p
	return nil
}

// SetOverride installs symbol-specific parameters for a strategy.
func (r *Registry) SetOverride(strategy, symbol string, p Params) error {
	if err := p.Validate(); err != nil {
		return errors.Wrapf(err, "override %s/%s", strategy, symbol)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.detectors[strategy]; !ok {
		return errors.Wrapf(errors.ErrStrategyUnknown, "override %s", strategy)
	}
	if r.overrides[strategy] == nil {
		r.overrides[strategy] = make(map[string]Params)
	}
	r.overrides[strategy][symbol] = p
	return nil
}

// SetEnabled toggles a strategy on or off.
func (r *Registry) SetEnabled(strategy string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.detectors[strategy]; !ok {
		return errors.Wrapf(errors.ErrStrategyUnknown, "toggle %s", strategy)
	}
	r.enabled[strategy] = enabled
	return nil
}

// IsEnabled reports whether a strategy is enabled.
func (r *Registry) IsEnabled(strategy string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[strategy]
}

// Detector returns the detector for the given strategy id.
func (r *Registry) Detector(strategy string) (Detector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.detectors[strategy]
	return d, ok
}

// Params resolves the effective parameters for a strategy and symbol:
// the symbol override when present, otherwise the strategy defaults.
func (r *Registry) Params(strategy, symbol string) Params {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if bySymbol, ok := r.overrides[strategy]; ok {
		if p, ok := bySymbol[symbol]; ok {
			return p
		}
	}
	return r.defaults[strategy]
}

// Strategies returns the registered strategy ids in registration-
// independent (sorted by the caller if needed) order.
func (r *Registry) Strategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		out = append(out, name)
	}
	return out
}
