// Package filter scores candidate signals for quality: confluence
// counting, confidence mapping, risk-reward validation, and duplicate
// suppression against recent signal history.
package filter

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/models"
	"market-scanner/internal/orchestrator"
	"market-scanner/pkg/utils"
)

// Config holds the quality thresholds.
type Config struct {
	// MinConfluence is the default minimum satisfied-factor count.
	// A per-strategy value in EvalContext overrides it.
	MinConfluence int

	// MinRR rejects outright; GoodRR is the lower edge of the neutral
	// band (below it confidence drops one point); HighRR and above
	// adds one point.
	MinRR  float64
	GoodRR float64
	HighRR float64

	// DuplicateWindow is how long a confirmed signal suppresses
	// near-identical successors. TolerancePct is the entry-price
	// proximity that makes any successor near-identical; between it
	// and OverrideMovePct only a re-fire of the same strategy is
	// suppressed; a move beyond OverrideMovePct lifts the time-window
	// suppression entirely.
	DuplicateWindow time.Duration
	TolerancePct    float64
	OverrideMovePct float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfluence:   4,
		MinRR:           1.2,
		GoodRR:          1.5,
		HighRR:          2.5,
		DuplicateWindow: 60 * time.Minute,
		TolerancePct:    0.5,
		OverrideMovePct: 1.5,
	}
}

// Validate checks the thresholds for internal consistency.
func (c Config) Validate() error {
	if c.MinConfluence < 1 || c.MinConfluence > len(models.FactorUniverse()) {
		return fmt.Errorf("min_confluence %d out of range", c.MinConfluence)
	}
	if c.MinRR <= 0 || c.GoodRR < c.MinRR || c.HighRR < c.GoodRR {
		return fmt.Errorf("risk-reward bands must satisfy 0 < min <= good <= high")
	}
	if c.DuplicateWindow <= 0 {
		return fmt.Errorf("duplicate_window must be positive")
	}
	if c.TolerancePct <= 0 || c.OverrideMovePct < c.TolerancePct {
		return fmt.Errorf("override_move_pct must be >= tolerance_pct > 0")
	}
	return nil
}

// EvalContext carries per-evaluation inputs the candidate itself does
// not know: the prevailing regime, whether the producing strategy is
// preferred for it, and the evaluation clock.
type EvalContext struct {
	Regime models.RegimeLabel
	Now    time.Time

	// MinConfluence, when positive, overrides Config.MinConfluence
	// for this evaluation (per-asset/strategy tuning).
	MinConfluence int
}

// QualityFilter owns the signal history and decides acceptance.
type QualityFilter struct {
	cfg     Config
	history *History
	logger  zerolog.Logger
}

// New creates a quality filter with its own history.
func New(cfg Config, history *History, logger zerolog.Logger) *QualityFilter {
	return &QualityFilter{
		cfg:     cfg,
		history: history,
		logger:  logger.With().Str("component", "filter").Logger(),
	}
}

// History exposes the filter-owned history for agreement lookups.
func (f *QualityFilter) History() *History {
	return f.history
}

// Evaluate scores a candidate and either returns a confirmed signal or
// a rejection. Exactly one of the results is non-nil.
func (f *QualityFilter) Evaluate(c *models.CandidateSignal, ctx EvalContext) (*models.ConfirmedSignal, *models.Rejection) {
	factors := c.Factors.Clone()

	if f.history.HasAgreement(c.Symbol, c.Direction, c.Timeframe, ctx.Now) {
		factors.Add(models.FactorMTFAgreement)
	}
	if orchestrator.IsPreferred(ctx.Regime, c.Strategy) {
		factors.Add(models.FactorVolatilityFit)
	}

	minConfluence := f.cfg.MinConfluence
	if ctx.MinConfluence > 0 {
		minConfluence = ctx.MinConfluence
	}
	if factors.Count() < minConfluence {
		return nil, f.reject(c, models.RejectInsufficientConfluence,
			fmt.Sprintf("%d of %d required factors", factors.Count(), minConfluence))
	}

	confidence := confidenceFromCount(factors.Count())

	rr := c.RiskReward()
	switch {
	case rr < f.cfg.MinRR:
		return nil, f.reject(c, models.RejectRiskRewardTooLow,
			fmt.Sprintf("rr %.2f below minimum %.2f", rr, f.cfg.MinRR))
	case rr >= f.cfg.HighRR:
		confidence = utils.ClampInt(confidence+1, 1, 5)
	case rr < f.cfg.GoodRR:
		confidence = utils.ClampInt(confidence-1, 1, 5)
	}

	if prior, ok := f.history.RecentMatch(c.Symbol, c.Direction, f.cfg.DuplicateWindow, ctx.Now); ok {
		moved := utils.PctDiff(prior.Entry, c.Entry)
		duplicate := moved <= f.cfg.TolerancePct ||
			(prior.Strategy == c.Strategy && moved <= f.cfg.OverrideMovePct)
		if duplicate {
			f.history.Record(Entry{
				Symbol:    c.Symbol,
				Timeframe: c.Timeframe,
				Direction: c.Direction,
				Entry:     c.Entry,
				Strategy:  c.Strategy,
				CreatedAt: ctx.Now,
				Duplicate: true,
			}, ctx.Now)
			return nil, f.reject(c, models.RejectDuplicate,
				fmt.Sprintf("prior %s entry %.2f at %s, moved %.2f%%",
					prior.Strategy, prior.Entry, prior.CreatedAt.Format(time.RFC3339), moved))
		}
	}

	sig := &models.ConfirmedSignal{
		CandidateSignal: *c,
		Confidence:      confidence,
		RR:              rr,
		CreatedAt:       ctx.Now,
	}
	sig.Factors = factors

	f.history.Record(Entry{
		Symbol:    sig.Symbol,
		Timeframe: sig.Timeframe,
		Direction: sig.Direction,
		Entry:     sig.Entry,
		Strategy:  sig.Strategy,
		CreatedAt: ctx.Now,
	}, ctx.Now)

	return sig, nil
}

func (f *QualityFilter) reject(c *models.CandidateSignal, reason models.RejectReason, detail string) *models.Rejection {
	r := &models.Rejection{Reason: reason, Detail: detail}
	f.logger.Info().
		Str("symbol", c.Symbol).
		Str("timeframe", string(c.Timeframe)).
		Str("strategy", c.Strategy).
		Str("direction", string(c.Direction)).
		Str("reason", string(reason)).
		Str("detail", detail).
		Msg("signal rejected")
	return r
}

// confidenceFromCount maps the satisfied-factor count to a 1..5 score.
// Monotonic: more factors never score lower.
func confidenceFromCount(count int) int {
	switch {
	case count <= 3:
		return 2
	case count == 4:
		return 3
	case count == 5:
		return 4
	default:
		return 5
	}
}
