package filter

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"market-scanner/internal/models"
)

var filterNow = time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)

func newTestFilter(cfg Config) *QualityFilter {
	return New(cfg, NewHistory(4*time.Hour, 7*24*time.Hour), zerolog.Nop())
}

// candidate builds a LONG candidate at entry 100 whose stop and target
// encode the wanted risk-reward.
func candidate(strategyName string, rr float64, factors ...models.ConfluenceFactor) *models.CandidateSignal {
	return &models.CandidateSignal{
		Symbol:     "RELIANCE",
		Timeframe:  models.Timeframe15Min,
		Strategy:   strategyName,
		Direction:  models.DirectionLong,
		Entry:      100,
		Stop:       99,
		Target:     100 + rr,
		Factors:    models.NewFactorSet(factors...),
		DetectedAt: filterNow,
	}
}

// neutralCtx is an evaluation context whose regime does not prefer the
// usual test strategy, so no volatility-fit factor is credited.
func neutralCtx() EvalContext {
	return EvalContext{Regime: models.RegimeTrending, Now: filterNow}
}

func TestEvaluateAccepts(t *testing.T) {
	f := newTestFilter(DefaultConfig())
	c := candidate("mean_reversion", 2.0,
		models.FactorLevel, models.FactorMomentum, models.FactorPattern, models.FactorVolume)

	sig, rej := f.Evaluate(c, neutralCtx())
	if rej != nil {
		t.Fatalf("rejected: %s %s", rej.Reason, rej.Detail)
	}
	if sig.Confidence != 3 {
		t.Errorf("confidence = %d, want 3 for four factors in the neutral rr band", sig.Confidence)
	}
	if sig.RR != 2.0 {
		t.Errorf("rr = %v, want 2.0", sig.RR)
	}
	if !sig.CreatedAt.Equal(filterNow) {
		t.Errorf("CreatedAt = %v, want evaluation clock", sig.CreatedAt)
	}
	if f.History().Len("RELIANCE", filterNow) != 1 {
		t.Error("accepted signal should be recorded in history")
	}
}

func TestEvaluateInsufficientConfluence(t *testing.T) {
	f := newTestFilter(DefaultConfig())
	c := candidate("mean_reversion", 2.0,
		models.FactorLevel, models.FactorMomentum, models.FactorPattern)

	sig, rej := f.Evaluate(c, neutralCtx())
	if sig != nil {
		t.Fatal("three factors must not pass the default threshold")
	}
	if rej.Reason != models.RejectInsufficientConfluence {
		t.Errorf("reason = %s, want %s", rej.Reason, models.RejectInsufficientConfluence)
	}
	if !strings.Contains(rej.Detail, "3 of 4") {
		t.Errorf("detail = %q, want the satisfied and required counts", rej.Detail)
	}
	if f.History().Len("RELIANCE", filterNow) != 0 {
		t.Error("rejection for confluence should not touch history")
	}
}

func TestEvaluateVolatilityFitCredit(t *testing.T) {
	f := newTestFilter(DefaultConfig())
	c := candidate("mean_reversion", 2.0,
		models.FactorLevel, models.FactorMomentum, models.FactorPattern)

	// Same three factors, but the regime prefers the strategy: the
	// volatility-fit credit lifts the count to the threshold.
	sig, rej := f.Evaluate(c, EvalContext{Regime: models.RegimeRanging, Now: filterNow})
	if rej != nil {
		t.Fatalf("rejected: %s %s", rej.Reason, rej.Detail)
	}
	if !sig.Factors.Has(models.FactorVolatilityFit) {
		t.Error("confirmed factors should include volatility_fit")
	}
	if c.Factors.Has(models.FactorVolatilityFit) {
		t.Error("candidate factor set must not be mutated")
	}
}

func TestEvaluateMTFAgreementCredit(t *testing.T) {
	f := newTestFilter(DefaultConfig())

	// A confirmed hourly long recorded earlier.
	f.History().Record(Entry{
		Symbol:    "RELIANCE",
		Timeframe: models.Timeframe1Hour,
		Direction: models.DirectionLong,
		Entry:     99.0,
		Strategy:  "trend_alignment",
		CreatedAt: filterNow.Add(-2 * time.Hour),
	}, filterNow)

	c := candidate("mean_reversion", 2.0,
		models.FactorLevel, models.FactorMomentum, models.FactorPattern)

	sig, rej := f.Evaluate(c, neutralCtx())
	if rej != nil {
		t.Fatalf("rejected: %s %s", rej.Reason, rej.Detail)
	}
	if !sig.Factors.Has(models.FactorMTFAgreement) {
		t.Error("confirmed factors should include mtf_agreement")
	}
}

func TestEvaluateMinConfluenceOverride(t *testing.T) {
	f := newTestFilter(DefaultConfig())
	c := candidate("mean_reversion", 2.0,
		models.FactorLevel, models.FactorMomentum, models.FactorPattern)

	ctx := neutralCtx()
	ctx.MinConfluence = 3
	sig, rej := f.Evaluate(c, ctx)
	if rej != nil {
		t.Fatalf("rejected: %s %s", rej.Reason, rej.Detail)
	}
	if sig.Confidence != 2 {
		t.Errorf("confidence = %d, want 2 for three factors", sig.Confidence)
	}
}

func TestEvaluateRiskRewardBands(t *testing.T) {
	four := []models.ConfluenceFactor{
		models.FactorLevel, models.FactorMomentum, models.FactorPattern, models.FactorVolume,
	}

	t.Run("below minimum rejects", func(t *testing.T) {
		f := newTestFilter(DefaultConfig())
		sig, rej := f.Evaluate(candidate("mean_reversion", 1.0, four...), neutralCtx())
		if sig != nil {
			t.Fatal("rr 1.0 must be rejected")
		}
		if rej.Reason != models.RejectRiskRewardTooLow {
			t.Errorf("reason = %s, want %s", rej.Reason, models.RejectRiskRewardTooLow)
		}
	})

	t.Run("marginal band drops a point", func(t *testing.T) {
		f := newTestFilter(DefaultConfig())
		sig, rej := f.Evaluate(candidate("mean_reversion", 1.3, four...), neutralCtx())
		if rej != nil {
			t.Fatalf("rejected: %s %s", rej.Reason, rej.Detail)
		}
		if sig.Confidence != 2 {
			t.Errorf("confidence = %d, want 3-1=2 in the marginal band", sig.Confidence)
		}
	})

	t.Run("high band adds a point", func(t *testing.T) {
		f := newTestFilter(DefaultConfig())
		sig, rej := f.Evaluate(candidate("mean_reversion", 3.0, four...), neutralCtx())
		if rej != nil {
			t.Fatalf("rejected: %s %s", rej.Reason, rej.Detail)
		}
		if sig.Confidence != 4 {
			t.Errorf("confidence = %d, want 3+1=4 in the high band", sig.Confidence)
		}
	})

	t.Run("high band caps at five", func(t *testing.T) {
		f := newTestFilter(DefaultConfig())
		all := append([]models.ConfluenceFactor{models.FactorTrend, models.FactorMTFAgreement}, four...)
		sig, rej := f.Evaluate(candidate("mean_reversion", 3.0, all...), neutralCtx())
		if rej != nil {
			t.Fatalf("rejected: %s %s", rej.Reason, rej.Detail)
		}
		if sig.Confidence != 5 {
			t.Errorf("confidence = %d, want cap of 5", sig.Confidence)
		}
	})
}

func TestEvaluateDuplicateSuppression(t *testing.T) {
	f := newTestFilter(DefaultConfig())
	four := []models.ConfluenceFactor{
		models.FactorLevel, models.FactorMomentum, models.FactorPattern, models.FactorVolume,
	}

	if _, rej := f.Evaluate(candidate("mean_reversion", 2.0, four...), neutralCtx()); rej != nil {
		t.Fatalf("first signal rejected: %s", rej.Reason)
	}

	// Ten minutes later, barely moved: duplicate.
	later := EvalContext{Regime: models.RegimeTrending, Now: filterNow.Add(10 * time.Minute)}
	near := candidate("trend_alignment", 2.0, four...)
	near.Entry, near.Stop, near.Target = 100.5, 99.5, 102.5
	sig, rej := f.Evaluate(near, later)
	if sig != nil {
		t.Fatal("near-identical successor must be suppressed")
	}
	if rej.Reason != models.RejectDuplicate {
		t.Errorf("reason = %s, want %s", rej.Reason, models.RejectDuplicate)
	}

	// Price moved well beyond the override threshold: a genuinely new
	// setup, allowed through inside the window.
	moved := candidate("trend_alignment", 2.0, four...)
	moved.Entry, moved.Stop, moved.Target = 103, 102, 105
	if sig, rej := f.Evaluate(moved, later); sig == nil {
		t.Fatalf("moved setup should pass: %s %s", rej.Reason, rej.Detail)
	}
}

func TestEvaluateDuplicateMiddleBand(t *testing.T) {
	four := []models.ConfluenceFactor{
		models.FactorLevel, models.FactorMomentum, models.FactorPattern, models.FactorVolume,
	}
	later := EvalContext{Regime: models.RegimeTrending, Now: filterNow.Add(10 * time.Minute)}

	// Between tolerance (0.5%) and override (1.5%): a re-fire of the
	// same strategy is still the same setup drifting with price.
	f := newTestFilter(DefaultConfig())
	if _, rej := f.Evaluate(candidate("mean_reversion", 2.0, four...), neutralCtx()); rej != nil {
		t.Fatalf("first signal rejected: %s", rej.Reason)
	}
	refire := candidate("mean_reversion", 2.0, four...)
	refire.Entry, refire.Stop, refire.Target = 101, 100, 103
	if sig, rej := f.Evaluate(refire, later); sig != nil {
		t.Fatal("same-strategy re-fire inside the override band must be suppressed")
	} else if rej.Reason != models.RejectDuplicate {
		t.Errorf("reason = %s, want %s", rej.Reason, models.RejectDuplicate)
	}

	// The same move from a different strategy is new information.
	f = newTestFilter(DefaultConfig())
	if _, rej := f.Evaluate(candidate("mean_reversion", 2.0, four...), neutralCtx()); rej != nil {
		t.Fatalf("first signal rejected: %s", rej.Reason)
	}
	other := candidate("trend_alignment", 2.0, four...)
	other.Entry, other.Stop, other.Target = 101, 100, 103
	if sig, rej := f.Evaluate(other, later); sig == nil {
		t.Fatalf("different strategy beyond tolerance should pass: %s %s", rej.Reason, rej.Detail)
	}
}

func TestEvaluateDuplicateWindowExpires(t *testing.T) {
	f := newTestFilter(DefaultConfig())
	four := []models.ConfluenceFactor{
		models.FactorLevel, models.FactorMomentum, models.FactorPattern, models.FactorVolume,
	}

	if _, rej := f.Evaluate(candidate("mean_reversion", 2.0, four...), neutralCtx()); rej != nil {
		t.Fatalf("first signal rejected: %s", rej.Reason)
	}

	after := EvalContext{Regime: models.RegimeTrending, Now: filterNow.Add(61 * time.Minute)}
	if sig, rej := f.Evaluate(candidate("mean_reversion", 2.0, four...), after); sig == nil {
		t.Fatalf("signal beyond the window should pass: %s %s", rej.Reason, rej.Detail)
	}
}

func TestEvaluateOppositeDirectionNotDuplicate(t *testing.T) {
	f := newTestFilter(DefaultConfig())
	four := []models.ConfluenceFactor{
		models.FactorLevel, models.FactorMomentum, models.FactorPattern, models.FactorVolume,
	}

	if _, rej := f.Evaluate(candidate("mean_reversion", 2.0, four...), neutralCtx()); rej != nil {
		t.Fatalf("first signal rejected: %s", rej.Reason)
	}

	later := EvalContext{Regime: models.RegimeTrending, Now: filterNow.Add(5 * time.Minute)}
	short := candidate("breakout", 2.0, four...)
	short.Direction = models.DirectionShort
	short.Stop, short.Target = 101, 98
	if sig, rej := f.Evaluate(short, later); sig == nil {
		t.Fatalf("opposite direction is never a duplicate: %s %s", rej.Reason, rej.Detail)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	bad := DefaultConfig()
	bad.GoodRR = 1.0 // below MinRR
	if err := bad.Validate(); err == nil {
		t.Error("inverted rr bands should fail")
	}

	bad = DefaultConfig()
	bad.OverrideMovePct = 0.1 // below TolerancePct
	if err := bad.Validate(); err == nil {
		t.Error("override below tolerance should fail")
	}

	bad = DefaultConfig()
	bad.DuplicateWindow = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero duplicate window should fail")
	}
}

func TestPropertyConfidenceMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("more factors never score lower", prop.ForAll(
		func(count int) bool {
			return confidenceFromCount(count+1) >= confidenceFromCount(count)
		},
		gen.IntRange(0, len(models.FactorUniverse())),
	))

	properties.Property("confidence stays within 1..5", prop.ForAll(
		func(count int) bool {
			c := confidenceFromCount(count)
			return c >= 1 && c <= 5
		},
		gen.IntRange(0, 2*len(models.FactorUniverse())),
	))

	properties.TestingRun(t)
}
