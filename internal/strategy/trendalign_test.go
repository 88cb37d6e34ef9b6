package strategy

import (
	"errors"
	"math"
	"testing"

	scanerrors "market-scanner/internal/errors"
	"market-scanner/internal/models"
)

// trendLongFixture is a climbing window whose last close sits above a
// properly ordered EMA cascade, momentum confirms, and the final bar
// prints elevated volume with a strong close.
func trendLongFixture() *models.MarketSnapshot {
	candles := risingCandles(60, 100, 0.5, 1000)
	candles[len(candles)-1].Volume = 1300
	return buildSnapshot(candles, map[string]float64{
		models.IndicatorEMA9:     128,
		models.IndicatorEMA21:    126,
		models.IndicatorEMA50:    120,
		models.IndicatorRSI:      62,
		models.IndicatorATR:      1.0,
		models.IndicatorVolumeMA: 1000,
	})
}

func TestTrendAlignmentLong(t *testing.T) {
	d := NewTrendAlignmentDetector()
	snap := trendLongFixture()

	sig, err := d.Detect(snap, DefaultParams())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a candidate signal")
	}

	if sig.Direction != models.DirectionLong {
		t.Errorf("direction = %v, want LONG", sig.Direction)
	}
	if sig.Strategy != TrendAlignment {
		t.Errorf("strategy = %q, want %q", sig.Strategy, TrendAlignment)
	}
	for _, f := range []models.ConfluenceFactor{
		models.FactorTrend, models.FactorMomentum, models.FactorVolume, models.FactorPattern,
	} {
		if !sig.Factors.Has(f) {
			t.Errorf("missing factor %q", f)
		}
	}
	if got := sig.Factors.Count(); got != 4 {
		t.Errorf("factor count = %d, want 4", got)
	}

	entry := snap.Close()
	if sig.Entry != entry {
		t.Errorf("entry = %v, want last close %v", sig.Entry, entry)
	}
	if math.Abs(sig.Stop-(entry-1.5)) > 1e-9 {
		t.Errorf("stop = %v, want %v", sig.Stop, entry-1.5)
	}
	if math.Abs(sig.Target-(entry+3.0)) > 1e-9 {
		t.Errorf("target = %v, want %v", sig.Target, entry+3.0)
	}
	if rr := sig.RiskReward(); math.Abs(rr-2.0) > 1e-9 {
		t.Errorf("risk-reward = %v, want 2.0", rr)
	}
	if !sig.DetectedAt.Equal(snap.Last().Timestamp) {
		t.Errorf("DetectedAt = %v, want last bar timestamp", sig.DetectedAt)
	}
}

func TestTrendAlignmentShort(t *testing.T) {
	candles := fallingCandles(60, 130, 0.5, 1000)
	candles[len(candles)-1].Volume = 1300
	snap := buildSnapshot(candles, map[string]float64{
		models.IndicatorEMA9:     102,
		models.IndicatorEMA21:    104,
		models.IndicatorEMA50:    110,
		models.IndicatorRSI:      38,
		models.IndicatorATR:      1.0,
		models.IndicatorVolumeMA: 1000,
	})

	sig, err := NewTrendAlignmentDetector().Detect(snap, DefaultParams())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a candidate signal")
	}
	if sig.Direction != models.DirectionShort {
		t.Errorf("direction = %v, want SHORT", sig.Direction)
	}
	if sig.Stop <= sig.Entry || sig.Target >= sig.Entry {
		t.Errorf("short geometry wrong: entry %v stop %v target %v", sig.Entry, sig.Stop, sig.Target)
	}
}

func TestTrendAlignmentRejects(t *testing.T) {
	d := NewTrendAlignmentDetector()

	t.Run("broken cascade", func(t *testing.T) {
		snap := trendLongFixture()
		snap = buildSnapshot(snap.Candles(), map[string]float64{
			models.IndicatorEMA9:     128,
			models.IndicatorEMA21:    129, // ema21 above ema9
			models.IndicatorEMA50:    120,
			models.IndicatorRSI:      62,
			models.IndicatorATR:      1.0,
			models.IndicatorVolumeMA: 1000,
		})
		if sig, err := d.Detect(snap, DefaultParams()); err != nil || sig != nil {
			t.Errorf("broken cascade: sig=%v err=%v, want nil/nil", sig, err)
		}
	})

	t.Run("momentum too weak", func(t *testing.T) {
		snap := trendLongFixture()
		snap = buildSnapshot(snap.Candles(), map[string]float64{
			models.IndicatorEMA9:     128,
			models.IndicatorEMA21:    126,
			models.IndicatorEMA50:    120,
			models.IndicatorRSI:      50,
			models.IndicatorATR:      1.0,
			models.IndicatorVolumeMA: 1000,
		})
		if sig, err := d.Detect(snap, DefaultParams()); err != nil || sig != nil {
			t.Errorf("weak momentum: sig=%v err=%v, want nil/nil", sig, err)
		}
	})

	t.Run("momentum exhausted", func(t *testing.T) {
		snap := trendLongFixture()
		snap = buildSnapshot(snap.Candles(), map[string]float64{
			models.IndicatorEMA9:     128,
			models.IndicatorEMA21:    126,
			models.IndicatorEMA50:    120,
			models.IndicatorRSI:      85,
			models.IndicatorATR:      1.0,
			models.IndicatorVolumeMA: 1000,
		})
		if sig, err := d.Detect(snap, DefaultParams()); err != nil || sig != nil {
			t.Errorf("exhausted momentum: sig=%v err=%v, want nil/nil", sig, err)
		}
	})

	t.Run("low volume", func(t *testing.T) {
		candles := risingCandles(60, 100, 0.5, 1000)
		snap := buildSnapshot(candles, map[string]float64{
			models.IndicatorEMA9:     128,
			models.IndicatorEMA21:    126,
			models.IndicatorEMA50:    120,
			models.IndicatorRSI:      62,
			models.IndicatorATR:      1.0,
			models.IndicatorVolumeMA: 1000,
		})
		if sig, err := d.Detect(snap, DefaultParams()); err != nil || sig != nil {
			t.Errorf("low volume: sig=%v err=%v, want nil/nil", sig, err)
		}
	})
}

func TestTrendAlignmentErrors(t *testing.T) {
	d := NewTrendAlignmentDetector()

	short := buildSnapshot(risingCandles(10, 100, 0.5, 1000), map[string]float64{
		models.IndicatorEMA9: 100,
	})
	if _, err := d.Detect(short, DefaultParams()); !errors.Is(err, scanerrors.ErrInsufficientHistory) {
		t.Errorf("short history: err = %v, want ErrInsufficientHistory", err)
	}

	noEMA := buildSnapshot(risingCandles(60, 100, 0.5, 1000), map[string]float64{
		models.IndicatorRSI: 62,
		models.IndicatorATR: 1.0,
	})
	if _, err := d.Detect(noEMA, DefaultParams()); !errors.Is(err, scanerrors.ErrMissingIndicator) {
		t.Errorf("missing ema: err = %v, want ErrMissingIndicator", err)
	}
}
