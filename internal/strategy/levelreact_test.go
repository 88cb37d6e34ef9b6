package strategy

import (
	"errors"
	"math"
	"testing"

	scanerrors "market-scanner/internal/errors"
	"market-scanner/internal/models"
)

// supportCandles is a sideways window with swing lows printed at 95 on
// the given bars, establishing a clustered support level with one
// touch per dip.
func supportCandles(dips ...int) []models.Candle {
	candles := flatCandles(60, 100, 1000)
	for _, i := range dips {
		ts := candles[i].Timestamp
		candles[i] = models.Candle{
			Timestamp: ts,
			Open:      96.0, Close: 96.2, High: 96.5, Low: 95.0, Volume: 1000,
		}
	}
	return candles
}

func TestLevelReactionSupportLong(t *testing.T) {
	candles := supportCandles(10, 25, 40)
	// Hammer printed right on the support level.
	candles = setLast(candles, models.Candle{
		Open: 95.25, Close: 95.1, High: 95.4, Low: 94.6, Volume: 1300,
	})
	snap := buildSnapshot(candles, map[string]float64{
		models.IndicatorATR:      1.0,
		models.IndicatorRSI:      35,
		models.IndicatorVolumeMA: 1000,
	})

	sig, err := NewLevelReactionDetector().Detect(snap, DefaultParams())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a candidate signal")
	}

	if sig.Direction != models.DirectionLong {
		t.Errorf("direction = %v, want LONG", sig.Direction)
	}
	for _, f := range []models.ConfluenceFactor{
		models.FactorLevel, models.FactorPattern, models.FactorVolume, models.FactorMomentum,
	} {
		if !sig.Factors.Has(f) {
			t.Errorf("missing factor %q", f)
		}
	}
	if sig.Meta["level"] != "95.00" {
		t.Errorf("level = %q, want 95.00", sig.Meta["level"])
	}
	if sig.Meta["level_touches"] != "3" {
		t.Errorf("level_touches = %q, want 3", sig.Meta["level_touches"])
	}

	// Three touches make the level strong, so the stop tightens to
	// just beyond the level instead of the full ATR multiple.
	if math.Abs(sig.Stop-94.5) > 1e-9 {
		t.Errorf("stop = %v, want 94.5 (tight stop beyond strong level)", sig.Stop)
	}
	if rr := sig.RiskReward(); rr <= 2.0 {
		t.Errorf("risk-reward = %v, want > 2.0 with tightened stop", rr)
	}
}

func TestLevelReactionResistanceShort(t *testing.T) {
	candles := flatCandles(60, 100, 1000)
	for _, i := range []int{10, 25, 40} {
		ts := candles[i].Timestamp
		candles[i] = models.Candle{
			Timestamp: ts,
			Open:      104.0, Close: 104.2, High: 105.0, Low: 103.9, Volume: 1000,
		}
	}
	// Shooting star rejecting the resistance.
	candles = setLast(candles, models.Candle{
		Open: 104.75, Close: 104.9, High: 105.4, Low: 104.6, Volume: 1300,
	})
	snap := buildSnapshot(candles, map[string]float64{
		models.IndicatorATR:      1.0,
		models.IndicatorRSI:      65,
		models.IndicatorVolumeMA: 1000,
	})

	sig, err := NewLevelReactionDetector().Detect(snap, DefaultParams())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a candidate signal")
	}
	if sig.Direction != models.DirectionShort {
		t.Errorf("direction = %v, want SHORT", sig.Direction)
	}
	if sig.Factors.Has(models.FactorMomentum) != true {
		t.Error("rsi at 65 should satisfy the short momentum factor")
	}
}

func TestLevelReactionRejects(t *testing.T) {
	d := NewLevelReactionDetector()

	t.Run("price away from level", func(t *testing.T) {
		candles := supportCandles(10, 25, 40)
		snap := buildSnapshot(candles, map[string]float64{
			models.IndicatorATR:      1.0,
			models.IndicatorRSI:      50,
			models.IndicatorVolumeMA: 1000,
		})
		if sig, err := d.Detect(snap, DefaultParams()); err != nil || sig != nil {
			t.Errorf("far from level: sig=%v err=%v, want nil/nil", sig, err)
		}
	})

	t.Run("insignificant level", func(t *testing.T) {
		candles := supportCandles(25) // single touch
		candles = setLast(candles, models.Candle{
			Open: 95.25, Close: 95.1, High: 95.4, Low: 94.6, Volume: 1300,
		})
		snap := buildSnapshot(candles, map[string]float64{
			models.IndicatorATR:      1.0,
			models.IndicatorRSI:      35,
			models.IndicatorVolumeMA: 1000,
		})
		if sig, err := d.Detect(snap, DefaultParams()); err != nil || sig != nil {
			t.Errorf("single touch: sig=%v err=%v, want nil/nil", sig, err)
		}
	})

	t.Run("no reversal bar", func(t *testing.T) {
		candles := supportCandles(10, 25, 40)
		// Full-bodied sell-through at the level.
		candles = setLast(candles, models.Candle{
			Open: 95.9, Close: 95.0, High: 95.95, Low: 94.95, Volume: 1300,
		})
		snap := buildSnapshot(candles, map[string]float64{
			models.IndicatorATR:      1.0,
			models.IndicatorRSI:      35,
			models.IndicatorVolumeMA: 1000,
		})
		if sig, err := d.Detect(snap, DefaultParams()); err != nil || sig != nil {
			t.Errorf("sell-through bar: sig=%v err=%v, want nil/nil", sig, err)
		}
	})

	t.Run("no volume confirmation", func(t *testing.T) {
		candles := supportCandles(10, 25, 40)
		candles = setLast(candles, models.Candle{
			Open: 95.25, Close: 95.1, High: 95.4, Low: 94.6, Volume: 1000,
		})
		snap := buildSnapshot(candles, map[string]float64{
			models.IndicatorATR:      1.0,
			models.IndicatorRSI:      35,
			models.IndicatorVolumeMA: 1000,
		})
		if sig, err := d.Detect(snap, DefaultParams()); err != nil || sig != nil {
			t.Errorf("average volume: sig=%v err=%v, want nil/nil", sig, err)
		}
	})
}

func TestLevelReactionHistoryFloor(t *testing.T) {
	// A short lookback must not relax the configured history minimum.
	p := DefaultParams()
	p.LevelLookback = 80 // half of it is below MinHistory 50

	candles := supportCandles(10, 25, 40)[15:] // 45 bars
	snap := buildSnapshot(candles, map[string]float64{
		models.IndicatorATR:      1.0,
		models.IndicatorRSI:      35,
		models.IndicatorVolumeMA: 1000,
	})

	_, err := NewLevelReactionDetector().Detect(snap, p)
	if !errors.Is(err, scanerrors.ErrInsufficientHistory) {
		t.Errorf("err = %v, want ErrInsufficientHistory for 45 bars", err)
	}
}

func TestFindLevelsClustersNearbySwings(t *testing.T) {
	// Two dips within the cluster tolerance merge into one level with
	// an averaged price and two touches.
	candles := flatCandles(60, 100, 1000)
	for i, low := range map[int]float64{10: 95.00, 40: 95.04} {
		ts := candles[i].Timestamp
		candles[i] = models.Candle{
			Timestamp: ts,
			Open:      96.0, Close: 96.2, High: 96.5, Low: low, Volume: 1000,
		}
	}
	snap := buildSnapshot(candles, nil)

	levels := findLevels(snap, DefaultParams())
	var support []priceLevel
	for _, lv := range levels {
		if !lv.isHigh {
			support = append(support, lv)
		}
	}
	if len(support) != 1 {
		t.Fatalf("support levels = %d, want 1 merged level", len(support))
	}
	if support[0].touches != 2 {
		t.Errorf("touches = %d, want 2", support[0].touches)
	}
	if math.Abs(support[0].price-95.02) > 1e-9 {
		t.Errorf("merged price = %v, want 95.02", support[0].price)
	}
}
