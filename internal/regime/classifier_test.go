package regime

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"market-scanner/internal/models"
)

func defaultThresholds() Thresholds {
	return Thresholds{
		StrongTrend:  25,
		WeakTrend:    20,
		HighVolRatio: 1.5,
		LowVolRatio:  0.7,
	}
}

func TestClassify(t *testing.T) {
	th := defaultThresholds()

	tests := []struct {
		name     string
		trend    float64
		volRatio float64
		want     models.RegimeLabel
	}{
		{"strong trend", 30, 1.0, models.RegimeTrending},
		{"trend at threshold", 25, 1.0, models.RegimeTrending},
		{"weak trend", 15, 1.0, models.RegimeRanging},
		{"mid-band trend", 22, 1.0, models.RegimeRanging},
		{"high volatility beats trend", 30, 1.6, models.RegimeHighVol},
		{"high volatility at threshold", 30, 1.5, models.RegimeHighVol},
		{"low volatility beats trend", 30, 0.6, models.RegimeLowVol},
		{"low volatility at threshold", 30, 0.7, models.RegimeLowVol},
		{"neutral everything", 10, 1.0, models.RegimeRanging},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.trend, tt.volRatio, th)
			if got != tt.want {
				t.Errorf("Classify(%v, %v) = %v, want %v", tt.trend, tt.volRatio, got, tt.want)
			}
		})
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := defaultThresholds().Validate(); err != nil {
		t.Fatalf("default thresholds should validate: %v", err)
	}

	bad := defaultThresholds()
	bad.WeakTrend = 30
	if err := bad.Validate(); err == nil {
		t.Error("weak above strong should fail validation")
	}

	bad = defaultThresholds()
	bad.HighVolRatio = 0.5
	if err := bad.Validate(); err == nil {
		t.Error("high vol ratio below low should fail validation")
	}
}

func snapshotWithIndicators(indicators map[string]float64) *models.MarketSnapshot {
	candles := []models.Candle{
		{Timestamp: time.Now(), Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000},
	}
	return models.NewSnapshot("TEST", models.Timeframe15Min, candles, indicators, nil)
}

func TestFromSnapshot(t *testing.T) {
	th := defaultThresholds()

	snap := snapshotWithIndicators(map[string]float64{
		models.IndicatorADX:   28,
		models.IndicatorATR:   2.0,
		models.IndicatorATRMA: 2.0,
	})
	if got := FromSnapshot(snap, th); got != models.RegimeTrending {
		t.Errorf("trending snapshot classified as %v", got)
	}

	snap = snapshotWithIndicators(map[string]float64{
		models.IndicatorADX:   28,
		models.IndicatorATR:   4.0,
		models.IndicatorATRMA: 2.0,
	})
	if got := FromSnapshot(snap, th); got != models.RegimeHighVol {
		t.Errorf("high-vol snapshot classified as %v", got)
	}

	// Missing ATR average falls back to a neutral ratio; trend decides.
	snap = snapshotWithIndicators(map[string]float64{
		models.IndicatorADX: 28,
		models.IndicatorATR: 4.0,
	})
	if got := FromSnapshot(snap, th); got != models.RegimeTrending {
		t.Errorf("missing atr_ma should classify by trend, got %v", got)
	}
}

func TestProperty_ClassifyDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("identical inputs always yield identical labels", prop.ForAll(
		func(trend, volRatio float64) bool {
			th := defaultThresholds()
			first := Classify(trend, volRatio, th)
			for i := 0; i < 5; i++ {
				if Classify(trend, volRatio, th) != first {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 5),
	))

	properties.Property("every input maps to a known label", prop.ForAll(
		func(trend, volRatio float64) bool {
			switch Classify(trend, volRatio, defaultThresholds()) {
			case models.RegimeTrending, models.RegimeRanging, models.RegimeHighVol, models.RegimeLowVol:
				return true
			}
			return false
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 5),
	))

	properties.TestingRun(t)
}
