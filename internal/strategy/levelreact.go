package strategy

import (
	"fmt"
	"math"

	"market-scanner/internal/models"
)

// LevelReactionDetector fires when price reacts to a previously
// established support or resistance level: close within a small
// tolerance of the level, a reversal candle, and volume confirmation.
// Levels are built from swing highs and lows in the snapshot window;
// repeated touches make a level significant.
type LevelReactionDetector struct{}

// NewLevelReactionDetector creates the detector.
func NewLevelReactionDetector() *LevelReactionDetector {
	return &LevelReactionDetector{}
}

func (d *LevelReactionDetector) Name() string {
	return LevelReaction
}

// priceLevel is a clustered swing level with its touch count.
type priceLevel struct {
	price   float64
	touches int
	isHigh  bool
}

func (d *LevelReactionDetector) Detect(snap *models.MarketSnapshot, p Params) (*models.CandidateSignal, error) {
	// Half the level lookback is enough to cluster levels from, but
	// never less history than the configured floor.
	minBars := p.MinHistory
	if lb := p.LevelLookback / 2; lb > minBars {
		minBars = lb
	}
	if err := requireHistory(snap, minBars); err != nil {
		return nil, err
	}
	atr, err := requireIndicator(snap, models.IndicatorATR)
	if err != nil {
		return nil, err
	}

	levels := findLevels(snap, p)
	if len(levels) == 0 {
		return nil, nil
	}

	close := snap.Close()
	level, ok := nearestLevel(levels, close, p.LevelTolerancePct, p.MinLevelTouches)
	if !ok {
		return nil, nil
	}

	// Support below price invites a long reaction, resistance above a
	// short one.
	dir := models.DirectionLong
	if level.isHigh && level.price >= close {
		dir = models.DirectionShort
	}

	if !isReversalBar(snap.Last(), dir) {
		return nil, nil
	}
	if !volumeConfirmed(snap, p.VolumeMultiple) {
		return nil, nil
	}

	factors := models.NewFactorSet(
		models.FactorLevel,
		models.FactorPattern,
		models.FactorVolume,
	)
	if rsi, ok := snap.Indicator(models.IndicatorRSI); ok {
		if (dir == models.DirectionLong && rsi <= p.MomentumOversold+10) ||
			(dir == models.DirectionShort && rsi >= p.MomentumOverbought-10) {
			factors.Add(models.FactorMomentum)
		}
	}

	meta := map[string]string{
		"level":         fmt.Sprintf("%.2f", level.price),
		"level_touches": fmt.Sprintf("%d", level.touches),
	}

	sig := buildSignal(snap, d.Name(), dir, atr, p, factors, meta)

	// A heavily-tested level justifies a tighter stop just beyond the
	// level itself, which improves the reward-to-risk of the setup.
	if level.touches >= p.StrongLevelTouches {
		if dir == models.DirectionLong {
			sig.Stop = level.price - 0.5*atr
		} else {
			sig.Stop = level.price + 0.5*atr
		}
	}

	return sig, nil
}

// findLevels extracts swing highs and lows from the lookback window
// and clusters those within half the level tolerance of each other,
// counting each clustered swing as a touch.
func findLevels(snap *models.MarketSnapshot, p Params) []priceLevel {
	n := snap.Len()
	start := n - p.LevelLookback
	if start < p.SwingStrength {
		start = p.SwingStrength
	}

	var levels []priceLevel
	clusterTol := p.LevelTolerancePct / 2

	addLevel := func(price float64, isHigh bool) {
		for i := range levels {
			if levels[i].isHigh == isHigh && pctDistance(levels[i].price, price) <= clusterTol {
				// Merge: average the level toward the new touch.
				levels[i].price = (levels[i].price*float64(levels[i].touches) + price) / float64(levels[i].touches+1)
				levels[i].touches++
				return
			}
		}
		levels = append(levels, priceLevel{price: price, touches: 1, isHigh: isHigh})
	}

	for i := start; i < n-p.SwingStrength; i++ {
		c := snap.Candle(i)

		swingHigh := true
		swingLow := true
		for j := 1; j <= p.SwingStrength; j++ {
			if c.High <= snap.Candle(i-j).High || c.High <= snap.Candle(i+j).High {
				swingHigh = false
			}
			if c.Low >= snap.Candle(i-j).Low || c.Low >= snap.Candle(i+j).Low {
				swingLow = false
			}
		}
		if swingHigh {
			addLevel(c.High, true)
		}
		if swingLow {
			addLevel(c.Low, false)
		}
	}

	return levels
}

// nearestLevel returns the closest significant level within tolerance
// of the price.
func nearestLevel(levels []priceLevel, price, tolerancePct float64, minTouches int) (priceLevel, bool) {
	var best priceLevel
	bestDist := math.MaxFloat64
	found := false

	for _, lv := range levels {
		if lv.touches < minTouches {
			continue
		}
		dist := pctDistance(lv.price, price)
		if dist <= tolerancePct && dist < bestDist {
			best = lv
			bestDist = dist
			found = true
		}
	}
	return best, found
}

func pctDistance(a, b float64) float64 {
	if a == 0 {
		return math.MaxFloat64
	}
	return math.Abs(a-b) / math.Abs(a) * 100
}
