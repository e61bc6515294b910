package classify

import (
	"fmt"
	"math"
	"sort"

	"GoldenScan/internal/domain/models"
)

// Thresholds for the fixed-precedence rules.
const (
	exitSlope   = -0.05
	goldenSlope = 0.05

	exitScore     = 90.0
	goldenBase    = 95.0
	momentumBase  = 85.0
	supportScore  = 80.0
	slopeBonusCap = 5.0

	supportBand = 0.02 // price within 2% of mid
)

// SortKey selects the global ordering of a signal set.
type SortKey string

const (
	SortByScore SortKey = "score"
	SortByTime  SortKey = "time"
)

// Classify maps one ticker and its level set to a signal, or nil when no
// rule fires. Pure: same inputs, same output. Precedence is fixed; the
// first matching rule wins.
func Classify(ticker models.TickerSnapshot, ls *models.LevelSet) *models.Signal {
	if ls == nil {
		return nil
	}
	price := ticker.Price

	// 1. EXIT: strong negative trend, regardless of price position.
	if ls.NormalizedSlope < exitSlope {
		return &models.Signal{
			Symbol: ticker.Symbol,
			Kind:   models.SignalExit,
			Score:  exitScore,
			Price:  price,
			Reason: fmt.Sprintf("trend reversal: slope %.3f below %.2f", ls.NormalizedSlope, exitSlope),
		}
	}

	// 2. GOLDEN: breakout above the structural max with strong trend.
	if price > ls.Max && ls.NormalizedSlope > goldenSlope {
		return &models.Signal{
			Symbol: ticker.Symbol,
			Kind:   models.SignalGolden,
			Score:  goldenBase + slopeBonus(ls.NormalizedSlope),
			Price:  price,
			Reason: fmt.Sprintf("breakout above weekly VWAP max %.6g with slope %.3f", ls.Max, ls.NormalizedSlope),
		}
	}

	// 3. MOMENTUM: riding between mid and max with positive trend.
	if price >= ls.Mid && price <= ls.Max && ls.Slope > 0 {
		return &models.Signal{
			Symbol: ticker.Symbol,
			Kind:   models.SignalMomentum,
			Score:  momentumBase + slopeBonus(ls.NormalizedSlope),
			Price:  price,
			Reason: fmt.Sprintf("between mid %.6g and max %.6g, trend rising", ls.Mid, ls.Max),
		}
	}

	// 4. SUPPORT: holding near the live VWAP mid with positive trend.
	if ls.Mid > 0 && math.Abs(price-ls.Mid)/ls.Mid <= supportBand && ls.Slope > 0 {
		return &models.Signal{
			Symbol: ticker.Symbol,
			Kind:   models.SignalSupport,
			Score:  supportScore,
			Price:  price,
			Reason: fmt.Sprintf("holding within %.0f%% of VWAP mid %.6g", supportBand*100, ls.Mid),
		}
	}

	return nil
}

func slopeBonus(nslope float64) float64 {
	bonus := nslope * 10
	if bonus < 0 {
		return 0
	}
	if bonus > slopeBonusCap {
		return slopeBonusCap
	}
	return bonus
}

// Sort orders signals in place: EXIT entries always sort first, the rest
// by the requested key.
func Sort(signals []models.Signal, key SortKey) {
	sort.SliceStable(signals, func(i, j int) bool {
		ei, ej := signals[i].Kind == models.SignalExit, signals[j].Kind == models.SignalExit
		if ei != ej {
			return ei
		}
		switch key {
		case SortByTime:
			return signals[i].ActiveSince.After(signals[j].ActiveSince)
		default:
			return signals[i].Score > signals[j].Score
		}
	})
}
