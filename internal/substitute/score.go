package substitute

import (
	"math"
	"strings"

	"github.com/noot-app/mealbasket-mcp-server/internal/nutrition"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
)

// Score weights
const (
	sharedHighProtein = 50.0
	sharedHighCarb    = 40.0
	sharedLowCalorie  = 30.0
	sharedHighFiber   = 20.0
	proteinRatio      = 30.0
	calorieClose      = 20.0
	calorieNear       = 10.0
	priceRatio        = 15.0
	sameCategory      = 10.0
	noSharedFlags     = -20.0
)

// SimilarityScore rates how well candidate can stand in for original; profile is the original's profile
func SimilarityScore(original, candidate types.Product, profile nutrition.Profile) float64 {
	cand := nutrition.Of(candidate.Nutrition)
	score := 0.0

	if profile.HighProtein && cand.HighProtein {
		score += sharedHighProtein
	}
	if profile.HighCarb && cand.HighCarb {
		score += sharedHighCarb
	}
	if profile.LowCalorie && cand.LowCalorie {
		score += sharedLowCalorie
	}
	if profile.HighFiber && cand.HighFiber {
		score += sharedHighFiber
	}

	op, cp := protein(original), protein(candidate)
	score += proteinRatio * math.Min(op, cp) / math.Max(math.Max(op, cp), 1)

	if oc := calories(original); oc > 0 {
		diff := math.Abs(oc-calories(candidate)) / oc
		switch {
		case diff < 0.2:
			score += calorieClose
		case diff < 0.5:
			score += calorieNear
		}
	}

	if a, ok := original.MinPrice(); ok {
		if b, ok := candidate.MinPrice(); ok {
			lo, hi := a.InexactFloat64(), b.InexactFloat64()
			if lo > hi {
				lo, hi = hi, lo
			}
			if hi > 0 {
				score += priceRatio * lo / hi
			}
		}
	}

	if strings.EqualFold(strings.TrimSpace(original.Category), strings.TrimSpace(candidate.Category)) {
		score += sameCategory
	}

	if profile.Any() && !profile.Shares(cand) {
		score += noSharedFlags
	}

	return score
}

func protein(p types.Product) float64 {
	if p.Nutrition == nil {
		return 0
	}
	return p.Nutrition.Protein
}

func calories(p types.Product) float64 {
	if p.Nutrition == nil {
		return 0
	}
	return p.Nutrition.Calories
}
