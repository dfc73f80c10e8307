package substitute

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/noot-app/mealbasket-mcp-server/internal/diet"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/shopspring/decimal"
)

// Combination search bounds. Pairs only come from a PairOuter × PairInner prefix
// of the ranked alternatives.
const (
	CombinedCandidates = 20
	SingleCandidates   = 10
	MaxPackages        = 5
	PairOuter          = 5
	PairInner          = 8
	MinPairMatch       = 60.0
)

// Combination kinds
const (
	KindSingle = "single"
	KindPair   = "pair"
)

// CombinedQuery asks for products that together replace TargetGrams of the original
type CombinedQuery struct {
	Product     types.Product
	TargetGrams float64
	Exclusions  diet.Exclusions
	Budget      *decimal.Decimal
	Limit       int
}

// Pick is one product of a combination with its package count
type Pick struct {
	Product  types.Product `json:"product"`
	Packages int           `json:"packages"`
}

// Combination is a set of picks approximating the original's protein contribution
type Combination struct {
	Kind         string          `json:"kind"`
	Items        []Pick          `json:"items"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	TotalProtein float64         `json:"total_protein"`
	ProteinMatch float64         `json:"protein_match"`
	Description  string          `json:"description"`
}

type ranked struct {
	product types.Product
	protein float64 // per package
	price   decimal.Decimal
}

// FindCombinedAlternatives builds single-product and two-product replacements sorted by
// protein match descending, then price ascending
func (e *Engine) FindCombinedAlternatives(ctx context.Context, q CombinedQuery) []Combination {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if q.Product.Nutrition == nil {
		return nil
	}
	target := q.Product.Nutrition.Protein * q.TargetGrams / 100
	if target <= 0 {
		return nil
	}

	alternatives := e.FindAlternatives(ctx, Query{
		Product:    q.Product,
		Exclusions: q.Exclusions,
		Budget:     q.Budget,
		Limit:      CombinedCandidates,
	})

	candidates := make([]ranked, 0, len(alternatives))
	for _, a := range alternatives {
		price, ok := a.Product.MinPrice()
		if !ok || a.Product.Nutrition == nil {
			continue
		}
		candidates = append(candidates, ranked{
			product: a.Product,
			protein: a.Product.Nutrition.Protein * a.Product.PackageGrams() / 100,
			price:   price,
		})
	}

	withinBudget := func(price decimal.Decimal) bool {
		return q.Budget == nil || !price.GreaterThan(*q.Budget)
	}

	var combos []Combination
	for i := 0; i < len(candidates) && i < SingleCandidates; i++ {
		c := candidates[i]
		if c.protein <= 0 {
			continue
		}
		packages := int(math.Min(MaxPackages, math.Max(1, math.Round(target/c.protein))))
		price := c.price.Mul(decimal.NewFromInt(int64(packages)))
		if !withinBudget(price) {
			continue
		}
		total := c.protein * float64(packages)
		combos = append(combos, newCombination(KindSingle, []Pick{{Product: c.product, Packages: packages}}, price, total, target))
	}

	for i := 0; i < len(candidates) && i < PairOuter; i++ {
		for j := i + 1; j < len(candidates) && j < PairInner; j++ {
			a, b := candidates[i], candidates[j]
			total := a.protein + b.protein
			price := a.price.Add(b.price)
			combo := newCombination(KindPair, []Pick{
				{Product: a.product, Packages: 1},
				{Product: b.product, Packages: 1},
			}, price, total, target)
			if combo.ProteinMatch < MinPairMatch || !withinBudget(price) {
				continue
			}
			combos = append(combos, combo)
		}
	}

	sort.SliceStable(combos, func(i, j int) bool {
		if combos[i].ProteinMatch != combos[j].ProteinMatch {
			return combos[i].ProteinMatch > combos[j].ProteinMatch
		}
		return combos[i].TotalPrice.LessThan(combos[j].TotalPrice)
	})
	if len(combos) > limit {
		combos = combos[:limit]
	}

	e.log.Debug("Combined alternatives built",
		"product", q.Product.Name,
		"target_protein", target,
		"candidates", len(candidates),
		"returned", len(combos))
	return combos
}

func newCombination(kind string, picks []Pick, price decimal.Decimal, protein, target float64) Combination {
	parts := make([]string, 0, len(picks))
	for _, p := range picks {
		parts = append(parts, fmt.Sprintf("%dx %s (%s)", p.Packages, p.Product.Name, p.Product.Weight))
	}
	return Combination{
		Kind:         kind,
		Items:        picks,
		TotalPrice:   price,
		TotalProtein: protein,
		ProteinMatch: math.Min(100, protein/target*100),
		Description:  strings.Join(parts, " + "),
	}
}
