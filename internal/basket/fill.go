package basket

import (
	"context"
	"math"

	"github.com/noot-app/mealbasket-mcp-server/internal/nutrition"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/shopspring/decimal"
)

type filler struct {
	term string
	kcal float64
}

// fillers are tried in order when the slots leave a calorie deficit
var fillers = []filler{
	{"ground beef", 205},
	{"chicken", 120},
	{"pasta", 355},
	{"rice", 355},
	{"oats", 370},
	{"bread", 250},
	{"cheese", 350},
	{"butter", 720},
}

func (bl *Builder) fillDeficit(ctx context.Context, b *Basket, target nutrition.Totals) {
	if target.Calories <= 0 || b.Totals.Calories >= target.Calories*bl.opts.DeficitThreshold {
		return
	}

	ceiling := target.Calories * bl.opts.CalorieCeiling
	bl.log.Debug("Filling calorie deficit",
		"calories", math.Round(b.Totals.Calories),
		"target", target.Calories)

	for _, f := range fillers {
		if b.Totals.Calories >= target.Calories*bl.opts.DeficitTarget {
			break
		}

		found := bl.candidates(ctx, b, f.term, bl.opts.FillerSearchLimit)
		if len(found) == 0 {
			bl.skip(b, f.term, SkipNotFound, SourceFiller)
			continue
		}
		p, packages, reason := bl.pickFiller(b, found, f, target, ceiling)
		if reason != "" {
			bl.skip(b, f.term, reason, SourceFiller)
			continue
		}

		b.add(Line{
			Product:       p,
			Quantity:      packages,
			Source:        SourceFiller,
			Slot:          f.term,
			EstimatedKcal: f.kcal,
		}, true)
		bl.log.Debug("Filler added", "term", f.term, "product", p.Name, "packages", packages)
	}
}

// pickFiller returns the first found product whose damped package count fits the
// calorie ceiling and the budget. The reason is set when none does.
func (bl *Builder) pickFiller(b *Basket, found []types.Product, f filler, target nutrition.Totals, ceiling float64) (types.Product, int, SkipReason) {
	reason := SkipOverCalories
	deficitGrams := (target.Calories - b.Totals.Calories) / f.kcal * 100
	for _, p := range found {
		packages := max(1, int(math.Ceil(deficitGrams/p.PackageGrams()*bl.opts.DeficitDamping)))

		perPackage := contribution(p, 1, b.estimateFor(p, f.kcal)).Calories
		for packages > 0 && b.Totals.Calories+perPackage*float64(packages) > ceiling {
			packages--
		}
		if packages == 0 {
			continue
		}
		if !b.fits(b.Cost.Add(b.Price(p).Mul(decimal.NewFromInt(int64(packages))))) {
			reason = SkipOverBudget
			continue
		}
		return p, packages, ""
	}
	return types.Product{}, 0, reason
}
