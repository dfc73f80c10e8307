package basket

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/noot-app/mealbasket-mcp-server/internal/catalog"
	"github.com/noot-app/mealbasket-mcp-server/internal/diet"
	"github.com/noot-app/mealbasket-mcp-server/internal/nutrition"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/shopspring/decimal"
)

// Builder turns planning requests into baskets using a catalog
type Builder struct {
	catalog catalog.Catalog
	opts    Options
	log     *slog.Logger
}

// NewBuilder creates a basket builder over the catalog
func NewBuilder(c catalog.Catalog, opts Options, logger *slog.Logger) *Builder {
	return &Builder{
		catalog: c,
		opts:    opts,
		log:     logger,
	}
}

// Build plans a basket for the request. Slots are filled greedily in priority order,
// then a filler pass tops up calories when the basket falls short of the target.
func (bl *Builder) Build(ctx context.Context, req Request) (*Basket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	target := req.TotalTarget()
	b := newBasket(req)
	slots := GenerateSlots(req.Days, req.HouseholdSize, req.Meals, req.Exclusions.PlantBased())
	maxPackages := max(2, int(math.Ceil(float64(req.People())/2)))

	bl.log.Debug("Planning basket",
		"days", req.Days,
		"household", req.HouseholdSize,
		"slots", len(slots),
		"exclusions", req.Exclusions.Strings(),
		"max_packages", maxPackages)

	reserved := bl.reserveLowEnergy(ctx, b, slots, maxPackages)
	for i, s := range slots {
		bl.fillSlot(ctx, b, s, target, maxPackages, reserved[i])
	}
	bl.fillDeficit(ctx, b, target)

	coverage := CoverageOf(b.Totals, target)
	bl.log.Info("Basket planned",
		"basket_id", b.ID,
		"lines", len(b.Lines),
		"skipped", len(b.Skipped),
		"calorie_coverage", math.Round(coverage.Calories*10)/10,
		"protein_coverage", math.Round(coverage.Protein*10)/10,
		"cost", b.Cost.StringFixed(2))
	return b, nil
}

type choice struct {
	product  types.Product
	packages int
}

// reserveLowEnergy estimates the calories of each vegetable and fruit slot from its
// first candidate. The returned value at i is what the slots after i still need.
func (bl *Builder) reserveLowEnergy(ctx context.Context, b *Basket, slots []Slot, maxPackages int) []float64 {
	pending := make([]float64, len(slots))
	var owed float64
	for i := len(slots) - 1; i >= 0; i-- {
		pending[i] = owed
		s := slots[i]
		if !s.Kind.LowEnergy() || s.Meals <= 0 {
			continue
		}
		candidates := bl.candidates(ctx, b, s.Term, bl.opts.SearchLimit)
		if len(candidates) == 0 {
			continue
		}
		p := candidates[0]
		owed += contribution(p, packagesFor(p, s.NeedGrams(), maxPackages), s.KcalPer100g).Calories
	}
	return pending
}

// slotAllowance is the calories a slot may add: what is left under the ceiling after
// the later vegetable and fruit slots, and for calorie-dense slots the overshoot cap
func (bl *Builder) slotAllowance(b *Basket, s Slot, target nutrition.Totals, reserved float64) float64 {
	allowance := target.Calories*bl.opts.CalorieCeiling - b.Totals.Calories - reserved
	if s.Kind.LowEnergy() {
		return allowance
	}
	day := target.Calories / float64(b.Request.Days)
	return math.Min(allowance, math.Max(s.PlannedKcal()*bl.opts.SlotOvershoot, day*bl.opts.SlotDayShare))
}

func (bl *Builder) fillSlot(ctx context.Context, b *Basket, s Slot, target nutrition.Totals, maxPackages int, reserved float64) {
	if s.Meals <= 0 {
		bl.skip(b, s.Term, SkipNoMeals, SourceSlot)
		return
	}
	if bl.satisfied(b, s.Kind, target) {
		bl.skip(b, s.Term, SkipSatisfied, SourceSlot)
		return
	}

	candidates := bl.candidates(ctx, b, s.Term, bl.opts.SearchLimit)
	if len(candidates) > bl.opts.Candidates {
		candidates = candidates[:bl.opts.Candidates]
	}
	if len(candidates) == 0 {
		bl.skip(b, s.Term, SkipNotFound, SourceSlot)
		return
	}

	allowance := bl.slotAllowance(b, s, target, reserved)

	var first *choice
	for _, p := range candidates {
		packages := packagesFor(p, s.NeedGrams(), maxPackages)
		packages = capCalories(p, packages, s.KcalPer100g, allowance)
		if packages == 0 {
			continue
		}
		if first == nil {
			first = &choice{product: p, packages: packages}
		}
		if !b.fits(b.Cost.Add(b.Price(p).Mul(decimal.NewFromInt(int64(packages))))) {
			continue
		}
		bl.commit(b, s, choice{product: p, packages: packages})
		return
	}

	if first == nil {
		bl.skip(b, s.Term, SkipOverCalories, SourceSlot)
		return
	}

	fewer := first.packages - 1
	if fewer >= 1 && b.fits(b.Cost.Add(b.Price(first.product).Mul(decimal.NewFromInt(int64(fewer))))) {
		bl.commit(b, s, choice{product: first.product, packages: fewer})
		return
	}
	bl.skip(b, s.Term, SkipOverBudget, SourceSlot)
}

func (bl *Builder) commit(b *Basket, s Slot, c choice) {
	b.add(Line{
		Product:       c.product,
		Quantity:      c.packages,
		Source:        SourceSlot,
		Slot:          s.Term,
		EstimatedKcal: s.KcalPer100g,
	}, false)
	bl.log.Debug("Slot filled",
		"slot", s.Term,
		"product", c.product.Name,
		"packages", c.packages,
		"calories", math.Round(b.Totals.Calories))
}

func (bl *Builder) skip(b *Basket, term string, reason SkipReason, source string) {
	b.Skipped = append(b.Skipped, SkippedSlot{Term: term, Reason: reason, Source: source})
	bl.log.Debug("Slot skipped", "slot", term, "reason", reason, "source", source)
}

// satisfied reports whether protein or carbs slots are no longer needed
func (bl *Builder) satisfied(b *Basket, kind Kind, target nutrition.Totals) bool {
	share := bl.opts.SatisfiedShare
	calories := b.Totals.Calories >= share*target.Calories
	switch kind {
	case KindProtein:
		return calories && b.Totals.Protein >= share*target.Protein
	case KindCarbs:
		return calories && b.Totals.Carbs >= share*target.Carbs
	default:
		return false
	}
}

// candidates searches the catalog and applies the request's exclusions. With a budget,
// unpriced products are dropped and the rest ordered cheapest first at the basket's store.
func (bl *Builder) candidates(ctx context.Context, b *Basket, term string, limit int) []types.Product {
	found, err := bl.catalog.Search(ctx, term, limit)
	if err != nil {
		bl.log.Warn("Catalog search failed, treating as no candidates", "term", term, "error", err)
		return nil
	}

	found = diet.Apply(found, b.Request.Exclusions)
	if b.Budget == nil {
		return found
	}

	priced := make([]types.Product, 0, len(found))
	for _, p := range found {
		if p.IsPriced() {
			priced = append(priced, p)
		}
	}
	sort.SliceStable(priced, func(i, j int) bool {
		return b.Price(priced[i]).LessThan(b.Price(priced[j]))
	})
	return priced
}

// packagesFor is the package count covering the needed grams, between 1 and maxPackages
func packagesFor(p types.Product, needGrams float64, maxPackages int) int {
	n := int(math.Ceil(needGrams / p.PackageGrams()))
	return min(maxPackages, max(1, n))
}

// capCalories lowers the package count until the calories fit the allowance
func capCalories(p types.Product, packages int, estimatedKcal, allowance float64) int {
	perPackage := contribution(p, 1, estimatedKcal).Calories
	for packages > 0 && perPackage*float64(packages) > allowance {
		packages--
	}
	return packages
}
