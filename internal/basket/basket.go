package basket

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/noot-app/mealbasket-mcp-server/internal/nutrition"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/shopspring/decimal"
)

// Line sources
const (
	SourceSlot       = "slot"
	SourceFiller     = "filler"
	SourceSubstitute = "substitute"
)

// Line is one product in the basket with its package count
type Line struct {
	ID           string           `json:"id"`
	Product      types.Product    `json:"product"`
	Quantity     int              `json:"quantity"`
	Contribution nutrition.Totals `json:"contribution"`
	Source       string           `json:"source"`
	Slot         string           `json:"slot,omitempty"`

	// Original is the product this line held before its first substitution.
	// Lines added by a combined substitution share the replaced line's Group.
	Original         *types.Product `json:"original,omitempty"`
	OriginalQuantity int            `json:"original_quantity,omitempty"`
	Group            string         `json:"group,omitempty"`

	// EstimatedKcal is the per-100g fallback used when the product has no nutrition data
	EstimatedKcal float64 `json:"estimated_kcal,omitempty"`
}

// Grams is the total package weight on the line
func (l *Line) Grams() float64 {
	return l.Product.PackageGrams() * float64(l.Quantity)
}

func (l *Line) refresh() {
	l.Contribution = contribution(l.Product, l.Quantity, l.EstimatedKcal)
}

// contribution credits calories only from the estimate when nutrition is missing
func contribution(p types.Product, quantity int, estimatedKcal float64) nutrition.Totals {
	grams := p.PackageGrams() * float64(quantity)
	if p.Nutrition == nil {
		return nutrition.Totals{Calories: estimatedKcal * grams / 100}
	}
	return nutrition.ForGrams(p.Nutrition, grams)
}

// Replacement is one product of a combined substitution
type Replacement struct {
	Product  types.Product `json:"product"`
	Quantity int           `json:"quantity"`
}

// Basket is an ordered shopping list with running totals and cost
type Basket struct {
	ID      string           `json:"id"`
	Lines   []Line           `json:"lines"`
	Store   string           `json:"store,omitempty"`
	Budget  *decimal.Decimal `json:"budget,omitempty"`
	Totals  nutrition.Totals `json:"totals"`
	Cost    decimal.Decimal  `json:"cost"`
	Request Request          `json:"request"`
	Skipped []SkippedSlot    `json:"skipped,omitempty"`
}

func newBasket(req Request) *Basket {
	return &Basket{
		ID:      uuid.NewString(),
		Store:   req.Store,
		Budget:  req.Budget,
		Request: req,
		Cost:    decimal.Zero,
	}
}

// Price returns the product's price at the basket's store, falling back to the cheapest
func (b *Basket) Price(p types.Product) decimal.Decimal {
	price, _ := p.PriceAt(b.Store)
	return price
}

// LineCost is price × quantity for the line
func (b *Basket) LineCost(l *Line) decimal.Decimal {
	return b.Price(l.Product).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (b *Basket) fits(cost decimal.Decimal) bool {
	return b.Budget == nil || !cost.GreaterThan(*b.Budget)
}

// Remaining returns the unspent budget, or nil when the basket has none
func (b *Basket) Remaining() *decimal.Decimal {
	if b.Budget == nil {
		return nil
	}
	r := b.Budget.Sub(b.Cost)
	return &r
}

func (b *Basket) recompute() {
	totals := nutrition.Totals{}
	cost := decimal.Zero
	for i := range b.Lines {
		totals = totals.Add(b.Lines[i].Contribution)
		cost = cost.Add(b.LineCost(&b.Lines[i]))
	}
	b.Totals = totals
	b.Cost = cost
}

// add commits a new line or, for merge, adds to an existing line of the same product
func (b *Basket) add(l Line, merge bool) {
	if merge {
		for i := range b.Lines {
			if b.Lines[i].Product.ID == l.Product.ID {
				b.Lines[i].Quantity += l.Quantity
				b.Lines[i].refresh()
				b.recompute()
				return
			}
		}
	}
	l.ID = uuid.NewString()
	l.refresh()
	b.Lines = append(b.Lines, l)
	b.recompute()
}

// estimateFor returns the calorie estimate a merge of p would be credited with
func (b *Basket) estimateFor(p types.Product, kcal float64) float64 {
	for i := range b.Lines {
		if b.Lines[i].Product.ID == p.ID {
			return b.Lines[i].EstimatedKcal
		}
	}
	return kcal
}

func (b *Basket) index(lineID string) (int, error) {
	for i := range b.Lines {
		if b.Lines[i].ID == lineID {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
}

// Line returns the line with the given ID
func (b *Basket) Line(lineID string) (*Line, error) {
	i, err := b.index(lineID)
	if err != nil {
		return nil, err
	}
	return &b.Lines[i], nil
}

// SubstituteBudget returns the price ceiling for a single substitute: the explicit
// budget when given, else budget / line count × 1.5 when the basket has a budget
func (b *Basket) SubstituteBudget(explicit *decimal.Decimal) *decimal.Decimal {
	if explicit != nil {
		return explicit
	}
	if b.Budget == nil || len(b.Lines) == 0 {
		return nil
	}
	auto := b.Budget.Div(decimal.NewFromInt(int64(len(b.Lines)))).Mul(decimal.NewFromFloat(1.5))
	return &auto
}

// Substitute swaps the line's product, keeping its quantity and remembering the original
func (b *Basket) Substitute(lineID string, product types.Product) (*Line, error) {
	i, err := b.index(lineID)
	if err != nil {
		return nil, err
	}
	l := &b.Lines[i]

	cost := b.Cost.Sub(b.LineCost(l)).Add(b.Price(product).Mul(decimal.NewFromInt(int64(l.Quantity))))
	if !b.fits(cost) {
		return nil, fmt.Errorf("%w: %s would cost %s", ErrBudgetExceeded, product.Name, cost.StringFixed(2))
	}

	if l.Original == nil {
		orig := l.Product
		l.Original = &orig
		l.OriginalQuantity = l.Quantity
	}
	l.Product = product
	l.refresh()
	b.recompute()
	return l, nil
}

// SubstituteCombined replaces the line with the first replacement and appends lines for
// the rest, all linked to the line's original product
func (b *Basket) SubstituteCombined(lineID string, replacements []Replacement) ([]*Line, error) {
	if len(replacements) == 0 {
		return nil, ErrNoReplacements
	}
	for _, r := range replacements {
		if r.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for %s must be at least 1", ErrInvalidRequest, r.Product.Name)
		}
	}

	i, err := b.index(lineID)
	if err != nil {
		return nil, err
	}
	l := &b.Lines[i]

	cost := b.Cost.Sub(b.LineCost(l))
	for _, r := range replacements {
		cost = cost.Add(b.Price(r.Product).Mul(decimal.NewFromInt(int64(r.Quantity))))
	}
	if !b.fits(cost) {
		return nil, fmt.Errorf("%w: combination would cost %s", ErrBudgetExceeded, cost.StringFixed(2))
	}

	if l.Original == nil {
		orig := l.Product
		l.Original = &orig
		l.OriginalQuantity = l.Quantity
	}
	group := l.ID
	if l.Group != "" {
		group = l.Group
	}
	l.Group = group
	l.Product = replacements[0].Product
	l.Quantity = replacements[0].Quantity
	l.refresh()

	original, originalQty := l.Original, l.OriginalQuantity
	ids := []string{l.ID}
	for _, r := range replacements[1:] {
		sibling := Line{
			ID:               uuid.NewString(),
			Product:          r.Product,
			Quantity:         r.Quantity,
			Source:           SourceSubstitute,
			Original:         original,
			OriginalQuantity: originalQty,
			Group:            group,
		}
		sibling.refresh()
		b.Lines = append(b.Lines, sibling)
		ids = append(ids, sibling.ID)
	}
	b.recompute()

	out := make([]*Line, 0, len(ids))
	for _, id := range ids {
		line, _ := b.Line(id)
		out = append(out, line)
	}
	return out, nil
}

// Revert restores the original product and quantity of a substituted line and removes
// the extra lines of a combined substitution
func (b *Basket) Revert(lineID string) (*Line, error) {
	i, err := b.index(lineID)
	if err != nil {
		return nil, err
	}
	if b.Lines[i].Original == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotSubstituted, lineID)
	}

	// the primary line of a group is the one whose ID names the group
	primaryID := lineID
	if g := b.Lines[i].Group; g != "" {
		primaryID = g
	}

	kept := make([]Line, 0, len(b.Lines))
	restored := false
	for _, l := range b.Lines {
		switch {
		case l.ID == primaryID:
			l.Product = *l.Original
			l.Quantity = l.OriginalQuantity
			l.Original = nil
			l.OriginalQuantity = 0
			l.Group = ""
			l.refresh()
			kept = append(kept, l)
			restored = true
		case l.Group != "" && l.Group == primaryID:
			continue
		default:
			kept = append(kept, l)
		}
	}
	if !restored {
		return nil, fmt.Errorf("%w: %s", ErrLineNotFound, primaryID)
	}

	cost := decimal.Zero
	for j := range kept {
		cost = cost.Add(b.LineCost(&kept[j]))
	}
	if !b.fits(cost) {
		return nil, fmt.Errorf("%w: reverting would cost %s", ErrBudgetExceeded, cost.StringFixed(2))
	}

	b.Lines = kept
	b.recompute()
	return b.Line(primaryID)
}
