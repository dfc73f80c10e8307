package basket

import (
	"github.com/noot-app/mealbasket-mcp-server/internal/nutrition"
	"github.com/shopspring/decimal"
)

// SkipReason explains why a slot or filler added nothing to the basket
type SkipReason string

const (
	SkipNoMeals      SkipReason = "no_meals"
	SkipSatisfied    SkipReason = "satisfied"
	SkipNotFound     SkipReason = "not_found"
	SkipOverBudget   SkipReason = "over_budget"
	SkipOverCalories SkipReason = "over_calories"
)

// SkippedSlot records a slot (or filler) that produced no line
type SkippedSlot struct {
	Term   string     `json:"term"`
	Reason SkipReason `json:"reason"`
	Source string     `json:"source"`
}

// Coverage is the percentage of each target met by the basket totals
type Coverage struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
}

// Micronutrient compares a basket total against the household's recommended intake
type Micronutrient struct {
	Name        string  `json:"name"`
	Unit        string  `json:"unit"`
	Total       float64 `json:"total"`
	Recommended float64 `json:"recommended"`
	Percent     float64 `json:"percent"`
}

// Report summarises a basket against its request
type Report struct {
	Coverage       Coverage           `json:"coverage"`
	Totals         nutrition.Totals   `json:"totals"`
	Targets        nutrition.Totals   `json:"targets"`
	Cost           decimal.Decimal    `json:"cost"`
	CostPerPerson  decimal.Decimal    `json:"cost_per_person"`
	Remaining      *decimal.Decimal   `json:"remaining_budget,omitempty"`
	Lines          int                `json:"lines"`
	MealCalories   map[string]float64 `json:"meal_calories"`
	Micronutrients []Micronutrient    `json:"micronutrients"`
	Skipped        []SkippedSlot      `json:"skipped,omitempty"`
}

func percent(total, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return total / target * 100
}

// CoverageOf computes per-nutrient coverage; a zero target yields zero
func CoverageOf(totals, targets nutrition.Totals) Coverage {
	return Coverage{
		Calories: percent(totals.Calories, targets.Calories),
		Protein:  percent(totals.Protein, targets.Protein),
		Carbs:    percent(totals.Carbs, targets.Carbs),
		Fat:      percent(totals.Fat, targets.Fat),
		Fiber:    percent(totals.Fiber, targets.Fiber),
	}
}

// Report builds the coverage and cost summary for the basket
func (b *Basket) Report() Report {
	targets := b.Request.TotalTarget()

	household := b.Request.HouseholdSize
	if household < 1 {
		household = 1
	}

	meals := make(map[string]float64)
	for meal, share := range b.Request.Meals.Shares() {
		meals[meal] = b.Request.Target.Calories * share
	}

	skipped := make([]SkippedSlot, len(b.Skipped))
	copy(skipped, b.Skipped)

	return Report{
		Coverage:       CoverageOf(b.Totals, targets),
		Totals:         b.Totals,
		Targets:        targets,
		Cost:           b.Cost,
		CostPerPerson:  b.Cost.Div(decimal.NewFromInt(int64(household))),
		Remaining:      b.Remaining(),
		Lines:          len(b.Lines),
		MealCalories:   meals,
		Micronutrients: b.micronutrients(),
		Skipped:        skipped,
	}
}

func (b *Basket) micronutrients() []Micronutrient {
	people := float64(b.Request.People())
	entries := []struct {
		key   string
		total float64
	}{
		{"vitamin_c", b.Totals.VitaminC},
		{"vitamin_d", b.Totals.VitaminD},
		{"calcium", b.Totals.Calcium},
		{"iron", b.Totals.Iron},
	}

	out := make([]Micronutrient, 0, len(entries))
	for _, e := range entries {
		intake := RecommendedIntake[e.key]
		rec := intake.Value * people
		out = append(out, Micronutrient{
			Name:        e.key,
			Unit:        intake.Unit,
			Total:       e.total,
			Recommended: rec,
			Percent:     percent(e.total, rec),
		})
	}
	return out
}
