// Package basket builds shopping baskets that approximate a nutrition target within a budget
package basket

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/noot-app/mealbasket-mcp-server/internal/diet"
	"github.com/noot-app/mealbasket-mcp-server/internal/nutrition"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTarget  = errors.New("invalid nutrition target")
	ErrInvalidRequest = errors.New("invalid basket request")
	ErrLineNotFound   = errors.New("basket line not found")
	ErrNotSubstituted = errors.New("basket line has not been substituted")
	ErrBudgetExceeded = errors.New("change would exceed the basket budget")
	ErrNoReplacements = errors.New("no replacement products given")
)

var validate = validator.New()

// Target is a per-person daily nutrition goal
type Target struct {
	Calories float64 `json:"calories" validate:"gt=0"`
	Protein  float64 `json:"protein" validate:"gte=0"`
	Carbs    float64 `json:"carbs" validate:"gte=0"`
	Fat      float64 `json:"fat" validate:"gte=0"`
	Fiber    float64 `json:"fiber" validate:"gte=0"`
}

// DefaultTarget returns the recommended daily intake for a moderately active adult
func DefaultTarget() Target {
	return Target{Calories: 2000, Protein: 60, Carbs: 280, Fat: 70, Fiber: 30}
}

// Intake is one recommended daily intake entry
type Intake struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// RecommendedIntake lists the daily reference values used for targets and nutrition summaries
var RecommendedIntake = map[string]Intake{
	"calories":  {2000, "kcal"},
	"protein":   {60, "g"},
	"carbs":     {280, "g"},
	"fat":       {70, "g"},
	"fiber":     {30, "g"},
	"sugar":     {50, "g"},
	"salt":      {6, "g"},
	"vitamin_a": {800, "µg"},
	"vitamin_c": {80, "mg"},
	"vitamin_d": {15, "µg"},
	"calcium":   {900, "mg"},
	"iron":      {12, "mg"},
	"potassium": {3500, "mg"},
}

// Stores lists the retailers the catalog prices against
var Stores = []string{"ICA", "Coop", "Willys", "Hemköp", "Lidl", "City Gross"}

// Meals is the meal-inclusion mask
type Meals struct {
	Breakfast bool `json:"breakfast"`
	Lunch     bool `json:"lunch"`
	Dinner    bool `json:"dinner"`
	Snacks    bool `json:"snacks"`
}

// AllMeals includes every meal
func AllMeals() Meals {
	return Meals{Breakfast: true, Lunch: true, Dinner: true, Snacks: true}
}

// Default energy share of each meal
const (
	BreakfastShare = 0.20
	LunchShare     = 0.35
	DinnerShare    = 0.35
	SnackShare     = 0.10
)

// Any reports whether at least one meal is included
func (m Meals) Any() bool {
	return m.Breakfast || m.Lunch || m.Dinner || m.Snacks
}

// Shares returns each included meal's energy share, renormalized to sum to 1
func (m Meals) Shares() map[string]float64 {
	raw := map[string]float64{}
	if m.Breakfast {
		raw["breakfast"] = BreakfastShare
	}
	if m.Lunch {
		raw["lunch"] = LunchShare
	}
	if m.Dinner {
		raw["dinner"] = DinnerShare
	}
	if m.Snacks {
		raw["snacks"] = SnackShare
	}

	sum := 0.0
	for _, v := range raw {
		sum += v
	}
	for k, v := range raw {
		raw[k] = v / sum
	}
	return raw
}

// Request is a planning request
type Request struct {
	Days          int              `json:"days" validate:"min=1,max=31"`
	HouseholdSize int              `json:"household_size" validate:"min=1,max=12"`
	Target        Target           `json:"target" validate:"-"`
	Meals         Meals            `json:"meals" validate:"-"`
	Exclusions    diet.Exclusions  `json:"exclusions,omitempty" validate:"-"`
	Budget        *decimal.Decimal `json:"budget,omitempty" validate:"-"`
	Store         string           `json:"store,omitempty" validate:"max=64"`
}

// Validate checks the request, wrapping ErrInvalidTarget or ErrInvalidRequest
func (r Request) Validate() error {
	if err := validate.Struct(r.Target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if !r.Meals.Any() {
		return fmt.Errorf("%w: no meals included", ErrInvalidTarget)
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r.Budget != nil && !r.Budget.IsPositive() {
		return fmt.Errorf("%w: budget must be positive", ErrInvalidRequest)
	}
	return nil
}

// People returns days × household size
func (r Request) People() int {
	return r.Days * r.HouseholdSize
}

// TotalTarget scales the daily target to the whole household and period
func (r Request) TotalTarget() nutrition.Totals {
	f := float64(r.People())
	return nutrition.Totals{
		Calories: r.Target.Calories * f,
		Protein:  r.Target.Protein * f,
		Carbs:    r.Target.Carbs * f,
		Fat:      r.Target.Fat * f,
		Fiber:    r.Target.Fiber * f,
	}
}
