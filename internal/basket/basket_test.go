package basket

import (
	"testing"

	"github.com/noot-app/mealbasket-mcp-server/internal/nutrition"
	"github.com/noot-app/mealbasket-mcp-server/internal/testutil"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBasket(budget *decimal.Decimal) *Basket {
	req := Request{Days: 2, HouseholdSize: 2, Target: DefaultTarget(), Meals: AllMeals(), Budget: budget}
	b := newBasket(req)

	chicken := testutil.NewProduct("chicken", "Chicken Fillet").
		WithWeight("900g").WithPrice("ICA", 99).WithNutrition(110, 23, 0, 2).Build()
	pasta := testutil.NewProduct("pasta", "Spaghetti").
		WithWeight("1kg").WithPrice("ICA", 18).WithNutrition(355, 12, 70, 2).Build()

	b.add(Line{Product: chicken, Quantity: 2, Source: SourceSlot, Slot: "chicken fillet"}, false)
	b.add(Line{Product: pasta, Quantity: 1, Source: SourceSlot, Slot: "pasta"}, false)
	return b
}

func TestBasket_AddAndMerge(t *testing.T) {
	b := testBasket(nil)
	require.Len(t, b.Lines, 2)
	assert.True(t, b.Cost.Equal(decimal.NewFromInt(216)))
	assert.InDelta(t, 2*990+3550, b.Totals.Calories, 1e-9)

	pasta := b.Lines[1].Product
	b.add(Line{Product: pasta, Quantity: 2, Source: SourceFiller}, true)
	require.Len(t, b.Lines, 2)
	assert.Equal(t, 3, b.Lines[1].Quantity)
	assert.True(t, b.Cost.Equal(decimal.NewFromInt(252)))

	b.add(Line{Product: pasta, Quantity: 1, Source: SourceSlot}, false)
	assert.Len(t, b.Lines, 3)
}

func TestBasket_SubstituteAndRevert(t *testing.T) {
	b := testBasket(nil)
	lineID := b.Lines[0].ID
	turkey := testutil.NewProduct("turkey", "Turkey Breast").
		WithWeight("500g").WithPrice("ICA", 65).WithNutrition(105, 24, 0, 1).Build()

	l, err := b.Substitute(lineID, turkey)
	require.NoError(t, err)
	assert.Equal(t, "Turkey Breast", l.Product.Name)
	assert.Equal(t, 2, l.Quantity)
	require.NotNil(t, l.Original)
	assert.Equal(t, "Chicken Fillet", l.Original.Name)
	assert.True(t, b.Cost.Equal(decimal.NewFromInt(148)))

	// a second substitution keeps the first original
	tofu := testutil.NewProduct("tofu", "Tofu").WithPrice("ICA", 25).Build()
	l, err = b.Substitute(lineID, tofu)
	require.NoError(t, err)
	assert.Equal(t, "Chicken Fillet", l.Original.Name)

	l, err = b.Revert(lineID)
	require.NoError(t, err)
	assert.Equal(t, "Chicken Fillet", l.Product.Name)
	assert.Nil(t, l.Original)
	assert.True(t, b.Cost.Equal(decimal.NewFromInt(216)))

	_, err = b.Revert(lineID)
	assert.ErrorIs(t, err, ErrNotSubstituted)

	_, err = b.Substitute("missing", tofu)
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestBasket_SubstituteOverBudget(t *testing.T) {
	budget := decimal.NewFromInt(250)
	b := testBasket(&budget)
	salmon := testutil.NewProduct("salmon", "Salmon").WithPrice("ICA", 120).Build()

	_, err := b.Substitute(b.Lines[0].ID, salmon)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Equal(t, "Chicken Fillet", b.Lines[0].Product.Name)
	assert.True(t, b.Cost.Equal(decimal.NewFromInt(216)))
}

func TestBasket_SubstituteCombined(t *testing.T) {
	b := testBasket(nil)
	lineID := b.Lines[0].ID

	beans := testutil.NewProduct("beans", "Kidney Beans").
		WithWeight("410g").WithPrice("ICA", 14).WithNutrition(110, 8, 15, 0.5).Build()
	tofu := testutil.NewProduct("tofu", "Tofu").
		WithWeight("400g").WithPrice("ICA", 27).WithNutrition(120, 13, 2, 7).Build()

	lines, err := b.SubstituteCombined(lineID, []Replacement{{Product: beans, Quantity: 2}, {Product: tofu, Quantity: 1}})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Len(t, b.Lines, 3)

	assert.Equal(t, lineID, lines[0].ID)
	assert.Equal(t, "Kidney Beans", lines[0].Product.Name)
	assert.Equal(t, "Tofu", lines[1].Product.Name)
	assert.Equal(t, SourceSubstitute, lines[1].Source)
	for _, l := range lines {
		assert.Equal(t, lineID, l.Group)
		require.NotNil(t, l.Original)
		assert.Equal(t, "Chicken Fillet", l.Original.Name)
	}
	assert.True(t, b.Cost.Equal(decimal.NewFromInt(28+27+18)))

	// reverting through a sibling restores the primary line and drops the siblings
	restored, err := b.Revert(lines[1].ID)
	require.NoError(t, err)
	assert.Equal(t, lineID, restored.ID)
	assert.Equal(t, "Chicken Fillet", restored.Product.Name)
	assert.Equal(t, 2, restored.Quantity)
	assert.Empty(t, restored.Group)
	assert.Len(t, b.Lines, 2)
	assert.True(t, b.Cost.Equal(decimal.NewFromInt(216)))
}

func TestBasket_SubstituteCombinedErrors(t *testing.T) {
	budget := decimal.NewFromInt(230)
	b := testBasket(&budget)
	lineID := b.Lines[0].ID
	beans := testutil.NewProduct("beans", "Kidney Beans").WithPrice("ICA", 14).Build()

	_, err := b.SubstituteCombined(lineID, nil)
	assert.ErrorIs(t, err, ErrNoReplacements)

	_, err = b.SubstituteCombined(lineID, []Replacement{{Product: beans, Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = b.SubstituteCombined(lineID, []Replacement{{Product: beans, Quantity: 20}})
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Len(t, b.Lines, 2)
}

func TestBasket_RevertOverBudget(t *testing.T) {
	budget := decimal.NewFromInt(250)
	b := testBasket(&budget)
	lineID := b.Lines[0].ID

	tofu := testutil.NewProduct("tofu", "Tofu").WithPrice("ICA", 25).Build()
	_, err := b.Substitute(lineID, tofu)
	require.NoError(t, err)

	rice := testutil.NewProduct("rice", "Rice").WithPrice("ICA", 100).Build()
	b.add(Line{Product: rice, Quantity: 1, Source: SourceSlot}, false)
	require.True(t, b.Cost.Equal(decimal.NewFromInt(168)))

	_, err = b.Revert(lineID)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Equal(t, "Tofu", b.Lines[0].Product.Name)
}

func TestBasket_SubstituteBudget(t *testing.T) {
	explicit := decimal.NewFromInt(40)
	assert.Nil(t, testBasket(nil).SubstituteBudget(nil))
	assert.True(t, testBasket(nil).SubstituteBudget(&explicit).Equal(explicit))

	budget := decimal.NewFromInt(300)
	auto := testBasket(&budget).SubstituteBudget(nil)
	require.NotNil(t, auto)
	assert.True(t, auto.Equal(decimal.NewFromInt(225)), "got %s", auto)
}

func TestBasket_StorePricing(t *testing.T) {
	b := testBasket(nil)
	milk := types.Product{
		ID:   "milk",
		Name: "Milk",
		Prices: map[string]decimal.Decimal{
			"ICA":    decimal.NewFromInt(20),
			"Willys": decimal.NewFromInt(17),
		},
	}

	assert.True(t, b.Price(milk).Equal(decimal.NewFromInt(17)))
	b.Store = "ica"
	assert.True(t, b.Price(milk).Equal(decimal.NewFromInt(20)))
	b.Store = "Lidl"
	assert.True(t, b.Price(milk).Equal(decimal.NewFromInt(17)))
}

func TestReport(t *testing.T) {
	budget := decimal.NewFromInt(300)
	b := testBasket(&budget)
	b.Skipped = []SkippedSlot{{Term: "salmon", Reason: SkipNotFound, Source: SourceSlot}}

	r := b.Report()
	assert.InDelta(t, 8000.0, r.Targets.Calories, 1e-9)
	assert.InDelta(t, (2*990+3550)/8000.0*100, r.Coverage.Calories, 1e-9)
	assert.True(t, r.CostPerPerson.Equal(decimal.NewFromInt(108)))
	require.NotNil(t, r.Remaining)
	assert.True(t, r.Remaining.Equal(decimal.NewFromInt(84)))
	assert.Len(t, r.Skipped, 1)
	assert.InDelta(t, 400.0, r.MealCalories["breakfast"], 1e-9)
	assert.InDelta(t, 700.0, r.MealCalories["dinner"], 1e-9)

	require.Len(t, r.Micronutrients, 4)
	assert.Equal(t, "vitamin_c", r.Micronutrients[0].Name)
	assert.InDelta(t, 320.0, r.Micronutrients[0].Recommended, 1e-9)
}

func TestCoverageOf_ZeroTarget(t *testing.T) {
	c := CoverageOf(
		nutrition.Totals{Calories: 100, Protein: 10},
		nutrition.Totals{Calories: 0, Protein: 20},
	)
	assert.Zero(t, c.Calories)
	assert.InDelta(t, 50.0, c.Protein, 1e-9)
}
