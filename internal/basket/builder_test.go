package basket

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/noot-app/mealbasket-mcp-server/internal/catalog"
	"github.com/noot-app/mealbasket-mcp-server/internal/config"
	"github.com/noot-app/mealbasket-mcp-server/internal/diet"
	"github.com/noot-app/mealbasket-mcp-server/internal/testutil"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coverageCeiling = 105 + 1e-6

func seedBuilder(t *testing.T) *Builder {
	t.Helper()
	products, err := catalog.Seed()
	require.NoError(t, err)
	logger := config.NewTestLogger(io.Discard, "error")
	return NewBuilder(catalog.NewIndex(products, logger), DefaultOptions(), logger)
}

func defaultRequest() Request {
	return Request{
		Days:          3,
		HouseholdSize: 1,
		Target:        DefaultTarget(),
		Meals:         AllMeals(),
	}
}

func TestBuild_DefaultRequest(t *testing.T) {
	b, err := seedBuilder(t).Build(context.Background(), defaultRequest())
	require.NoError(t, err)
	require.NotEmpty(t, b.Lines)

	report := b.Report()
	assert.GreaterOrEqual(t, report.Coverage.Calories, 90.0)
	assert.LessOrEqual(t, report.Coverage.Calories, coverageCeiling)
	assert.InDelta(t, 6000.0, report.Targets.Calories, 1e-9)
	assert.True(t, report.Cost.IsPositive())
	assert.True(t, report.Cost.Equal(report.CostPerPerson))
	assert.Nil(t, report.Remaining)
	assert.Equal(t, len(b.Lines), report.Lines)

	ids := map[string]bool{}
	for _, l := range b.Lines {
		assert.NotEmpty(t, l.ID)
		assert.False(t, ids[l.ID], "duplicate line id %s", l.ID)
		ids[l.ID] = true
		assert.GreaterOrEqual(t, l.Quantity, 1)
		assert.LessOrEqual(t, l.Quantity, 2)
	}
}

func TestBuild_Exclusions(t *testing.T) {
	tests := []struct {
		name       string
		exclusions diet.Exclusions
		forbidden  []types.Allergen
		plantSlot  bool
	}{
		{"gluten", diet.Exclusions{diet.Gluten}, []types.Allergen{types.AllergenGluten}, false},
		{"lactose", diet.Exclusions{diet.Lactose}, []types.Allergen{types.AllergenLactose}, false},
		{"vegetarian", diet.Exclusions{diet.Vegetarian}, []types.Allergen{types.AllergenMeat, types.AllergenFish}, true},
		{"vegan", diet.Exclusions{diet.Vegan}, []types.Allergen{types.AllergenAnimal, types.AllergenMeat, types.AllergenFish}, true},
	}

	builder := seedBuilder(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := defaultRequest()
			req.Exclusions = tt.exclusions

			b, err := builder.Build(context.Background(), req)
			require.NoError(t, err)
			require.NotEmpty(t, b.Lines)

			plant := false
			for _, l := range b.Lines {
				for _, tag := range tt.forbidden {
					assert.False(t, l.Product.HasAllergen(tag), "%s carries %s", l.Product.Name, tag)
				}
				switch l.Slot {
				case "tofu", "quorn", "lentils", "beans", "soy mince":
					plant = true
				case "chicken fillet", "ground beef", "salmon", "pork fillet", "sausage":
					assert.False(t, tt.plantSlot, "meat slot %s in plant-based basket", l.Slot)
				}
			}
			assert.Equal(t, tt.plantSlot, plant)
			assert.LessOrEqual(t, b.Report().Coverage.Calories, coverageCeiling)
		})
	}
}

func TestBuild_Budget(t *testing.T) {
	req := defaultRequest()
	budget := decimal.NewFromInt(150)
	req.Budget = &budget

	b, err := seedBuilder(t).Build(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, b.Cost.LessThanOrEqual(budget), "cost %s over budget", b.Cost)
	require.NotNil(t, b.Remaining())
	assert.True(t, b.Remaining().Equal(budget.Sub(b.Cost)))
	for _, l := range b.Lines {
		assert.True(t, l.Product.IsPriced(), "%s has no price", l.Product.Name)
	}

	reasons := map[SkipReason]bool{}
	for _, s := range b.Skipped {
		reasons[s.Reason] = true
	}
	assert.True(t, reasons[SkipOverBudget])
}

func TestBuild_RandomCatalogHonorsBudgetAndExclusions(t *testing.T) {
	f := testutil.NewProductFactory(7)
	logger := config.NewTestLogger(io.Discard, "error")
	builder := NewBuilder(catalog.NewIndex(f.Products(300), logger), DefaultOptions(), logger)

	for i := 0; i < 40; i++ {
		budget := f.Budget(50, 2000)
		exclusions := diet.Exclusions{testutil.Pick(f, diet.Vocabulary)}
		req := Request{
			Days:          f.Intn(1, 10),
			HouseholdSize: f.Intn(1, 5),
			Target:        DefaultTarget(),
			Meals: Meals{
				Breakfast: f.Chance(0.8),
				Lunch:     f.Chance(0.8),
				Dinner:    true,
				Snacks:    f.Chance(0.5),
			},
			Exclusions: exclusions,
			Budget:     &budget,
			Store:      testutil.Pick(f, []string{"", "ICA", "Coop", "Willys", "Lidl"}),
		}

		b, err := builder.Build(context.Background(), req)
		require.NoError(t, err)

		assert.True(t, b.Cost.LessThanOrEqual(budget), "run %d: cost %s over budget %s", i, b.Cost, budget)
		assert.LessOrEqual(t, b.Report().Coverage.Calories, coverageCeiling, "run %d", i)
		for _, l := range b.Lines {
			assert.True(t, exclusions.Allows(l.Product), "run %d: %s violates %v", i, l.Product.Name, exclusions)
		}
	}
}

func TestBuild_ZeroMealSlotsAreSkipped(t *testing.T) {
	req := defaultRequest()
	req.Days = 1
	req.Meals = Meals{Dinner: true}

	b, err := seedBuilder(t).Build(context.Background(), req)
	require.NoError(t, err)

	for _, s := range b.Skipped {
		if s.Source == SourceSlot {
			assert.Equal(t, SkipNoMeals, s.Reason, s.Term)
		}
	}
	for _, l := range b.Lines {
		assert.Equal(t, SourceFiller, l.Source)
	}
	assert.LessOrEqual(t, b.Report().Coverage.Calories, coverageCeiling)
}

func TestBuild_InvalidRequest(t *testing.T) {
	negative := decimal.NewFromInt(-5)

	tests := []struct {
		name   string
		mutate func(r *Request)
		want   error
	}{
		{"zero calories", func(r *Request) { r.Target.Calories = 0 }, ErrInvalidTarget},
		{"negative protein", func(r *Request) { r.Target.Protein = -1 }, ErrInvalidTarget},
		{"no meals", func(r *Request) { r.Meals = Meals{} }, ErrInvalidTarget},
		{"zero days", func(r *Request) { r.Days = 0 }, ErrInvalidRequest},
		{"household too large", func(r *Request) { r.HouseholdSize = 40 }, ErrInvalidRequest},
		{"negative budget", func(r *Request) { r.Budget = &negative }, ErrInvalidRequest},
	}

	builder := seedBuilder(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := defaultRequest()
			tt.mutate(&req)
			_, err := builder.Build(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuild_CatalogFailure(t *testing.T) {
	products, err := catalog.Seed()
	require.NoError(t, err)
	mock := catalog.NewMock(products)
	mock.SetError(errors.New("connection reset"))

	builder := NewBuilder(mock, DefaultOptions(), config.NewTestLogger(io.Discard, "error"))
	b, err := builder.Build(context.Background(), defaultRequest())
	require.NoError(t, err)

	assert.Empty(t, b.Lines)
	require.NotEmpty(t, b.Skipped)
	for _, s := range b.Skipped {
		if s.Reason != SkipNoMeals {
			assert.Equal(t, SkipNotFound, s.Reason, s.Term)
		}
	}
	assert.Greater(t, mock.Calls(), 0)
}

func TestBuild_NoNutritionUsesEstimate(t *testing.T) {
	oats := testutil.NewProduct("oats", "Rolled Oats").WithWeight("1kg").Build()
	logger := config.NewTestLogger(io.Discard, "error")
	builder := NewBuilder(catalog.NewIndex([]types.Product{oats}, logger), DefaultOptions(), logger)

	req := Request{Days: 7, HouseholdSize: 2, Target: DefaultTarget(), Meals: Meals{Breakfast: true}}
	b, err := builder.Build(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, b.Lines, 1)

	l := b.Lines[0]
	assert.Equal(t, "oats", l.Slot)
	assert.Equal(t, 370.0, l.EstimatedKcal)
	assert.InDelta(t, 3700*float64(l.Quantity), l.Contribution.Calories, 1e-9)
	assert.Zero(t, l.Contribution.Protein)
}

func TestBuild_BudgetFallback(t *testing.T) {
	// 4 days of lunch and dinner: the chicken fillet slot needs 2 meals × 175 g = 350 g
	small := testutil.NewProduct("chicken", "Chicken Strips").WithWeight("200g").WithPrice("ICA", 10).WithNutrition(110, 23, 0, 2).Build()
	large := testutil.NewProduct("chicken", "Chicken Breast").WithWeight("500g").WithPrice("ICA", 15).WithNutrition(110, 23, 0, 2).Build()
	pricey := testutil.NewProduct("chicken", "Chicken Thigh").WithWeight("500g").WithPrice("ICA", 30).WithNutrition(150, 18, 0, 9).Build()

	tests := []struct {
		name         string
		products     []types.Product
		budget       int64
		wantProduct  string
		wantQuantity int
		wantCost     int64
	}{
		// 2 × 10 kr is over budget, the next ranked single pack fits
		{"next ranked candidate", []types.Product{small, large}, 16, "Chicken Breast", 1, 15},
		// nothing fits at full quantity, the cheapest fits with one package fewer
		{"one package fewer", []types.Product{small, pricey}, 15, "Chicken Strips", 1, 10},
		{"nothing fits", []types.Product{small, pricey}, 5, "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := config.NewTestLogger(io.Discard, "error")
			builder := NewBuilder(catalog.NewIndex(tt.products, logger), DefaultOptions(), logger)

			budget := decimal.NewFromInt(tt.budget)
			req := Request{
				Days:          4,
				HouseholdSize: 1,
				Target:        DefaultTarget(),
				Meals:         Meals{Lunch: true, Dinner: true},
				Budget:        &budget,
			}
			b, err := builder.Build(context.Background(), req)
			require.NoError(t, err)
			assert.True(t, b.Cost.Equal(decimal.NewFromInt(tt.wantCost)), "cost %s", b.Cost)

			if tt.wantProduct == "" {
				assert.Empty(t, b.Lines)
				assert.Contains(t, b.Skipped, SkippedSlot{Term: "chicken fillet", Reason: SkipOverBudget, Source: SourceSlot})
				return
			}
			require.Len(t, b.Lines, 1)
			assert.Equal(t, tt.wantProduct, b.Lines[0].Product.Name)
			assert.Equal(t, tt.wantQuantity, b.Lines[0].Quantity)
			assert.Equal(t, "chicken fillet", b.Lines[0].Slot)
			assert.Equal(t, SourceSlot, b.Lines[0].Source)
		})
	}
}

func TestBuild_KeepsVegetablesAndFruit(t *testing.T) {
	req := defaultRequest()
	b, err := seedBuilder(t).Build(context.Background(), req)
	require.NoError(t, err)

	kinds := map[string]Kind{}
	for _, s := range GenerateSlots(req.Days, req.HouseholdSize, req.Meals, false) {
		kinds[s.Term] = s.Kind
	}
	present := map[Kind]bool{}
	for _, l := range b.Lines {
		if l.Source == SourceSlot {
			present[kinds[l.Slot]] = true
		}
	}

	assert.True(t, present[KindVegetables], "no vegetable line")
	assert.True(t, present[KindFruit], "no fruit line")
	assert.True(t, present[KindProtein], "no protein line")
	assert.LessOrEqual(t, b.Report().Coverage.Calories, coverageCeiling)
}

func TestBuild_SingleDayTakesLargePackage(t *testing.T) {
	// one loaf is far more than one breakfast needs, but still under a day's calories
	bread := testutil.NewProduct("bread", "Rye Loaf").WithWeight("775g").WithNutrition(220, 7, 40, 2).Build()
	milk := testutil.NewProduct("milk", "Skimmed Milk").WithWeight("1l").WithNutrition(30, 3.5, 5, 0.1).Build()
	logger := config.NewTestLogger(io.Discard, "error")
	builder := NewBuilder(catalog.NewIndex([]types.Product{bread, milk}, logger), DefaultOptions(), logger)

	req := defaultRequest()
	req.Days = 1
	b, err := builder.Build(context.Background(), req)
	require.NoError(t, err)

	slots := map[string]bool{}
	for _, l := range b.Lines {
		slots[l.Slot] = true
	}
	assert.True(t, slots["bread"])
	assert.True(t, slots["milk"])

	coverage := b.Report().Coverage.Calories
	assert.GreaterOrEqual(t, coverage, 90.0)
	assert.LessOrEqual(t, coverage, coverageCeiling)
}

func TestBuild_FillerTriesNextCandidate(t *testing.T) {
	// the first ground beef pack alone would overshoot the ceiling, the second fits
	big := testutil.NewProduct("ground beef", "Ground Beef 2kg").WithWeight("2kg").WithNutrition(180, 20, 0, 12).Build()
	small := testutil.NewProduct("ground beef", "Ground Beef 500g").WithWeight("500g").WithNutrition(180, 20, 0, 12).Build()
	logger := config.NewTestLogger(io.Discard, "error")
	builder := NewBuilder(catalog.NewIndex([]types.Product{big, small}, logger), DefaultOptions(), logger)

	req := defaultRequest()
	req.Days = 1
	req.Meals = Meals{Dinner: true}
	b, err := builder.Build(context.Background(), req)
	require.NoError(t, err)

	require.NotEmpty(t, b.Lines)
	assert.Equal(t, "Ground Beef 500g", b.Lines[0].Product.Name)
	assert.Equal(t, SourceFiller, b.Lines[0].Source)
	assert.LessOrEqual(t, b.Report().Coverage.Calories, coverageCeiling)
}
