package catalog

import (
	"strings"
	"testing"

	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	products, err := Seed()
	require.NoError(t, err)
	require.NotEmpty(t, products)

	ids := make(map[string]bool)
	for _, p := range products {
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Category)
		assert.True(t, p.IsPriced(), "%s should be priced", p.Name)
		assert.NotNil(t, p.Nutrition, "%s should carry nutrition", p.Name)
		assert.False(t, ids[p.ID], "duplicate id for %s", p.Name)
		ids[p.ID] = true

		_, err := types.ParseWeightStrict(p.Weight)
		assert.NoError(t, err, "weight of %s", p.Name)
	}

	chicken := products[0]
	for _, p := range products {
		if p.Name == "Chicken Breast Fillet" {
			chicken = p
		}
	}
	assert.Equal(t, "Kronfågel", chicken.Brand)
	assert.True(t, decimal.NewFromInt(95).Equal(chicken.Prices["Willys"]))
	assert.InDelta(t, 900, chicken.PackageGrams(), 1e-9)
}

func TestDecodeProducts(t *testing.T) {
	input := `[
		{"category": "Milk", "name": "Skim Milk", "brand": "Arla", "weight": "1l",
		 "prices": {"ICA": 12.5, "Coop": null}, "allergens": ["lactose", "animal"]},
		{"category": "rice", "name": "Rice", "nutrition": {"calories": 350, "protein": 7}}
	]`

	products, err := DecodeProducts(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, products, 2)

	milk := products[0]
	assert.Equal(t, "milk", milk.Category)
	assert.Equal(t, types.NewProductID("milk", "Skim Milk", "Arla"), milk.ID)
	assert.Len(t, milk.Prices, 1, "null prices are dropped")
	assert.Nil(t, milk.Nutrition)
	assert.True(t, milk.HasAllergen(types.AllergenLactose))

	rice := products[1]
	assert.False(t, rice.IsPriced())
	require.NotNil(t, rice.Nutrition)
	assert.Equal(t, 0.0, rice.Nutrition.Fat)
}

func TestDecodeProducts_Errors(t *testing.T) {
	_, err := DecodeProducts(strings.NewReader(`{"not": "an array"}`))
	assert.Error(t, err)

	_, err = DecodeProducts(strings.NewReader(`[{"category": "milk"}]`))
	assert.Error(t, err)
}
