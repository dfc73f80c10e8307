package taxonomy

import (
	"testing"

	"github.com/noot-app/mealbasket-mcp-server/internal/catalog"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRule(t *testing.T) {
	tests := []struct {
		name     string
		product  types.Product
		expected ProductType
		rule     string
	}{
		{
			name:     "protein keyword wins over category",
			product:  types.Product{Name: "Vegetarian Mince", Category: "ground beef"},
			expected: ProteinSource,
			rule:     "protein_keyword",
		},
		{
			name:     "protein category",
			product:  types.Product{Name: "Organic Eggs 12-pack", Category: "eggs"},
			expected: ProteinSource,
			rule:     "protein_category",
		},
		{
			name:     "egg in name",
			product:  types.Product{Name: "Free Range Egg", Category: "misc"},
			expected: ProteinSource,
			rule:     "egg",
		},
		{
			name:     "eggplant is not an egg",
			product:  types.Product{Name: "Eggplant", Category: "misc"},
			expected: Other,
			rule:     "fallback",
		},
		{
			name:     "egg sandwich is not an egg",
			product:  types.Product{Name: "Egg Sandwich", Category: "misc", Nutrition: &types.Nutrition{Protein: 9, Carbs: 25}},
			expected: Other,
			rule:     "fallback",
		},
		{
			name:     "cheese as a word",
			product:  types.Product{Name: "Priest Cheese 31%", Category: "misc"},
			expected: Dairy,
			rule:     "dairy",
		},
		{
			name:     "cheesecake is not cheese",
			product:  types.Product{Name: "Cheesecake", Category: "desserts", Nutrition: &types.Nutrition{Protein: 5, Carbs: 30}},
			expected: Other,
			rule:     "fallback",
		},
		{
			name:     "oat drink filed as milk is dairy",
			product:  types.Product{Name: "Oat Drink Barista", Brand: "Oatly", Category: "milk"},
			expected: Dairy,
			rule:     "dairy",
		},
		{
			name:     "nutrition fallback",
			product:  types.Product{Name: "Almonds", Category: "nuts", Nutrition: &types.Nutrition{Protein: 21, Carbs: 9}},
			expected: ProteinSource,
			rule:     "protein_nutrition",
		},
		{
			name:     "nutrition fallback is strict",
			product:  types.Product{Name: "Walnuts", Category: "nuts", Nutrition: &types.Nutrition{Protein: 15, Carbs: 14}},
			expected: Other,
			rule:     "fallback",
		},
		{
			name:     "bread keyword",
			product:  types.Product{Name: "Hot Dog Buns 8-pack", Category: "bakery"},
			expected: Bread,
			rule:     "bread",
		},
		{
			name:     "starch keyword",
			product:  types.Product{Name: "Rolled Oats", Category: "cereal"},
			expected: Carbs,
			rule:     "starch",
		},
		{
			name:     "vegetable keyword",
			product:  types.Product{Name: "Red Bell Pepper", Category: "bell peppers"},
			expected: Vegetables,
			rule:     "vegetable",
		},
		{
			name:     "fruit category",
			product:  types.Product{Name: "Clementines", Category: "oranges"},
			expected: Fruit,
			rule:     "fruit",
		},
		{
			name:     "missing nutrition falls through",
			product:  types.Product{Name: "Avocado", Category: "avocado"},
			expected: Other,
			rule:     "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := ClassifyRule(tt.product)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestClassify_SeedCatalog(t *testing.T) {
	products, err := catalog.Seed()
	require.NoError(t, err)

	byName := make(map[string]ProductType)
	for _, p := range products {
		byName[p.Name] = Classify(p)
	}

	expected := map[string]ProductType{
		"Chicken Breast Fillet":  ProteinSource,
		"Quorn Mince":            ProteinSource,
		"Kidney Beans":           ProteinSource,
		"Veggie Balls":           ProteinSource,
		"Eggs M/L 12-pack":       ProteinSource,
		"Almonds":                ProteinSource,
		"Semi-Skimmed Milk 1.5%": Dairy,
		"Soy Drink":              Dairy,
		"Plant-Based Spread":     Dairy,
		"Plant-Based Cheese":     Dairy,
		"Rye Loaf Sliced":        Bread,
		"Gluten-Free Bread":      Bread,
		"Jasmine Rice":           Carbs,
		"Firm Potatoes":          Carbs,
		"Rolled Oats":            Carbs,
		"Crushed Tomatoes":       Vegetables,
		"Baby Spinach":           Vegetables,
		"Bananas":                Fruit,
		"Royal Gala Apples":      Fruit,
		"Avocado":                Other,
		"Walnuts":                Other,
	}
	for name, want := range expected {
		assert.Equal(t, want, byName[name], name)
	}
}

func TestRelatedCategories(t *testing.T) {
	got := RelatedCategories(ProteinSource, "chicken")
	assert.Equal(t, "chicken", got[0])
	assert.Equal(t, "ground beef", got[1])
	assert.Len(t, got, len(CategoryGroup(ProteinSource)), "own category is not repeated")

	got = RelatedCategories(Other, "avocado")
	assert.Equal(t, []string{"avocado"}, got)

	got = RelatedCategories(Dairy, "plant drinks")
	assert.Equal(t, "plant drinks", got[0])
	assert.Contains(t, got, "milk")
}

func TestCompatible(t *testing.T) {
	assert.True(t, Compatible(Dairy, Dairy))
	assert.True(t, Compatible(Dairy, Other))
	assert.False(t, Compatible(Dairy, ProteinSource))
	assert.True(t, Compatible(ProteinSource, ProteinSource))
	assert.False(t, Compatible(ProteinSource, Other))
	assert.False(t, Compatible(Other, Dairy))
	assert.True(t, Compatible(Other, Other))
}

func TestGrouped(t *testing.T) {
	assert.True(t, Grouped("milk"))
	assert.True(t, Grouped("soy mince"))
	assert.False(t, Grouped("nuts"))
	assert.False(t, Grouped("avocado"))
}
