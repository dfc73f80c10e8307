// Package testutil provides seeded test data factories for catalog products
package testutil

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/shopspring/decimal"
)

var (
	stores     = []string{"ICA", "Coop", "Willys"}
	categories = []string{"chicken", "pasta", "milk", "bread", "tofu", "apples", "cheese", "beans", "rice", "snacks"}
	weights    = []string{"200g", "400g", "500g", "900g", "1kg", "1.5kg", "1l", "5dl", "2st", "family pack"}
)

// ProductFactory generates random but reproducible products
type ProductFactory struct {
	faker *gofakeit.Faker
}

// NewProductFactory creates a factory with a seeded faker
func NewProductFactory(seed int64) *ProductFactory {
	return &ProductFactory{faker: gofakeit.New(seed)}
}

// Product generates one product; roughly one in ten has no nutrition and one
// in ten has no prices
func (f *ProductFactory) Product() types.Product {
	category := categories[f.faker.Number(0, len(categories)-1)]
	name := fmt.Sprintf("%s %s", f.faker.Adjective(), f.faker.Noun())
	brand := f.faker.Company()

	p := types.Product{
		ID:       types.NewProductID(category, name, brand),
		Name:     name,
		Brand:    brand,
		Weight:   weights[f.faker.Number(0, len(weights)-1)],
		Category: category,
	}

	if f.faker.Number(1, 10) > 1 {
		p.Prices = make(map[string]decimal.Decimal)
		for _, store := range stores {
			if f.faker.Bool() || len(p.Prices) == 0 {
				p.Prices[store] = decimal.NewFromFloat(f.faker.Float64Range(5, 150)).Round(2)
			}
		}
	}

	if f.faker.Number(1, 10) > 1 {
		p.Nutrition = &types.Nutrition{
			Calories: f.faker.Float64Range(10, 800),
			Protein:  f.faker.Float64Range(0, 35),
			Carbs:    f.faker.Float64Range(0, 80),
			Fat:      f.faker.Float64Range(0, 40),
			Fiber:    f.faker.Float64Range(0, 12),
		}
	}

	for _, tag := range types.Allergens {
		if f.faker.Number(1, 5) == 1 {
			p.Allergens = append(p.Allergens, tag)
		}
	}

	return p
}

// Products generates n products
func (f *ProductFactory) Products(n int) []types.Product {
	out := make([]types.Product, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.Product())
	}
	return out
}

// Budget returns a random budget in whole currency units
func (f *ProductFactory) Budget(min, max int) decimal.Decimal {
	return decimal.NewFromInt(int64(f.faker.Number(min, max)))
}

// Pick returns a random element of the slice
func Pick[T any](f *ProductFactory, items []T) T {
	return items[f.faker.Number(0, len(items)-1)]
}

// Intn returns a random int in [min, max]
func (f *ProductFactory) Intn(min, max int) int {
	return f.faker.Number(min, max)
}

// Chance returns true with roughly the given probability
func (f *ProductFactory) Chance(p float64) bool {
	return f.faker.Float64Range(0, 1) < p
}

// ProductBuilder provides a fluent interface for hand-built test products
type ProductBuilder struct {
	product types.Product
}

// NewProduct starts a builder with a priced 500 g product
func NewProduct(category, name string) *ProductBuilder {
	return &ProductBuilder{product: types.Product{
		ID:       types.NewProductID(category, name, ""),
		Name:     name,
		Category: category,
		Weight:   "500g",
		Prices:   map[string]decimal.Decimal{"ICA": decimal.NewFromInt(20)},
	}}
}

// WithWeight sets the package weight string
func (b *ProductBuilder) WithWeight(weight string) *ProductBuilder {
	b.product.Weight = weight
	return b
}

// WithPrice sets the price at a store
func (b *ProductBuilder) WithPrice(store string, price float64) *ProductBuilder {
	if b.product.Prices == nil {
		b.product.Prices = make(map[string]decimal.Decimal)
	}
	b.product.Prices[store] = decimal.NewFromFloat(price)
	return b
}

// Unpriced removes all prices
func (b *ProductBuilder) Unpriced() *ProductBuilder {
	b.product.Prices = nil
	return b
}

// WithNutrition sets the main per-100g macros
func (b *ProductBuilder) WithNutrition(calories, protein, carbs, fat float64) *ProductBuilder {
	b.product.Nutrition = &types.Nutrition{Calories: calories, Protein: protein, Carbs: carbs, Fat: fat}
	return b
}

// WithAllergens sets the allergen tags
func (b *ProductBuilder) WithAllergens(tags ...types.Allergen) *ProductBuilder {
	b.product.Allergens = tags
	return b
}

// Build returns the product
func (b *ProductBuilder) Build() types.Product {
	return b.product
}
