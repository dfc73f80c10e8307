package types

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allergen is a tag from the fixed allergen vocabulary carried by catalog products
type Allergen string

const (
	AllergenGluten  Allergen = "gluten"
	AllergenLactose Allergen = "lactose"
	AllergenNuts    Allergen = "nuts"
	AllergenEggs    Allergen = "eggs"
	AllergenFish    Allergen = "fish"
	AllergenSoy     Allergen = "soy"
	AllergenMeat    Allergen = "meat"
	AllergenAnimal  Allergen = "animal"
)

// Allergens lists the full tag vocabulary in display order
var Allergens = []Allergen{
	AllergenGluten,
	AllergenLactose,
	AllergenNuts,
	AllergenEggs,
	AllergenFish,
	AllergenSoy,
	AllergenMeat,
	AllergenAnimal,
}

// productNamespace seeds the deterministic product IDs
var productNamespace = uuid.MustParse("6f1c2a8e-3b7d-4e59-9a0c-5d2f8b4e7a13")

// Nutrition holds nutrient values per 100 grams (or 100 ml)
type Nutrition struct {
	Calories  float64 `json:"calories"`
	Protein   float64 `json:"protein"`
	Carbs     float64 `json:"carbs"`
	Fat       float64 `json:"fat"`
	Fiber     float64 `json:"fiber,omitempty"`
	Sugar     float64 `json:"sugar,omitempty"`
	Salt      float64 `json:"salt,omitempty"`
	VitaminA  float64 `json:"vitamin_a,omitempty"`
	VitaminC  float64 `json:"vitamin_c,omitempty"`
	VitaminD  float64 `json:"vitamin_d,omitempty"`
	Calcium   float64 `json:"calcium,omitempty"`
	Iron      float64 `json:"iron,omitempty"`
	Potassium float64 `json:"potassium,omitempty"`
}

// Product is a priced, nutrition-tagged catalog entry.
// This is the canonical Product struct used throughout the application.
type Product struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Brand     string                     `json:"brand,omitempty"`
	Weight    string                     `json:"weight,omitempty"`
	Category  string                     `json:"category"`
	Prices    map[string]decimal.Decimal `json:"prices,omitempty"`
	Nutrition *Nutrition                 `json:"nutrition,omitempty"`
	Allergens []Allergen                 `json:"allergens,omitempty"`
}

// NewProductID derives a stable ID from the identifying fields of a product
func NewProductID(category, name, brand string) string {
	key := strings.ToLower(strings.Join([]string{category, name, brand}, "|"))
	return uuid.NewSHA1(productNamespace, []byte(key)).String()
}

// DisplayName returns "name brand", the form used for keyword matching and listings
func (p *Product) DisplayName() string {
	return strings.TrimSpace(p.Name + " " + p.Brand)
}

// HasAllergen reports whether the product carries the tag
func (p *Product) HasAllergen(tag Allergen) bool {
	for _, a := range p.Allergens {
		if a == tag {
			return true
		}
	}
	return false
}

// IsPriced reports whether at least one store lists a price
func (p *Product) IsPriced() bool {
	return len(p.Prices) > 0
}

// MinPrice returns the cheapest store price; ok is false for unpriced products
func (p *Product) MinPrice() (price decimal.Decimal, ok bool) {
	for _, v := range p.Prices {
		if !ok || v.LessThan(price) {
			price = v
			ok = true
		}
	}
	return price, ok
}

// PriceAt returns the price at the given store (case-insensitive), falling back to
// the cheapest store when the store is empty or doesn't list the product
func (p *Product) PriceAt(store string) (decimal.Decimal, bool) {
	if store != "" {
		for name, v := range p.Prices {
			if strings.EqualFold(name, store) {
				return v, true
			}
		}
	}
	return p.MinPrice()
}

// PackageGrams returns the canonical package size in grams
func (p *Product) PackageGrams() float64 {
	return ParseWeight(p.Weight).Grams()
}
