package diet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noot-app/mealbasket-mcp-server/internal/types"
)

// Exclusion is one dietary constraint: an allergen token or a diet token
type Exclusion string

const (
	Gluten     Exclusion = "gluten"
	Lactose    Exclusion = "lactose"
	Nuts       Exclusion = "nuts"
	Eggs       Exclusion = "eggs"
	Fish       Exclusion = "fish"
	Soy        Exclusion = "soy"
	Vegetarian Exclusion = "vegetarian"
	Vegan      Exclusion = "vegan"
)

// Vocabulary lists every accepted exclusion token
var Vocabulary = []Exclusion{Gluten, Lactose, Nuts, Eggs, Fish, Soy, Vegetarian, Vegan}

var ErrUnknownExclusion = errors.New("unknown exclusion")

// Exclusions is a set of constraints a product must survive
type Exclusions []Exclusion

// Parse normalizes tokens (case, whitespace, duplicates) and rejects anything
// outside the vocabulary
func Parse(tokens []string) (Exclusions, error) {
	var out Exclusions
	seen := make(map[Exclusion]bool, len(tokens))
	for _, token := range tokens {
		e := Exclusion(strings.ToLower(strings.TrimSpace(token)))
		if e == "" {
			continue
		}
		if !e.valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownExclusion, token)
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out, nil
}

func (e Exclusion) valid() bool {
	for _, v := range Vocabulary {
		if v == e {
			return true
		}
	}
	return false
}

// tags returns the allergen tags a product must not carry under this exclusion
func (e Exclusion) tags() []types.Allergen {
	switch e {
	case Vegetarian:
		return []types.Allergen{types.AllergenMeat, types.AllergenFish}
	case Vegan:
		return []types.Allergen{types.AllergenAnimal, types.AllergenMeat, types.AllergenFish}
	default:
		return []types.Allergen{types.Allergen(e)}
	}
}

// Contains reports whether the set holds the exclusion
func (ex Exclusions) Contains(e Exclusion) bool {
	for _, x := range ex {
		if x == e {
			return true
		}
	}
	return false
}

// PlantBased reports whether meat and fish are excluded
func (ex Exclusions) PlantBased() bool {
	return ex.Contains(Vegetarian) || ex.Contains(Vegan)
}

// Allows reports whether the product survives every exclusion
func (ex Exclusions) Allows(p types.Product) bool {
	for _, e := range ex {
		for _, tag := range e.tags() {
			if p.HasAllergen(tag) {
				return false
			}
		}
	}
	return true
}

// Strings returns the tokens as plain strings
func (ex Exclusions) Strings() []string {
	out := make([]string, len(ex))
	for i, e := range ex {
		out[i] = string(e)
	}
	return out
}

// Apply keeps the products allowed by every exclusion, in their original order.
// An empty set returns the input slice itself.
func Apply(products []types.Product, ex Exclusions) []types.Product {
	if len(ex) == 0 {
		return products
	}
	kept := make([]types.Product, 0, len(products))
	for _, p := range products {
		if ex.Allows(p) {
			kept = append(kept, p)
		}
	}
	return kept
}
