// Package taxonomy classifies catalog products into coarse functional types
package taxonomy

// ProductType is the role a product plays in a meal
type ProductType string

const (
	ProteinSource ProductType = "protein_source"
	Dairy         ProductType = "dairy"
	Bread         ProductType = "bread"
	Carbs         ProductType = "carbs"
	Vegetables    ProductType = "vegetables"
	Fruit         ProductType = "fruit"
	Other         ProductType = "other"
)

// categoryGroups lists the catalog category keys that belong to each type, in preference order
var categoryGroups = map[ProductType][]string{
	ProteinSource: {
		"chicken", "ground beef", "salmon", "pork", "sausages", "meatballs", "cod", "shrimp",
		"tofu", "quorn", "soy mince", "lentils", "beans", "eggs",
		"meat", "poultry", "fish", "vegetarian", "protein",
	},
	Carbs:      {"pasta", "rice", "potatoes", "oats", "grains"},
	Bread:      {"bread", "crispbread"},
	Dairy:      {"milk", "yogurt", "quark", "cheese", "cream", "butter", "dairy"},
	Vegetables: {"tomatoes", "cucumber", "salad", "carrots", "onions", "broccoli", "bell peppers", "vegetables"},
	Fruit:      {"bananas", "apples", "oranges", "fruit"},
}

// CategoryGroup returns the category keys grouped under the type; Other has none
func CategoryGroup(t ProductType) []string {
	return append([]string(nil), categoryGroups[t]...)
}

// Grouped reports whether the category belongs to any type's group
func Grouped(category string) bool {
	for _, group := range categoryGroups {
		if inGroup(group, category) {
			return true
		}
	}
	return false
}

// RelatedCategories returns the product's own category followed by its type's group, without duplicates
func RelatedCategories(t ProductType, category string) []string {
	out := []string{category}
	for _, c := range categoryGroups[t] {
		if c != category {
			out = append(out, c)
		}
	}
	return out
}

// Compatible reports whether a candidate of type candidate may replace a product of type original.
// Dairy also accepts unclassified products (plant drinks and spreads often land there).
func Compatible(original, candidate ProductType) bool {
	if original == Dairy {
		return candidate == Dairy || candidate == Other
	}
	return original == candidate
}

func inGroup(group []string, category string) bool {
	for _, c := range group {
		if c == category {
			return true
		}
	}
	return false
}
