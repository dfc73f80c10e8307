package taxonomy

import (
	"regexp"
	"strings"

	"github.com/noot-app/mealbasket-mcp-server/internal/types"
)

var (
	proteinKeywords = []string{
		"chicken", "beef", "pork", "bacon", "sausage", "bratwurst", "chorizo", "meatball", "mince",
		"salmon", "cod", "fish", "tuna", "shrimp", "prawn", "seafood",
		"tofu", "quorn", "tempeh", "lentil", "bean", "chickpea", "turkey", "steak",
	}
	dairyKeywords     = []string{"milk", "yogurt", "yoghurt", "cream", "butter", "quark", "kefir", "skyr"}
	breadKeywords     = []string{"bread", "loaf", "bun", "baguette", "crispbread", "toast", "tortilla", "pita"}
	starchKeywords    = []string{"pasta", "rice", "potato", "oats", "muesli", "granola", "couscous", "bulgur", "quinoa", "noodle", "spaghetti", "penne", "fusilli", "macaroni"}
	vegetableKeywords = []string{"tomato", "cucumber", "lettuce", "spinach", "carrot", "onion", "broccoli", "pepper", "cabbage", "cauliflower", "zucchini", "kale", "salad", "leek"}
	fruitKeywords     = []string{"apple", "banana", "orange", "pear", "grape", "lemon", "lime", "berr", "mango", "kiwi", "melon"}

	cheeseWord = regexp.MustCompile(`\bcheese\b`)
)

const (
	// ProteinRichGrams and LowCarbGrams define the nutrition fallback for protein sources
	ProteinRichGrams = 15.0
	LowCarbGrams     = 10.0
)

// subject is the normalized view of a product the rules inspect
type subject struct {
	name      string
	category  string
	nutrition *types.Nutrition
}

// Rule is one entry of the ordered classification table
type Rule struct {
	Name  string
	Type  ProductType
	match func(s subject) bool
}

// Rules is evaluated top to bottom; the first matching rule decides the type
var Rules = []Rule{
	{"protein_keyword", ProteinSource, func(s subject) bool { return containsAny(s.name, proteinKeywords) }},
	{"protein_category", ProteinSource, func(s subject) bool { return inGroup(categoryGroups[ProteinSource], s.category) }},
	{"egg", ProteinSource, func(s subject) bool {
		return strings.Contains(s.name, "egg") &&
			!strings.Contains(s.name, "eggplant") &&
			!strings.Contains(s.name, "sandwich")
	}},
	{"dairy", Dairy, func(s subject) bool {
		return containsAny(s.name, dairyKeywords) ||
			cheeseWord.MatchString(s.name) ||
			inGroup(categoryGroups[Dairy], s.category)
	}},
	{"protein_nutrition", ProteinSource, func(s subject) bool {
		return s.nutrition != nil && s.nutrition.Protein > ProteinRichGrams && s.nutrition.Carbs < LowCarbGrams
	}},
	{"bread", Bread, func(s subject) bool {
		return containsAny(s.name, breadKeywords) || inGroup(categoryGroups[Bread], s.category)
	}},
	{"starch", Carbs, func(s subject) bool {
		return containsAny(s.name, starchKeywords) || inGroup(categoryGroups[Carbs], s.category)
	}},
	{"vegetable", Vegetables, func(s subject) bool {
		return containsAny(s.name, vegetableKeywords) || inGroup(categoryGroups[Vegetables], s.category)
	}},
	{"fruit", Fruit, func(s subject) bool {
		return containsAny(s.name, fruitKeywords) || inGroup(categoryGroups[Fruit], s.category)
	}},
}

// Classify returns the product's type
func Classify(p types.Product) ProductType {
	t, _ := ClassifyRule(p)
	return t
}

// ClassifyRule returns the type together with the name of the rule that decided it
func ClassifyRule(p types.Product) (ProductType, string) {
	s := subject{
		name:      strings.ToLower(p.DisplayName()),
		category:  strings.ToLower(strings.TrimSpace(p.Category)),
		nutrition: p.Nutrition,
	}
	for _, r := range Rules {
		if r.match(s) {
			return r.Type, r.Name
		}
	}
	return Other, "fallback"
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
