package basket

import "sort"

// Kind is the nutritional role of a slot
type Kind string

const (
	KindProtein    Kind = "protein"
	KindCarbs      Kind = "carbs"
	KindDairy      Kind = "dairy"
	KindFat        Kind = "fat"
	KindVegetables Kind = "vegetables"
	KindFruit      Kind = "fruit"
)

// LowEnergy reports whether the kind is vegetables or fruit. These slots get
// calorie headroom set aside before the calorie-dense slots are filled.
func (k Kind) LowEnergy() bool {
	return k == KindVegetables || k == KindFruit
}

// scope selects the meal count a slot's fraction applies to
type scope int

const (
	scopeBreakfast scope = iota
	scopeMain            // lunches + dinners
	scopeLunch
	scopeDinner
	scopeSnack
)

// Slot is a planned basket line: a search term and how much of it to buy
type Slot struct {
	Term         string  `json:"term"`
	Priority     int     `json:"priority"`
	Kind         Kind    `json:"kind"`
	Meals        int     `json:"meals"`
	PortionGrams float64 `json:"portion_grams"`
	KcalPer100g  float64 `json:"kcal_per_100g"`
}

// NeedGrams is the total amount the slot should cover
func (s Slot) NeedGrams() float64 {
	return s.PortionGrams * float64(s.Meals)
}

// PlannedKcal is the slot's expected calorie contribution
func (s Slot) PlannedKcal() float64 {
	return s.NeedGrams() * s.KcalPer100g / 100
}

type slotSpec struct {
	term     string
	priority int
	kind     Kind
	scope    scope
	fraction float64
	portion  float64
	kcal     float64
}

var slotTable = []slotSpec{
	{"oats", 1, KindCarbs, scopeBreakfast, 0.6, 70, 370},
	{"bread", 1, KindCarbs, scopeBreakfast, 1.0, 80, 250},
	{"eggs", 1, KindProtein, scopeBreakfast, 0.6, 120, 155},
	{"milk", 2, KindDairy, scopeBreakfast, 1.5, 250, 45},
	{"yogurt", 2, KindDairy, scopeBreakfast, 0.4, 200, 60},
	{"butter", 2, KindFat, scopeBreakfast, 1.5, 15, 720},
	{"cheese", 2, KindDairy, scopeBreakfast, 0.8, 30, 350},

	{"chicken fillet", 1, KindProtein, scopeMain, 0.3, 175, 120},
	{"ground beef", 1, KindProtein, scopeMain, 0.25, 150, 205},
	{"salmon", 1, KindProtein, scopeMain, 0.15, 150, 205},
	{"pork fillet", 1, KindProtein, scopeMain, 0.1, 150, 145},
	{"sausage", 2, KindProtein, scopeMain, 0.1, 120, 280},

	{"pasta", 1, KindCarbs, scopeMain, 0.35, 100, 355},
	{"rice", 1, KindCarbs, scopeMain, 0.35, 85, 355},
	{"potatoes", 1, KindCarbs, scopeMain, 0.3, 300, 85},

	{"cooking oil", 2, KindFat, scopeMain, 0.6, 15, 880},
	{"cream", 3, KindFat, scopeDinner, 0.3, 100, 290},

	{"tomato", 3, KindVegetables, scopeMain, 0.4, 150, 20},
	{"cucumber", 3, KindVegetables, scopeLunch, 0.4, 100, 12},
	{"carrot", 3, KindVegetables, scopeMain, 0.3, 100, 35},
	{"broccoli", 3, KindVegetables, scopeDinner, 0.4, 150, 35},
	{"onion", 4, KindVegetables, scopeDinner, 0.6, 75, 40},
	{"bell pepper", 4, KindVegetables, scopeDinner, 0.3, 100, 25},

	{"banana", 2, KindFruit, scopeSnack, 0.6, 130, 95},
	{"apple", 2, KindFruit, scopeSnack, 0.5, 180, 55},
	{"quark", 2, KindDairy, scopeSnack, 0.5, 200, 65},
}

// plantProteinShare of main meals each plant protein slot covers
const plantProteinShare = 0.25

var plantProteins = []slotSpec{
	{"tofu", 1, KindProtein, scopeMain, plantProteinShare, 200, 120},
	{"quorn", 1, KindProtein, scopeMain, plantProteinShare, 150, 100},
	{"lentils", 1, KindProtein, scopeMain, plantProteinShare, 100, 115},
	{"beans", 1, KindProtein, scopeMain, plantProteinShare, 150, 130},
	{"soy mince", 1, KindProtein, scopeMain, plantProteinShare, 125, 140},
}

type mealCounts struct {
	breakfasts, lunches, dinners, snacks int
}

func countMeals(days, household int, m Meals) mealCounts {
	n := days * household
	var c mealCounts
	if m.Breakfast {
		c.breakfasts = n
	}
	if m.Lunch {
		c.lunches = n
	}
	if m.Dinner {
		c.dinners = n
	}
	if m.Snacks {
		c.snacks = n
	}
	return c
}

func (c mealCounts) of(s scope) int {
	switch s {
	case scopeBreakfast:
		return c.breakfasts
	case scopeMain:
		return c.lunches + c.dinners
	case scopeLunch:
		return c.lunches
	case scopeDinner:
		return c.dinners
	default:
		return c.snacks
	}
}

// GenerateSlots derives the ordered slot list for a household and period.
// Plant-based diets swap the main-meal meat and fish slots for plant proteins.
func GenerateSlots(days, household int, meals Meals, plantBased bool) []Slot {
	counts := countMeals(days, household, meals)

	specs := make([]slotSpec, 0, len(slotTable)+len(plantProteins))
	if plantBased {
		specs = append(specs, plantProteins...)
	}
	for _, spec := range slotTable {
		if plantBased && spec.kind == KindProtein && spec.scope != scopeBreakfast {
			continue
		}
		specs = append(specs, spec)
	}

	slots := make([]Slot, 0, len(specs))
	for _, spec := range specs {
		slots = append(slots, Slot{
			Term:         spec.term,
			Priority:     spec.priority,
			Kind:         spec.kind,
			Meals:        int(float64(counts.of(spec.scope)) * spec.fraction),
			PortionGrams: spec.portion,
			KcalPer100g:  spec.kcal,
		})
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Priority < slots[j].Priority
	})
	return slots
}
