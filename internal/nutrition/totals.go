package nutrition

import "github.com/noot-app/mealbasket-mcp-server/internal/types"

// Totals accumulates absolute nutrient amounts (kcal, grams, mg/µg as in the catalog)
type Totals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	VitaminC float64 `json:"vitamin_c,omitempty"`
	VitaminD float64 `json:"vitamin_d,omitempty"`
	Calcium  float64 `json:"calcium,omitempty"`
	Iron     float64 `json:"iron,omitempty"`
}

// ForGrams returns the nutrients contained in the given grams of a per-100g vector
func ForGrams(n *types.Nutrition, grams float64) Totals {
	if n == nil {
		return Totals{}
	}
	f := grams / 100
	return Totals{
		Calories: n.Calories * f,
		Protein:  n.Protein * f,
		Carbs:    n.Carbs * f,
		Fat:      n.Fat * f,
		Fiber:    n.Fiber * f,
		VitaminC: n.VitaminC * f,
		VitaminD: n.VitaminD * f,
		Calcium:  n.Calcium * f,
		Iron:     n.Iron * f,
	}
}

// Add returns the element-wise sum
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Calories: t.Calories + o.Calories,
		Protein:  t.Protein + o.Protein,
		Carbs:    t.Carbs + o.Carbs,
		Fat:      t.Fat + o.Fat,
		Fiber:    t.Fiber + o.Fiber,
		VitaminC: t.VitaminC + o.VitaminC,
		VitaminD: t.VitaminD + o.VitaminD,
		Calcium:  t.Calcium + o.Calcium,
		Iron:     t.Iron + o.Iron,
	}
}
