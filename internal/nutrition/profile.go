package nutrition

import "github.com/noot-app/mealbasket-mcp-server/internal/types"

// Per-100g thresholds for the coarse profile flags
const (
	HighProteinGrams = 15.0
	HighCarbGrams    = 40.0
	HighFatGrams     = 15.0
	LowCalorieKcal   = 50.0
	HighFiberGrams   = 5.0
)

// Profile is a set of coarse flags derived from a nutrition vector
type Profile struct {
	HighProtein bool `json:"high_protein"`
	HighCarb    bool `json:"high_carb"`
	HighFat     bool `json:"high_fat"`
	LowCalorie  bool `json:"low_calorie"`
	HighFiber   bool `json:"high_fiber"`
}

// Of classifies a nutrition vector. A nil vector has no flags at all; missing
// fields inside a present vector count as zero.
func Of(n *types.Nutrition) Profile {
	if n == nil {
		return Profile{}
	}
	return Profile{
		HighProtein: n.Protein > HighProteinGrams,
		HighCarb:    n.Carbs > HighCarbGrams,
		HighFat:     n.Fat > HighFatGrams,
		LowCalorie:  n.Calories < LowCalorieKcal,
		HighFiber:   n.Fiber > HighFiberGrams,
	}
}

// Any reports whether at least one flag is set
func (p Profile) Any() bool {
	return p.HighProtein || p.HighCarb || p.HighFat || p.LowCalorie || p.HighFiber
}

// Shares reports whether both profiles have at least one flag in common
func (p Profile) Shares(other Profile) bool {
	return (p.HighProtein && other.HighProtein) ||
		(p.HighCarb && other.HighCarb) ||
		(p.HighFat && other.HighFat) ||
		(p.LowCalorie && other.LowCalorie) ||
		(p.HighFiber && other.HighFiber)
}

// Flags lists the set flags by name
func (p Profile) Flags() []string {
	var flags []string
	if p.HighProtein {
		flags = append(flags, "high_protein")
	}
	if p.HighCarb {
		flags = append(flags, "high_carb")
	}
	if p.HighFat {
		flags = append(flags, "high_fat")
	}
	if p.LowCalorie {
		flags = append(flags, "low_calorie")
	}
	if p.HighFiber {
		flags = append(flags, "high_fiber")
	}
	return flags
}
