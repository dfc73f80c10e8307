package basket

// Options holds the tuned constants of a planning run
type Options struct {
	// SatisfiedShare of the protein (or carbs) and calorie targets after which
	// further protein (or carbs) slots are skipped
	SatisfiedShare float64

	// DeficitThreshold triggers the filler pass when calorie coverage is below it;
	// DeficitTarget stops the pass once coverage reaches it
	DeficitThreshold float64
	DeficitTarget    float64

	// DeficitDamping scales filler package counts to avoid overshoot
	DeficitDamping float64

	// CalorieCeiling caps total calories as a share of the target
	CalorieCeiling float64

	// SlotOvershoot caps a calorie-dense slot at this multiple of its planned calories,
	// but never below SlotDayShare of one day's household calories
	SlotOvershoot float64
	SlotDayShare  float64

	SearchLimit       int
	Candidates        int
	FillerSearchLimit int
}

// DefaultOptions returns the tuned planning constants
func DefaultOptions() Options {
	return Options{
		SatisfiedShare:    0.9,
		DeficitThreshold:  0.9,
		DeficitTarget:     0.98,
		DeficitDamping:    0.7,
		CalorieCeiling:    1.05,
		SlotOvershoot:     4,
		SlotDayShare:      0.9,
		SearchLimit:       6,
		Candidates:        3,
		FillerSearchLimit: 2,
	}
}
