// Package analytics aggregates delivery and click logs into per-step
// funnel statistics.
package analytics

// ProblemDropThreshold is the drop above which a step is flagged as
// problematic.
const ProblemDropThreshold = 0.30

// StepStats summarizes one sequence step. Conversion counts only
// callback reactions; Drop is its complement. AudienceLoss tracks how
// much of the previous step's audience never reached this one.
type StepStats struct {
	Step               int     `json:"step"`
	Delivered          int     `json:"delivered"`
	ReactedCallback    int     `json:"reacted_callback"`
	ReactedURL         int     `json:"reacted_url"`
	Conversion         float64 `json:"conversion"`
	Drop               float64 `json:"drop"`
	AudienceLoss       float64 `json:"audience_loss"`
	AvgReactionSeconds float64 `json:"avg_reaction_seconds"`
}

// Finalize fills the derived Conversion, Drop and AudienceLoss fields.
// Steps must be ordered ascending. AudienceLoss for the first step is
// always zero.
func Finalize(steps []StepStats) {
	for i := range steps {
		s := &steps[i]
		if s.Delivered > 0 {
			s.Conversion = float64(s.ReactedCallback) / float64(s.Delivered)
			s.Drop = 1 - s.Conversion
		}
		if i == 0 {
			continue
		}
		prev := steps[i-1].Delivered
		if prev > 0 {
			s.AudienceLoss = 1 - float64(s.Delivered)/float64(prev)
			if s.AudienceLoss < 0 {
				s.AudienceLoss = 0
			}
		}
	}
}

// BiggestDrop returns the step maximizing Drop among steps that delivered
// anything, or (0, 0) when none did.
func BiggestDrop(steps []StepStats) (int, float64) {
	var worstStep int
	var worstDrop float64
	for _, s := range steps {
		if s.Delivered == 0 {
			continue
		}
		if s.Drop > worstDrop {
			worstStep = s.Step
			worstDrop = s.Drop
		}
	}
	return worstStep, worstDrop
}

// Problematic reports whether a step's drop reaches the threshold.
func Problematic(s StepStats) bool {
	return s.Drop >= ProblemDropThreshold
}
