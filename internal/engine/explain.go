package engine

import (
	"fmt"

	"github.com/verte-zerg/nextstep/internal/model"
)

// Rationale returns human-readable reasons for a candidate's score.
func Rationale(c model.Candidate) []string {
	reasons := make([]string, 0, 4)
	switch {
	case c.DaysUntilExam == nil:
		reasons = append(reasons, "no exam scheduled")
	case *c.DaysUntilExam < 0:
		reasons = append(reasons, fmt.Sprintf("exam was %d day(s) ago", -*c.DaysUntilExam))
	case *c.DaysUntilExam == 0:
		reasons = append(reasons, fmt.Sprintf("exam is today (urgency %.2f)", c.Factors.Urgency))
	default:
		reasons = append(reasons, fmt.Sprintf("exam in %d day(s) (urgency %.2f)", *c.DaysUntilExam, c.Factors.Urgency))
	}
	reasons = append(reasons, fmt.Sprintf("confidence gap %.2f", c.Factors.ConfidenceGap))
	if c.Overshoot {
		reasons = append(reasons, fmt.Sprintf("%s needs more energy than you have", c.Task.Label()))
	} else {
		reasons = append(reasons, fmt.Sprintf("energy fit %.2f", c.Factors.EnergyFit))
	}
	if c.Factors.Repetition > 0 {
		reasons = append(reasons, fmt.Sprintf("studied recently (penalty %.2f)", c.Factors.Repetition))
	} else {
		reasons = append(reasons, "not studied recently")
	}
	return reasons
}
