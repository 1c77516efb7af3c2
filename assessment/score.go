package assessment

import (
	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
)

// Result is the immutable outcome of a completed questionnaire.
type Result struct {
	Type           Type   `json:"type"`
	Score          int    `json:"score"`
	Summary        string `json:"summary"`
	Recommendation string `json:"recommendation"`
	Hazard         bool   `json:"hazard"`
}

// Score computes the result of a complete answer sequence.
//
// The percentage is round(100*sum/(5*n)) rounded half up. Categories are
// decided on the average: the hazard rule first, then >= 4.0, >= 2.5, and
// the rest. Comparisons are done on integers so that an average of exactly
// 4.0 or 2.5 lands in the upper band.
func Score(def *Definition, answers []int) (Result, error) {
	if def == nil {
		return Result{}, apperr.Validation("unknown assessment")
	}
	n := len(def.Questions)
	if len(answers) != n {
		return Result{}, apperr.Validation("expected %d answers, got %d", n, len(answers))
	}

	total := 0
	for i, v := range answers {
		if v < MinAnswer || v > MaxAnswer || !def.Questions[i].HasOption(v) {
			return Result{}, apperr.Validation("answer %d for question %d is not a valid option", v, def.Questions[i].ID)
		}
		total += v
	}

	maxPossible := MaxAnswer * n
	res := Result{
		Type:  def.Type,
		Score: (200*total + maxPossible) / (2 * maxPossible),
	}

	var outcome Outcome
	switch {
	case def.Hazard != nil && answers[def.Hazard.QuestionIndex] == def.Hazard.Sentinel:
		outcome = def.Hazard.Outcome
		res.Hazard = true
	case total >= 4*n:
		outcome = def.Bands.Strong
	case 2*total >= 5*n:
		outcome = def.Bands.Moderate
	default:
		outcome = def.Bands.Critical
	}
	res.Summary = outcome.Summary
	res.Recommendation = outcome.Recommendation
	return res, nil
}
