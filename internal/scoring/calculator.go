// Package scoring implements the pure prediction scoring rules: outcome
// classification and point awards for finished matches.
package scoring

import "github.com/Baileyhall3/footie-predictors/internal/model"

// Outcome represents the result category of a scoreline.
type Outcome int

const (
	// OutcomeHomeWin means the home side scored more goals.
	OutcomeHomeWin Outcome = iota
	// OutcomeAwayWin means the away side scored more goals.
	OutcomeAwayWin
	// OutcomeDraw means both sides scored the same number of goals.
	OutcomeDraw
)

// Classification is the bucket a prediction falls into against the final
// score. Exactly one classification applies to every prediction.
type Classification int

const (
	// ClassExact means the predicted scoreline equals the final scoreline.
	ClassExact Classification = iota
	// ClassCorrectResult means the predicted outcome category matches the
	// actual one, but the scoreline differs.
	ClassCorrectResult
	// ClassIncorrect means neither the scoreline nor the outcome matched.
	ClassIncorrect
)

// String returns the classification name.
func (c Classification) String() string {
	switch c {
	case ClassExact:
		return "exact"
	case ClassCorrectResult:
		return "correct_result"
	default:
		return "incorrect"
	}
}

// ResultOf classifies a scoreline by the sign of (home - away).
func ResultOf(home, away int) Outcome {
	switch {
	case home > away:
		return OutcomeHomeWin
	case home < away:
		return OutcomeAwayWin
	default:
		return OutcomeDraw
	}
}

// Classify buckets a prediction against the final score.
// The three buckets are mutually exclusive and collectively exhaustive:
//   - exact: predicted pair equals the final pair
//   - correct result: not exact, but the outcome category matches
//   - incorrect: everything else
func Classify(predHome, predAway, finalHome, finalAway int) Classification {
	if predHome == finalHome && predAway == finalAway {
		return ClassExact
	}
	if ResultOf(predHome, predAway) == ResultOf(finalHome, finalAway) {
		return ClassCorrectResult
	}
	return ClassIncorrect
}

// Award maps a classification to the group's configured points.
// Incorrect points may be zero or negative.
func Award(c Classification, rules model.ScoringRules) int {
	switch c {
	case ClassExact:
		return rules.ExactScorePoints
	case ClassCorrectResult:
		return rules.CorrectResultPoints
	default:
		return rules.IncorrectPoints
	}
}

// Score classifies a prediction and returns its award in one step.
func Score(predHome, predAway, finalHome, finalAway int, rules model.ScoringRules) (Classification, int) {
	c := Classify(predHome, predAway, finalHome, finalAway)
	return c, Award(c, rules)
}

// ValidateRules returns human-readable warnings for perverse scoring
// configurations. Warnings are advisory; no configuration is rejected.
func ValidateRules(rules model.ScoringRules) []string {
	var warnings []string
	if rules.IncorrectPoints > rules.CorrectResultPoints {
		warnings = append(warnings, "incorrect predictions award more than correct results")
	}
	if rules.CorrectResultPoints > rules.ExactScorePoints {
		warnings = append(warnings, "correct results award more than exact scores")
	}
	return warnings
}
