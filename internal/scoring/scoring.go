// Package scoring computes point deltas for each question type. All
// functions are pure; the engine decides when to apply them.
package scoring

import "math"

// QCM awards the full point value for a correct answer, nothing otherwise.
func QCM(correct bool, points int) int {
	if correct {
		return points
	}
	return 0
}

// Open clamps a hand-assigned score into [0, max].
func Open(assigned, max int) int {
	if assigned < 0 {
		return 0
	}
	if assigned > max {
		return max
	}
	return assigned
}

// Closest awards max minus slope points per unit of distance from the
// target, floored at zero.
func Closest(target, answer float64, max int, slope float64) int {
	score := float64(max) - slope*math.Abs(target-answer)
	if score <= 0 {
		return 0
	}
	return int(math.Floor(score))
}

// QCMCorrect reports whether a submitted option index matches the
// configured correct option.
func QCMCorrect(got, want int) bool {
	return got == want
}

// WithinRange reports whether an answer falls inside the allowed distance
// of the target, inclusive.
func WithinRange(target, answer, allowed float64) bool {
	return math.Abs(target-answer) <= allowed
}
