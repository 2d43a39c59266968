// Package scoring provides the per-article recency and event-magnitude
// scores that feed the rank combination stage. Both scores are pure
// functions of their inputs and always land in the [0, 1] range.
package scoring

import (
	"math"
	"time"
)

// DefaultDecayRate is the exponential decay constant applied per day of
// article age. At 0.1 an article scores ~0.37 at ten days old and ~0.05
// at thirty days old.
const DefaultDecayRate = 0.1

const secondsPerDay = 86400

// RecencyScore computes exp(-decayRate * daysOld) for an article published
// at publishedAt, evaluated at now. Future-dated articles are treated as
// zero days old and score 1.0. The result is clamped to [0, 1].
func RecencyScore(publishedAt, now time.Time, decayRate float64) float64 {
	daysOld := now.Sub(publishedAt).Seconds() / secondsPerDay
	if daysOld < 0 {
		daysOld = 0
	}
	score := math.Exp(-decayRate * daysOld)
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
