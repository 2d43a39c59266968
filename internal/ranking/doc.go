// Package ranking combines per-article recency and magnitude scores into
// a single rank score, with calibration support for deploy-time tuning.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		slog.Warn("using default weights", "error", err)
//	}
//
//	// Combine component scores for one article
//	score := ranking.CombineScores(recency, magnitude, weights)
//
//	// Rank a scored batch and split off the seed set
//	ranked := ranking.Rank(scored, weights)
//	seeds, pool := ranking.Split(ranked, ranking.DefaultSeedSize)
//
// Determinism:
//
// Rank sorts with a stable comparison keyed on (rank_score, original input
// index). Re-invoking with identical inputs and weights yields identical
// ordering regardless of how the component scores were computed, including
// when scoring ran on parallel workers.
//
// Calibration:
//
// The calibration system allows deploy-time tuning of the recency/magnitude
// balance via a JSON configuration file loaded at startup. This enables
// experimentation without code changes (but requires a restart to pick up
// new configuration). See configs/ranking.calibration.json for the default
// configuration.
package ranking
