package ranking

import (
	"sort"

	"github.com/finsignal/newsrank/internal/article"
)

// DefaultSeedSize is the number of top-ranked articles exposed as the
// similarity seed set.
const DefaultSeedSize = 5

// CombineScores computes the weighted rank score from recency and
// magnitude components. Both inputs are expected in [0, 1]; negative
// inputs are clamped to 0 and inputs above 1 are clamped to 1 before
// weighting, so the result is always in [0, 1].
func CombineScores(recency, magnitude float64, weights *Weights) float64 {
	if weights == nil {
		weights = DefaultWeights()
	}
	return clamp01(recency)*weights.Recency + clamp01(magnitude)*weights.Magnitude
}

// Rank fills in RankScore for every article and returns the batch sorted
// by descending rank score. Ties are broken by original input index, never
// by timestamp, so ordering is deterministic irrespective of clock
// precision or scoring completion order. The input slice is not modified.
func Rank(scored []article.ScoredArticle, weights *Weights) []article.ScoredArticle {
	if weights == nil {
		weights = DefaultWeights()
	}

	ranked := make([]article.ScoredArticle, len(scored))
	copy(ranked, scored)
	for i := range ranked {
		ranked[i].RankScore = CombineScores(ranked[i].RecencyScore, ranked[i].MagnitudeScore, weights)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RankScore != ranked[j].RankScore {
			return ranked[i].RankScore > ranked[j].RankScore
		}
		return ranked[i].Index < ranked[j].Index
	})

	return ranked
}

// Split divides a ranked batch into the seed set (the top seedSize
// articles) and the candidate pool (everything after). seedSize values
// below 1 fall back to DefaultSeedSize. The returned slices alias the
// input.
func Split(ranked []article.ScoredArticle, seedSize int) (seeds, pool []article.ScoredArticle) {
	if seedSize < 1 {
		seedSize = DefaultSeedSize
	}
	if seedSize >= len(ranked) {
		return ranked, nil
	}
	return ranked[:seedSize], ranked[seedSize:]
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
