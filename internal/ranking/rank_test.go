package ranking

import (
	"math"
	"reflect"
	"testing"

	"github.com/finsignal/newsrank/internal/article"
)

// TestCombineScores tests the weighted combination formula.
func TestCombineScores(t *testing.T) {
	tests := []struct {
		name      string
		recency   float64
		magnitude float64
		weights   *Weights
		want      float64
	}{
		{
			name:      "defaults",
			recency:   1.0,
			magnitude: 1.0,
			weights:   nil,
			want:      1.0,
		},
		{
			name:      "exact blend",
			recency:   0.5,
			magnitude: 0.9,
			weights:   DefaultWeights(),
			want:      0.4*0.5 + 0.6*0.9,
		},
		{
			name:      "zero components",
			recency:   0,
			magnitude: 0,
			weights:   DefaultWeights(),
			want:      0,
		},
		{
			name:      "custom weights",
			recency:   0.8,
			magnitude: 0.2,
			weights:   &Weights{Recency: 0.7, Magnitude: 0.3},
			want:      0.7*0.8 + 0.3*0.2,
		},
		{
			name:      "negative input clamped",
			recency:   -0.5,
			magnitude: 0.5,
			weights:   DefaultWeights(),
			want:      0.6 * 0.5,
		},
		{
			name:      "input above 1 clamped",
			recency:   1.5,
			magnitude: 0.5,
			weights:   DefaultWeights(),
			want:      0.4 + 0.6*0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CombineScores(tt.recency, tt.magnitude, tt.weights)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func scoredBatch() []article.ScoredArticle {
	return []article.ScoredArticle{
		{Article: article.Article{ID: "a"}, RecencyScore: 0.2, MagnitudeScore: 0.2, Index: 0},
		{Article: article.Article{ID: "b"}, RecencyScore: 1.0, MagnitudeScore: 0.95, Index: 1},
		{Article: article.Article{ID: "c"}, RecencyScore: 0.5, MagnitudeScore: 0.5, Index: 2},
		{Article: article.Article{ID: "d"}, RecencyScore: 1.0, MagnitudeScore: 0.95, Index: 3},
	}
}

// TestRank verifies descending order with input-index tiebreak.
func TestRank(t *testing.T) {
	ranked := Rank(scoredBatch(), DefaultWeights())

	gotIDs := make([]string, len(ranked))
	for i, a := range ranked {
		gotIDs[i] = a.ID
	}
	// b and d tie exactly; b entered first so it stays first.
	want := []string{"b", "d", "c", "a"}
	if !reflect.DeepEqual(gotIDs, want) {
		t.Errorf("order = %v, want %v", gotIDs, want)
	}

	for _, a := range ranked {
		expect := 0.4*a.RecencyScore + 0.6*a.MagnitudeScore
		if math.Abs(a.RankScore-expect) > 1e-9 {
			t.Errorf("article %s rank = %v, want %v", a.ID, a.RankScore, expect)
		}
	}
}

// TestRankDeterministic verifies identical inputs produce identical output.
func TestRankDeterministic(t *testing.T) {
	first := Rank(scoredBatch(), DefaultWeights())
	second := Rank(scoredBatch(), DefaultWeights())
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated ranking of the same batch diverged")
	}
}

// TestRankDoesNotMutateInput verifies the input slice stays untouched.
func TestRankDoesNotMutateInput(t *testing.T) {
	in := scoredBatch()
	Rank(in, DefaultWeights())
	if in[0].ID != "a" || in[0].RankScore != 0 {
		t.Errorf("input slice was mutated: %+v", in[0])
	}
}

// TestSplit tests seed set / candidate pool division.
func TestSplit(t *testing.T) {
	ranked := Rank(scoredBatch(), DefaultWeights())

	tests := []struct {
		name      string
		seedSize  int
		wantSeeds int
		wantPool  int
	}{
		{name: "normal split", seedSize: 2, wantSeeds: 2, wantPool: 2},
		{name: "seed size exceeds batch", seedSize: 10, wantSeeds: 4, wantPool: 0},
		{name: "zero falls back to default", seedSize: 0, wantSeeds: 4, wantPool: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seeds, pool := Split(ranked, tt.seedSize)
			if len(seeds) != tt.wantSeeds || len(pool) != tt.wantPool {
				t.Errorf("got %d/%d, want %d/%d", len(seeds), len(pool), tt.wantSeeds, tt.wantPool)
			}
		})
	}
}
