package expansion

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/finsignal/newsrank/internal/article"
	"github.com/finsignal/newsrank/internal/ports"
)

// Defaults for the dual admission rule.
const (
	DefaultTopK      = 10
	DefaultThreshold = 0.55

	// seedSummarySentences is how many leading sentences of a seed's text
	// are embedded as its reference representation.
	seedSummarySentences = 3
)

// Status reports whether the expansion stage ran to completion.
type Status string

const (
	// StatusFull means embeddings were computed and candidates admitted.
	StatusFull Status = "full"
	// StatusSeedOnly means the embedding capability was unavailable and
	// the caller should fall back to the seed set alone.
	StatusSeedOnly Status = "seed_only"
)

// Admission is one candidate accepted by the expansion stage, with its
// maximum cosine similarity against the seed set.
type Admission struct {
	Article    article.ScoredArticle
	Similarity float64
}

// Outcome is the result of one expansion invocation.
type Outcome struct {
	Status Status

	// Admitted candidates, ordered by descending similarity with ties
	// broken by original input index.
	Admitted []Admission

	// FailedIDs lists candidates excluded because their embedding could
	// not be computed. Seed IDs appear here when a seed failed to embed.
	FailedIDs []string
}

// Expander selects candidates similar to a trusted seed set. It is
// stateless apart from its configuration and safe for concurrent use.
type Expander struct {
	embedder  ports.Embedder
	topK      int
	threshold float64
}

// NewExpander builds an Expander. topK values below 1 and non-positive
// thresholds fall back to the defaults. A nil embedder is allowed and
// makes every invocation degrade to seed-only.
func NewExpander(embedder ports.Embedder, topK int, threshold float64) *Expander {
	if topK < 1 {
		topK = DefaultTopK
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Expander{embedder: embedder, topK: topK, threshold: threshold}
}

// Expand embeds every seed and candidate and admits the top-k candidates
// by similarity plus any candidate above the threshold. A per-candidate
// embedding failure excludes only that candidate. When no seed can be
// embedded (or the embedder is absent) the outcome is StatusSeedOnly with
// no admissions.
func (e *Expander) Expand(ctx context.Context, seeds, pool []article.ScoredArticle) Outcome {
	if e.embedder == nil || len(seeds) == 0 || len(pool) == 0 {
		status := StatusFull
		if e.embedder == nil {
			status = StatusSeedOnly
		}
		return Outcome{Status: status}
	}

	out := Outcome{Status: StatusFull}

	refs := make([][]float64, 0, len(seeds))
	for i := range seeds {
		vec, err := e.embedder.Embed(ctx, seedText(&seeds[i].Article))
		if err != nil {
			slog.Warn("seed embedding failed",
				"article_id", seeds[i].ID,
				"error", err)
			out.FailedIDs = append(out.FailedIDs, seeds[i].ID)
			continue
		}
		refs = append(refs, vec)
	}
	if len(refs) == 0 {
		out.Status = StatusSeedOnly
		return out
	}

	seedIDs := make(map[string]struct{}, len(seeds))
	for i := range seeds {
		seedIDs[seeds[i].ID] = struct{}{}
	}

	scored := make([]Admission, 0, len(pool))
	for i := range pool {
		if _, dup := seedIDs[pool[i].ID]; dup {
			continue
		}
		vec, err := e.embedder.Embed(ctx, pool[i].Text())
		if err != nil {
			slog.Warn("candidate embedding failed",
				"article_id", pool[i].ID,
				"error", err)
			out.FailedIDs = append(out.FailedIDs, pool[i].ID)
			continue
		}
		scored = append(scored, Admission{
			Article:    pool[i],
			Similarity: MaxCosine(vec, refs),
		})
	}

	// Every candidate failed: the capability is effectively down.
	if len(scored) == 0 && len(pool) > 0 {
		out.Status = StatusSeedOnly
		return out
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Article.Index < scored[j].Article.Index
	})

	seen := make(map[string]struct{}, len(scored))
	for i, adm := range scored {
		if _, dup := seen[adm.Article.ID]; dup {
			continue
		}
		if i >= e.topK && adm.Similarity <= e.threshold {
			continue
		}
		seen[adm.Article.ID] = struct{}{}
		out.Admitted = append(out.Admitted, adm)
	}

	return out
}

// seedText returns the embedded representation of a seed article: the
// first few sentences of its headline and summary. Long summaries are
// truncated at a sentence boundary so one verbose seed does not dominate
// the reference set.
func seedText(a *article.Article) string {
	text := a.Text()
	sentences := strings.SplitAfter(text, ".")
	if len(sentences) <= seedSummarySentences {
		return text
	}
	summary := strings.TrimSpace(strings.Join(sentences[:seedSummarySentences], ""))
	if summary == "" {
		return text
	}
	return summary
}
