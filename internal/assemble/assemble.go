// Package assemble merges the seed set and admitted candidates into the
// final ordered output list, enforcing the hard output cap.
package assemble

import (
	"github.com/finsignal/newsrank/internal/article"
	"github.com/finsignal/newsrank/internal/expansion"
)

// DefaultOutputCap bounds the assembled output length.
const DefaultOutputCap = 15

// Assemble produces the final output: seed members first in rank order,
// then admitted candidates in descending similarity order. When the cap is
// exceeded the lowest-similarity admissions are dropped first; seed
// members are never dropped. Output IDs are unique and every output
// article is carried over unchanged apart from the appended scores.
func Assemble(seeds []article.ScoredArticle, admitted []expansion.Admission, outputCap int) []article.ExpandedArticle {
	if outputCap < 1 {
		outputCap = DefaultOutputCap
	}

	out := make([]article.ExpandedArticle, 0, len(seeds)+len(admitted))
	seen := make(map[string]struct{}, len(seeds)+len(admitted))

	for i := range seeds {
		if _, dup := seen[seeds[i].ID]; dup {
			continue
		}
		seen[seeds[i].ID] = struct{}{}
		out = append(out, article.ExpandedArticle{
			ScoredArticle: seeds[i],
			Seed:          true,
		})
	}

	room := outputCap - len(out)
	for i := range admitted {
		if room <= 0 {
			break
		}
		if _, dup := seen[admitted[i].Article.ID]; dup {
			continue
		}
		seen[admitted[i].Article.ID] = struct{}{}
		sim := admitted[i].Similarity
		out = append(out, article.ExpandedArticle{
			ScoredArticle:   admitted[i].Article,
			SimilarityScore: &sim,
		})
		room--
	}

	return out
}

// AssembleSeedOnly produces the degraded output used when the expansion
// stage could not run: the seed set alone, in rank order.
func AssembleSeedOnly(seeds []article.ScoredArticle) []article.ExpandedArticle {
	return Assemble(seeds, nil, len(seeds))
}
