package pipeline

import (
	"fmt"
	"strings"

	"github.com/finsignal/newsrank/internal/article"
)

// Status reports whether an invocation produced a full expansion or
// degraded to the seed set alone.
type Status string

const (
	// StatusFull means every stage ran, including similarity expansion.
	StatusFull Status = "full"
	// StatusDegraded means the expansion stage could not run and the
	// output is the ranked seed set alone.
	StatusDegraded Status = "degraded"
)

// WarningCode classifies recovered-from conditions. None of these abort
// an invocation.
type WarningCode string

const (
	// WarnParseFailure marks an article whose datetime could not be
	// parsed; it proceeds with a zero recency score.
	WarnParseFailure WarningCode = "parse_failure"
	// WarnDuplicateID marks an input ID dropped at ingestion in favor of
	// its first occurrence.
	WarnDuplicateID WarningCode = "duplicate_id"
	// WarnCapabilityFailure marks a per-article capability call failure
	// recovered by degraded scoring or candidate exclusion.
	WarnCapabilityFailure WarningCode = "capability_failure"
	// WarnCapabilityUnavailable marks a systemic capability outage that
	// degraded the whole invocation to seed-only output.
	WarnCapabilityUnavailable WarningCode = "capability_unavailable"
)

// Warning is one recovered condition, attributable to a specific article
// where one is involved.
type Warning struct {
	Code      WarningCode `json:"code"`
	ArticleID string      `json:"article_id,omitempty"`
	Message   string      `json:"message"`
}

// Result is the output of one pipeline invocation.
type Result struct {
	// InvocationID uniquely identifies this run in logs and traces.
	InvocationID string `json:"invocation_id"`

	Status   Status                    `json:"status"`
	Articles []article.ExpandedArticle `json:"articles"`
	Warnings []Warning                 `json:"warnings,omitempty"`

	SeedCount     int `json:"seed_count"`
	AdmittedCount int `json:"admitted_count"`
}

// Summary renders a plain-text ranking table for logs and debugging.
func (r *Result) Summary() string {
	var b strings.Builder
	rule := strings.Repeat("=", 100)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "%-6s %-8s %-60s %s\n", "RANK", "SCORE", "HEADLINE", "KIND")
	fmt.Fprintln(&b, rule)
	for i := range r.Articles {
		a := &r.Articles[i]
		headline := a.Headline
		if len(headline) > 60 {
			headline = headline[:57] + "..."
		}
		kind := "seed"
		if !a.Seed {
			kind = fmt.Sprintf("sim=%.4f", a.Similarity())
		}
		fmt.Fprintf(&b, "%-6d %.4f   %-60s %s\n", i+1, a.RankScore, headline, kind)
		fmt.Fprintf(&b, "       recency: %.3f | magnitude: %.3f\n", a.RecencyScore, a.MagnitudeScore)
		fmt.Fprintln(&b, strings.Repeat("-", 100))
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "%d warning(s), status=%s\n", len(r.Warnings), r.Status)
	}
	return b.String()
}
