package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/finsignal/newsrank/internal/article"
	"github.com/finsignal/newsrank/internal/config"
	"github.com/finsignal/newsrank/internal/ports"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() ports.Clock {
	return ports.ClockFunc(func() time.Time { return testNow })
}

// entityFunc adapts a function to the EntityRecognizer port.
type entityFunc func(ctx context.Context, text string) ([]article.Entity, error)

func (f entityFunc) Recognize(ctx context.Context, text string) ([]article.Entity, error) {
	return f(ctx, text)
}

// embedFunc adapts a function to the Embedder port.
type embedFunc func(ctx context.Context, text string) ([]float64, error)

func (f embedFunc) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}

// orgRecognizer reports an ORG entity for any text mentioning "Corp".
func orgRecognizer() ports.EntityRecognizer {
	return entityFunc(func(_ context.Context, text string) ([]article.Entity, error) {
		if strings.Contains(text, "Corp") {
			return []article.Entity{{Text: "Corp", Type: article.EntityOrg}}, nil
		}
		return nil, nil
	})
}

func epoch(t time.Time) article.RawTime {
	return article.RawTime{Number: float64(t.Unix()), IsNumber: true}
}

// scenarioBatch builds 5 high-impact recent articles and 20 stale
// low-impact candidates, plus an embedder whose similarities step down
// from 1.0 as the candidate index grows.
func scenarioBatch() ([]article.Article, ports.Embedder) {
	var batch []article.Article
	vecs := make(map[string][]float64)

	for i := 0; i < 5; i++ {
		headline := fmt.Sprintf("Neptune Corp announces merger with Saturn Corp unit %d", i)
		batch = append(batch, article.Article{
			ID:       fmt.Sprintf("s%d", i),
			Datetime: epoch(testNow),
			Headline: headline,
		})
		vecs[headline] = []float64{1, 0}
	}
	for i := 0; i < 20; i++ {
		headline := fmt.Sprintf("Weekly market report %d", i)
		batch = append(batch, article.Article{
			ID:       fmt.Sprintf("c%d", i),
			Datetime: epoch(testNow.AddDate(0, 0, -30)),
			Headline: headline,
		})
		// Similarity against the seeds is 1/sqrt(1+i^2).
		vecs[headline] = []float64{1, float64(i)}
	}

	embedder := embedFunc(func(_ context.Context, text string) ([]float64, error) {
		if v, ok := vecs[text]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("no canned vector for %q", text)
	})
	return batch, embedder
}

func newTestEngine(t *testing.T, mutate func(*Options)) *Engine {
	t.Helper()
	batchlessEmbedder := embedFunc(func(context.Context, string) ([]float64, error) {
		return []float64{1, 0}, nil
	})
	opts := Options{
		Config:   config.Default(),
		Clock:    fixedClock(),
		Entities: orgRecognizer(),
		Embedder: batchlessEmbedder,
	}
	if mutate != nil {
		mutate(&opts)
	}
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// TestRunEndToEnd covers the full scenario: 5 seeds, 20 candidates,
// default weights, top-k 10, threshold 0.6, cap 15.
func TestRunEndToEnd(t *testing.T) {
	batch, embedder := scenarioBatch()
	cfg := config.Default()
	cfg.SimilarityThreshold = 0.6
	e := newTestEngine(t, func(o *Options) {
		o.Config = cfg
		o.Embedder = embedder
	})

	res, err := e.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Status != StatusFull {
		t.Fatalf("status = %v, want full (warnings: %v)", res.Status, res.Warnings)
	}
	if res.InvocationID == "" {
		t.Error("missing invocation id")
	}

	// 5 seeds + top-10 admissions, capped at 15.
	if len(res.Articles) != 15 {
		t.Fatalf("output length = %d, want 15", len(res.Articles))
	}
	if res.SeedCount != 5 || res.AdmittedCount != 10 {
		t.Errorf("seeds/admitted = %d/%d, want 5/10", res.SeedCount, res.AdmittedCount)
	}

	// Seeds come first, in rank order, without similarity scores.
	for i := 0; i < 5; i++ {
		a := res.Articles[i]
		if !a.Seed {
			t.Errorf("position %d is not a seed: %s", i, a.ID)
		}
		if a.SimilarityScore != nil {
			t.Errorf("seed %s carries similarity score", a.ID)
		}
		if a.MagnitudeScore < 0.8 {
			t.Errorf("seed %s magnitude = %v, want high tier", a.ID, a.MagnitudeScore)
		}
		if a.RecencyScore != 1.0 {
			t.Errorf("seed %s recency = %v, want 1.0", a.ID, a.RecencyScore)
		}
	}

	// Admissions follow in descending similarity order, each fully scored.
	prev := 2.0
	for i := 5; i < len(res.Articles); i++ {
		a := res.Articles[i]
		if a.Seed {
			t.Errorf("seed %s after admission block", a.ID)
		}
		if a.SimilarityScore == nil {
			t.Fatalf("admission %s missing similarity score", a.ID)
		}
		if *a.SimilarityScore > prev {
			t.Errorf("admission %s out of order (%v after %v)", a.ID, *a.SimilarityScore, prev)
		}
		prev = *a.SimilarityScore
		if a.RankScore == 0 {
			t.Errorf("admission %s missing rank score", a.ID)
		}
	}

	// Candidate 0 is identical to the seeds and must lead the admissions.
	if res.Articles[5].ID != "c0" || *res.Articles[5].SimilarityScore != 1.0 {
		t.Errorf("best admission = %s (%v), want c0 at 1.0", res.Articles[5].ID, res.Articles[5].Similarity())
	}

	// Every output ID came from the input, none repeated.
	inputIDs := make(map[string]bool, len(batch))
	for _, a := range batch {
		inputIDs[a.ID] = true
	}
	seen := make(map[string]bool)
	for _, a := range res.Articles {
		if !inputIDs[a.ID] {
			t.Errorf("output id %s not present in input", a.ID)
		}
		if seen[a.ID] {
			t.Errorf("duplicate output id %s", a.ID)
		}
		seen[a.ID] = true
	}
}

// TestRunDeterministic verifies byte-identical results across repeated
// invocations with parallel scoring enabled.
func TestRunDeterministic(t *testing.T) {
	batch, embedder := scenarioBatch()
	cfg := config.Default()
	cfg.Workers = 8
	e := newTestEngine(t, func(o *Options) {
		o.Config = cfg
		o.Embedder = embedder
	})

	first, err := e.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := e.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if !reflect.DeepEqual(first.Articles, second.Articles) {
		t.Error("repeated invocations produced different article lists")
	}
	if !reflect.DeepEqual(first.Warnings, second.Warnings) {
		t.Error("repeated invocations produced different warnings")
	}
}

// TestRunDuplicateIDs verifies first-occurrence-wins deduplication with a
// warning.
func TestRunDuplicateIDs(t *testing.T) {
	e := newTestEngine(t, nil)
	batch := []article.Article{
		{ID: "a", Datetime: epoch(testNow), Headline: "Neptune Corp earnings beat"},
		{ID: "a", Datetime: epoch(testNow), Headline: "Duplicate payload"},
		{ID: "b", Datetime: epoch(testNow), Headline: "Market outlook"},
	}

	res, err := e.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Articles) != 2 {
		t.Errorf("output length = %d, want 2", len(res.Articles))
	}
	if !hasWarning(res.Warnings, WarnDuplicateID, "a") {
		t.Errorf("missing duplicate_id warning, got %v", res.Warnings)
	}
	for _, a := range res.Articles {
		if a.ID == "a" && a.Headline != "Neptune Corp earnings beat" {
			t.Errorf("duplicate did not keep first occurrence: %q", a.Headline)
		}
	}
}

// TestRunParseFailure verifies an unparseable datetime keeps the article
// with zero recency and records a warning.
func TestRunParseFailure(t *testing.T) {
	e := newTestEngine(t, nil)
	batch := []article.Article{
		{ID: "good", Datetime: epoch(testNow), Headline: "Neptune Corp earnings beat"},
		{ID: "bad", Datetime: article.RawTime{Text: "sometime soonish"}, Headline: "Market outlook"},
	}

	res, err := e.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !hasWarning(res.Warnings, WarnParseFailure, "bad") {
		t.Fatalf("missing parse_failure warning, got %v", res.Warnings)
	}
	found := false
	for _, a := range res.Articles {
		if a.ID == "bad" {
			found = true
			if a.RecencyScore != 0 {
				t.Errorf("recency = %v, want 0 for unparseable datetime", a.RecencyScore)
			}
		}
	}
	if !found {
		t.Error("article with unparseable datetime was dropped")
	}
}

// TestRunEntityFailure verifies per-article recognizer failures degrade
// that article to ungated scoring only.
func TestRunEntityFailure(t *testing.T) {
	recognizer := entityFunc(func(_ context.Context, text string) ([]article.Entity, error) {
		if strings.Contains(text, "Saturn") {
			return nil, errors.New("model timeout")
		}
		return []article.Entity{{Text: "Corp", Type: article.EntityOrg}}, nil
	})
	e := newTestEngine(t, func(o *Options) { o.Entities = recognizer })

	batch := []article.Article{
		{ID: "ok", Datetime: epoch(testNow), Headline: "Neptune Corp announces merger"},
		{ID: "degraded", Datetime: epoch(testNow), Headline: "Saturn Corp announces merger"},
	}

	res, err := e.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !hasWarning(res.Warnings, WarnCapabilityFailure, "degraded") {
		t.Fatalf("missing capability_failure warning, got %v", res.Warnings)
	}
	for _, a := range res.Articles {
		switch a.ID {
		case "ok":
			if a.MagnitudeScore < 0.8 {
				t.Errorf("gated article magnitude = %v, want high tier", a.MagnitudeScore)
			}
		case "degraded":
			if a.MagnitudeScore >= 0.4 {
				t.Errorf("degraded article magnitude = %v, want ungated tiers only", a.MagnitudeScore)
			}
		}
	}
}

// TestRunEmbedderUnavailable verifies systemic embedding failure degrades
// to seed-only output with an explicit status.
func TestRunEmbedderUnavailable(t *testing.T) {
	batch, _ := scenarioBatch()

	t.Run("nil embedder", func(t *testing.T) {
		e := newTestEngine(t, func(o *Options) { o.Embedder = nil })
		res, err := e.Run(context.Background(), batch)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.Status != StatusDegraded {
			t.Errorf("status = %v, want degraded", res.Status)
		}
		if len(res.Articles) != 5 {
			t.Errorf("output length = %d, want seed set only", len(res.Articles))
		}
		if !hasWarning(res.Warnings, WarnCapabilityUnavailable, "") {
			t.Errorf("missing capability_unavailable warning, got %v", res.Warnings)
		}
	})

	t.Run("every embed call fails", func(t *testing.T) {
		down := embedFunc(func(context.Context, string) ([]float64, error) {
			return nil, errors.New("connection refused")
		})
		e := newTestEngine(t, func(o *Options) { o.Embedder = down })
		res, err := e.Run(context.Background(), batch)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if res.Status != StatusDegraded {
			t.Errorf("status = %v, want degraded", res.Status)
		}
		if len(res.Articles) != 5 {
			t.Errorf("output length = %d, want seed set only", len(res.Articles))
		}
	})
}

// TestRunEntitiesUnavailable verifies a missing recognizer limits every
// article to ungated tiers with a single batch-level warning.
func TestRunEntitiesUnavailable(t *testing.T) {
	e := newTestEngine(t, func(o *Options) { o.Entities = nil })
	batch := []article.Article{
		{ID: "a", Datetime: epoch(testNow), Headline: "Neptune Corp announces merger"},
	}

	res, err := e.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !hasWarning(res.Warnings, WarnCapabilityUnavailable, "") {
		t.Fatalf("missing capability_unavailable warning, got %v", res.Warnings)
	}
	if got := res.Articles[0].MagnitudeScore; got >= 0.4 {
		t.Errorf("magnitude = %v, want ungated tiers only without recognizer", got)
	}
}

// TestRunEmptyBatch verifies an empty invocation returns cleanly.
func TestRunEmptyBatch(t *testing.T) {
	e := newTestEngine(t, nil)
	res, err := e.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Articles) != 0 || res.Status != StatusFull {
		t.Errorf("got %d articles, status %v", len(res.Articles), res.Status)
	}
}

// TestNewRejectsInvalidConfig verifies construction fails fast on bad
// configuration.
func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DecayRate = -1
	_, err := New(Options{Config: cfg})
	if err == nil {
		t.Error("expected error for invalid config")
	}
}

// TestResultSummary exercises the plain-text rendering.
func TestResultSummary(t *testing.T) {
	batch, embedder := scenarioBatch()
	e := newTestEngine(t, func(o *Options) { o.Embedder = embedder })

	res, err := e.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	summary := res.Summary()
	if !strings.Contains(summary, "HEADLINE") {
		t.Error("summary missing header")
	}
	if !strings.Contains(summary, "Neptune Corp") {
		t.Error("summary missing seed headline")
	}
}

func hasWarning(warnings []Warning, code WarningCode, articleID string) bool {
	for _, w := range warnings {
		if w.Code == code && (articleID == "" || w.ArticleID == articleID) {
			return true
		}
	}
	return false
}
