package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/finsignal/newsrank/internal/article"
	"github.com/finsignal/newsrank/internal/assemble"
	"github.com/finsignal/newsrank/internal/config"
	"github.com/finsignal/newsrank/internal/expansion"
	"github.com/finsignal/newsrank/internal/ports"
	"github.com/finsignal/newsrank/internal/ranking"
	"github.com/finsignal/newsrank/internal/scoring"
	"github.com/finsignal/newsrank/internal/timeparse"
	"github.com/finsignal/newsrank/internal/tracing"
)

// Options wires an Engine's configuration and capability ports.
type Options struct {
	// Config holds every tunable; nil means all defaults.
	Config *config.Config

	// Weights overrides the rank weights; nil loads calibration from
	// Config.CalibrationPath or falls back to the configured weights.
	Weights *ranking.Weights

	// Clock supplies the recency reference instant; nil means the system
	// clock.
	Clock ports.Clock

	// Entities recognizes named entities for magnitude gating; nil
	// degrades every article to keyword-only Low-tier scoring.
	Entities ports.EntityRecognizer

	// Embedder computes similarity vectors; nil degrades every
	// invocation to seed-only output.
	Embedder ports.Embedder

	// Metrics receives pipeline observations; nil disables metrics.
	Metrics *Metrics
}

// Engine runs the ranking and similarity-expansion pipeline. It holds no
// per-invocation state and is safe for concurrent use.
type Engine struct {
	cfg      *config.Config
	weights  *ranking.Weights
	scorer   *scoring.MagnitudeScorer
	expander *expansion.Expander
	clock    ports.Clock
	entities ports.EntityRecognizer
	embedder ports.Embedder
	metrics  *Metrics
	workers  int
}

// New builds an Engine from the given options. Returns an error when the
// configuration fails validation.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid engine config: %w", errors.Join(errs...))
	}

	weights := opts.Weights
	if weights == nil {
		if cfg.CalibrationPath != "" {
			// LoadCalibration already logs and falls back to defaults.
			weights, _ = ranking.LoadCalibration(cfg.CalibrationPath)
		} else {
			weights = &ranking.Weights{Recency: cfg.RecencyWeight, Magnitude: cfg.MagnitudeWeight}
		}
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = ports.SystemClock()
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	return &Engine{
		cfg:      cfg,
		weights:  weights,
		scorer:   scoring.NewMagnitudeScorer(cfg.Lexicons(), cfg.GatingTypes(), cfg.Baseline),
		expander: expansion.NewExpander(opts.Embedder, cfg.TopK, cfg.SimilarityThreshold),
		clock:    clock,
		entities: opts.Entities,
		embedder: opts.Embedder,
		metrics:  opts.Metrics,
		workers:  workers,
	}, nil
}

// Run executes one pipeline invocation over the given batch. No condition
// inside the pipeline is fatal: parse failures, duplicate IDs, and
// capability failures are recovered per article, and a systemic embedding
// outage degrades the invocation to seed-only output with StatusDegraded.
func (e *Engine) Run(ctx context.Context, batch []article.Article) (*Result, error) {
	res := &Result{
		InvocationID: uuid.NewString(),
		Status:       StatusFull,
	}

	log := slog.With("invocation_id", res.InvocationID)

	ctx, endRun := tracing.StartSpan(ctx, "pipeline.run")
	defer endRun(nil)

	// Ingest: dedupe by ID, first occurrence wins.
	_, endIngest := tracing.StartStageSpan(ctx, tracing.StageIngest, len(batch))
	start := time.Now()
	unique, dupes := article.Dedupe(batch)
	for _, id := range dupes {
		log.Warn("duplicate article id dropped", "article_id", id)
		res.Warnings = append(res.Warnings, Warning{
			Code:      WarnDuplicateID,
			ArticleID: id,
			Message:   "duplicate id, first occurrence kept",
		})
	}
	e.metrics.ObserveArticles("ingested", len(batch))
	e.metrics.ObserveArticles("duplicate", len(dupes))
	e.metrics.ObserveStage(tracing.StageIngest, time.Since(start).Seconds())
	endIngest(nil)

	if len(unique) == 0 {
		e.metrics.ObserveInvocation(res.Status)
		return res, nil
	}

	// Score: recency and magnitude per article, fanned out over workers.
	// Results land by input index so ordering is deterministic.
	scoreCtx, endScore := tracing.StartStageSpan(ctx, tracing.StageScore, len(unique))
	start = time.Now()
	scored, scoreWarnings := e.scoreBatch(scoreCtx, unique)
	res.Warnings = append(res.Warnings, scoreWarnings...)
	e.metrics.ObserveStage(tracing.StageScore, time.Since(start).Seconds())
	endScore(nil)

	// Rank: weighted combination, stable sort, seed split.
	_, endRank := tracing.StartStageSpan(ctx, tracing.StageRank, len(scored))
	start = time.Now()
	ranked := ranking.Rank(scored, e.weights)
	seeds, pool := ranking.Split(ranked, e.cfg.SeedSize)
	res.SeedCount = len(seeds)
	e.metrics.ObserveStage(tracing.StageRank, time.Since(start).Seconds())
	endRank(nil)

	// Expand: grow the seed set through embedding similarity.
	expandCtx, endExpand := tracing.StartStageSpan(ctx, tracing.StageExpand, len(pool))
	start = time.Now()
	outcome := e.expander.Expand(expandCtx, seeds, pool)
	for _, id := range outcome.FailedIDs {
		e.metrics.ObserveCapabilityFailure(CapabilityEmbedding)
		res.Warnings = append(res.Warnings, Warning{
			Code:      WarnCapabilityFailure,
			ArticleID: id,
			Message:   "embedding failed, excluded from expansion",
		})
	}
	if outcome.Status == expansion.StatusSeedOnly {
		res.Status = StatusDegraded
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarnCapabilityUnavailable,
			Message: "embedding capability unavailable, returning seed set only",
		})
		tracing.AddEvent(expandCtx, "expansion degraded to seed-only")
		log.Warn("expansion degraded to seed-only output")
	}
	e.metrics.ObserveStage(tracing.StageExpand, time.Since(start).Seconds())
	endExpand(nil)

	// Assemble: seeds first, then admissions, capped.
	_, endAssemble := tracing.StartStageSpan(ctx, tracing.StageAssemble, len(seeds)+len(outcome.Admitted))
	start = time.Now()
	if res.Status == StatusDegraded {
		res.Articles = assemble.AssembleSeedOnly(seeds)
	} else {
		res.Articles = assemble.Assemble(seeds, outcome.Admitted, e.cfg.OutputCap)
	}
	res.AdmittedCount = len(res.Articles) - len(seeds)
	if res.AdmittedCount < 0 {
		res.AdmittedCount = 0
	}
	e.metrics.ObserveStage(tracing.StageAssemble, time.Since(start).Seconds())
	endAssemble(nil)

	e.metrics.ObserveArticles("output", len(res.Articles))
	e.metrics.ObserveInvocation(res.Status)

	tracing.SetAttributes(ctx,
		attribute.String("pipeline.status", string(res.Status)),
		attribute.Int("pipeline.output", len(res.Articles)),
		attribute.Int("pipeline.warnings", len(res.Warnings)),
	)

	log.Info("pipeline invocation complete",
		"status", res.Status,
		"input", len(batch),
		"output", len(res.Articles),
		"seeds", res.SeedCount,
		"admitted", res.AdmittedCount,
		"warnings", len(res.Warnings),
	)

	return res, nil
}

// scoreBatch computes recency and magnitude for every article on a
// bounded worker pool. Warning slots are indexed by article so the
// collected order matches input order regardless of worker scheduling.
func (e *Engine) scoreBatch(ctx context.Context, batch []article.Article) ([]article.ScoredArticle, []Warning) {
	scored := make([]article.ScoredArticle, len(batch))
	warnSlots := make([][]Warning, len(batch))
	now := e.clock.Now()

	entitiesDown := e.entities == nil

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := e.workers
	if workers > len(batch) {
		workers = len(batch)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				scored[i] = e.scoreOne(ctx, batch[i], i, now, entitiesDown, &warnSlots[i])
			}
		}()
	}
	for i := range batch {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var warnings []Warning
	if entitiesDown {
		warnings = append(warnings, Warning{
			Code:    WarnCapabilityUnavailable,
			Message: "entity recognition unavailable, magnitude limited to ungated tiers",
		})
	}
	for _, slot := range warnSlots {
		warnings = append(warnings, slot...)
	}
	return scored, warnings
}

// scoreOne scores a single article. Every failure path degrades locally:
// an unparseable datetime zeroes the recency score, and an entity
// recognition failure (including context cancellation) limits magnitude
// to ungated tiers.
func (e *Engine) scoreOne(ctx context.Context, a article.Article, index int, now time.Time, entitiesDown bool, warns *[]Warning) article.ScoredArticle {
	sa := article.ScoredArticle{Article: a, Index: index}

	if t, err := timeparse.Normalize(a.Datetime); err != nil {
		sa.TimeKnown = false
		sa.RecencyScore = 0
		*warns = append(*warns, Warning{
			Code:      WarnParseFailure,
			ArticleID: a.ID,
			Message:   fmt.Sprintf("unparseable datetime %q, recency scored 0", a.Datetime.String()),
		})
	} else {
		sa.PublishedAt = t
		sa.TimeKnown = true
		sa.RecencyScore = scoring.RecencyScore(t, now, e.cfg.DecayRate)
	}

	text := a.Text()
	var result scoring.MagnitudeResult
	switch {
	case entitiesDown:
		result = e.scorer.ScoreDegraded(text)
	default:
		entities, err := e.entities.Recognize(ctx, text)
		if err != nil {
			e.metrics.ObserveCapabilityFailure(CapabilityEntities)
			*warns = append(*warns, Warning{
				Code:      WarnCapabilityFailure,
				ArticleID: a.ID,
				Message:   "entity recognition failed, magnitude limited to ungated tiers",
			})
			result = e.scorer.ScoreDegraded(text)
		} else {
			result = e.scorer.Score(text, entities)
		}
	}
	sa.MagnitudeScore = result.Score

	return sa
}
