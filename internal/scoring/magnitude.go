package scoring

import (
	"strings"

	"github.com/finsignal/newsrank/internal/article"
)

// Tier identifies an event-impact band. Tiers are evaluated in priority
// order: the first tier with at least one accepted keyword wins.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	// TierNone means no lexicon matched and the baseline score applies.
	TierNone Tier = "none"
)

// DefaultBaseline is the magnitude assigned when no keyword matches.
const DefaultBaseline = 0.15

// Keyword is one lexicon entry with its impact score. Scores are clamped
// into the owning lexicon's bounds at construction time.
type Keyword struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// Lexicon is a tagged keyword list for one impact tier. RequiresEntity
// gates the whole tier on the presence of a recognized entity.
type Lexicon struct {
	Tier           Tier      `json:"tier"`
	Entries        []Keyword `json:"entries"`
	RequiresEntity bool      `json:"requires_entity"`
	Floor          float64   `json:"floor"`
	Ceil           float64   `json:"ceil"`
}

// DefaultLexicons returns the built-in financial event lexicons. Entry
// scores come from observed market impact of each event class and sit
// inside each tier's band (high 0.8-0.95, medium 0.4-0.6, low 0.2-0.3).
func DefaultLexicons() []Lexicon {
	return []Lexicon{
		{
			Tier:           TierHigh,
			RequiresEntity: true,
			Floor:          0.8,
			Ceil:           0.95,
			Entries: []Keyword{
				{Term: "earnings", Score: 0.95},
				{Term: "merger", Score: 0.95},
				{Term: "acquisition", Score: 0.95},
				{Term: "acquires", Score: 0.95},
				{Term: "fda approval", Score: 0.95},
				{Term: "fda approves", Score: 0.95},
				{Term: "bankruptcy", Score: 0.9},
				{Term: "bankrupt", Score: 0.9},
				{Term: "fraud", Score: 0.9},
				{Term: "ceo", Score: 0.85},
				{Term: "chief executive", Score: 0.85},
				{Term: "regulatory", Score: 0.85},
				{Term: "stock split", Score: 0.85},
				{Term: "restructuring", Score: 0.85},
				{Term: "recall", Score: 0.85},
				{Term: "guidance", Score: 0.85},
				{Term: "layoffs", Score: 0.85},
				{Term: "layoff", Score: 0.85},
				{Term: "lawsuit", Score: 0.8},
				{Term: "dividend", Score: 0.8},
				{Term: "investigation", Score: 0.8},
				{Term: "forecast", Score: 0.8},
			},
		},
		{
			Tier:           TierMedium,
			RequiresEntity: true,
			Floor:          0.4,
			Ceil:           0.6,
			Entries: []Keyword{
				{Term: "partnership", Score: 0.6},
				{Term: "product launch", Score: 0.6},
				{Term: "contract", Score: 0.55},
				{Term: "launches", Score: 0.55},
				{Term: "expansion", Score: 0.55},
				{Term: "funding", Score: 0.55},
				{Term: "upgrade", Score: 0.5},
				{Term: "downgrade", Score: 0.5},
				{Term: "investment", Score: 0.5},
				{Term: "deal", Score: 0.5},
				{Term: "collaboration", Score: 0.5},
				{Term: "agreement", Score: 0.5},
				{Term: "rating", Score: 0.45},
				{Term: "analyst", Score: 0.4},
			},
		},
		{
			Tier:           TierLow,
			RequiresEntity: false,
			Floor:          0.2,
			Ceil:           0.3,
			Entries: []Keyword{
				{Term: "commentary", Score: 0.3},
				{Term: "outlook", Score: 0.3},
				{Term: "expects", Score: 0.3},
				{Term: "analysis", Score: 0.25},
				{Term: "update", Score: 0.25},
				{Term: "report", Score: 0.25},
				{Term: "opinion", Score: 0.2},
				{Term: "could", Score: 0.2},
				{Term: "may", Score: 0.2},
			},
		},
	}
}

// DefaultGatingTypes returns the entity types that validate high and
// medium tier keyword hits.
func DefaultGatingTypes() []article.EntityType {
	return []article.EntityType{article.EntityOrg, article.EntityProduct, article.EntityPerson}
}

// MagnitudeResult reports the outcome of magnitude classification.
type MagnitudeResult struct {
	Score float64
	Tier  Tier
}

// MagnitudeScorer classifies article text into an impact score by scanning
// tier lexicons in priority order. It holds no mutable state and is safe
// for concurrent use.
type MagnitudeScorer struct {
	lexicons []Lexicon
	gating   map[article.EntityType]struct{}
	baseline float64
}

// NewMagnitudeScorer builds a scorer from the given lexicons, gating
// entity types, and no-match baseline. Nil or empty lexicons fall back to
// DefaultLexicons; entry scores are clamped into their tier's bounds.
func NewMagnitudeScorer(lexicons []Lexicon, gating []article.EntityType, baseline float64) *MagnitudeScorer {
	if len(lexicons) == 0 {
		lexicons = DefaultLexicons()
	}
	if len(gating) == 0 {
		gating = DefaultGatingTypes()
	}
	if baseline <= 0 {
		baseline = DefaultBaseline
	}

	clamped := make([]Lexicon, len(lexicons))
	for i, lex := range lexicons {
		entries := make([]Keyword, len(lex.Entries))
		for j, kw := range lex.Entries {
			score := kw.Score
			if lex.Ceil > 0 {
				if score > lex.Ceil {
					score = lex.Ceil
				}
				if score < lex.Floor {
					score = lex.Floor
				}
			}
			entries[j] = Keyword{Term: strings.ToLower(kw.Term), Score: score}
		}
		clamped[i] = Lexicon{
			Tier:           lex.Tier,
			Entries:        entries,
			RequiresEntity: lex.RequiresEntity,
			Floor:          lex.Floor,
			Ceil:           lex.Ceil,
		}
	}

	gates := make(map[article.EntityType]struct{}, len(gating))
	for _, t := range gating {
		gates[t] = struct{}{}
	}

	return &MagnitudeScorer{lexicons: clamped, gating: gates, baseline: baseline}
}

// Baseline returns the no-match magnitude score.
func (s *MagnitudeScorer) Baseline() float64 {
	return s.baseline
}

// Score classifies text against every lexicon in order. Entity-gated
// lexicons only accept hits when entities contains at least one entity of
// a gating type. The first lexicon with an accepted hit decides the tier;
// its score is the maximum accepted keyword score.
func (s *MagnitudeScorer) Score(text string, entities []article.Entity) MagnitudeResult {
	lower := strings.ToLower(text)
	gated := s.hasGatingEntity(entities)

	for _, lex := range s.lexicons {
		if lex.RequiresEntity && !gated {
			continue
		}
		if score, ok := matchLexicon(lower, lex); ok {
			return MagnitudeResult{Score: score, Tier: lex.Tier}
		}
	}
	return MagnitudeResult{Score: s.baseline, Tier: TierNone}
}

// ScoreDegraded classifies text when entity recognition failed for the
// article: only lexicons that do not require an entity are consulted.
func (s *MagnitudeScorer) ScoreDegraded(text string) MagnitudeResult {
	lower := strings.ToLower(text)
	for _, lex := range s.lexicons {
		if lex.RequiresEntity {
			continue
		}
		if score, ok := matchLexicon(lower, lex); ok {
			return MagnitudeResult{Score: score, Tier: lex.Tier}
		}
	}
	return MagnitudeResult{Score: s.baseline, Tier: TierNone}
}

func (s *MagnitudeScorer) hasGatingEntity(entities []article.Entity) bool {
	for _, e := range entities {
		if _, ok := s.gating[e.Type]; ok && e.Text != "" {
			return true
		}
	}
	return false
}

// matchLexicon returns the maximum score among keywords present in the
// lowercased text, and whether any keyword matched at all.
func matchLexicon(lower string, lex Lexicon) (float64, bool) {
	var best float64
	matched := false
	for _, kw := range lex.Entries {
		if kw.Term == "" {
			continue
		}
		if strings.Contains(lower, kw.Term) {
			matched = true
			if kw.Score > best {
				best = kw.Score
			}
		}
	}
	return best, matched
}
