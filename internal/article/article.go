// Package article defines the core news article model shared by every
// pipeline stage, along with batch ingestion and deduplication.
package article

import (
	"time"
)

// EntityType classifies a recognized named entity.
type EntityType string

// Entity types accepted for magnitude gating.
const (
	EntityOrg     EntityType = "ORG"
	EntityProduct EntityType = "PRODUCT"
	EntityPerson  EntityType = "PERSON"
)

// Entity is a named entity recognized in article text.
type Entity struct {
	Text string     `json:"text"`
	Type EntityType `json:"type"`
}

// Article is one news item as supplied by the caller. Identity and content
// fields are never mutated by the pipeline; derived fields are appended on
// the wrapper types below.
type Article struct {
	ID       string   `json:"id" cbor:"id"`
	Category string   `json:"category,omitempty" cbor:"category,omitempty"`
	Datetime RawTime  `json:"datetime" cbor:"datetime"`
	Headline string   `json:"headline" cbor:"headline"`
	Summary  string   `json:"summary,omitempty" cbor:"summary,omitempty"`
	Source   string   `json:"source,omitempty" cbor:"source,omitempty"`
	Image    string   `json:"image,omitempty" cbor:"image,omitempty"`
	Related  []string `json:"related,omitempty" cbor:"related,omitempty"`
	URL      string   `json:"url,omitempty" cbor:"url,omitempty"`

	// PublishedAt is the normalized timestamp; TimeKnown is false when the
	// raw datetime could not be parsed.
	PublishedAt time.Time `json:"-" cbor:"-"`
	TimeKnown   bool      `json:"-" cbor:"-"`
}

// Text returns the text scanned by keyword and embedding stages.
func (a *Article) Text() string {
	if a.Summary == "" {
		return a.Headline
	}
	return a.Headline + " " + a.Summary
}

// ScoredArticle is an Article annotated with ranking scores.
type ScoredArticle struct {
	Article

	RecencyScore   float64 `json:"recency_score" cbor:"recency_score"`
	MagnitudeScore float64 `json:"magnitude_score" cbor:"magnitude_score"`
	RankScore      float64 `json:"rank_score" cbor:"rank_score"`

	// Index is the article's position in the deduplicated input batch.
	// It is the stable tiebreaker for every ordering decision downstream.
	Index int `json:"-" cbor:"-"`
}

// ExpandedArticle is a ScoredArticle that passed through the similarity
// expansion stage. Seed members carry Seed=true and no similarity score;
// admitted candidates carry their maximum cosine similarity against the
// seed set.
type ExpandedArticle struct {
	ScoredArticle

	SimilarityScore *float64 `json:"similarity_score,omitempty" cbor:"similarity_score,omitempty"`
	Seed            bool     `json:"seed,omitempty" cbor:"seed,omitempty"`
}

// Similarity returns the similarity score, or 0 for seed members.
func (e *ExpandedArticle) Similarity() float64 {
	if e.SimilarityScore == nil {
		return 0
	}
	return *e.SimilarityScore
}
