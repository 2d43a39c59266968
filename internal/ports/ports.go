// Package ports declares the narrow synchronous interfaces through which
// the ranking engine consumes external capabilities. Production adapters
// wrap real models and clocks; tests inject deterministic fakes.
package ports

import (
	"context"
	"time"

	"github.com/finsignal/newsrank/internal/article"
)

// Clock supplies the reference instant for recency scoring.
type Clock interface {
	Now() time.Time
}

// EntityRecognizer extracts named entities from article text. Errors are
// recovered per article: the caller degrades to keyword-only scoring.
type EntityRecognizer interface {
	Recognize(ctx context.Context, text string) ([]article.Entity, error)
}

// Embedder converts text into a fixed-length vector for cosine similarity.
// Errors are recovered per candidate; a systemic failure degrades the
// expansion stage to seed-only output.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

// Now calls the wrapped function.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return ClockFunc(time.Now)
}
