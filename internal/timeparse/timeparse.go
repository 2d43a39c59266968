// Package timeparse normalizes the heterogeneous datetime representations
// found in financial news feeds into UTC timestamps.
//
// Parsing is an ordered chain: numeric epoch seconds, then ISO-8601 /
// RFC 3339 layouts, then free-form textual dates. The first parser that
// succeeds wins, so a value like "1700000000" is always treated as an
// epoch second count rather than a year.
package timeparse

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/finsignal/newsrank/internal/article"
)

// ErrUnparseable marks a datetime value no parser in the chain accepted.
// Callers keep the article and score its recency as zero.
var ErrUnparseable = errors.New("unparseable datetime")

// millisEpochFloor is the smallest numeric value interpreted as epoch
// milliseconds rather than seconds. Epoch seconds stay below ~1e11 until
// the year 5138; feed providers that emit milliseconds are well above it.
const millisEpochFloor = 1e11

// isoLayouts are the explicit ISO-8601 shapes tried before falling back
// to free-form parsing.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts a raw datetime value into a UTC timestamp.
// Returns ErrUnparseable (wrapped) when every parser in the chain fails;
// the returned time is the zero value in that case.
func Normalize(raw article.RawTime) (time.Time, error) {
	if raw.IsNumber {
		return fromEpoch(raw.Number), nil
	}

	s := strings.TrimSpace(raw.Text)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrUnparseable)
	}

	// Numeric strings are epoch values too.
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(n), nil
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	// Last in the chain: free-form textual dates ("Jan 2, 2024", "02/01/2024").
	if t, err := dateparse.ParseAny(s); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, s)
}

// fromEpoch converts epoch seconds (or milliseconds, detected by
// magnitude) into a UTC time. Fractional seconds are preserved.
func fromEpoch(n float64) time.Time {
	if math.Abs(n) >= millisEpochFloor {
		n = n / 1000
	}
	sec, frac := math.Modf(n)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}
