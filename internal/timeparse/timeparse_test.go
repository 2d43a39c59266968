package timeparse

import (
	"errors"
	"testing"
	"time"

	"github.com/finsignal/newsrank/internal/article"
)

// TestNormalize tests the full parser chain across representations.
func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  article.RawTime
		want time.Time
	}{
		{
			name: "epoch seconds integer",
			raw:  article.RawTime{Number: 1700000000, IsNumber: true},
			want: time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC),
		},
		{
			name: "epoch seconds fractional",
			raw:  article.RawTime{Number: 1700000000.5, IsNumber: true},
			want: time.Date(2023, 11, 14, 22, 13, 20, 500000000, time.UTC),
		},
		{
			name: "epoch milliseconds",
			raw:  article.RawTime{Number: 1700000000000, IsNumber: true},
			want: time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC),
		},
		{
			name: "epoch seconds as string",
			raw:  article.RawTime{Text: "1700000000"},
			want: time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC),
		},
		{
			name: "rfc3339",
			raw:  article.RawTime{Text: "2024-01-15T09:30:00Z"},
			want: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "rfc3339 with offset",
			raw:  article.RawTime{Text: "2024-01-15T09:30:00+02:00"},
			want: time.Date(2024, 1, 15, 7, 30, 0, 0, time.UTC),
		},
		{
			name: "iso without zone",
			raw:  article.RawTime{Text: "2024-01-15T09:30:00"},
			want: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "space separated",
			raw:  article.RawTime{Text: "2024-01-15 09:30:00"},
			want: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "date only",
			raw:  article.RawTime{Text: "2024-01-15"},
			want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "free-form textual",
			raw:  article.RawTime{Text: "Jan 15, 2024"},
			want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// TestNormalizeUnparseable verifies the chain fails cleanly.
func TestNormalizeUnparseable(t *testing.T) {
	for _, raw := range []article.RawTime{
		{Text: "not a date at all zzz"},
		{Text: ""},
		{},
	} {
		got, err := Normalize(raw)
		if !errors.Is(err, ErrUnparseable) {
			t.Errorf("Normalize(%q) err = %v, want ErrUnparseable", raw.String(), err)
		}
		if !got.IsZero() {
			t.Errorf("Normalize(%q) returned non-zero time %v", raw.String(), got)
		}
	}
}
