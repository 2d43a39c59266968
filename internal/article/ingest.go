package article

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// Batch decoding errors.
var (
	ErrEmptyPayload = errors.New("empty article payload")
	ErrInvalidJSON  = errors.New("invalid JSON article batch")
	ErrInvalidCBOR  = errors.New("invalid CBOR article batch")
	ErrMissingID    = errors.New("article missing id")
)

// RawTime holds a datetime value exactly as it arrived on the wire: either
// a number (epoch seconds, possibly fractional) or a free-form string.
// Normalization into a time.Time happens later in the pipeline.
type RawTime struct {
	Number   float64
	IsNumber bool
	Text     string
}

// IsZero reports whether no datetime value was supplied at all.
func (r RawTime) IsZero() bool {
	return !r.IsNumber && r.Text == ""
}

// String renders the raw value for logs and warnings.
func (r RawTime) String() string {
	if r.IsNumber {
		return strconv.FormatFloat(r.Number, 'f', -1, 64)
	}
	return r.Text
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (r *RawTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = RawTime{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawTime{Text: s}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("datetime is neither number nor string: %w", err)
	}
	*r = RawTime{Number: n, IsNumber: true}
	return nil
}

// MarshalJSON re-emits the value in its original shape so round-tripped
// records stay byte-identical for non-derived fields.
func (r RawTime) MarshalJSON() ([]byte, error) {
	if r.IsNumber {
		if r.Number == math.Trunc(r.Number) {
			return []byte(strconv.FormatInt(int64(r.Number), 10)), nil
		}
		return []byte(strconv.FormatFloat(r.Number, 'f', -1, 64)), nil
	}
	return json.Marshal(r.Text)
}

// UnmarshalCBOR accepts CBOR integers, floats, and text strings.
func (r *RawTime) UnmarshalCBOR(data []byte) error {
	var v interface{}
	if err := cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*r = RawTime{}
	case int64:
		*r = RawTime{Number: float64(t), IsNumber: true}
	case uint64:
		*r = RawTime{Number: float64(t), IsNumber: true}
	case float64:
		*r = RawTime{Number: t, IsNumber: true}
	case string:
		*r = RawTime{Text: t}
	default:
		return fmt.Errorf("datetime has unsupported CBOR type %T", v)
	}
	return nil
}

// MarshalCBOR mirrors MarshalJSON for the CBOR encoding.
func (r RawTime) MarshalCBOR() ([]byte, error) {
	if r.IsNumber {
		if r.Number == math.Trunc(r.Number) {
			return cbor.Marshal(int64(r.Number))
		}
		return cbor.Marshal(r.Number)
	}
	return cbor.Marshal(r.Text)
}

// DecodeJSON decodes a JSON array of input records into articles.
func DecodeJSON(data []byte) ([]Article, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyPayload
	}
	var batch []Article
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return validateBatch(batch)
}

// DecodeCBOR decodes a CBOR array of input records into articles.
func DecodeCBOR(data []byte) ([]Article, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	var batch []Article
	dec := cbor.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCBOR, err)
	}
	return validateBatch(batch)
}

func validateBatch(batch []Article) ([]Article, error) {
	for i := range batch {
		if batch[i].ID == "" {
			return nil, fmt.Errorf("%w: record %d", ErrMissingID, i)
		}
	}
	return batch, nil
}

// Dedupe removes articles whose ID was already seen, keeping the first
// occurrence. Insertion order is preserved. The returned slice of IDs
// lists every dropped duplicate, in encounter order.
func Dedupe(in []Article) ([]Article, []string) {
	if len(in) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]Article, 0, len(in))
	var dupes []string
	for _, a := range in {
		if _, ok := seen[a.ID]; ok {
			dupes = append(dupes, a.ID)
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out, dupes
}
