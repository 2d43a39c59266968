package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
)

// weightSumTolerance bounds floating-point drift when validating that the
// two weights sum to 1.0.
const weightSumTolerance = 1e-9

// ErrInvalidWeights marks a weight configuration whose components are
// negative or do not sum to 1.0.
var ErrInvalidWeights = errors.New("invalid ranking weights")

// Weights defines the blend of recency and magnitude in the rank score.
type Weights struct {
	Recency   float64 `json:"recency"`   // Weight for time-decay freshness (default: 0.4)
	Magnitude float64 `json:"magnitude"` // Weight for event impact (default: 0.6)
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Weight configuration
}

// DefaultWeights returns the default rank weight configuration.
//
// Formula: rank_score = (recency * 0.4) + (magnitude * 0.6)
// - Magnitude dominates so that high-impact events outrank merely fresh noise
// - Recency keeps stale events from lingering at the top
// - Both components are in [0, 1], so rank_score is too
func DefaultWeights() *Weights {
	return &Weights{
		Recency:   0.4,
		Magnitude: 0.6,
	}
}

// Validate checks that both weights are non-negative and sum to 1.0
// within floating-point tolerance.
func (w *Weights) Validate() error {
	if w.Recency < 0 || w.Magnitude < 0 {
		return fmt.Errorf("%w: components must be non-negative", ErrInvalidWeights)
	}
	if math.Abs(w.Recency+w.Magnitude-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: components must sum to 1.0, got %.9f", ErrInvalidWeights, w.Recency+w.Magnitude)
	}
	return nil
}

// LoadCalibration loads rank weights from a JSON calibration file.
// If the file doesn't exist or can't be read, returns default weights with
// an error. Partial configurations are merged with defaults for graceful
// degradation; the merged result is validated before use.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	if err := merged.Validate(); err != nil {
		slog.Warn("calibration file produced invalid weights, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), err
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights with base weights.
// Only non-zero values from the override are applied, which allows partial
// overrides in the calibration file.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	// Guard against nil base to avoid panics; fall back to defaults.
	if base == nil {
		return DefaultWeights()
	}

	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.Recency != 0 {
		result.Recency = override.Recency
	}
	if override.Magnitude != 0 {
		result.Magnitude = override.Magnitude
	}

	return &result
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	if loaded.Recency != defaults.Recency {
		overrides = append(overrides, fmt.Sprintf("recency: %.2f -> %.2f",
			defaults.Recency, loaded.Recency))
	}
	if loaded.Magnitude != defaults.Magnitude {
		overrides = append(overrides, fmt.Sprintf("magnitude: %.2f -> %.2f",
			defaults.Magnitude, loaded.Magnitude))
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
