// Package config provides configuration loading and validation for the
// ranking engine. It uses koanf to merge environment variables with
// optional YAML file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/finsignal/newsrank/internal/article"
	"github.com/finsignal/newsrank/internal/scoring"
)

// Config holds all tunable values for the ranking engine.
type Config struct {
	// Recency
	DecayRate float64 `koanf:"decay_rate"`

	// Rank combination
	RecencyWeight   float64 `koanf:"recency_weight"`
	MagnitudeWeight float64 `koanf:"magnitude_weight"`
	CalibrationPath string  `koanf:"calibration_path"`

	// Seed selection and expansion
	SeedSize            int     `koanf:"seed_size"`
	TopK                int     `koanf:"top_k"`
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
	OutputCap           int     `koanf:"output_cap"`

	// Magnitude classification
	Baseline          float64  `koanf:"baseline"`
	HighKeywords      []string `koanf:"high_keywords"`
	MediumKeywords    []string `koanf:"medium_keywords"`
	LowKeywords       []string `koanf:"low_keywords"`
	GatingEntityTypes []string `koanf:"gating_entity_types"`

	// Scoring worker pool size. Zero means runtime.NumCPU at the engine.
	Workers int `koanf:"workers"`
}

// Configuration validation errors.
var (
	ErrInvalidDecayRate = errors.New("decay_rate must be positive")
	ErrInvalidWeights   = errors.New("recency_weight and magnitude_weight must be non-negative and sum to 1.0")
	ErrInvalidSeedSize  = errors.New("seed_size must be at least 1")
	ErrInvalidTopK      = errors.New("top_k must be at least 1")
	ErrInvalidThreshold = errors.New("similarity_threshold must be in (0, 1]")
	ErrInvalidOutputCap = errors.New("output_cap must be at least seed_size")
	ErrInvalidBaseline  = errors.New("baseline must be in (0, 1)")
	ErrInvalidWorkers   = errors.New("workers must not be negative")
	ErrInvalidNumber    = errors.New("environment value is not a valid number")
)

// Default values.
const (
	DefaultDecayRate           = 0.1
	DefaultRecencyWeight       = 0.4
	DefaultMagnitudeWeight     = 0.6
	DefaultSeedSize            = 5
	DefaultTopK                = 10
	DefaultSimilarityThreshold = 0.55
	DefaultOutputCap           = 15
	DefaultBaseline            = scoring.DefaultBaseline
)

const weightSumTolerance = 1e-9

// Default returns a Config populated with every default value.
func Default() *Config {
	return &Config{
		DecayRate:           DefaultDecayRate,
		RecencyWeight:       DefaultRecencyWeight,
		MagnitudeWeight:     DefaultMagnitudeWeight,
		SeedSize:            DefaultSeedSize,
		TopK:                DefaultTopK,
		SimilarityThreshold: DefaultSimilarityThreshold,
		OutputCap:           DefaultOutputCap,
		Baseline:            DefaultBaseline,
	}
}

// Load reads configuration from an optional YAML file merged with
// NEWSRANK_-prefixed environment variables. Environment variables take
// precedence over file values. Returns the loaded config and a slice of
// validation errors (empty if valid). If a config file path is provided
// and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	decayRate, err := getEnvFloatOrDefault("NEWSRANK_DECAY_RATE", k.Float64("decay_rate"), DefaultDecayRate)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	recencyWeight, err := getEnvFloatOrDefault("NEWSRANK_RECENCY_WEIGHT", k.Float64("recency_weight"), DefaultRecencyWeight)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	magnitudeWeight, err := getEnvFloatOrDefault("NEWSRANK_MAGNITUDE_WEIGHT", k.Float64("magnitude_weight"), DefaultMagnitudeWeight)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	threshold, err := getEnvFloatOrDefault("NEWSRANK_SIMILARITY_THRESHOLD", k.Float64("similarity_threshold"), DefaultSimilarityThreshold)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	baseline, err := getEnvFloatOrDefault("NEWSRANK_BASELINE", k.Float64("baseline"), DefaultBaseline)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	seedSize, err := getEnvIntOrDefault("NEWSRANK_SEED_SIZE", k.Int("seed_size"), DefaultSeedSize)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	topK, err := getEnvIntOrDefault("NEWSRANK_TOP_K", k.Int("top_k"), DefaultTopK)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	outputCap, err := getEnvIntOrDefault("NEWSRANK_OUTPUT_CAP", k.Int("output_cap"), DefaultOutputCap)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	workers, err := getEnvIntOrDefault("NEWSRANK_WORKERS", k.Int("workers"), 0)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	cfg := &Config{
		DecayRate:           decayRate,
		RecencyWeight:       recencyWeight,
		MagnitudeWeight:     magnitudeWeight,
		CalibrationPath:     getEnvOrKoanf("NEWSRANK_CALIBRATION_PATH", k, "calibration_path"),
		SeedSize:            seedSize,
		TopK:                topK,
		SimilarityThreshold: threshold,
		OutputCap:           outputCap,
		Baseline:            baseline,
		HighKeywords:        k.Strings("high_keywords"),
		MediumKeywords:      k.Strings("medium_keywords"),
		LowKeywords:         k.Strings("low_keywords"),
		GatingEntityTypes:   k.Strings("gating_entity_types"),
		Workers:             workers,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// Validate checks every configured value against its allowed range.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DecayRate <= 0 {
		errs = append(errs, ErrInvalidDecayRate)
	}
	if c.RecencyWeight < 0 || c.MagnitudeWeight < 0 ||
		abs(c.RecencyWeight+c.MagnitudeWeight-1.0) > weightSumTolerance {
		errs = append(errs, ErrInvalidWeights)
	}
	if c.SeedSize < 1 {
		errs = append(errs, ErrInvalidSeedSize)
	}
	if c.TopK < 1 {
		errs = append(errs, ErrInvalidTopK)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, ErrInvalidThreshold)
	}
	if c.OutputCap < c.SeedSize {
		errs = append(errs, ErrInvalidOutputCap)
	}
	if c.Baseline <= 0 || c.Baseline >= 1 {
		errs = append(errs, ErrInvalidBaseline)
	}
	if c.Workers < 0 {
		errs = append(errs, ErrInvalidWorkers)
	}

	return errs
}

// Lexicons builds the magnitude lexicons from the configured keyword
// lists, falling back to the built-in lexicons for any tier left empty.
// Configured keywords take the midpoint score of their tier's band.
func (c *Config) Lexicons() []scoring.Lexicon {
	defaults := scoring.DefaultLexicons()
	overrides := map[scoring.Tier][]string{
		scoring.TierHigh:   c.HighKeywords,
		scoring.TierMedium: c.MediumKeywords,
		scoring.TierLow:    c.LowKeywords,
	}

	out := make([]scoring.Lexicon, len(defaults))
	for i, lex := range defaults {
		terms := overrides[lex.Tier]
		if len(terms) == 0 {
			out[i] = lex
			continue
		}
		mid := (lex.Floor + lex.Ceil) / 2
		entries := make([]scoring.Keyword, len(terms))
		for j, term := range terms {
			entries[j] = scoring.Keyword{Term: term, Score: mid}
		}
		out[i] = scoring.Lexicon{
			Tier:           lex.Tier,
			Entries:        entries,
			RequiresEntity: lex.RequiresEntity,
			Floor:          lex.Floor,
			Ceil:           lex.Ceil,
		}
	}
	return out
}

// GatingTypes converts the configured entity type names, falling back to
// the default ORG/PRODUCT/PERSON set when none are configured.
func (c *Config) GatingTypes() []article.EntityType {
	if len(c.GatingEntityTypes) == 0 {
		return scoring.DefaultGatingTypes()
	}
	types := make([]article.EntityType, len(c.GatingEntityTypes))
	for i, name := range c.GatingEntityTypes {
		types[i] = article.EntityType(name)
	}
	return types
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvIntOrDefault returns the environment variable as int if set,
// otherwise the koanf value, or default. Returns an error if the
// environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", envKey, ErrInvalidNumber)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set,
// otherwise the koanf value, or default. Returns an error if the
// environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", envKey, ErrInvalidNumber)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
