// Package config loads server configuration from .env files and the
// environment.
//
// Every variable is optional. Unset values fall back to the selected
// profile's defaults; malformed values are reported by Validate.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ironsheep/plate-tools-mcp/internal/logging"
	"github.com/ironsheep/plate-tools-mcp/internal/ocr"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
	"github.com/ironsheep/plate-tools-mcp/internal/recognize"
)

// Environment variables.
const (
	EnvProfile             = "PLATE_PROFILE"
	EnvEngines             = "PLATE_ENGINES"
	EnvConfidenceThreshold = "PLATE_CONFIDENCE_THRESHOLD"
	EnvMaxCandidates       = "PLATE_MAX_CANDIDATES"
	EnvMaxWidth            = "PLATE_MAX_WIDTH"
	EnvGrammars            = "PLATE_GRAMMARS"
	EnvRecognizer          = "PLATE_RECOGNIZER"
	EnvTessdataPrefix      = "PLATE_TESSDATA_PREFIX"
	EnvLanguage            = "PLATE_LANGUAGE"
	EnvLogLevel            = "PLATE_LOG_LEVEL"
)

// DefaultEnvFile is read by the server when present.
const DefaultEnvFile = ".env"

// GrammarSeparator splits PLATE_GRAMMARS. Regular expressions commonly
// contain commas, so a semicolon is used.
const GrammarSeparator = ";"

// DefaultEngines is the engine list used when PLATE_ENGINES is unset.
var DefaultEngines = []string{pipeline.ProfilePermissive, pipeline.ProfileStrict}

// Recognizer names accepted in PLATE_RECOGNIZER.
const (
	RecognizerGeometry  = recognize.GeometryName
	RecognizerTesseract = ocr.Name
)

// Config holds server configuration
type Config struct {
	// Profile selects the default engine and receives the overrides.
	Profile string

	// Engines lists the profiles to register, highest priority first.
	Engines []string

	// Overrides; nil keeps the profile default
	ConfidenceThreshold *float64
	MaxCandidates       *int
	MaxWidth            *int
	Grammars            []string

	// Recognizer configuration. RecognizerExplicit records that
	// PLATE_RECOGNIZER was set rather than defaulted.
	Recognizer         string
	RecognizerExplicit bool
	TessdataPrefix     string
	Language           string

	LogLevel string

	parseErrors []error
}

// Load reads the given .env files, skipping any that do not exist, then
// builds and validates the configuration from the environment. Variables
// already set in the environment take precedence over file values.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv builds the configuration from environment variables without
// validating it.
func FromEnv() *Config {
	cfg := &Config{
		Profile:        strings.ToLower(getEnvOrDefault(EnvProfile, pipeline.ProfilePermissive)),
		Recognizer:     strings.ToLower(getEnvOrDefault(EnvRecognizer, RecognizerTesseract)),
		TessdataPrefix: getEnvOrDefault(EnvTessdataPrefix, ""),
		Language:       getEnvOrDefault(EnvLanguage, ocr.DefaultLanguage),
		LogLevel:       getEnvOrDefault(EnvLogLevel, "info"),
	}
	cfg.RecognizerExplicit = strings.TrimSpace(os.Getenv(EnvRecognizer)) != ""

	if v, ok := cfg.getEnvAsFloat(EnvConfidenceThreshold); ok {
		cfg.ConfidenceThreshold = &v
	}
	if v, ok := cfg.getEnvAsInt(EnvMaxCandidates); ok {
		cfg.MaxCandidates = &v
	}
	if v, ok := cfg.getEnvAsInt(EnvMaxWidth); ok {
		cfg.MaxWidth = &v
	}
	if v := os.Getenv(EnvGrammars); v != "" {
		cfg.Grammars = SplitGrammars(v)
	}
	cfg.Engines = splitEngines(os.Getenv(EnvEngines))
	return cfg
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if len(c.parseErrors) > 0 {
		return errors.Join(c.parseErrors...)
	}

	switch c.Recognizer {
	case RecognizerGeometry, RecognizerTesseract:
	default:
		return fmt.Errorf("%s must be %s or %s, got %q", EnvRecognizer, RecognizerGeometry, RecognizerTesseract, c.Recognizer)
	}

	if c.ConfidenceThreshold != nil && (*c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 100) {
		return fmt.Errorf("%s must be between 0 and 100, got %g", EnvConfidenceThreshold, *c.ConfidenceThreshold)
	}
	if c.MaxCandidates != nil && *c.MaxCandidates <= 0 {
		return fmt.Errorf("%s must be positive, got %d", EnvMaxCandidates, *c.MaxCandidates)
	}
	if c.MaxWidth != nil && *c.MaxWidth < 0 {
		return fmt.Errorf("%s must not be negative, got %d", EnvMaxWidth, *c.MaxWidth)
	}

	if _, err := c.EngineConfigs(); err != nil {
		return err
	}
	return nil
}

// Debug reports whether the log level selects debug output.
func (c *Config) Debug() bool {
	return logging.IsDebugLevel(c.LogLevel)
}

// PipelineConfig returns the selected profile with the overrides applied.
func (c *Config) PipelineConfig() (pipeline.Config, error) {
	pc, err := pipeline.ProfileByName(c.Profile)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("%s: %w", EnvProfile, err)
	}

	if c.ConfidenceThreshold != nil {
		pc.ConfidenceThreshold = *c.ConfidenceThreshold
	}
	if c.MaxCandidates != nil {
		pc.MaxCandidates = *c.MaxCandidates
	}
	if c.MaxWidth != nil {
		pc.MaxWidth = *c.MaxWidth
	}
	if len(c.Grammars) > 0 {
		pc.PlateGrammars = append([]string(nil), c.Grammars...)
	}
	pc.DebugLogging = c.Debug()

	if err := pc.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	return pc, nil
}

// EngineConfigs returns one configuration per entry of Engines (or
// DefaultEngines), in order. The selected profile carries the overrides
// and is appended last when the list omits it; the log level applies to
// all of them.
func (c *Config) EngineConfigs() ([]pipeline.Config, error) {
	selected, err := c.PipelineConfig()
	if err != nil {
		return nil, err
	}

	names := c.Engines
	if len(names) == 0 {
		names = DefaultEngines
	}

	var out []pipeline.Config
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("%s lists %q twice", EnvEngines, name)
		}
		seen[name] = true

		if name == selected.Profile {
			out = append(out, selected)
			continue
		}
		pc, err := pipeline.ProfileByName(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvEngines, err)
		}
		pc.DebugLogging = c.Debug()
		out = append(out, pc)
	}
	if !seen[selected.Profile] {
		out = append(out, selected)
	}
	return out, nil
}

// OCROptions returns the Tesseract options.
func (c *Config) OCROptions() ocr.Options {
	return ocr.Options{Language: c.Language, TessdataPrefix: c.TessdataPrefix}
}

// SplitGrammars splits a GrammarSeparator-delimited list, dropping empty
// entries and surrounding space.
func SplitGrammars(s string) []string {
	var out []string
	for _, g := range strings.Split(s, GrammarSeparator) {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// splitEngines splits a comma-separated profile list, lowercasing each
// entry and dropping empty ones.
func splitEngines(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt parses an integer variable. A malformed value is recorded
// for Validate.
func (c *Config) getEnvAsInt(key string) (int, bool) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return 0, false
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Errorf("%s must be an integer, got %q", key, valueStr))
		return 0, false
	}
	return value, true
}

// getEnvAsFloat parses a float variable. A malformed value is recorded
// for Validate.
func (c *Config) getEnvAsFloat(key string) (float64, bool) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Errorf("%s must be a number, got %q", key, valueStr))
		return 0, false
	}
	return value, true
}
