package pipeline

import (
	"math"
	"strings"

	"github.com/ironsheep/plate-tools-mcp/internal/detection"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/plate"
)

// Profile names.
const (
	ProfilePermissive   = "permissive"
	ProfileStrict       = "strict"
	ProfileAggressive   = "aggressive"
	ProfileConservative = "conservative"
)

// Profiles lists every built-in profile name.
var Profiles = []string{ProfilePermissive, ProfileStrict, ProfileAggressive, ProfileConservative}

// Tuning of the permissive variants.
const (
	AggressiveMultiplier  = 1.1
	ConservativeThreshold = 80
)

// DefaultRegion tags every hypothesis unless configured otherwise.
const DefaultRegion = "us"

// Config parameterizes a Pipeline.
//
// MaxCandidates and PlateGrammars are the tunable surface; they override
// Extraction.MaxCandidates and Rules.Grammars when the pipeline compiles
// the configuration.
type Config struct {
	Profile string `json:"profile"`
	Region  string `json:"region"`

	// ConfidenceThreshold is the minimum score, in [0, 100], a hypothesis
	// needs to be reported.
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	MaxCandidates int      `json:"max_candidates"`
	PlateGrammars []string `json:"plate_grammars"`
	DebugLogging  bool     `json:"debug_logging"`

	// MaxWidth is the width images are downscaled to before detection.
	// Zero disables downscaling.
	MaxWidth int `json:"max_width"`

	// RequireValidFormat drops hypotheses whose text fails validation,
	// whatever their score.
	RequireValidFormat bool `json:"require_valid_format"`

	Extraction detection.Filter `json:"extraction"`
	Rules      plate.Rules      `json:"rules"`
	Weights    plate.Weights    `json:"weights"`
}

// Permissive returns the default configuration: wide geometric bounds,
// loose grammars, threshold 60.
func Permissive() Config {
	rules := plate.PermissiveRules()
	filter := detection.PermissiveFilter()
	return Config{
		Profile:             ProfilePermissive,
		Region:              DefaultRegion,
		ConfidenceThreshold: 60,
		MaxCandidates:       filter.MaxCandidates,
		PlateGrammars:       rules.Grammars,
		MaxWidth:            imaging.DefaultMaxWidth,
		RequireValidFormat:  true,
		Extraction:          filter,
		Rules:               rules,
		Weights:             plate.PermissiveWeights(),
	}
}

// Strict returns the recommended configuration: plate-shaped regions only,
// strict grammars with hard rejects, threshold 85.
func Strict() Config {
	rules := plate.StrictRules()
	filter := detection.DefaultFilter()
	return Config{
		Profile:             ProfileStrict,
		Region:              DefaultRegion,
		ConfidenceThreshold: 85,
		MaxCandidates:       filter.MaxCandidates,
		PlateGrammars:       rules.Grammars,
		MaxWidth:            imaging.DefaultMaxWidth,
		RequireValidFormat:  true,
		Extraction:          filter,
		Rules:               rules,
		Weights:             plate.StrictWeights(),
	}
}

// Aggressive is Permissive with every score boosted by
// AggressiveMultiplier, still capped at the ceiling.
func Aggressive() Config {
	c := Permissive()
	c.Profile = ProfileAggressive
	c.Weights.Multiplier = AggressiveMultiplier
	return c
}

// Conservative is Permissive keeping only hypotheses scoring at least
// ConservativeThreshold.
func Conservative() Config {
	c := Permissive()
	c.Profile = ProfileConservative
	c.ConfidenceThreshold = ConservativeThreshold
	return c
}

// ProfileByName returns the configuration for a profile name, ignoring
// case and surrounding space.
func ProfileByName(name string) (Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProfilePermissive:
		return Permissive(), nil
	case ProfileStrict:
		return Strict(), nil
	case ProfileAggressive:
		return Aggressive(), nil
	case ProfileConservative:
		return Conservative(), nil
	default:
		return Config{}, configError("unknown profile %q (want one of %s)", name, strings.Join(Profiles, ", "))
	}
}

// Validate reports whether the configuration can build a pipeline.
func (c Config) Validate() error {
	_, err := compile(c)
	return err
}

func (c Config) clone() Config {
	c.PlateGrammars = append([]string(nil), c.PlateGrammars...)
	c.Rules.Grammars = append([]string(nil), c.Rules.Grammars...)
	return c
}

// compiled is an immutable, validated configuration. Process works on one
// snapshot for its whole duration.
type compiled struct {
	cfg       Config
	filter    detection.Filter
	validator *plate.Validator
	scorer    *plate.Scorer
}

func compile(c Config) (*compiled, error) {
	c = c.clone()

	if math.IsNaN(c.ConfidenceThreshold) {
		return nil, configError("confidence threshold is NaN")
	}
	c.ConfidenceThreshold = clampThreshold(c.ConfidenceThreshold)

	if c.MaxCandidates <= 0 {
		return nil, configError("max candidates must be positive, got %d", c.MaxCandidates)
	}
	if c.MaxWidth < 0 {
		return nil, configError("max width must not be negative, got %d", c.MaxWidth)
	}

	filter := c.Extraction
	filter.MaxCandidates = c.MaxCandidates
	if err := filter.Validate(); err != nil {
		return nil, newError(CodeConfiguration, StageIdle, "invalid candidate filter", err)
	}

	rules := c.Rules
	rules.Grammars = c.PlateGrammars
	validator, err := plate.NewValidator(rules)
	if err != nil {
		return nil, newError(CodeConfiguration, StageIdle, "invalid plate rules", err)
	}

	scorer, err := plate.NewScorer(c.Weights)
	if err != nil {
		return nil, newError(CodeConfiguration, StageIdle, "invalid score weights", err)
	}

	c.Extraction = filter
	c.Rules = validator.Rules()
	c.PlateGrammars = append([]string(nil), c.Rules.Grammars...)
	return &compiled{cfg: c, filter: filter, validator: validator, scorer: scorer}, nil
}

func clampThreshold(v float64) float64 {
	return math.Max(0, math.Min(v, 100))
}
