package plate

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/plate-tools-mcp/internal/detection"
)

// DefaultCeiling is the highest score a hypothesis can receive.
const DefaultCeiling = 95.0

// Band is an inclusive numeric range.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether Min <= v <= Max.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Weights are the points and bands of the score model. See the package
// documentation for the evaluation order.
type Weights struct {
	Baseline float64 `json:"baseline"`

	// FormatBonus is added for a valid format. When HardRejectInvalid is
	// set an invalid format scores 0 outright.
	FormatBonus       float64 `json:"format_bonus"`
	HardRejectInvalid bool    `json:"hard_reject_invalid"`

	// SizeBonus is added when area/imageArea lies in SizeBand. When
	// SizeReject is set a ratio outside SizeRejectBand scores 0.
	SizeBand       Band    `json:"size_band"`
	SizeBonus      float64 `json:"size_bonus"`
	SizeReject     bool    `json:"size_reject"`
	SizeRejectBand Band    `json:"size_reject_band"`

	// AspectCheck enables the aspect step: +AspectBonus inside AspectBand,
	// -AspectPenalty outside.
	AspectCheck   bool    `json:"aspect_check"`
	AspectBand    Band    `json:"aspect_band"`
	AspectBonus   float64 `json:"aspect_bonus"`
	AspectPenalty float64 `json:"aspect_penalty"`

	// LengthBonus is added when the normalized length lies in LengthBand;
	// LengthPenalty is subtracted when it does not.
	LengthBand    Band    `json:"length_band"`
	LengthBonus   float64 `json:"length_bonus"`
	LengthPenalty float64 `json:"length_penalty"`

	// Multiplier scales the summed points before the ceiling is applied.
	// Zero leaves them unscaled.
	Multiplier float64 `json:"multiplier,omitempty"`

	// Ceiling caps the final score.
	Ceiling float64 `json:"ceiling"`
}

// StrictWeights returns the strict profile: baseline 40, +40 valid format
// with a hard reject otherwise, +15 size bonus with a hard reject outside
// 0.1%-10%, ±aspect step, and -15 for lengths outside 5-8.
func StrictWeights() Weights {
	return Weights{
		Baseline:          40,
		FormatBonus:       40,
		HardRejectInvalid: true,
		SizeBand:          Band{Min: 0.002, Max: 0.05},
		SizeBonus:         15,
		SizeReject:        true,
		SizeRejectBand:    Band{Min: 0.001, Max: 0.1},
		AspectCheck:       true,
		AspectBand:        Band{Min: 2.0, Max: 6.0},
		AspectBonus:       15,
		AspectPenalty:     20,
		LengthBand:        Band{Min: 5, Max: 8},
		LengthPenalty:     15,
		Ceiling:           DefaultCeiling,
	}
}

// PermissiveWeights returns the permissive profile: baseline 50, +25
// valid format, +15 for 0.1%-10% of the image, and +10 for lengths 5-8.
func PermissiveWeights() Weights {
	return Weights{
		Baseline:    50,
		FormatBonus: 25,
		SizeBand:    Band{Min: 0.001, Max: 0.1},
		SizeBonus:   15,
		LengthBand:  Band{Min: 5, Max: 8},
		LengthBonus: 10,
		Ceiling:     DefaultCeiling,
	}
}

// Validate reports whether the weights can produce scores in [0, 100].
func (w Weights) Validate() error {
	if w.Ceiling <= 0 || w.Ceiling > 100 {
		return fmt.Errorf("ceiling must be in (0, 100], got %g", w.Ceiling)
	}
	for _, v := range []float64{w.Baseline, w.FormatBonus, w.SizeBonus, w.AspectBonus, w.AspectPenalty, w.LengthBonus, w.LengthPenalty, w.Multiplier} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("weights must be finite")
		}
	}
	if w.Multiplier < 0 {
		return fmt.Errorf("multiplier must not be negative, got %g", w.Multiplier)
	}
	return nil
}

// Scorer computes hypothesis confidence from Weights. The zero value is
// not usable; build one with NewScorer.
type Scorer struct {
	w Weights
}

// NewScorer returns a Scorer for w, or an error if w is invalid.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid score weights: %w", err)
	}
	return &Scorer{w: w}, nil
}

// Weights returns the scorer's weights.
func (s *Scorer) Weights() Weights {
	return s.w
}

// Score returns the confidence of a hypothesis in [0, Ceiling].
func (s *Scorer) Score(v Validation, c detection.Candidate, imageArea int) float64 {
	score, _ := s.Assess(v, c, imageArea)
	return score
}

// Assess is Score that also names the hard reject, if one ended the
// evaluation. reject is empty when the score was computed in full.
func (s *Scorer) Assess(v Validation, c detection.Candidate, imageArea int) (score float64, reject string) {
	w := s.w
	score = w.Baseline

	if !v.Valid {
		if w.HardRejectInvalid {
			return 0, "invalid format"
		}
	} else {
		score += w.FormatBonus
	}

	sizeRatio := 0.0
	if imageArea > 0 {
		sizeRatio = float64(c.Area) / float64(imageArea)
	}
	if w.SizeBand.Contains(sizeRatio) {
		score += w.SizeBonus
	}
	if w.SizeReject && !w.SizeRejectBand.Contains(sizeRatio) {
		return 0, fmt.Sprintf("size ratio %.4f outside [%g, %g]", sizeRatio, w.SizeRejectBand.Min, w.SizeRejectBand.Max)
	}

	if w.AspectCheck {
		if w.AspectBand.Contains(c.AspectRatio) {
			score += w.AspectBonus
		} else {
			score -= w.AspectPenalty
		}
	}

	if w.LengthBand.Contains(float64(len(v.NormalizedText))) {
		score += w.LengthBonus
	} else {
		score -= w.LengthPenalty
	}

	if w.Multiplier != 0 {
		score *= w.Multiplier
	}
	return math.Max(0, math.Min(score, w.Ceiling)), ""
}
