package pipeline

import (
	"time"

	"github.com/ironsheep/plate-tools-mcp/internal/detection"
)

// Hypothesis is one plate reading that passed scoring.
type Hypothesis struct {
	PlateNumber string        `json:"plate_number"`
	RawText     string        `json:"raw_text"`
	Confidence  float64       `json:"confidence"`
	FormatValid bool          `json:"format_valid"`
	Grammar     string        `json:"grammar,omitempty"`
	Coordinates detection.Box `json:"coordinates"`
	AspectRatio float64       `json:"aspect_ratio"`
	Area        int           `json:"area"`
	PlateColor  string        `json:"plate_color,omitempty"`
	Region      string        `json:"region"`
}

// ImageInfo describes the source image and the image detection ran on.
// Hypothesis coordinates refer to the processed size.
type ImageInfo struct {
	SourceWidth     int  `json:"source_width"`
	SourceHeight    int  `json:"source_height"`
	ProcessedWidth  int  `json:"processed_width"`
	ProcessedHeight int  `json:"processed_height"`
	Scaled          bool `json:"scaled"`
}

// Timings records per-stage durations in milliseconds.
type Timings struct {
	PreprocessMs float64 `json:"preprocess_ms"`
	ExtractMs    float64 `json:"extract_ms"`
	RecognizeMs  float64 `json:"recognize_ms"`
}

// Result is the outcome of one Process call.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`

	ProcessingTimeMs float64 `json:"processing_time_ms"`

	// Plates are sorted by confidence, highest first.
	Plates []Hypothesis `json:"plates_detected"`

	// CandidatesExamined is the number of regions that went through
	// recognition.
	CandidatesExamined int `json:"regions_analyzed"`

	Image   ImageInfo `json:"image_info"`
	Engine  string    `json:"alpr_engine"`
	RunID   string    `json:"run_id"`
	Timings Timings   `json:"timings"`
}

// Best returns the highest confidence hypothesis, if any.
func (r *Result) Best() (Hypothesis, bool) {
	if r == nil || len(r.Plates) == 0 {
		return Hypothesis{}, false
	}
	return r.Plates[0], true
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
