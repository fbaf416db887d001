package pipeline

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/plate-tools-mcp/internal/detection"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/logging"
)

// Recognizer reads the characters in a cropped plate region.
//
// crop is the candidate region cut from the processed color image; box is
// its position in that image. An empty string with a nil error means no
// text was found.
type Recognizer interface {
	Name() string
	Recognize(crop image.Image, box detection.Box) (string, error)
}

// Corrector is implemented by recognizers with known reading mistakes.
// The pipeline keeps the uncorrected text as Hypothesis.RawText and
// validates the corrected one.
type Corrector interface {
	Correct(text string) string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The pipeline logs under a child named after
// its profile, so its debug switch is independent of other pipelines.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithImageCache makes ProcessFile load images through c.
func WithImageCache(c *imaging.ImageCache) Option {
	return func(p *Pipeline) {
		p.cache = c
	}
}

// Pipeline turns an image into ranked plate hypotheses.
//
// A Pipeline is safe for concurrent use. Each Process call works on a
// snapshot of the configuration taken at entry; setters affect later calls
// only.
type Pipeline struct {
	mu    sync.RWMutex
	cur   *compiled
	rec   Recognizer
	log   *logging.Logger
	cache *imaging.ImageCache
}

// New builds a pipeline from cfg and a recognizer.
//
// # Errors
//
// Returns an *Error with code ConfigurationError when cfg does not
// validate or rec is nil.
func New(cfg Config, rec Recognizer, opts ...Option) (*Pipeline, error) {
	if rec == nil {
		return nil, configError("recognizer is required")
	}
	c, err := compile(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{cur: c, rec: rec, log: logging.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	name := c.cfg.Profile
	if name == "" {
		name = "pipeline"
	}
	p.log = p.log.Named(name)
	p.log.SetDebug(c.cfg.DebugLogging)
	return p, nil
}

// Name identifies the pipeline as "<profile>+<recognizer>".
func (p *Pipeline) Name() string {
	return p.snapshot().cfg.Profile + "+" + p.rec.Name()
}

// Recognizer returns the recognizer the pipeline was built with.
func (p *Pipeline) Recognizer() Recognizer {
	return p.rec
}

// Config returns a copy of the active configuration.
func (p *Pipeline) Config() Config {
	return p.snapshot().cfg.clone()
}

func (p *Pipeline) snapshot() *compiled {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cur
}

// update applies fn to a copy of the configuration and installs it if it
// compiles. On error the active configuration is unchanged.
func (p *Pipeline) update(fn func(*Config)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg := p.cur.cfg.clone()
	fn(&cfg)
	c, err := compile(cfg)
	if err != nil {
		return err
	}
	p.cur = c
	return nil
}

// SetConfidenceThreshold sets the minimum reported score, clamped to
// [0, 100]. NaN is rejected.
func (p *Pipeline) SetConfidenceThreshold(v float64) error {
	if math.IsNaN(v) {
		return configError("confidence threshold is NaN")
	}
	return p.update(func(c *Config) { c.ConfidenceThreshold = clampThreshold(v) })
}

// SetMaxCandidates sets how many regions are recognized per image.
func (p *Pipeline) SetMaxCandidates(n int) error {
	if n <= 0 {
		return configError("max candidates must be positive, got %d", n)
	}
	return p.update(func(c *Config) { c.MaxCandidates = n })
}

// SetPlateGrammars replaces the ordered grammar list.
func (p *Pipeline) SetPlateGrammars(grammars []string) error {
	return p.update(func(c *Config) { c.PlateGrammars = append([]string(nil), grammars...) })
}

// SetDebug toggles per-stage and per-candidate debug logging.
func (p *Pipeline) SetDebug(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := *p.cur
	c.cfg = p.cur.cfg.clone()
	c.cfg.DebugLogging = enabled
	p.cur = &c
	p.log.SetDebug(enabled)
}

// ProcessBytes decodes data and processes it. Decode failures produce an
// InvalidImage result.
func (p *Pipeline) ProcessBytes(data []byte) (*Result, error) {
	start := time.Now()
	img, err := imaging.Decode(data)
	if err != nil {
		return p.fail(p.newResult(p.snapshot()), start, newError(CodeInvalidImage, StagePreprocessing, "cannot decode image", err))
	}
	return p.process(img, start)
}

// ProcessFile loads the image at path, through the image cache when one
// is configured, and processes it.
func (p *Pipeline) ProcessFile(path string) (*Result, error) {
	start := time.Now()

	var img image.Image
	var err error
	if p.cache != nil {
		img, err = p.cache.Load(path)
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		if err == nil {
			img, err = imaging.Decode(data)
		}
	}
	if err != nil {
		return p.fail(p.newResult(p.snapshot()), start, newError(CodeInvalidImage, StagePreprocessing, fmt.Sprintf("cannot load %s", path), err))
	}
	return p.process(img, start)
}

// Process runs detection and recognition on img.
//
// # Algorithm
//
//  1. Downscale to Config.MaxWidth, keeping the aspect ratio
//  2. Preprocess: luminance, CLAHE, Gaussian smoothing
//  3. Extract up to MaxCandidates plate-shaped regions, largest first
//  4. For each region: crop the color image, recognize, validate, score
//  5. Keep hypotheses at or above the threshold (and valid, when
//     RequireValidFormat), stable sorted by confidence descending
//
// A recognizer error or empty text drops that region only. Any other
// failure aborts the call.
//
// The returned Result is never nil. On failure Success is false, Error
// holds the code, and the error return is the matching *Error.
func (p *Pipeline) Process(img image.Image) (*Result, error) {
	return p.process(img, time.Now())
}

func (p *Pipeline) newResult(snap *compiled) *Result {
	return &Result{
		Plates: []Hypothesis{},
		Engine: snap.cfg.Profile + "+" + p.rec.Name(),
		RunID:  uuid.New().String(),
	}
}

func (p *Pipeline) fail(res *Result, start time.Time, err *Error) (*Result, error) {
	res.Success = false
	res.Error = err.Code
	res.Message = err.Error()
	res.Plates = []Hypothesis{}
	res.ProcessingTimeMs = millis(time.Since(start))
	p.log.Debug("processing failed", "run", res.RunID, "code", err.Code, "stage", err.Stage, "err", err)
	return res, err
}

func (p *Pipeline) process(img image.Image, start time.Time) (*Result, error) {
	snap := p.snapshot()
	cfg := snap.cfg
	res := p.newResult(snap)

	if imaging.IsEmpty(img) {
		return p.fail(res, start, newError(CodeInvalidImage, StagePreprocessing, "image has no pixels", imaging.ErrEmptyImage))
	}

	src := img.Bounds()
	res.Image.SourceWidth, res.Image.SourceHeight = src.Dx(), src.Dy()

	// Preprocessing
	stageStart := time.Now()
	work, scaled := imaging.Downscale(img, cfg.MaxWidth)
	res.Image.ProcessedWidth, res.Image.ProcessedHeight = work.Rect.Dx(), work.Rect.Dy()
	res.Image.Scaled = scaled

	gray, err := imaging.Preprocess(work)
	if err != nil {
		return p.fail(res, start, newError(CodeProcessing, StagePreprocessing, "preprocessing failed", err))
	}
	res.Timings.PreprocessMs = millis(time.Since(stageStart))
	p.log.Debug("stage complete", "run", res.RunID, "stage", StagePreprocessing,
		"source", fmt.Sprintf("%dx%d", src.Dx(), src.Dy()),
		"processed", fmt.Sprintf("%dx%d", work.Rect.Dx(), work.Rect.Dy()),
		"ms", res.Timings.PreprocessMs)

	// Extracting candidates
	stageStart = time.Now()
	ex, err := detection.Extract(gray, snap.filter)
	if err != nil {
		return p.fail(res, start, newError(CodeProcessing, StageExtracting, "candidate extraction failed", err))
	}
	res.Timings.ExtractMs = millis(time.Since(stageStart))
	res.CandidatesExamined = len(ex.Candidates)
	p.log.Debug("stage complete", "run", res.RunID, "stage", StageExtracting,
		"contours", ex.Contours, "candidates", len(ex.Candidates), "rejected", len(ex.Rejected),
		"ms", res.Timings.ExtractMs)
	for _, r := range ex.Rejected {
		p.log.Debug("region rejected", "run", res.RunID, "box", boxString(r.Candidate.Box), "reason", r.Reason)
	}

	// Per candidate
	stageStart = time.Now()
	imageArea := work.Rect.Dx() * work.Rect.Dy()
	for i, c := range ex.Candidates {
		h, ok, err := p.evaluate(snap, work, c, imageArea)
		if err != nil {
			return p.fail(res, start, err)
		}
		if !ok {
			continue
		}
		p.log.Debug("candidate accepted", "run", res.RunID, "index", i, "text", h.PlateNumber, "confidence", h.Confidence)
		res.Plates = append(res.Plates, h)
	}
	res.Timings.RecognizeMs = millis(time.Since(stageStart))

	// Ranking
	sort.SliceStable(res.Plates, func(i, j int) bool {
		return res.Plates[i].Confidence > res.Plates[j].Confidence
	})

	res.Success = true
	res.ProcessingTimeMs = millis(time.Since(start))
	p.log.Debug("stage complete", "run", res.RunID, "stage", StageDone,
		"plates", len(res.Plates), "ms", res.ProcessingTimeMs)
	return res, nil
}

// evaluate crops, recognizes, validates and scores one candidate. ok is
// false when the candidate is dropped; a non-nil error aborts processing.
func (p *Pipeline) evaluate(snap *compiled, work *image.NRGBA, c detection.Candidate, imageArea int) (Hypothesis, bool, *Error) {
	cfg := snap.cfg
	box := boxString(c.Box)

	crop, err := imaging.CropRect(work, c.Box.Rect())
	if err != nil {
		return Hypothesis{}, false, newError(CodeProcessing, StageCropping, "cannot crop "+box, err)
	}

	raw, err := p.rec.Recognize(crop, c.Box)
	if err != nil {
		p.log.Debug("recognition failed", "box", box, "recognizer", p.rec.Name(),
			"code", CodeRecognitionFailure, "err", err)
		return Hypothesis{}, false, nil
	}
	if strings.TrimSpace(raw) == "" {
		p.log.Debug("recognition failed", "box", box, "recognizer", p.rec.Name(),
			"code", CodeRecognitionFailure, "err", "no text")
		return Hypothesis{}, false, nil
	}

	text := raw
	if cr, ok := p.rec.(Corrector); ok {
		text = cr.Correct(raw)
	}

	v := snap.validator.Validate(text)
	if cfg.RequireValidFormat && !v.Valid {
		p.log.Debug("candidate rejected", "box", box, "text", raw, "stage", StageValidating, "reason", v.Reason)
		return Hypothesis{}, false, nil
	}

	score, reject := snap.scorer.Assess(v, c, imageArea)
	if reject != "" {
		p.log.Debug("candidate rejected", "box", box, "text", v.NormalizedText, "stage", StageScoring, "reason", reject)
		return Hypothesis{}, false, nil
	}
	if score < cfg.ConfidenceThreshold {
		p.log.Debug("candidate rejected", "box", box, "text", v.NormalizedText, "stage", StageScoring,
			"reason", fmt.Sprintf("confidence %.1f below threshold %.1f", score, cfg.ConfidenceThreshold))
		return Hypothesis{}, false, nil
	}

	return Hypothesis{
		PlateNumber: v.NormalizedText,
		RawText:     raw,
		Confidence:  score,
		FormatValid: v.Valid,
		Grammar:     v.Grammar,
		Coordinates: c.Box,
		AspectRatio: c.AspectRatio,
		Area:        c.Area,
		PlateColor:  imaging.RegionTone(work, c.Box.Rect()).Hex,
		Region:      cfg.Region,
	}, true, nil
}

func boxString(b detection.Box) string {
	return fmt.Sprintf("%d,%d %dx%d", b.X, b.Y, b.Width, b.Height)
}

// AsError returns err as an *Error when it is one.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
