package engines

import (
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/ironsheep/plate-tools-mcp/internal/detection"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
	"github.com/ironsheep/plate-tools-mcp/internal/recognize"
)

// createSceneImage is a 1920x1080 white frame with one 256x80 dark
// rectangle.
func createSceneImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1920, 1080))
	for y := 0; y < 1080; y++ {
		for x := 0; x < 1920; x++ {
			if x >= 800 && x < 1056 && y >= 500 && y < 580 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

func newDefaultRegistry(t *testing.T, rec pipeline.Recognizer) *Registry {
	t.Helper()
	r, err := NewDefaultRegistry(rec, nil)
	if err != nil {
		t.Fatalf("NewDefaultRegistry failed: %v", err)
	}
	return r
}

func TestNewDefaultRegistry(t *testing.T) {
	r := newDefaultRegistry(t, recognize.NewGeometry())

	if got := r.Names(); !reflect.DeepEqual(got, []string{"permissive", "strict"}) {
		t.Errorf("Names: got %v", got)
	}

	infos := r.List()
	if len(infos) != 2 {
		t.Fatalf("List: got %d entries", len(infos))
	}
	if infos[1].ConfidenceThreshold != 85 || infos[1].Recognizer != recognize.GeometryName {
		t.Errorf("strict info: got %+v", infos[1])
	}
	if infos[0].Description == "" {
		t.Error("descriptions must be set")
	}
}

func TestBuild_HybridProfiles(t *testing.T) {
	configs := []pipeline.Config{pipeline.Aggressive(), pipeline.Permissive(), pipeline.Conservative(), pipeline.Strict()}
	r, err := Build(configs, recognize.Fixed("AB12"), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"aggressive", "permissive", "conservative", "strict"}) {
		t.Fatalf("Names: got %v", got)
	}
	for _, info := range r.List() {
		if info.Description == "" {
			t.Errorf("%s: missing description", info.Name)
		}
	}

	cmp := r.Compare(createSceneImage())
	got := map[string]float64{}
	for _, run := range cmp.Runs {
		got[run.Engine] = run.Summary.MaxConfidence
	}
	// Permissive scores AB12 at 90; strict rejects the short text
	want := map[string]float64{"aggressive": 95, "permissive": 90, "conservative": 90, "strict": 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("max confidence by engine: got %v, want %v", got, want)
	}

	name, _, err := r.Best(createSceneImage())
	if err != nil || name != "aggressive" {
		t.Errorf("Best: got %q, %v; want aggressive first", name, err)
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	p, err := pipeline.New(pipeline.Strict(), recognize.NewGeometry())
	if err != nil {
		t.Fatalf("pipeline.New failed: %v", err)
	}

	if err := r.Register("a", "", p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("a", "", p); !errors.Is(err, ErrDuplicateEngine) {
		t.Errorf("duplicate: got %v", err)
	}
	if err := r.Register("", "", p); err == nil {
		t.Error("empty name should fail")
	}
	if err := r.Register("b", "", nil); err == nil {
		t.Error("nil pipeline should fail")
	}
	if r.Len() != 1 {
		t.Errorf("Len: got %d, want 1", r.Len())
	}
	if _, err := r.Get("missing"); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("Get missing: got %v", err)
	}
}

func TestRegistry_Process(t *testing.T) {
	r := newDefaultRegistry(t, recognize.NewGeometry())

	res, err := r.Process("strict", createSceneImage())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(res.Plates) != 1 {
		t.Errorf("expected 1 plate, got %+v", res.Plates)
	}

	if _, err := r.Process("fast_plate_ocr", createSceneImage()); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("unknown engine: got %v", err)
	}
}

func TestRegistry_Compare(t *testing.T) {
	r := newDefaultRegistry(t, recognize.NewGeometry())

	cmp := r.Compare(createSceneImage())
	if cmp.EnginesTested != 2 || len(cmp.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %+v", cmp)
	}
	for _, run := range cmp.Runs {
		if run.Result == nil || !run.Result.Success {
			t.Errorf("%s: expected success, got %+v", run.Engine, run.Result)
			continue
		}
		if run.Summary.PlatesDetected != 1 || run.Summary.MeanConfidence != 95 {
			t.Errorf("%s summary: got %+v", run.Engine, run.Summary)
		}
	}

	// Geometry reads the same box identically under both profiles
	if len(cmp.Consensus) != 1 {
		t.Errorf("Consensus: got %v", cmp.Consensus)
	}
}

func TestRegistry_CompareInvalidImage(t *testing.T) {
	r := newDefaultRegistry(t, recognize.NewGeometry())

	cmp := r.Compare(nil)
	for _, run := range cmp.Runs {
		if run.Summary.Error != pipeline.CodeInvalidImage {
			t.Errorf("%s: Error got %q", run.Engine, run.Summary.Error)
		}
	}
	if len(cmp.Consensus) != 0 {
		t.Errorf("Consensus: got %v", cmp.Consensus)
	}
}

func TestSummarize(t *testing.T) {
	res := &pipeline.Result{
		Success: true,
		Plates: []pipeline.Hypothesis{
			{PlateNumber: "ABC123", Confidence: 90},
			{PlateNumber: "XYZ789", Confidence: 70},
		},
	}
	s := Summarize(res)
	if s.PlatesDetected != 2 || s.MeanConfidence != 80 || s.MaxConfidence != 90 {
		t.Errorf("summary: got %+v", s)
	}
	// sample standard deviation of {90, 70}
	if d := s.StdDevConfidence - 14.142135623730951; d > 1e-9 || d < -1e-9 {
		t.Errorf("StdDevConfidence: got %v", s.StdDevConfidence)
	}

	one := Summarize(&pipeline.Result{Plates: []pipeline.Hypothesis{{Confidence: 75}}})
	if one.StdDevConfidence != 0 || one.MeanConfidence != 75 {
		t.Errorf("single plate: got %+v", one)
	}

	empty := Summarize(&pipeline.Result{})
	if empty.MeanConfidence != 0 || empty.Plates == nil {
		t.Errorf("empty: got %+v", empty)
	}
}

func TestRegistry_Best(t *testing.T) {
	// Only the 4-character reading: strict rejects it, permissive keeps it
	short := recognize.Fixed("AB12")
	r := newDefaultRegistry(t, short)

	name, res, err := r.Best(createSceneImage())
	if err != nil {
		t.Fatalf("Best failed: %v", err)
	}
	if name != "permissive" || len(res.Plates) != 1 {
		t.Errorf("Best: got %q with %+v", name, res.Plates)
	}

	none := newDefaultRegistry(t, recognize.Func{Fn: func(image.Image, detection.Box) (string, error) { return "", nil }})
	name, res, err = none.Best(createSceneImage())
	if err != nil {
		t.Fatalf("Best failed: %v", err)
	}
	if name != "strict" || len(res.Plates) != 0 {
		t.Errorf("no plates: got %q with %+v", name, res.Plates)
	}

	name, res, err = NewRegistry().Best(createSceneImage())
	if name != "" || res != nil || err != nil {
		t.Errorf("empty registry: got %q, %v, %v", name, res, err)
	}
}

func TestRegistry_Each(t *testing.T) {
	r := newDefaultRegistry(t, recognize.NewGeometry())

	err := r.Each(func(e *Engine) error {
		return e.Pipeline.SetConfidenceThreshold(42)
	})
	if err != nil {
		t.Fatalf("Each failed: %v", err)
	}
	for _, info := range r.List() {
		if info.ConfidenceThreshold != 42 {
			t.Errorf("%s: threshold %v", info.Name, info.ConfidenceThreshold)
		}
	}

	stop := errors.New("stop")
	calls := 0
	err = r.Each(func(*Engine) error { calls++; return stop })
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("Each should stop at the first error: calls=%d err=%v", calls, err)
	}
}
