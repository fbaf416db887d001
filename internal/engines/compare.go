package engines

import (
	"image"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
)

// Summary condenses one engine's result.
type Summary struct {
	PlatesDetected   int      `json:"plates_detected"`
	MeanConfidence   float64  `json:"avg_confidence"`
	StdDevConfidence float64  `json:"stddev_confidence"`
	MaxConfidence    float64  `json:"max_confidence"`
	Plates           []string `json:"plates"`
	ProcessingTimeMs float64  `json:"processing_time_ms"`
	RegionsAnalyzed  int      `json:"regions_analyzed"`
	Error            string   `json:"error,omitempty"`
}

// Run is one engine's part of a comparison.
type Run struct {
	Engine  string           `json:"engine"`
	Result  *pipeline.Result `json:"result"`
	Summary Summary          `json:"summary"`
}

// Comparison is the outcome of running every engine on one image.
type Comparison struct {
	EnginesTested int   `json:"engines_tested"`
	Runs          []Run `json:"results_by_engine"`

	// Consensus lists the plate numbers every successful engine reported,
	// in the order the first of them ranked them.
	Consensus []string `json:"consensus"`
}

// Compare runs img through every engine sequentially, in priority order.
// A failing engine is recorded with its error code and does not stop the
// others.
func (r *Registry) Compare(img image.Image) *Comparison {
	engines := r.all()
	cmp := &Comparison{
		EnginesTested: len(engines),
		Runs:          make([]Run, 0, len(engines)),
		Consensus:     []string{},
	}
	for _, e := range engines {
		res, _ := e.Pipeline.Process(img)
		cmp.Runs = append(cmp.Runs, Run{Engine: e.Name, Result: res, Summary: Summarize(res)})
	}
	cmp.Consensus = consensus(cmp.Runs)
	return cmp
}

// Summarize computes plate count and confidence statistics for a result.
// Mean and standard deviation are zero when there are too few plates to
// define them.
func Summarize(res *pipeline.Result) Summary {
	s := Summary{Plates: []string{}}
	if res == nil {
		return s
	}
	s.Error = res.Error
	s.ProcessingTimeMs = res.ProcessingTimeMs
	s.RegionsAnalyzed = res.CandidatesExamined

	conf := make([]float64, len(res.Plates))
	for i, h := range res.Plates {
		conf[i] = h.Confidence
		s.Plates = append(s.Plates, h.PlateNumber)
		if h.Confidence > s.MaxConfidence {
			s.MaxConfidence = h.Confidence
		}
	}
	s.PlatesDetected = len(conf)
	if len(conf) > 0 {
		s.MeanConfidence = stat.Mean(conf, nil)
	}
	if len(conf) > 1 {
		s.StdDevConfidence = stat.StdDev(conf, nil)
	}
	return s
}

func consensus(runs []Run) []string {
	var ok []Run
	for _, r := range runs {
		if r.Result != nil && r.Result.Success {
			ok = append(ok, r)
		}
	}
	out := []string{}
	if len(ok) == 0 {
		return out
	}

	seen := make(map[string]bool)
	for _, plate := range ok[0].Summary.Plates {
		if seen[plate] {
			continue
		}
		seen[plate] = true
		all := true
		for _, r := range ok[1:] {
			if !contains(r.Summary.Plates, plate) {
				all = false
				break
			}
		}
		if all {
			out = append(out, plate)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Best processes img with each engine in priority order and returns the
// first result that contains a plate, with the engine's name. When no
// engine finds one, it returns the last engine's result. An empty
// registry returns an empty name and a nil result.
func (r *Registry) Best(img image.Image) (name string, res *pipeline.Result, err error) {
	for _, e := range r.all() {
		name = e.Name
		res, err = e.Pipeline.Process(img)
		if err == nil && len(res.Plates) > 0 {
			return name, res, nil
		}
	}
	return name, res, err
}
