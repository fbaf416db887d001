// Package engines runs the same image through several configured
// pipelines: listing them, processing with one by name, comparing all of
// them, and picking the first that finds a plate.
package engines

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/ironsheep/plate-tools-mcp/internal/logging"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
)

// ErrUnknownEngine is returned for a name that is not registered.
var ErrUnknownEngine = errors.New("unknown engine")

// ErrDuplicateEngine is returned when registering a name twice.
var ErrDuplicateEngine = errors.New("engine already registered")

// Descriptions of the built-in engines.
const (
	PermissiveDescription   = "Wide geometric bounds and loose grammars; finds more plates, may report false positives"
	StrictDescription       = "Plate-shaped regions and strict grammars only; high precision, may miss plates"
	AggressiveDescription   = "Permissive with boosted confidence; reports the most plates"
	ConservativeDescription = "Permissive keeping only confidence of 80 or more"
)

// Engine is a named pipeline.
type Engine struct {
	Name        string
	Description string
	Pipeline    *pipeline.Pipeline
}

// Info describes an engine for listings.
type Info struct {
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	Profile             string  `json:"profile"`
	Recognizer          string  `json:"recognizer"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	MaxCandidates       int     `json:"max_candidates"`
	DebugLogging        bool    `json:"debug_logging"`
}

// Registry holds engines in priority order, highest first.
type Registry struct {
	mu      sync.RWMutex
	engines []*Engine
	byName  map[string]*Engine
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Engine)}
}

// NewDefaultRegistry registers the permissive and strict profiles, in that
// priority order, both reading text with rec.
func NewDefaultRegistry(rec pipeline.Recognizer, logger *logging.Logger, opts ...pipeline.Option) (*Registry, error) {
	return Build([]pipeline.Config{pipeline.Permissive(), pipeline.Strict()}, rec, logger, opts...)
}

// Build registers one engine per configuration, in order, each named after
// its profile and sharing rec.
func Build(configs []pipeline.Config, rec pipeline.Recognizer, logger *logging.Logger, opts ...pipeline.Option) (*Registry, error) {
	r := NewRegistry()
	opts = append([]pipeline.Option{pipeline.WithLogger(logger)}, opts...)

	for _, cfg := range configs {
		p, err := pipeline.New(cfg, rec, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s engine: %w", cfg.Profile, err)
		}
		if err := r.Register(cfg.Profile, describe(cfg.Profile), p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func describe(profile string) string {
	switch profile {
	case pipeline.ProfilePermissive:
		return PermissiveDescription
	case pipeline.ProfileStrict:
		return StrictDescription
	case pipeline.ProfileAggressive:
		return AggressiveDescription
	case pipeline.ProfileConservative:
		return ConservativeDescription
	default:
		return ""
	}
}

// Register appends an engine at the lowest priority.
func (r *Registry) Register(name, description string, p *pipeline.Pipeline) error {
	if name == "" {
		return errors.New("engine name is required")
	}
	if p == nil {
		return fmt.Errorf("engine %q has no pipeline", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEngine, name)
	}
	e := &Engine{Name: name, Description: description, Pipeline: p}
	r.engines = append(r.engines, e)
	r.byName[name] = e
	return nil
}

// Get returns the engine registered under name.
func (r *Registry) Get(name string) (*Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return e, nil
}

// Names returns the engine names in priority order.
func (r *Registry) Names() []string {
	engines := r.all()
	names := make([]string, len(engines))
	for i, e := range engines {
		names[i] = e.Name
	}
	return names
}

// List describes every engine in priority order.
func (r *Registry) List() []Info {
	engines := r.all()
	infos := make([]Info, len(engines))
	for i, e := range engines {
		cfg := e.Pipeline.Config()
		infos[i] = Info{
			Name:                e.Name,
			Description:         e.Description,
			Profile:             cfg.Profile,
			Recognizer:          e.Pipeline.Recognizer().Name(),
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			MaxCandidates:       cfg.MaxCandidates,
			DebugLogging:        cfg.DebugLogging,
		}
	}
	return infos
}

// Len returns the number of engines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}

// Each calls fn for every engine in priority order, stopping at the first
// error.
func (r *Registry) Each(fn func(*Engine) error) error {
	for _, e := range r.all() {
		if err := fn(e); err != nil {
			return fmt.Errorf("engine %s: %w", e.Name, err)
		}
	}
	return nil
}

// Process runs img through the named engine.
func (r *Registry) Process(name string, img image.Image) (*pipeline.Result, error) {
	e, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return e.Pipeline.Process(img)
}

func (r *Registry) all() []*Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Engine(nil), r.engines...)
}
