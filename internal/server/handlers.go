package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/ironsheep/plate-tools-mcp/internal/detection"
	"github.com/ironsheep/plate-tools-mcp/internal/engines"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/ocr"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
)

// AllEngines selects every engine in the setter tools.
const AllEngines = "all"

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "plate_recognize_file").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// A pipeline error carries its code, stage and cause in the error data.
// Recognition results that failed on a bad image are not tool errors; the
// result itself reports success=false.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed", "tool", params.Name, "err", err)
		if pe, ok := pipeline.AsError(err); ok {
			return s.errorResponse(req.ID, -32000, "Tool execution failed", pe.ToMap())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Resolves the engine, defaulting to Options.DefaultEngine
//  4. Calls the pipeline, registry or imaging function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Recognition
	case "plate_recognize_file":
		return s.handleRecognizeFile(args)
	case "plate_recognize_bytes":
		return s.handleRecognizeBytes(args)

	// Engines
	case "plate_list_engines":
		return s.handleListEngines(args)
	case "plate_compare_engines":
		return s.handleCompareEngines(args)
	case "plate_best_engine":
		return s.handleBestEngine(args)

	// Configuration
	case "plate_set_threshold":
		return s.handleSetThreshold(args)
	case "plate_set_debug":
		return s.handleSetDebug(args)
	case "plate_version_info":
		return s.handleVersionInfo(args)

	// Diagnostics
	case "plate_detect_candidates":
		return s.handleDetectCandidates(args)
	case "plate_edge_detect":
		return s.handleEdgeDetect(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// engine resolves an engine name, empty meaning the default engine.
func (s *Server) engine(name string) (*engines.Engine, error) {
	if name == "" {
		name = s.opts.DefaultEngine
	}
	return s.engines.Get(name)
}

// targets resolves the engines a setter applies to: one by name, the
// default when empty, or every engine for AllEngines.
func (s *Server) targets(name string) ([]*engines.Engine, error) {
	if name != AllEngines {
		e, err := s.engine(name)
		if err != nil {
			return nil, err
		}
		return []*engines.Engine{e}, nil
	}

	var all []*engines.Engine
	_ = s.engines.Each(func(e *engines.Engine) error {
		all = append(all, e)
		return nil
	})
	return all, nil
}

// === Recognition Handlers ===

type recognizeFileArgs struct {
	Path   string `json:"path"`
	Engine string `json:"engine"`
}

func (s *Server) handleRecognizeFile(args json.RawMessage) (interface{}, error) {
	var a recognizeFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	e, err := s.engine(a.Engine)
	if err != nil {
		return nil, err
	}
	res, _ := e.Pipeline.ProcessFile(a.Path)
	return res, nil
}

type recognizeBytesArgs struct {
	Data   string `json:"data"`
	Engine string `json:"engine"`
}

func (s *Server) handleRecognizeBytes(args json.RawMessage) (interface{}, error) {
	var a recognizeBytesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	e, err := s.engine(a.Engine)
	if err != nil {
		return nil, err
	}

	data, err := decodeBase64(a.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image data: %w", err)
	}
	res, _ := e.Pipeline.ProcessBytes(data)
	return res, nil
}

// decodeBase64 decodes standard base64, accepting an optional data URI
// prefix such as "data:image/png;base64,".
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(s)
}

// === Engine Handlers ===

type engineListResult struct {
	AvailableEngines []string       `json:"available_engines"`
	DefaultEngine    string         `json:"default_engine"`
	Engines          []engines.Info `json:"engines"`
}

func (s *Server) handleListEngines(json.RawMessage) (interface{}, error) {
	return s.engineList(), nil
}

func (s *Server) engineList() engineListResult {
	return engineListResult{
		AvailableEngines: s.engines.Names(),
		DefaultEngine:    s.opts.DefaultEngine,
		Engines:          s.engines.List(),
	}
}

type pathArgs struct {
	Path string `json:"path"`
}

type compareResult struct {
	Success   bool   `json:"success"`
	ImagePath string `json:"image_path"`
	*engines.Comparison
}

func (s *Server) handleCompareEngines(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return compareResult{Success: true, ImagePath: a.Path, Comparison: s.engines.Compare(img)}, nil
}

type bestResult struct {
	Success    bool             `json:"success"`
	BestEngine string           `json:"best_engine"`
	Count      int              `json:"count"`
	Result     *pipeline.Result `json:"result"`
}

func (s *Server) handleBestEngine(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	name, res, err := s.engines.Best(img)
	if err != nil && res == nil {
		return nil, err
	}
	out := bestResult{BestEngine: name, Result: res}
	if res != nil {
		out.Success = res.Success
		out.Count = len(res.Plates)
	}
	return out, nil
}

// === Configuration Handlers ===

type setThresholdArgs struct {
	Threshold *float64 `json:"threshold"`
	Engine    string   `json:"engine"`
}

func (s *Server) handleSetThreshold(args json.RawMessage) (interface{}, error) {
	var a setThresholdArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Threshold == nil {
		return nil, errors.New("threshold is required")
	}
	targets, err := s.targets(a.Engine)
	if err != nil {
		return nil, err
	}
	for _, e := range targets {
		if err := e.Pipeline.SetConfidenceThreshold(*a.Threshold); err != nil {
			return nil, err
		}
		s.log.Info("confidence threshold changed", "engine", e.Name, "threshold", e.Pipeline.Config().ConfidenceThreshold)
	}
	return s.engineList(), nil
}

type setDebugArgs struct {
	Enabled *bool  `json:"enabled"`
	Engine  string `json:"engine"`
}

func (s *Server) handleSetDebug(args json.RawMessage) (interface{}, error) {
	var a setDebugArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Enabled == nil {
		return nil, errors.New("enabled is required")
	}
	if a.Engine == "" {
		a.Engine = AllEngines
	}
	targets, err := s.targets(a.Engine)
	if err != nil {
		return nil, err
	}
	for _, e := range targets {
		e.Pipeline.SetDebug(*a.Enabled)
	}
	s.log.Info("debug logging changed", "engine", a.Engine, "enabled", *a.Enabled)
	return s.engineList(), nil
}

// VersionInfo is the plate_version_info result.
type VersionInfo struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	BuildTime       string   `json:"build_time,omitempty"`
	GitCommit       string   `json:"git_commit,omitempty"`
	ProtocolVersion string   `json:"protocol_version"`
	GoVersion       string   `json:"go_version"`
	OCR             ocr.Info `json:"ocr"`
	Engines         []string `json:"engines"`
	DefaultEngine   string   `json:"default_engine"`

	// Recognizer is the text recognizer of the default engine.
	Recognizer         string `json:"recognizer,omitempty"`
	RecognizerFallback string `json:"recognizer_fallback,omitempty"`
}

func (s *Server) handleVersionInfo(json.RawMessage) (interface{}, error) {
	info := VersionInfo{
		Name:               ServerName,
		Version:            s.version(),
		BuildTime:          s.opts.BuildTime,
		GitCommit:          s.opts.GitCommit,
		ProtocolVersion:    ProtocolVersion,
		GoVersion:          runtime.Version(),
		OCR:                s.opts.OCR,
		Engines:            s.engines.Names(),
		DefaultEngine:      s.opts.DefaultEngine,
		RecognizerFallback: s.opts.RecognizerFallback,
	}
	if e, err := s.engine(""); err == nil {
		info.Recognizer = e.Pipeline.Recognizer().Name()
	}
	return info, nil
}

// === Diagnostic Handlers ===

type detectCandidatesArgs struct {
	Path   string `json:"path"`
	Engine string `json:"engine"`
}

type detectCandidatesResult struct {
	Engine string             `json:"engine"`
	Image  pipeline.ImageInfo `json:"image_info"`
	*detection.Extraction
}

// handleDetectCandidates runs only the geometric stages of an engine and
// reports every contour it accepted or rejected, with reasons.
func (s *Server) handleDetectCandidates(args json.RawMessage) (interface{}, error) {
	var a detectCandidatesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	e, err := s.engine(a.Engine)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	cfg := e.Pipeline.Config()
	work, scaled := imaging.Downscale(img, cfg.MaxWidth)
	gray, err := imaging.Preprocess(work)
	if err != nil {
		return nil, err
	}
	ex, err := detection.Extract(gray, cfg.Extraction)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return detectCandidatesResult{
		Engine: e.Name,
		Image: pipeline.ImageInfo{
			SourceWidth:     b.Dx(),
			SourceHeight:    b.Dy(),
			ProcessedWidth:  work.Rect.Dx(),
			ProcessedHeight: work.Rect.Dy(),
			Scaled:          scaled,
		},
		Extraction: ex,
	}, nil
}

type edgeDetectArgs struct {
	Path          string `json:"path"`
	ThresholdLow  int    `json:"threshold_low"`
	ThresholdHigh int    `json:"threshold_high"`
}

func (s *Server) handleEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a edgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ThresholdLow == 0 {
		a.ThresholdLow = imaging.CannyLow
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = imaging.CannyHigh
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, a.ThresholdLow, a.ThresholdHigh)
}
