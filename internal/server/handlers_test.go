package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/ironsheep/plate-tools-mcp/internal/engines"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
	"github.com/ironsheep/plate-tools-mcp/internal/recognize"
)

// createSceneImage draws a dark 256x80 plate-shaped rectangle on a white
// 1920x1080 frame.
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

// createTestImageFile writes img as a PNG temp file and returns its path
func createTestImageFile(t *testing.T, img image.Image) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "handler-test-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if err := png.Encode(tmpFile, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

// callTool sends a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeContent unmarshals the text content of a successful tool call.
func decodeContent(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content should hold one entry, got %v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v", content[0]["type"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("content is not JSON: %v\n%s", err, text)
	}
}

func TestHandleToolsCall_RecognizeFile(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, createSceneImage())

	for _, engine := range []string{"", "permissive", "strict"} {
		t.Run("engine="+engine, func(t *testing.T) {
			var res pipeline.Result
			decodeContent(t, callTool(t, s, "plate_recognize_file", map[string]interface{}{
				"path":   path,
				"engine": engine,
			}), &res)

			if !res.Success {
				t.Fatalf("expected success, got %s: %s", res.Error, res.Message)
			}
			if len(res.Plates) != 1 {
				t.Fatalf("expected 1 plate, got %+v", res.Plates)
			}
			if res.Plates[0].Confidence != 95 {
				t.Errorf("Confidence: got %v", res.Plates[0].Confidence)
			}
		})
	}

	if s.cache.Len() != 1 {
		t.Errorf("engines should share the server cache, cache has %d entries", s.cache.Len())
	}
}

func TestHandleToolsCall_RecognizeFile_Errors(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "plate_recognize_file", map[string]interface{}{"path": ""})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("missing path: got %+v", resp.Error)
	}

	resp = callTool(t, s, "plate_recognize_file", map[string]interface{}{"path": "/x.png", "engine": "turbo"})
	if resp.Error == nil {
		t.Error("unknown engine should fail")
	}

	// A missing file is reported in the result, not as a tool error
	var res pipeline.Result
	decodeContent(t, callTool(t, s, "plate_recognize_file", map[string]interface{}{
		"path": "/nonexistent/image.png",
	}), &res)
	if res.Success || res.Error != pipeline.CodeInvalidImage {
		t.Errorf("missing file: got success=%v error=%q", res.Success, res.Error)
	}
	if res.RunID == "" {
		t.Error("failed results still carry a RunID")
	}
}

func TestHandleToolsCall_RecognizeBytes(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	if err := png.Encode(&buf, createSceneImage()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	for _, data := range []string{encoded, "data:image/png;base64," + encoded} {
		var res pipeline.Result
		decodeContent(t, callTool(t, s, "plate_recognize_bytes", map[string]interface{}{
			"data":   data,
			"engine": "strict",
		}), &res)
		if len(res.Plates) != 1 {
			t.Errorf("expected 1 plate, got %+v", res.Plates)
		}
	}

	// Empty input decodes to zero bytes and is an invalid image
	var res pipeline.Result
	decodeContent(t, callTool(t, s, "plate_recognize_bytes", map[string]interface{}{"data": ""}), &res)
	if res.Error != pipeline.CodeInvalidImage || res.CandidatesExamined != 0 {
		t.Errorf("empty data: got %+v", res)
	}

	resp := callTool(t, s, "plate_recognize_bytes", map[string]interface{}{"data": "%%%"})
	if resp.Error == nil {
		t.Error("invalid base64 should be a tool error")
	}
}

func TestHandleToolsCall_ListEngines(t *testing.T) {
	s := newTestServer(t)

	var list engineListResult
	decodeContent(t, callTool(t, s, "plate_list_engines", nil), &list)

	if len(list.AvailableEngines) != 2 || list.DefaultEngine != "permissive" {
		t.Errorf("list: got %+v", list)
	}
	if len(list.Engines) != 2 || list.Engines[1].ConfidenceThreshold != 85 {
		t.Errorf("engines: got %+v", list.Engines)
	}
}

func TestHandleToolsCall_SetThreshold(t *testing.T) {
	s := newTestServer(t)

	var list engineListResult
	decodeContent(t, callTool(t, s, "plate_set_threshold", map[string]interface{}{
		"threshold": 120,
		"engine":    "strict",
	}), &list)
	if list.Engines[1].ConfidenceThreshold != 100 {
		t.Errorf("strict threshold should clamp to 100, got %v", list.Engines[1].ConfidenceThreshold)
	}
	if list.Engines[0].ConfidenceThreshold != 60 {
		t.Errorf("permissive threshold should be unchanged, got %v", list.Engines[0].ConfidenceThreshold)
	}

	decodeContent(t, callTool(t, s, "plate_set_threshold", map[string]interface{}{
		"threshold": 70,
		"engine":    AllEngines,
	}), &list)
	for _, e := range list.Engines {
		if e.ConfidenceThreshold != 70 {
			t.Errorf("%s: threshold %v, want 70", e.Name, e.ConfidenceThreshold)
		}
	}

	// Threshold 100 yields an empty successful result
	decodeContent(t, callTool(t, s, "plate_set_threshold", map[string]interface{}{"threshold": 100}), &list)
	var res pipeline.Result
	decodeContent(t, callTool(t, s, "plate_recognize_file", map[string]interface{}{
		"path": createTestImageFile(t, createSceneImage()),
	}), &res)
	if !res.Success || len(res.Plates) != 0 {
		t.Errorf("threshold 100: got success=%v plates=%d", res.Success, len(res.Plates))
	}

	resp := callTool(t, s, "plate_set_threshold", map[string]interface{}{})
	if resp.Error == nil {
		t.Error("missing threshold should fail")
	}
}

func TestHandleToolsCall_SetDebug(t *testing.T) {
	s := newTestServer(t)

	var list engineListResult
	decodeContent(t, callTool(t, s, "plate_set_debug", map[string]interface{}{"enabled": true}), &list)
	for _, e := range list.Engines {
		if !e.DebugLogging {
			t.Errorf("%s: debug should be enabled on every engine", e.Name)
		}
	}

	decodeContent(t, callTool(t, s, "plate_set_debug", map[string]interface{}{
		"enabled": false,
		"engine":  "strict",
	}), &list)
	if !list.Engines[0].DebugLogging || list.Engines[1].DebugLogging {
		t.Errorf("only strict should be disabled: %+v", list.Engines)
	}

	if resp := callTool(t, s, "plate_set_debug", map[string]interface{}{}); resp.Error == nil {
		t.Error("missing enabled should fail")
	}
}

func TestHandleToolsCall_VersionInfo(t *testing.T) {
	s := newTestServer(t)

	var info VersionInfo
	decodeContent(t, callTool(t, s, "plate_version_info", nil), &info)

	if info.Name != ServerName || info.Version != "1.2.3" || info.ProtocolVersion != ProtocolVersion {
		t.Errorf("info: got %+v", info)
	}
	if info.GoVersion == "" || len(info.Engines) != 2 {
		t.Errorf("info: got %+v", info)
	}
	if info.Recognizer != recognize.GeometryName || info.RecognizerFallback != "" {
		t.Errorf("recognizer: got %q (fallback %q)", info.Recognizer, info.RecognizerFallback)
	}
}

func TestHandleToolsCall_VersionInfoFallback(t *testing.T) {
	reg, err := engines.NewDefaultRegistry(recognize.NewGeometry(), nil)
	if err != nil {
		t.Fatalf("NewDefaultRegistry failed: %v", err)
	}
	s := New(reg, Options{RecognizerFallback: "tesseract unavailable"})

	var info VersionInfo
	decodeContent(t, callTool(t, s, "plate_version_info", nil), &info)
	if info.RecognizerFallback != "tesseract unavailable" {
		t.Errorf("fallback should be reported, got %+v", info)
	}
}

func TestHandleToolsCall_CompareEngines(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, createSceneImage())

	var out struct {
		Success       bool     `json:"success"`
		ImagePath     string   `json:"image_path"`
		EnginesTested int      `json:"engines_tested"`
		Consensus     []string `json:"consensus"`
		Runs          []struct {
			Engine  string `json:"engine"`
			Summary struct {
				PlatesDetected int     `json:"plates_detected"`
				MeanConfidence float64 `json:"avg_confidence"`
			} `json:"summary"`
		} `json:"results_by_engine"`
	}
	decodeContent(t, callTool(t, s, "plate_compare_engines", map[string]interface{}{"path": path}), &out)

	if !out.Success || out.ImagePath != path || out.EnginesTested != 2 || len(out.Runs) != 2 {
		t.Fatalf("comparison: got %+v", out)
	}
	for _, run := range out.Runs {
		if run.Summary.PlatesDetected != 1 {
			t.Errorf("%s: plates %d", run.Engine, run.Summary.PlatesDetected)
		}
	}
	if len(out.Consensus) != 1 {
		t.Errorf("Consensus: got %v", out.Consensus)
	}

	if resp := callTool(t, s, "plate_compare_engines", map[string]interface{}{"path": "/nonexistent.png"}); resp.Error == nil {
		t.Error("missing file should fail")
	}
}

func TestHandleToolsCall_BestEngine(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, createSceneImage())

	var out bestResult
	decodeContent(t, callTool(t, s, "plate_best_engine", map[string]interface{}{"path": path}), &out)
	if !out.Success || out.BestEngine != "permissive" || out.Count != 1 {
		t.Errorf("best: got %+v", out)
	}
}

func TestHandleToolsCall_DetectCandidates(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, createSceneImage())

	var out struct {
		Engine     string             `json:"engine"`
		Image      pipeline.ImageInfo `json:"image_info"`
		Contours   int                `json:"contours"`
		Candidates []struct {
			Area        int     `json:"area"`
			AspectRatio float64 `json:"aspect_ratio"`
		} `json:"candidates"`
	}
	decodeContent(t, callTool(t, s, "plate_detect_candidates", map[string]interface{}{
		"path":   path,
		"engine": "strict",
	}), &out)

	if out.Engine != "strict" || !out.Image.Scaled || out.Image.ProcessedWidth != 1280 {
		t.Errorf("result: got %+v", out)
	}
	if out.Contours < 1 || len(out.Candidates) != 1 {
		t.Errorf("expected one candidate, got %d of %d contours", len(out.Candidates), out.Contours)
	}
}

func TestHandleToolsCall_EdgeDetect(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, createSceneImage())

	var out struct {
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		EdgePixels  int    `json:"edge_pixels"`
		ImageBase64 string `json:"image_base64"`
		MimeType    string `json:"mime_type"`
	}
	decodeContent(t, callTool(t, s, "plate_edge_detect", map[string]interface{}{"path": path}), &out)

	if out.Width != 1920 || out.Height != 1080 || out.MimeType != "image/png" {
		t.Errorf("edge map: got %dx%d %s", out.Width, out.Height, out.MimeType)
	}
	if out.EdgePixels == 0 || out.ImageBase64 == "" {
		t.Error("the rectangle outline should produce edges")
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "image_load", map[string]interface{}{"path": "/x.png"})
	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{invalid json`),
	}

	resp := s.handleToolsCall(req)

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	for _, tool := range GetToolDefinitions() {
		if _, err := s.executeTool(tool.Name, json.RawMessage(`"not an object"`)); err == nil {
			if tool.Name != "plate_list_engines" && tool.Name != "plate_version_info" {
				t.Errorf("%s: expected an error for non-object arguments", tool.Name)
			}
		}
	}
}

func TestDecodeBase64(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"aGVsbG8=", "hello"},
		{"  aGVsbG8=\n", "hello"},
		{"data:image/png;base64,aGVsbG8=", "hello"},
	}
	for _, tt := range tests {
		got, err := decodeBase64(tt.in)
		if err != nil || string(got) != tt.want {
			t.Errorf("decodeBase64(%q): got %q, %v", tt.in, got, err)
		}
	}
}
