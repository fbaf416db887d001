package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var engineProperty = map[string]interface{}{
	"type":        "string",
	"description": "Engine name from plate_list_engines. Defaults to the server's default engine",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Recognition
		{
			Name:        "plate_recognize_file",
			Description: "Detect license plates in an image file and return the readings ranked by confidence, with bounding boxes in processed-image coordinates.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty,
					"engine": engineProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "plate_recognize_bytes",
			Description: "Detect license plates in a base64-encoded image (PNG, JPEG, GIF, BMP or WebP). A data URI prefix is accepted.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"data": map[string]interface{}{
						"type":        "string",
						"description": "Base64-encoded image bytes",
					},
					"engine": engineProperty,
				},
				"required": []string{"data"},
			},
		},

		// Engines
		{
			Name:        "plate_list_engines",
			Description: "List the available detection engines in priority order with their thresholds and recognizer.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "plate_compare_engines",
			Description: "Run every engine on an image and summarize plates found, mean and spread of confidence per engine, and the plates all engines agree on.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "plate_best_engine",
			Description: "Try engines in priority order and return the first result that contains a plate.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Configuration
		{
			Name:        "plate_set_threshold",
			Description: "Set the minimum confidence (0-100) a reading needs to be reported. Values outside the range are clamped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Minimum confidence, 0-100",
					},
					"engine": map[string]interface{}{
						"type":        "string",
						"description": "Engine name, or \"all\". Defaults to the server's default engine",
					},
				},
				"required": []string{"threshold"},
			},
		},
		{
			Name:        "plate_set_debug",
			Description: "Enable or disable per-stage and per-candidate debug logging on stderr.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"enabled": map[string]interface{}{
						"type":        "boolean",
						"description": "true to enable debug logging",
					},
					"engine": map[string]interface{}{
						"type":        "string",
						"description": "Engine name, or \"all\". Default \"all\"",
						"default":     AllEngines,
					},
				},
				"required": []string{"enabled"},
			},
		},
		{
			Name:        "plate_version_info",
			Description: "Report the server version, protocol version, OCR availability and configured engines.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Diagnostics
		{
			Name:        "plate_detect_candidates",
			Description: "Run only the geometric stages of an engine and list the accepted candidate regions and every rejected contour with the reason.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty,
					"engine": engineProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "plate_edge_detect",
			Description: "Return the edge map the candidate extractor works on, as base64 PNG. White pixels are edges.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"threshold_low": map[string]interface{}{
						"type":        "integer",
						"description": "Lower hysteresis threshold. Default 50",
						"default":     50,
					},
					"threshold_high": map[string]interface{}{
						"type":        "integer",
						"description": "Upper hysteresis threshold. Default 150",
						"default":     150,
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
