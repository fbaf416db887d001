// Package server implements the MCP (Model Context Protocol) server for
// license plate detection.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Recognition:
//   - plate_recognize_file: Detect and read plates in an image file
//   - plate_recognize_bytes: Same, for a base64-encoded image
//
// Engines:
//   - plate_list_engines: Engines in priority order
//   - plate_compare_engines: Run every engine and summarize
//   - plate_best_engine: First engine that finds a plate
//
// Configuration:
//   - plate_set_threshold: Minimum reported confidence
//   - plate_set_debug: Toggle debug logging
//   - plate_version_info: Version, OCR and engine information
//
// Diagnostics:
//   - plate_detect_candidates: Accepted and rejected regions, with reasons
//   - plate_edge_detect: The edge map regions are extracted from
//
// # Image Caching
//
// Images loaded by path are cached for the lifetime of the server and
// shared with the engines' pipelines, so comparing engines on one photo
// decodes it once.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string, or the code, stage and cause of a
//     pipeline error
//
// An image that cannot be decoded is not a tool error: the recognition
// result is returned with success=false and error="InvalidImage".
//
// # Usage
//
//	cache := imaging.NewImageCache()
//	reg, err := engines.NewDefaultRegistry(rec, logger, pipeline.WithImageCache(cache))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(reg, server.Options{Cache: cache, Logger: logger})
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
