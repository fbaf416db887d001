package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/plate-tools-mcp/internal/config"
	"github.com/ironsheep/plate-tools-mcp/internal/engines"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/logging"
	"github.com/ironsheep/plate-tools-mcp/internal/ocr"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
	"github.com/ironsheep/plate-tools-mcp/internal/recognize"
	"github.com/ironsheep/plate-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("plate-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			if v := ocr.TesseractVersion(); v != "" {
				fmt.Printf("  Tesseract:  %s\n", v)
			}
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger("plate-mcp")
	logger.SetDebug(cfg.Debug())
	logger.Debug("starting", "version", Version, "built", BuildTime, "commit", GitCommit,
		"profile", cfg.Profile, "recognizer", cfg.Recognizer)

	rec, closeRec, fallback, err := newRecognizer(cfg, logger, ocr.NewTesseract)
	if err != nil {
		log.Fatalf("Failed to start recognizer: %v", err)
	}
	defer closeRec()

	configs, err := cfg.EngineConfigs()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cache := imaging.NewImageCache()
	reg, err := engines.Build(configs, rec, logger, pipeline.WithImageCache(cache))
	if err != nil {
		log.Fatalf("Failed to build engines: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "recognize" {
		os.Exit(runRecognize(reg, cfg.Profile, os.Args[2:]))
	}

	srv := server.New(reg, server.Options{
		Version:            Version,
		BuildTime:          BuildTime,
		GitCommit:          GitCommit,
		DefaultEngine:      cfg.Profile,
		OCR:                ocr.GetInfo(cfg.OCROptions()),
		RecognizerFallback: fallback,
		Cache:              cache,
		Logger:             logger,
	})
	if err := srv.Run(); err != nil {
		closeRec()
		log.Fatalf("Server error: %v", err)
	}
}

// newRecognizer builds the configured recognizer.
//
// When Tesseract is the default choice but cannot start, the geometry
// recognizer is used and fallback says why; the server reports it in
// plate_version_info. When PLATE_RECOGNIZER=tesseract was set explicitly
// the failure is returned instead.
func newRecognizer(cfg *config.Config, logger *logging.Logger, open func(ocr.Options) (*ocr.Tesseract, error)) (rec pipeline.Recognizer, closeFn func(), fallback string, err error) {
	if cfg.Recognizer == config.RecognizerGeometry {
		return recognize.NewGeometry(), func() {}, "", nil
	}

	tess, err := open(cfg.OCROptions())
	if err != nil {
		if cfg.RecognizerExplicit {
			return nil, nil, "", err
		}
		fallback = fmt.Sprintf("tesseract unavailable, using %s recognizer: %v", recognize.GeometryName, err)
		logger.Warn(fallback)
		return recognize.NewGeometry(), func() {}, fallback, nil
	}
	return tess, func() {
		if err := tess.Close(); err != nil {
			logger.Warn("failed to close tesseract", "err", err)
		}
	}, "", nil
}

// runRecognize processes each path with the default engine and prints
// the results as JSON lines. It returns the process exit code: 0 when
// every image was processed, 1 otherwise.
func runRecognize(reg *engines.Registry, engine string, paths []string) int {
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: plate-mcp recognize <image> [image...]")
		return 2
	}
	e, err := reg.Get(engine)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	code := 0
	enc := json.NewEncoder(os.Stdout)
	for _, path := range paths {
		res, err := e.Pipeline.ProcessFile(path)
		if err != nil {
			code = 1
		}
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode result for %s: %v\n", path, err)
			code = 1
		}
	}
	return code
}

func printHelp() {
	fmt.Println("plate-tools-mcp - MCP server for license plate detection")
	fmt.Println()
	fmt.Println("Usage: plate-mcp [options]")
	fmt.Println("       plate-mcp recognize <image> [image...]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  recognize        Print the JSON result for each image and exit")
	fmt.Println()
	fmt.Println("Environment variables (also read from ./.env):")
	fmt.Println("  PLATE_PROFILE=name                 Default engine: permissive, strict,")
	fmt.Println("                                     aggressive or conservative (permissive)")
	fmt.Println("  PLATE_ENGINES=a,b,...              Engines in priority order (permissive,strict)")
	fmt.Println("  PLATE_CONFIDENCE_THRESHOLD=0-100   Override the profile threshold")
	fmt.Println("  PLATE_MAX_CANDIDATES=n             Regions recognized per image")
	fmt.Println("  PLATE_MAX_WIDTH=px                 Downscale width, 0 disables (1280)")
	fmt.Println("  PLATE_GRAMMARS=re1;re2             Plate grammars, semicolon separated")
	fmt.Println("  PLATE_RECOGNIZER=tesseract|geometry  Set explicitly, a failed tesseract start is fatal")
	fmt.Println("  PLATE_TESSDATA_PREFIX=dir          Tesseract language data directory")
	fmt.Println("  PLATE_LANGUAGE=eng                 Tesseract language")
	fmt.Println("  PLATE_LOG_LEVEL=debug              Enable debug logging")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
