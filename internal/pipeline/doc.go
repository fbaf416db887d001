// Package pipeline orchestrates plate detection for one image: downscale,
// preprocess, extract candidate regions, recognize each crop, then
// validate, score, filter, and rank the readings.
//
// The text recognizer is injected as a Recognizer, so the pipeline works
// the same with Tesseract or a deterministic stand-in. Profiles are plain
// Config values (see Permissive and Strict) run by one code path.
//
// Usage:
//
//	p, err := pipeline.New(pipeline.Strict(), recognize.NewGeometry(),
//		pipeline.WithLogger(logging.NewLogger("plate-mcp")))
//	if err != nil {
//		return err
//	}
//	res, err := p.ProcessFile("car.jpg")
package pipeline
