// Package recognize provides text recognizers that need no OCR backend.
//
// Geometry derives a deterministic plate string from a region's position
// and size. It lets the detection and scoring pipeline run end to end on
// devices without Tesseract. Func adapts a plain function.
package recognize

import (
	"fmt"
	"hash/fnv"
	"image"

	"github.com/ironsheep/plate-tools-mcp/internal/detection"
)

// GeometryName identifies the Geometry recognizer in results.
const GeometryName = "geometry"

// DefaultPlates is the lookup table Geometry indexes into.
var DefaultPlates = []string{"ABC123", "XYZ789", "DEF456", "GHI012", "JKL345"}

// Geometry returns a plate string chosen by hashing the candidate box.
//
// The same box always yields the same string. The crop pixels are ignored.
type Geometry struct {
	// Plates is the lookup table. DefaultPlates is used when empty.
	Plates []string
}

// NewGeometry returns a Geometry recognizer over DefaultPlates.
func NewGeometry() *Geometry {
	return &Geometry{}
}

// Name returns "geometry".
func (g *Geometry) Name() string {
	return GeometryName
}

// Recognize hashes "x,y,width,height" with FNV-1a and returns the table
// entry at hash modulo table length.
func (g *Geometry) Recognize(_ image.Image, box detection.Box) (string, error) {
	plates := g.Plates
	if len(plates) == 0 {
		plates = DefaultPlates
	}

	h := fnv.New32a()
	fmt.Fprintf(h, "%d,%d,%d,%d", box.X, box.Y, box.Width, box.Height)
	return plates[h.Sum32()%uint32(len(plates))], nil
}

// Func adapts a function to the recognizer interface.
type Func struct {
	// ID is returned by Name.
	ID string

	// Fn performs the recognition.
	Fn func(crop image.Image, box detection.Box) (string, error)
}

// Name returns f.ID, or "func" when it is empty.
func (f Func) Name() string {
	if f.ID == "" {
		return "func"
	}
	return f.ID
}

// Recognize calls f.Fn.
func (f Func) Recognize(crop image.Image, box detection.Box) (string, error) {
	return f.Fn(crop, box)
}

// Fixed returns a recognizer that always reads text.
func Fixed(text string) Func {
	return Func{
		ID: "fixed",
		Fn: func(image.Image, detection.Box) (string, error) { return text, nil },
	}
}
