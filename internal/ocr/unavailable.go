//go:build !cgo

package ocr

import (
	"image"

	"github.com/ironsheep/plate-tools-mcp/internal/detection"
)

// Tesseract is unavailable in builds without cgo.
type Tesseract struct{}

// NewTesseract always returns ErrUnavailable without cgo.
func NewTesseract(Options) (*Tesseract, error) {
	return nil, ErrUnavailable
}

// Name returns "tesseract".
func (t *Tesseract) Name() string {
	return Name
}

// Close does nothing.
func (t *Tesseract) Close() error {
	return nil
}

// Recognize always returns ErrUnavailable.
func (t *Tesseract) Recognize(image.Image, detection.Box) (string, error) {
	return "", ErrUnavailable
}

// TesseractVersion returns an empty string without cgo.
func TesseractVersion() string {
	return ""
}

// GetInfo reports Tesseract as unavailable.
func GetInfo(opts Options) Info {
	return Info{
		Backend:      "none (built without cgo)",
		TessdataPath: opts.TessdataPrefix,
		Error:        ErrUnavailable.Error(),
	}
}
