package ocr

import (
	"errors"

	"github.com/ironsheep/plate-tools-mcp/internal/plate"
)

// Name identifies the Tesseract recognizer in results.
const Name = "tesseract"

// PlateChars is the recognition alphabet.
const PlateChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// ErrUnavailable is returned when Tesseract cannot be used in this build
// or on this system.
var ErrUnavailable = errors.New("tesseract OCR unavailable")

// Correct normalizes recognized text and fixes the letter/digit
// confusions Tesseract makes between digits (O, I, S, B). The pipeline
// applies it after recording the raw text.
func (t *Tesseract) Correct(text string) string {
	return plate.CorrectConfusions(text)
}

// Options configure a Tesseract recognizer.
type Options struct {
	// Language is the Tesseract language code. Defaults to "eng".
	Language string

	// TessdataPrefix is the directory holding *.traineddata files. The
	// system default is used when empty.
	TessdataPrefix string
}

func (o Options) language() string {
	if o.Language == "" {
		return DefaultLanguage
	}
	return o.Language
}

// Info describes the OCR subsystem.
type Info struct {
	Available    bool   `json:"available"`
	Version      string `json:"version,omitempty"`
	Error        string `json:"error,omitempty"`
	Backend      string `json:"backend"`
	TessdataPath string `json:"tessdata_path,omitempty"`
}
