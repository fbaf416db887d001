//go:build cgo

package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/plate-tools-mcp/internal/detection"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
)

// Tesseract recognizes plate text in a cropped region.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a recognizer with its own Tesseract client.
//
// The client is configured once: language, optional tessdata prefix,
// single-word page segmentation, and the PlateChars whitelist. Call Close
// to release it.
//
// # Errors
//
// Returns an error wrapping ErrUnavailable if Tesseract rejects the
// configuration, typically because the language data is not installed.
func NewTesseract(opts Options) (*Tesseract, error) {
	client := gosseract.NewClient()

	if opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: failed to set tessdata path: %v", ErrUnavailable, err)
		}
	}
	if err := client.SetLanguage(opts.language()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to set language: %v", ErrUnavailable, err)
	}
	// PSM 8 = treat the image as a single word
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_WORD); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to set PSM: %v", ErrUnavailable, err)
	}
	if err := client.SetWhitelist(PlateChars); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to set whitelist: %v", ErrUnavailable, err)
	}

	// gosseract initializes lazily; run a blank page so missing language
	// data surfaces here rather than on the first plate
	if err := probe(client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Tesseract{client: client}, nil
}

// probe runs recognition on a small blank image.
func probe(client *gosseract.Client) error {
	blank := image.NewGray(image.Rect(0, 0, 16, imaging.MinOCRHeight))
	for i := range blank.Pix {
		blank.Pix[i] = 255
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, blank); err != nil {
		return err
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return err
	}
	_, err := client.Text()
	return err
}

// Name returns "tesseract".
func (t *Tesseract) Name() string {
	return Name
}

// Close releases the Tesseract client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// Recognize enhances crop and returns the text Tesseract read, trimmed of
// surrounding space. Confusion fixes are left to Correct. The box is not
// used; the crop already holds the region. An empty string with a nil
// error means nothing was read.
func (t *Tesseract) Recognize(crop image.Image, _ detection.Box) (string, error) {
	if imaging.IsEmpty(crop) {
		return "", imaging.ErrEmptyImage
	}

	tone := imaging.RegionTone(crop, crop.Bounds())
	enhanced := imaging.EnhanceForOCR(crop, tone.Dark)

	var buf bytes.Buffer
	if err := png.Encode(&buf, enhanced); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return "", fmt.Errorf("%w: recognizer closed", ErrUnavailable)
	}

	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// TesseractVersion returns the installed Tesseract version.
func TesseractVersion() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}

// GetInfo reports whether a recognizer can be created with opts.
func GetInfo(opts Options) Info {
	info := Info{
		Backend:      "gosseract",
		TessdataPath: opts.TessdataPrefix,
	}

	t, err := NewTesseract(opts)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer t.Close()

	info.Available = true
	info.Version = TesseractVersion()
	return info
}
