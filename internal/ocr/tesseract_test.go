package ocr

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/plate-tools-mcp/internal/detection"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
)

// newTesseractOrSkip creates a recognizer, skipping the test when
// Tesseract is not installed.
func newTesseractOrSkip(t *testing.T) *Tesseract {
	t.Helper()
	tess, err := NewTesseract(Options{})
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			t.Skipf("Tesseract not available: %v", err)
		}
		t.Fatalf("NewTesseract failed: %v", err)
	}
	t.Cleanup(func() { tess.Close() })
	return tess
}

// drawText draws text on an image using basicfont
func drawText(img *image.RGBA, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// createPlateCrop renders text as a plate crop, scaled up by an integer
// factor so Tesseract has enough pixels per glyph.
func createPlateCrop(text string, scale int, bg, fg color.Color) *image.RGBA {
	w, h := len(text)*7+20, 25
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	drawText(small, 10, 17, text, fg)

	img := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	for y := 0; y < h*scale; y++ {
		for x := 0; x < w*scale; x++ {
			img.Set(x, y, small.At(x/scale, y/scale))
		}
	}
	return img
}

func TestTesseract_Name(t *testing.T) {
	var tess Tesseract
	if tess.Name() != Name {
		t.Errorf("Name: got %q, want %q", tess.Name(), Name)
	}
}

func TestTesseract_RecognizeDarkOnLight(t *testing.T) {
	tess := newTesseractOrSkip(t)
	crop := createPlateCrop("ABC123", 4, color.White, color.Black)

	text, err := tess.Recognize(crop, detection.Box{Width: crop.Rect.Dx(), Height: crop.Rect.Dy()})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	for _, r := range tess.Correct(text) {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			t.Fatalf("result %q contains %q outside the plate alphabet", text, r)
		}
	}
	t.Logf("recognized %q", text)
}

func TestTesseract_RecognizeLightOnDark(t *testing.T) {
	tess := newTesseractOrSkip(t)
	crop := createPlateCrop("XYZ789", 4, color.Black, color.White)

	if _, err := tess.Recognize(crop, detection.Box{}); err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
}

func TestTesseract_RecognizeEmpty(t *testing.T) {
	tess := newTesseractOrSkip(t)

	if _, err := tess.Recognize(image.NewRGBA(image.Rect(0, 0, 0, 0)), detection.Box{}); !errors.Is(err, imaging.ErrEmptyImage) {
		t.Errorf("got %v, want ErrEmptyImage", err)
	}
}

func TestTesseract_Closed(t *testing.T) {
	tess := newTesseractOrSkip(t)
	if err := tess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := tess.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	crop := createPlateCrop("ABC123", 2, color.White, color.Black)
	if _, err := tess.Recognize(crop, detection.Box{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable after Close", err)
	}
}

func TestGetInfo(t *testing.T) {
	info := GetInfo(Options{})
	if info.Backend == "" {
		t.Error("Backend must always be set")
	}
	if info.Available && info.Error != "" {
		t.Errorf("available OCR should carry no error, got %q", info.Error)
	}
	if !info.Available && info.Error == "" {
		t.Error("unavailable OCR should explain why")
	}
}

func TestTesseract_Correct(t *testing.T) {
	var tess Tesseract
	tests := map[string]string{
		"12O4":     "1204",
		"ab 1S3":   "AB153",
		"ABC123":   "ABC123",
		" 7B9-XY ": "789XY",
	}
	for in, want := range tests {
		if got := tess.Correct(in); got != want {
			t.Errorf("Correct(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestOptions_Language(t *testing.T) {
	if got := (Options{}).language(); got != DefaultLanguage {
		t.Errorf("default language: got %q, want %q", got, DefaultLanguage)
	}
	if got := (Options{Language: "deu"}).language(); got != "deu" {
		t.Errorf("language: got %q, want deu", got)
	}
}
