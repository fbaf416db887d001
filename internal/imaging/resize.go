package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// DefaultMaxWidth bounds the width of the image the detector works on.
const DefaultMaxWidth = 1280

// Downscale limits an image to maxWidth pixels wide, preserving its aspect
// ratio. The new height is the original height scaled by the same factor
// and truncated, so it is within one pixel of the exact proportional value.
//
// Images at or below maxWidth are returned as a zero-origin copy at the
// original size. The boolean result reports whether resizing happened.
// A maxWidth <= 0 disables downscaling.
func Downscale(img image.Image, maxWidth int) (*image.NRGBA, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxWidth <= 0 || w <= maxWidth {
		return imaging.Clone(img), false
	}

	newHeight := h * maxWidth / w
	if newHeight < 1 {
		newHeight = 1
	}
	return imaging.Resize(img, maxWidth, newHeight, imaging.Linear), true
}
