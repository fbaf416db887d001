package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Detection preprocessing constants. They are fixed so that the edge map,
// and therefore the candidate list, is reproducible for a given input.
const (
	CLAHETiles     = 8
	CLAHEClipLimit = 2.0
	SmoothRadius   = 1.0
)

// Preprocess prepares an image for edge-based plate region extraction.
//
// The steps run in a fixed order:
//
//  1. Luminance: multi-channel input is reduced to a single channel.
//  2. CLAHE: tile-based contrast-limited histogram equalization on an
//     8x8 tile grid with clip limit 2.0, normalizing uneven lighting.
//  3. Smoothing: a 3x3 Gaussian (radius 1) suppresses sensor noise while
//     keeping the strong plate border edges.
//
// Returns ErrEmptyImage for nil or zero-sized input.
func Preprocess(img image.Image) (*image.Gray, error) {
	if IsEmpty(img) {
		return nil, ErrEmptyImage
	}

	gray := Luminance(img)
	enhanced := CLAHE(gray, CLAHETiles, CLAHETiles, CLAHEClipLimit)
	return Smooth(enhanced, SmoothRadius), nil
}

// Luminance converts an image to a single-channel grayscale image with
// bounds starting at (0,0). Grayscale input is copied, not aliased.
func Luminance(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		out := image.NewGray(image.Rect(0, 0, g.Rect.Dx(), g.Rect.Dy()))
		for y := 0; y < out.Rect.Dy(); y++ {
			src := g.Pix[g.PixOffset(g.Rect.Min.X, g.Rect.Min.Y+y):]
			copy(out.Pix[y*out.Stride:y*out.Stride+out.Rect.Dx()], src[:out.Rect.Dx()])
		}
		return out
	}
	return rgbaToGray(effect.Grayscale(imaging.Clone(img)))
}

// Smooth applies a Gaussian blur of the given radius to a grayscale image.
// A radius of 1 corresponds to a 3x3 kernel. Borders replicate edge pixels.
func Smooth(gray *image.Gray, radius float64) *image.Gray {
	return rgbaToGray(blur.Gaussian(gray, radius))
}

// rgbaToGray keeps the red channel of an RGBA image produced from
// grayscale input, where all three channels carry the same value.
func rgbaToGray(src *image.RGBA) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src.Pix[src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y):]
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = row[x*4]
		}
	}
	return out
}

// toGray returns img as a zero-origin grayscale image, converting it when
// needed.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	return Luminance(img)
}
