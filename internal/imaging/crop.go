package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// Plate crop enhancement parameters.
const (
	// MinOCRHeight is the smallest crop height handed to a recognizer.
	// Shorter crops are upscaled with cubic interpolation.
	MinOCRHeight = 32

	// ocrContrast doubles the contrast of the crop.
	ocrContrast = 100

	// ocrSharpenSigma is the unsharp mask sigma applied after contrast.
	ocrSharpenSigma = 1.0

	// adaptiveRadius and adaptiveOffset define the local-mean threshold:
	// a pixel becomes white when it is brighter than the Gaussian mean of
	// its neighborhood minus adaptiveOffset.
	adaptiveRadius = 5.0
	adaptiveOffset = 2
)

// CropRect extracts the given rectangle from img.
//
// The rectangle is in img's coordinate space and must lie fully inside
// img.Bounds(). The returned image has bounds starting at (0,0).
func CropRect(img image.Image, r image.Rectangle) (*image.NRGBA, error) {
	bounds := img.Bounds()

	if r.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: width and height must be positive", r)
	}
	if !r.In(bounds) {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}

	return imaging.Crop(img, r), nil
}

// EnhanceForOCR prepares a plate crop for character recognition.
//
// The crop is converted to grayscale and optionally inverted (dark plates
// with light characters), its contrast is doubled, it is sharpened, then
// binarized with an adaptive local-mean threshold. Crops shorter than
// MinOCRHeight are finally upscaled to that height with Catmull-Rom
// (cubic) interpolation, preserving the aspect ratio.
func EnhanceForOCR(crop image.Image, invert bool) *image.Gray {
	img := imaging.Grayscale(crop)
	if invert {
		img = imaging.Invert(img)
	}
	img = imaging.AdjustContrast(img, ocrContrast)
	img = imaging.Sharpen(img, ocrSharpenSigma)

	binary := AdaptiveThreshold(toGray(img), adaptiveRadius, adaptiveOffset)

	if binary.Rect.Dy() < MinOCRHeight {
		return toGray(imaging.Resize(binary, 0, MinOCRHeight, imaging.CatmullRom))
	}
	return binary
}

// AdaptiveThreshold binarizes a grayscale image against a Gaussian-weighted
// local mean. Pixels brighter than mean-offset become 255, others 0.
func AdaptiveThreshold(gray *image.Gray, radius float64, offset int) *image.Gray {
	local := rgbaToGray(blur.Gaussian(gray, radius))

	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := gray.Pix[gray.PixOffset(gray.Rect.Min.X, gray.Rect.Min.Y+y):]
		for x := 0; x < w; x++ {
			if int(src[x]) > int(local.Pix[y*local.Stride+x])-offset {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}
