package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"
)

// Canny thresholds used for plate region extraction.
const (
	CannyLow  = 50
	CannyHigh = 150
)

// Canny performs Canny edge detection on a preprocessed grayscale image.
//
// The input is expected to be smoothed already (see Preprocess), so no
// additional blur is applied here. The result is a binary image of the
// same size where 255 marks an edge pixel and 0 marks background.
//
// # Algorithm
//
//  1. Gradient computation: 3x3 Sobel operators for X and Y gradients,
//     magnitude = sqrt(Gx² + Gy²), direction = atan2(Gy, Gx).
//
//  2. Non-maximum suppression: keep a pixel only if it is a local maximum
//     along its quantized gradient direction. The comparison is strict
//     against the preceding neighbor and non-strict against the following
//     one, so a step edge whose two sides tie yields a single-pixel line.
//
//  3. Hysteresis thresholding: pixels with magnitude >= high are strong
//     edges; pixels >= low are kept only when 8-connected (transitively)
//     to a strong edge.
//
// Thresholds are on the raw Sobel scale of an 8-bit image, matching the
// conventional 50/150 pair for plate photos. Border pixels are never edges.
func Canny(gray *image.Gray, low, high float64) *image.Gray {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w < 3 || h < 3 {
		return out
	}

	px := func(x, y int) float64 {
		x = clampInt(x, 0, w-1)
		y = clampInt(y, 0, h-1)
		return float64(gray.Pix[gray.PixOffset(gray.Rect.Min.X+x, gray.Rect.Min.Y+y)])
	}

	magnitude := make([]float64, w*h)
	direction := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := (px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1)) -
				(px(x-1, y-1) + 2*px(x-1, y) + px(x-1, y+1))
			gy := (px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)) -
				(px(x-1, y-1) + 2*px(x, y-1) + px(x+1, y-1))
			magnitude[y*w+x] = math.Sqrt(gx*gx + gy*gy)
			direction[y*w+x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression
	suppressed := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			mag := magnitude[i]
			if mag < low {
				continue
			}

			// n1 is always the neighbor on the upper (or left) side
			var n1, n2 float64
			angle := direction[i]
			switch {
			case math.Abs(angle) < math.Pi/8 || math.Abs(angle) >= 7*math.Pi/8:
				n1, n2 = magnitude[i-1], magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = magnitude[i-w-1], magnitude[i+w+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = magnitude[i-w], magnitude[i+w]
			default:
				n1, n2 = magnitude[i-w+1], magnitude[i+w-1]
			}

			if mag > n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Double threshold and edge tracking by hysteresis
	stack := make([]int, 0, 1024)
	for i, v := range suppressed {
		if v >= high {
			out.Pix[i] = 255
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				j := ny*w + nx
				if out.Pix[j] == 0 && suppressed[j] >= low {
					out.Pix[j] = 255
					stack = append(stack, j)
				}
			}
		}
	}

	return out
}

// EdgeDetectResult contains an edge map encoded as base64 PNG.
//
// The result is a grayscale image where white pixels (255) represent detected
// edges and black pixels (0) represent non-edges.
type EdgeDetectResult struct {
	// Width of the output image in pixels (same as input).
	Width int `json:"width"`

	// Height of the output image in pixels (same as input).
	Height int `json:"height"`

	// EdgePixels is the number of pixels marked as edges.
	EdgePixels int `json:"edge_pixels"`

	// ImageBase64 is the edge image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for edge detection results.
	MimeType string `json:"mime_type"`
}

// EdgeDetect runs the detection preprocessor followed by Canny and returns
// the edge map as a PNG. It shows exactly what the region extractor sees,
// which is the first thing to look at when a plate is missed.
//
// Returns ErrEmptyImage for nil or zero-sized input, or an error if PNG
// encoding fails.
func EdgeDetect(img image.Image, thresholdLow, thresholdHigh int) (*EdgeDetectResult, error) {
	pre, err := Preprocess(img)
	if err != nil {
		return nil, err
	}
	edges := Canny(pre, float64(thresholdLow), float64(thresholdHigh))

	count := 0
	for _, v := range edges.Pix {
		if v != 0 {
			count++
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, edges); err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}

	return &EdgeDetectResult{
		Width:       edges.Rect.Dx(),
		Height:      edges.Rect.Dy(),
		EdgePixels:  count,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
