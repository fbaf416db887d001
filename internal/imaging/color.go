package imaging

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// darkPlateLightness is the CIE L* (0-1) below which a plate background is
// considered dark, i.e. light characters on a dark plate.
const darkPlateLightness = 0.45

// maxToneSamples caps the number of pixels averaged per region.
const maxToneSamples = 4096

// Tone describes the average color of an image region.
type Tone struct {
	// Hex is the mean color in "#rrggbb" form.
	Hex string `json:"hex"`

	// Lightness is the CIE L* of the mean color, from 0 (black) to 1 (white).
	Lightness float64 `json:"lightness"`

	// Dark reports whether the region is dark enough that its characters
	// are likely lighter than the background.
	Dark bool `json:"dark"`
}

// RegionTone averages the colors of img inside r in CIE L*a*b* space.
//
// Averaging in Lab rather than RGB keeps the mean perceptually close to
// what the region looks like. At most maxToneSamples pixels are visited,
// on a regular grid. Fully transparent pixels are skipped. An empty or
// fully transparent region returns the zero Tone.
func RegionTone(img image.Image, r image.Rectangle) Tone {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return Tone{}
	}

	step := 1
	for (r.Dx()/step)*(r.Dy()/step) > maxToneSamples {
		step++
	}

	var sumL, sumA, sumB float64
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y += step {
		for x := r.Min.X; x < r.Max.X; x += step {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			l, a, b := c.Lab()
			sumL += l
			sumA += a
			sumB += b
			n++
		}
	}
	if n == 0 {
		return Tone{}
	}

	mean := colorful.Lab(sumL/float64(n), sumA/float64(n), sumB/float64(n)).Clamped()
	l, _, _ := mean.Lab()
	return Tone{
		Hex:       mean.Hex(),
		Lightness: l,
		Dark:      l < darkPlateLightness,
	}
}
