package detection

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
)

// Box is an axis-aligned bounding box in pixel coordinates.
//
// Width and Height are always positive for boxes produced by this package.
type Box struct {
	X      int `json:"x"`      // Left edge (inclusive)
	Y      int `json:"y"`      // Top edge (inclusive)
	Width  int `json:"width"`  // Horizontal extent in pixels
	Height int `json:"height"` // Vertical extent in pixels
}

// Rect returns the box as an image.Rectangle (exclusive max corner).
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Area returns Width × Height.
func (b Box) Area() int {
	return b.Width * b.Height
}

// AspectRatio returns Width / Height, or 0 when Height is not positive.
func (b Box) AspectRatio() float64 {
	if b.Height <= 0 {
		return 0
	}
	return float64(b.Width) / float64(b.Height)
}

// Candidate is a region hypothesized to contain a license plate, before
// any text recognition.
type Candidate struct {
	// Box is the bounding rectangle of the region's outer contour.
	Box Box `json:"box"`

	// Area is Box.Width × Box.Height in square pixels.
	Area int `json:"area"`

	// AspectRatio is Box.Width / Box.Height.
	AspectRatio float64 `json:"aspect_ratio"`
}

// NewCandidate builds a Candidate with its derived area and aspect ratio.
func NewCandidate(b Box) Candidate {
	return Candidate{Box: b, Area: b.Area(), AspectRatio: b.AspectRatio()}
}

// Filter holds the geometric bounds a contour must satisfy to become a
// Candidate. Every bound is inclusive except MinArea, which must be
// exceeded.
type Filter struct {
	MinAspect float64 `json:"min_aspect"`
	MaxAspect float64 `json:"max_aspect"`

	// MinArea is the absolute area, in square pixels, a box must exceed.
	MinArea int `json:"min_area"`

	// MinSizeRatio and MaxSizeRatio bound the box area divided by the
	// image area.
	MinSizeRatio float64 `json:"min_size_ratio"`
	MaxSizeRatio float64 `json:"max_size_ratio"`

	MinWidth  int `json:"min_width"`
	MinHeight int `json:"min_height"`

	// MaxCandidates caps the number of returned candidates.
	MaxCandidates int `json:"max_candidates"`
}

// DefaultFilter returns the bounds of real plate proportions: aspect
// 2.0-6.0, area above 1000 px, 0.2%-5% of the image, at least 80×20 px,
// and at most 3 candidates.
func DefaultFilter() Filter {
	return Filter{
		MinAspect:     2.0,
		MaxAspect:     6.0,
		MinArea:       1000,
		MinSizeRatio:  0.002,
		MaxSizeRatio:  0.05,
		MinWidth:      80,
		MinHeight:     20,
		MaxCandidates: 3,
	}
}

// PermissiveFilter returns looser bounds that trade precision for recall:
// aspect 1.5-8.0, 0.1%-10% of the image, at least 50×15 px, and at most
// 5 candidates.
func PermissiveFilter() Filter {
	return Filter{
		MinAspect:     1.5,
		MaxAspect:     8.0,
		MinArea:       1000,
		MinSizeRatio:  0.001,
		MaxSizeRatio:  0.1,
		MinWidth:      50,
		MinHeight:     15,
		MaxCandidates: 5,
	}
}

// Validate reports whether the filter bounds are usable.
func (f Filter) Validate() error {
	switch {
	case f.MaxCandidates <= 0:
		return fmt.Errorf("max candidates must be positive, got %d", f.MaxCandidates)
	case f.MinAspect < 0 || f.MaxAspect < f.MinAspect:
		return fmt.Errorf("invalid aspect band [%g, %g]", f.MinAspect, f.MaxAspect)
	case f.MinSizeRatio < 0 || f.MaxSizeRatio < f.MinSizeRatio:
		return fmt.Errorf("invalid size ratio band [%g, %g]", f.MinSizeRatio, f.MaxSizeRatio)
	case f.MinArea < 0 || f.MinWidth < 0 || f.MinHeight < 0:
		return errors.New("minimum area and dimensions must not be negative")
	}
	return nil
}

// Check reports whether c satisfies every bound of the filter for an
// image of the given area. When it does not, reason names the first
// failing bound.
func (f Filter) Check(c Candidate, imageArea int) (ok bool, reason string) {
	if c.AspectRatio <= 0 || c.AspectRatio < f.MinAspect || c.AspectRatio > f.MaxAspect {
		return false, fmt.Sprintf("aspect ratio %.2f outside [%.1f, %.1f]", c.AspectRatio, f.MinAspect, f.MaxAspect)
	}
	if c.Area <= f.MinArea {
		return false, fmt.Sprintf("area %d not above %d", c.Area, f.MinArea)
	}
	if imageArea > 0 {
		ratio := float64(c.Area) / float64(imageArea)
		if ratio < f.MinSizeRatio || ratio > f.MaxSizeRatio {
			return false, fmt.Sprintf("size ratio %.4f outside [%.3f, %.3f]", ratio, f.MinSizeRatio, f.MaxSizeRatio)
		}
	}
	if c.Box.Width < f.MinWidth || c.Box.Height < f.MinHeight {
		return false, fmt.Sprintf("%dx%d smaller than %dx%d", c.Box.Width, c.Box.Height, f.MinWidth, f.MinHeight)
	}
	return true, ""
}

// Rejection records a contour that failed the filter.
type Rejection struct {
	Candidate Candidate `json:"candidate"`
	Reason    string    `json:"reason"`
}

// Extraction is the full outcome of candidate extraction.
type Extraction struct {
	// Candidates are the accepted regions, largest first, at most
	// Filter.MaxCandidates long.
	Candidates []Candidate `json:"candidates"`

	// Contours is the number of external contours found before filtering.
	Contours int `json:"contours"`

	// Rejected lists the contours that failed the filter, in discovery
	// order.
	Rejected []Rejection `json:"rejected,omitempty"`
}

// ExtractCandidates finds plate-shaped regions in a preprocessed grayscale
// image.
//
// Parameters:
//   - gray: Output of imaging.Preprocess (or any zero-origin grayscale image).
//   - f: Geometric bounds; see DefaultFilter and PermissiveFilter.
//
// Returns the accepted candidates sorted by area, largest first, at most
// f.MaxCandidates long, or an error for an empty image or invalid filter.
func ExtractCandidates(gray *image.Gray, f Filter) ([]Candidate, error) {
	ex, err := Extract(gray, f)
	if err != nil {
		return nil, err
	}
	return ex.Candidates, nil
}

// Extract is ExtractCandidates with the contour count and rejection
// reasons kept, for diagnostics.
//
// # Algorithm
//
//  1. Edge Detection: imaging.Canny(gray, 50, 150)
//  2. Contour Finding: ExternalContours on the edge map
//  3. Filtering: Filter.Check against the image area
//  4. Ranking: stable sort by area descending (ties keep discovery order),
//     then truncation to f.MaxCandidates
func Extract(gray *image.Gray, f Filter) (*Extraction, error) {
	if gray == nil || gray.Rect.Empty() {
		return nil, imaging.ErrEmptyImage
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid candidate filter: %w", err)
	}

	width, height := gray.Rect.Dx(), gray.Rect.Dy()
	imageArea := width * height

	edges := imaging.Canny(gray, imaging.CannyLow, imaging.CannyHigh)
	contours := findExternalContours(edges)

	ex := &Extraction{
		Candidates: make([]Candidate, 0, f.MaxCandidates),
		Contours:   len(contours),
	}

	accepted := make([]Candidate, 0)
	for _, c := range contours {
		cand := NewCandidate(c.box())
		if ok, reason := f.Check(cand, imageArea); !ok {
			ex.Rejected = append(ex.Rejected, Rejection{Candidate: cand, Reason: reason})
			continue
		}
		accepted = append(accepted, cand)
	}

	// Sort by area descending
	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Area > accepted[j].Area
	})

	if len(accepted) > f.MaxCandidates {
		accepted = accepted[:f.MaxCandidates]
	}
	ex.Candidates = append(ex.Candidates, accepted...)

	return ex, nil
}
