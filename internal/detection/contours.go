package detection

import (
	"image"
)

// minContourPixels is the number of edge pixels below which a contour is
// discarded as noise.
const minContourPixels = 10

// contour is a connected group of edge pixels.
type contour struct {
	minX, minY int
	maxX, maxY int
	pixels     int
}

// box returns the contour's bounding box. Both bounds are inclusive, so
// the box is at least one pixel in each direction.
func (c contour) box() Box {
	return Box{
		X:      c.minX,
		Y:      c.minY,
		Width:  c.maxX - c.minX + 1,
		Height: c.maxY - c.minY + 1,
	}
}

// ExternalContours returns the bounding boxes of the outermost contours of
// a binary edge map, in raster order of each contour's first pixel.
//
// Edge pixels are any non-zero value. Before grouping, every edge pixel is
// grown by one pixel in each direction so that single-pixel breaks in a
// Canny outline (typically at corners) do not split it. The grown mask is
// used only for connectivity: the bounding boxes are computed from the
// original edge pixels.
//
// The growing also joins separate outlines whose edge pixels are two
// pixels apart or closer. Canny places a step edge up to one pixel
// outside a dark region, so two regions need a gap of at least five
// pixels to be reported as separate contours.
//
// A contour is external when its grown pixels touch the background that
// is reachable from the image border. Contours enclosed by another contour
// are holes and are not returned. Contours with fewer than 10 edge pixels
// are discarded as noise.
func ExternalContours(edges *image.Gray) []Box {
	contours := findExternalContours(edges)
	boxes := make([]Box, 0, len(contours))
	for _, c := range contours {
		boxes = append(boxes, c.box())
	}
	return boxes
}

// findExternalContours does the work of ExternalContours, keeping the
// edge pixel counts.
func findExternalContours(edges *image.Gray) []contour {
	width, height := edges.Rect.Dx(), edges.Rect.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	isEdge := make([]bool, width*height)
	for y := 0; y < height; y++ {
		row := edges.Pix[edges.PixOffset(edges.Rect.Min.X, edges.Rect.Min.Y+y):]
		for x := 0; x < width; x++ {
			isEdge[y*width+x] = row[x] != 0
		}
	}

	mask := dilate(isEdge, width, height)
	background := floodBackground(mask, width, height)

	visited := make([]bool, width*height)
	contours := make([]contour, 0)

	for i := range mask {
		if !mask[i] || visited[i] {
			continue
		}
		c, external := traceComponent(isEdge, mask, background, visited, i, width, height)
		if external && c.pixels >= minContourPixels {
			contours = append(contours, c)
		}
	}

	return contours
}

// dilate grows every set pixel to its 3x3 neighborhood.
func dilate(src []bool, width, height int) []bool {
	out := make([]bool, len(src))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !src[y*width+x] {
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= height {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= width {
						continue
					}
					out[ny*width+nx] = true
				}
			}
		}
	}
	return out
}

// floodBackground marks the non-mask pixels that are 4-connected to the
// image border.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow on
// large images.
func floodBackground(mask []bool, width, height int) []bool {
	background := make([]bool, len(mask))
	stack := make([]int, 0, 2*(width+height))

	push := func(i int) {
		if !mask[i] && !background[i] {
			background[i] = true
			stack = append(stack, i)
		}
	}

	for x := 0; x < width; x++ {
		push(x)
		push((height-1)*width + x)
	}
	for y := 0; y < height; y++ {
		push(y * width)
		push(y*width + width - 1)
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width

		if x > 0 {
			push(i - 1)
		}
		if x < width-1 {
			push(i + 1)
		}
		if y > 0 {
			push(i - width)
		}
		if y < height-1 {
			push(i + width)
		}
	}

	return background
}

// traceComponent flood-fills the 8-connected mask component containing
// start, marking it visited. It returns the bounding box and count of the
// original edge pixels in the component, and whether the component touches
// the border background.
func traceComponent(isEdge, mask, background, visited []bool, start, width, height int) (contour, bool) {
	c := contour{minX: width, minY: height, maxX: -1, maxY: -1}
	external := false

	stack := []int{start}
	visited[start] = true

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width

		if isEdge[i] {
			c.pixels++
			if x < c.minX {
				c.minX = x
			}
			if x > c.maxX {
				c.maxX = x
			}
			if y < c.minY {
				c.minY = y
			}
			if y > c.maxY {
				c.maxY = y
			}
		}

		if x == 0 || y == 0 || x == width-1 || y == height-1 {
			external = true
		}

		// 8-connected neighbors
		for dy := -1; dy <= 1; dy++ {
			ny := y + dy
			if ny < 0 || ny >= height {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				nx := x + dx
				if nx < 0 || nx >= width || (dx == 0 && dy == 0) {
					continue
				}
				j := ny*width + nx
				if background[j] && (dx == 0 || dy == 0) {
					external = true
				}
				if mask[j] && !visited[j] {
					visited[j] = true
					stack = append(stack, j)
				}
			}
		}
	}

	return c, external
}
