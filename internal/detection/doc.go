// Package detection finds rectangular regions of an image that may hold a
// license plate.
//
// Detection is purely geometric. The preprocessed grayscale image is run
// through Canny edge detection, the outermost edge contours are traced,
// and each contour's bounding box is kept only when its proportions look
// like a plate. No trained model is involved.
//
// # Algorithm Overview
//
//  1. Edge Detection: imaging.Canny with the fixed 50/150 threshold pair
//  2. Contour Finding: group connected edge pixels, keeping only contours
//     that touch the image background (external contours). Contours
//     enclosed by another contour, such as the characters of a plate, are
//     holes and are dropped. Regions closer than five pixels merge into
//     one contour.
//  3. Filtering: aspect ratio, absolute area, area relative to the image,
//     and minimum width and height must all fall inside the Filter's
//     bounds
//  4. Ranking: stable sort by area, largest first, truncated to
//     Filter.MaxCandidates
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - A Box covers X..X+Width-1 and Y..Y+Height-1
//
// Boxes always lie fully inside the image passed to ExtractCandidates.
//
// # Determinism
//
// Contours are discovered in raster order and sorted with a stable sort,
// so identical input and Filter always yield identical output.
package detection
