// Package imaging provides the pixel-level stages of plate detection.
//
// This package implements image loading and decoding, the detection
// preprocessor (luminance, CLAHE, smoothing), Canny edge detection,
// downscaling, cropping, and the enhancement applied to a plate crop
// before it is handed to a text recognizer. All operations work with
// standard Go image.Image types and use a coordinate system where (0,0)
// is at the top-left corner, X increases rightward, and Y increases
// downward.
//
// # Coordinate System
//
// Every image returned by this package is normalized so that its bounds
// start at (0,0). Callers can therefore use pixel coordinates from one
// stage directly in the next one without translating by Bounds().Min.
//
// # Determinism
//
// Every stage is a pure function of its input: the same image always
// produces the same output, and inputs are never modified in place.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image
// operations are stateless and can be called concurrently on different
// images.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Nil or zero-sized images (ErrEmptyImage)
//   - Crop regions outside the image bounds
//   - File I/O and decoding errors during image loading
package imaging
