// Package ocr reads license plate text with Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2) as a
// plate recognizer. Each crop is enhanced before recognition:
//
//  1. Plates whose background is dark (light characters) are inverted,
//     judged from the crop's mean CIE L* lightness
//  2. Contrast is doubled and the crop is sharpened
//  3. An adaptive local-mean threshold binarizes the crop
//  4. Crops shorter than 32 px are upscaled with cubic interpolation
//
// Tesseract then runs in single-word mode with its alphabet restricted to
// A-Z and 0-9. Recognize returns that text as read; Correct fixes common
// letter/digit confusions between digits (O, I, S, B), and the pipeline
// applies it after keeping the raw reading.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Builds without cgo compile a stub whose constructor returns
// ErrUnavailable, so callers can fall back to the geometry recognizer.
//
// # Thread Safety
//
// A Tesseract value owns one gosseract client and serializes calls to it.
// Use separate values for parallel recognition.
package ocr
