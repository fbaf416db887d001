package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrEmptyImage is returned when an image is nil, has zero width or
// height, or when a byte buffer to decode is empty.
var ErrEmptyImage = errors.New("image is empty")

// IsEmpty reports whether img is nil or has no pixels.
func IsEmpty(img image.Image) bool {
	if img == nil {
		return true
	}
	b := img.Bounds()
	return b.Dx() <= 0 || b.Dy() <= 0
}

// Decode decodes an image from a byte buffer.
//
// Supported formats are PNG, JPEG, GIF, BMP, and WebP. JPEG images are
// rotated according to their EXIF orientation tag so that detected plate
// coordinates match what a viewer displays.
//
// # Errors
//
//   - Returns ErrEmptyImage if data is empty
//   - Returns a wrapped decode error if data is not a supported image
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if IsEmpty(img) {
		return nil, ErrEmptyImage
	}
	return img, nil
}

// DefaultCacheSize is the number of decoded images an ImageCache keeps.
const DefaultCacheSize = 8

// ImageCache provides thread-safe caching of loaded images to avoid redundant disk reads.
//
// The cache stores decoded image.Image objects keyed by their file path,
// together with the file's size and modification time. Load stats the
// file on every call and decodes it again when either has changed, so a
// file overwritten in place (a camera's latest.jpg) is never served stale.
// The MCP server keeps one cache for its lifetime so that comparing
// several engines on the same photo decodes it only once.
//
// # Memory Management
//
// At most the configured number of images are held. Loading a new path
// into a full cache drops the oldest entry. Evict() and Clear() remove
// entries explicitly.
type ImageCache struct {
	mu      sync.RWMutex
	images  map[string]cacheEntry
	order   []string
	maxSize int
}

type cacheEntry struct {
	img     image.Image
	size    int64
	modTime time.Time
}

func (e cacheEntry) matches(fi os.FileInfo) bool {
	return e.size == fi.Size() && e.modTime.Equal(fi.ModTime())
}

// NewImageCache creates an empty cache holding up to DefaultCacheSize
// images.
func NewImageCache() *ImageCache {
	return NewImageCacheSize(DefaultCacheSize)
}

// NewImageCacheSize creates an empty cache holding up to maxSize images.
// Values below 1 are treated as 1.
func NewImageCacheSize(maxSize int) *ImageCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &ImageCache{
		images:  make(map[string]cacheEntry),
		maxSize: maxSize,
	}
}

// Load retrieves an image from the cache or loads it from disk if it is
// not cached or the file changed since it was cached.
//
// The image is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a supported image format
//   - Returns ErrEmptyImage if the decoded image has no pixels
func (c *ImageCache) Load(path string) (image.Image, error) {
	fi, err := os.Stat(path)
	if err != nil {
		c.Evict(path)
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	c.mu.RLock()
	if e, ok := c.images[path]; ok && e.matches(fi) {
		c.mu.RUnlock()
		return e.img, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		c.Evict(path)
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	if IsEmpty(img) {
		c.Evict(path)
		return nil, ErrEmptyImage
	}

	c.mu.Lock()
	c.store(path, cacheEntry{img: img, size: fi.Size(), modTime: fi.ModTime()})
	c.mu.Unlock()

	return img, nil
}

// store inserts or replaces an entry. c.mu must be held for writing.
func (c *ImageCache) store(path string, e cacheEntry) {
	if _, ok := c.images[path]; ok {
		c.images[path] = e
		return
	}
	for len(c.order) >= c.maxSize {
		delete(c.images, c.order[0])
		c.order = c.order[1:]
	}
	c.images[path] = e
	c.order = append(c.order, path)
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cacheEntry)
	c.order = nil
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[path]; !ok {
		return
	}
	delete(c.images, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
