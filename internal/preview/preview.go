// Package preview keeps locally generated thumbnails of images staged for upload.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"sync"
	"time"

	"vendordesk/internal/domain"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// DefaultMaxDimension bounds the longer side of a generated preview.
const DefaultMaxDimension = 320

// DefaultMaxPixels bounds width*height of an accepted upload, checked before decoding.
const DefaultMaxPixels = 24_000_000

// Preview is a thumbnail held until explicitly released.
type Preview struct {
	ID          string    `json:"id"`
	ContentType string    `json:"contentType"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	CreatedAt   time.Time `json:"createdAt"`
	Data        []byte    `json:"-"`
}

// Store holds previews in memory. Every Create must be paired with a Release.
type Store struct {
	mu     sync.Mutex
	items     map[string]Preview
	maxDim    int
	maxPixels int
}

func NewStore(maxDim, maxPixels int) *Store {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Store{items: make(map[string]Preview), maxDim: maxDim, maxPixels: maxPixels}
}

// Create checks the pixel bounds, decodes data and stores a JPEG thumbnail. Undecodable input is a validation error.
func (s *Store) Create(data []byte) (Preview, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Preview{}, domain.NewValidationError(fmt.Sprintf("unsupported image: %v", err), "shopImage")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(s.maxPixels) {
		return Preview{}, domain.NewValidationError(
			fmt.Sprintf("image is %dx%d pixels, larger than the %d pixel limit", cfg.Width, cfg.Height, s.maxPixels), "shopImage")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Preview{}, domain.NewValidationError(fmt.Sprintf("unsupported image: %v", err), "shopImage")
	}
	thumb := imaging.Fit(img, s.maxDim, s.maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return Preview{}, fmt.Errorf("encode preview: %w", err)
	}
	b := thumb.Bounds()
	p := Preview{
		ID:          uuid.NewString(),
		ContentType: "image/jpeg",
		Width:       b.Dx(),
		Height:      b.Dy(),
		CreatedAt:   time.Now().UTC(),
		Data:        buf.Bytes(),
	}

	s.mu.Lock()
	s.items[p.ID] = p
	s.mu.Unlock()
	return p, nil
}

func (s *Store) Get(id string) (Preview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	return p, ok
}

// Release frees a preview; it reports whether the id was held.
func (s *Store) Release(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// Len reports how many previews are currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
