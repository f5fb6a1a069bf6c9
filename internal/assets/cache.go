// Package assets converts opaque binary payloads into locally usable,
// session-scoped asset handles. Conversion is content-addressed: equal byte
// sequences share one handle, and entries are reference counted so a release
// on the last reference frees the resource instead of leaking it for the
// session's lifetime.
package assets

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"net/http"
	"strings"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"socio/internal/models"
	"socio/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultThumbnailSize   = 256
	DefaultMaxPayloadBytes = 10 * 1024 * 1024
	thumbnailWebPQuality   = 70
)

type entry struct {
	handle *models.AssetHandle
	refs   int
}

// Cache is the process-wide asset conversion cache.
type Cache struct {
	mu         sync.Mutex
	byDigest   map[string]*entry
	digestByID map[string]string
	thumbSize  int
	maxPayload int
}

// Option configures a Cache.
type Option func(*Cache)

// WithThumbnailSize sets the max dimension of generated thumbnails.
func WithThumbnailSize(px int) Option {
	return func(c *Cache) {
		if px > 0 {
			c.thumbSize = px
		}
	}
}

// WithMaxPayloadBytes caps the accepted payload size.
func WithMaxPayloadBytes(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

// NewCache creates an empty conversion cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		byDigest:   make(map[string]*entry),
		digestByID: make(map[string]string),
		thumbSize:  DefaultThumbnailSize,
		maxPayload: DefaultMaxPayloadBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert turns an image payload into a displayable handle. Payloads with the
// same bytes share a handle; every Convert acquires one reference that must be
// paired with a Release.
func (c *Cache) Convert(payload []byte) (*models.AssetHandle, error) {
	if len(payload) == 0 {
		return nil, models.NewValidationError("empty binary payload")
	}
	if len(payload) > c.maxPayload {
		return nil, models.NewValidationError(fmt.Sprintf("payload too large (max %d bytes)", c.maxPayload))
	}

	digest := digestOf(payload)

	c.mu.Lock()
	if e, ok := c.byDigest[digest]; ok {
		e.refs++
		c.mu.Unlock()
		observability.AssetCacheHits.Inc()
		return e.handle, nil
	}
	c.mu.Unlock()

	mime := http.DetectContentType(payload)
	if !strings.HasPrefix(mime, "image/") {
		return nil, models.NewConversionError(fmt.Errorf("unsupported content type %q", mime))
	}

	decoded, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, models.NewConversionError(err)
	}

	thumb, err := encodeThumbnail(decoded, c.thumbSize)
	if err != nil {
		return nil, models.NewConversionError(err)
	}

	b := decoded.Bounds()
	handle := &models.AssetHandle{
		ID:        uuid.NewString(),
		Digest:    digest,
		MIME:      mime,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Bytes:     payload,
		Thumbnail: thumb,
	}

	c.mu.Lock()
	// Another caller may have raced the same payload past the first check.
	if e, ok := c.byDigest[digest]; ok {
		e.refs++
		c.mu.Unlock()
		observability.AssetCacheHits.Inc()
		return e.handle, nil
	}
	c.byDigest[digest] = &entry{handle: handle, refs: 1}
	c.digestByID[handle.ID] = digest
	c.mu.Unlock()

	observability.AssetCacheEntries.Inc()
	return handle, nil
}

// Release drops one reference to the handle. The entry is evicted when the
// last reference is dropped. Releasing a nil or unknown handle is a no-op.
func (c *Cache) Release(h *models.AssetHandle) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	digest, ok := c.digestByID[h.ID]
	if !ok {
		return
	}
	e := c.byDigest[digest]
	e.refs--
	if e.refs <= 0 {
		delete(c.byDigest, digest)
		delete(c.digestByID, h.ID)
		observability.AssetCacheEntries.Dec()
	}
}

// ReleaseAll evicts every entry. Called when the owning session ends.
func (c *Cache) ReleaseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.byDigest)
	c.byDigest = make(map[string]*entry)
	c.digestByID = make(map[string]string)
	observability.AssetCacheEntries.Sub(float64(n))
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byDigest)
}

// Refs returns the reference count held for the handle's entry.
func (c *Cache) Refs(h *models.AssetHandle) int {
	if h == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	digest, ok := c.digestByID[h.ID]
	if !ok {
		return 0
	}
	return c.byDigest[digest].refs
}

// ConvertAll maps a sequence of records, converting one designated binary
// field per record. The input is not mutated; output order and cardinality
// equal the input. Records whose payload is empty pass through with a nil
// handle. A failing conversion releases the handles already acquired for the
// batch before returning.
func ConvertAll[T any](c *Cache, in []T, get func(T) []byte, set func(*T, *models.AssetHandle)) ([]T, error) {
	out := make([]T, len(in))
	acquired := make([]*models.AssetHandle, 0, len(in))
	for i, rec := range in {
		out[i] = rec
		payload := get(rec)
		if len(payload) == 0 {
			set(&out[i], nil)
			continue
		}
		handle, err := c.Convert(payload)
		if err != nil {
			for _, h := range acquired {
				c.Release(h)
			}
			return nil, err
		}
		acquired = append(acquired, handle)
		set(&out[i], handle)
	}
	return out, nil
}

func digestOf(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func encodeThumbnail(src image.Image, maxSize int) ([]byte, error) {
	scaled := resizeToFit(src, maxSize, maxSize)
	var buf bytes.Buffer
	if err := webp.Encode(&buf, scaled, &webp.Options{Quality: thumbnailWebPQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resizeToFit(src image.Image, maxW, maxH int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return src
	}

	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	dstW := int(float64(w) * scale)
	dstH := int(float64(h) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
