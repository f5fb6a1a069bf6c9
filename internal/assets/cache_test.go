package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"socio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngPayload(t *testing.T, c color.Color, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestConvertProducesHandle(t *testing.T) {
	cache := NewCache()
	payload := pngPayload(t, color.RGBA{R: 255, A: 255}, 4)

	h, err := cache.Convert(payload)
	require.NoError(t, err)
	require.NotNil(t, h)

	assert.NotEmpty(t, h.ID)
	assert.Equal(t, "image/png", h.MIME)
	assert.Equal(t, 4, h.Width)
	assert.Equal(t, 4, h.Height)
	assert.NotEmpty(t, h.Thumbnail)
	assert.Equal(t, "asset://"+h.ID, h.URI())
}

func TestConvertDeduplicatesEqualPayloads(t *testing.T) {
	cache := NewCache()
	payload := pngPayload(t, color.RGBA{G: 255, A: 255}, 4)

	first, err := cache.Convert(payload)
	require.NoError(t, err)
	second, err := cache.Convert(append([]byte(nil), payload...))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 2, cache.Refs(first))
}

func TestConvertDistinctPayloads(t *testing.T) {
	cache := NewCache()

	a, err := cache.Convert(pngPayload(t, color.RGBA{R: 255, A: 255}, 4))
	require.NoError(t, err)
	b, err := cache.Convert(pngPayload(t, color.RGBA{B: 255, A: 255}, 4))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, cache.Len())
}

func TestConvertRejectsBadInput(t *testing.T) {
	cache := NewCache(WithMaxPayloadBytes(64))

	_, err := cache.Convert(nil)
	assert.Equal(t, models.CodeValidation, models.CodeOf(err))

	_, err = cache.Convert(bytes.Repeat([]byte{0xff}, 65))
	assert.Equal(t, models.CodeValidation, models.CodeOf(err))

	_, err = cache.Convert([]byte("definitely not an image"))
	assert.Equal(t, models.CodeConversion, models.CodeOf(err))

	// An image prefix with a truncated body decodes to an error, not a panic.
	valid := pngPayload(t, color.RGBA{A: 255}, 4)
	_, err = cache.Convert(valid[:20])
	assert.Equal(t, models.CodeConversion, models.CodeOf(err))

	assert.Equal(t, 0, cache.Len())
}

func TestReleaseEvictsOnLastReference(t *testing.T) {
	cache := NewCache()
	payload := pngPayload(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, 4)

	h1, err := cache.Convert(payload)
	require.NoError(t, err)
	h2, err := cache.Convert(payload)
	require.NoError(t, err)

	cache.Release(h1)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 1, cache.Refs(h2))

	cache.Release(h2)
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, cache.Refs(h2))

	// Releasing an evicted or nil handle is harmless.
	cache.Release(h2)
	cache.Release(nil)
}

func TestReleaseAll(t *testing.T) {
	cache := NewCache()
	_, err := cache.Convert(pngPayload(t, color.RGBA{R: 255, A: 255}, 4))
	require.NoError(t, err)
	_, err = cache.Convert(pngPayload(t, color.RGBA{G: 255, A: 255}, 4))
	require.NoError(t, err)

	cache.ReleaseAll()
	assert.Equal(t, 0, cache.Len())
}

func TestThumbnailDownscalesLargeImages(t *testing.T) {
	cache := NewCache(WithThumbnailSize(8))

	h, err := cache.Convert(pngPayload(t, color.RGBA{R: 128, A: 255}, 32))
	require.NoError(t, err)

	assert.Equal(t, 32, h.Width)
	assert.NotEmpty(t, h.Thumbnail)
}

func TestConvertAllPreservesOrderAndCardinality(t *testing.T) {
	cache := NewCache()

	type record struct {
		name    string
		payload []byte
		handle  *models.AssetHandle
	}
	in := []record{
		{name: "a", payload: pngPayload(t, color.RGBA{R: 255, A: 255}, 4)},
		{name: "b"},
		{name: "c", payload: pngPayload(t, color.RGBA{B: 255, A: 255}, 4)},
	}

	out, err := ConvertAll(cache, in,
		func(r record) []byte { return r.payload },
		func(r *record, h *models.AssetHandle) { r.handle = h },
	)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "a", out[0].name)
	assert.NotNil(t, out[0].handle)
	assert.Equal(t, "b", out[1].name)
	assert.Nil(t, out[1].handle)
	assert.Equal(t, "c", out[2].name)
	assert.NotNil(t, out[2].handle)

	// Input records stay untouched.
	assert.Nil(t, in[0].handle)
}

func TestConvertAllReleasesOnFailure(t *testing.T) {
	cache := NewCache()

	type record struct {
		payload []byte
		handle  *models.AssetHandle
	}
	in := []record{
		{payload: pngPayload(t, color.RGBA{R: 255, A: 255}, 4)},
		{payload: []byte("garbage")},
	}

	_, err := ConvertAll(cache, in,
		func(r record) []byte { return r.payload },
		func(r *record, h *models.AssetHandle) { r.handle = h },
	)
	require.Error(t, err)
	assert.Equal(t, models.CodeConversion, models.CodeOf(err))
	assert.Equal(t, 0, cache.Len())
}
