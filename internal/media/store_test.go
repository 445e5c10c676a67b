package media_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detaltap/internal/domain"
	"detaltap/internal/media"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveOpenThumb(t *testing.T) {
	s, err := media.NewFileStore(t.TempDir())
	require.NoError(t, err)

	data := pngBytes(t, 800, 600)
	ref, err := s.Save(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, media.ValidRef(ref))

	rc, err := s.Open(ref)
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, data, got, "original bytes are stored untouched")

	thumb, err := s.Thumb(ref)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), 300)
	assert.LessOrEqual(t, img.Bounds().Dy(), 300)

	p, ok := s.Path(ref)
	assert.True(t, ok)
	assert.Contains(t, p, ref)
}

func TestSaveKeepsUndecodableBytes(t *testing.T) {
	s, err := media.NewFileStore(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Save(context.Background(), []byte("not an image"))
	require.NoError(t, err)
	_, err = s.Thumb(ref)
	assert.Error(t, err)

	_, err = s.Save(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestOpenRejectsForeignRefs(t *testing.T) {
	s, err := media.NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, ref := range []string{"../etc/passwd", "x.jpg", "", "thumbs/a.jpg"} {
		_, err := s.Open(ref)
		assert.ErrorIs(t, err, domain.ErrNotFound, ref)
		_, ok := s.Path(ref)
		assert.False(t, ok, ref)
	}
	_, err = s.Open("3f2504e0-4f89-11d3-9a0c-0305e82c3301.jpg")
	assert.ErrorIs(t, err, domain.ErrNotFound, "well-formed but missing")
}
