// Package media stores uploaded part photos on the local filesystem.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"github.com/nfnt/resize"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
)

const (
	thumbDir  = "thumbs"
	thumbSize = 300
	maxBytes  = 20 << 20 // Bot API file download ceiling
)

var reRef = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.jpg$`)

// FileStore writes each image under Dir with a random name and keeps a
// 300x300 JPEG thumbnail next to it when the bytes decode as an image.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, thumbDir), 0o755); err != nil {
		return nil, fmt.Errorf("media dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

// ValidRef reports whether ref is a name this store could have produced.
func ValidRef(ref string) bool { return reRef.MatchString(ref) }

func (s *FileStore) Save(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.ValidationError{Field: "photo", Value: 0, Message: "empty image"}
	}
	if len(data) > maxBytes {
		return "", domain.ValidationError{Field: "photo", Value: len(data), Message: "image too large"}
	}
	ref := uuid.NewString() + ".jpg"
	if err := writeFile(filepath.Join(s.Dir, ref), data); err != nil {
		return "", domain.StorageError("media.save", err)
	}
	if err := s.writeThumb(ref, data); err != nil {
		// The original is kept; thumbnails are regenerated on demand.
		applog.Debug(ctx, "media.thumb.skip", map[string]any{"ref": ref, "err": err.Error()})
	}
	return ref, nil
}

func (s *FileStore) Open(ref string) (io.ReadCloser, error) {
	if !ValidRef(ref) {
		return nil, domain.ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.Dir, ref))
	if os.IsNotExist(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.StorageError("media.open", err)
	}
	return f, nil
}

// Path returns the on-disk path of ref for callers that serve files directly.
func (s *FileStore) Path(ref string) (string, bool) {
	if !ValidRef(ref) {
		return "", false
	}
	p := filepath.Join(s.Dir, ref)
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// Thumb returns the thumbnail bytes for ref, building and caching it if missing.
func (s *FileStore) Thumb(ref string) ([]byte, error) {
	if !ValidRef(ref) {
		return nil, domain.ErrNotFound
	}
	if b, err := os.ReadFile(filepath.Join(s.Dir, thumbDir, ref)); err == nil {
		return b, nil
	}
	rc, err := s.Open(ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, domain.StorageError("media.thumb", err)
	}
	if err := s.writeThumb(ref, data); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.Dir, thumbDir, ref))
}

func (s *FileStore) writeThumb(ref string, data []byte) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	thumb := resize.Thumbnail(thumbSize, thumbSize, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return writeFile(filepath.Join(s.Dir, thumbDir, ref), buf.Bytes())
}

// writeFile writes through a temp file so readers never see a partial image.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".part-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
