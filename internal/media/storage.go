package media

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage maps content digests to asset and preview paths on disk.
// Files are named by digest, so the layout itself is deduplicated.
type Storage struct {
	imagesDir     string
	thumbnailsDir string
}

// NewStorage creates the asset directories if they do not exist.
func NewStorage(imagesDir, thumbnailsDir string) (*Storage, error) {
	for _, dir := range []string{imagesDir, thumbnailsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create media directory: %w", err)
		}
	}
	return &Storage{imagesDir: imagesDir, thumbnailsDir: thumbnailsDir}, nil
}

// AssetPath returns the canonical asset path for a digest and extension.
func (s *Storage) AssetPath(digest, ext string) string {
	return filepath.Join(s.imagesDir, digest+ext)
}

// PreviewPath returns the preview path for a digest. Previews are always
// JPEG.
func (s *Storage) PreviewPath(digest string) string {
	return filepath.Join(s.thumbnailsDir, digest+".jpg")
}

// Remove deletes the asset and preview for a digest. Missing files are
// not an error; deletion must succeed after partial processing.
func (s *Storage) Remove(digest, ext string) error {
	var firstErr error
	for _, path := range []string{s.AssetPath(digest, ext), s.PreviewPath(digest)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
