package media_test

import (
	"context"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG decoder for preview checks
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambooru/sambooru-server/internal/config"
	"github.com/sambooru/sambooru-server/internal/domain"
	apperrors "github.com/sambooru/sambooru-server/internal/errors"
	"github.com/sambooru/sambooru-server/internal/media"
)

func setupProcessor(t *testing.T) (*media.Processor, *media.Storage) {
	t.Helper()

	base := t.TempDir()
	storage, err := media.NewStorage(
		filepath.Join(base, "images"),
		filepath.Join(base, "thumbnails"),
	)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	proc, err := media.NewProcessor(storage, config.TranscodeConfig{}, logger)
	require.NoError(t, err)

	return proc, storage
}

// writeTestPNG writes a solid-color PNG of the given size and returns its path.
func writeTestPNG(t *testing.T, dir string, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	path := filepath.Join(dir, "upload.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	return path
}

func TestAccepts(t *testing.T) {
	for _, mime := range []string{
		"image/jpeg", "image/png", "image/webp", "image/gif",
		"video/mp4", "video/webm", "video/quicktime",
	} {
		assert.True(t, media.Accepts(mime), mime)
	}

	for _, mime := range []string{
		"image/bmp", "image/tiff", "application/pdf", "text/html", "",
	} {
		assert.False(t, media.Accepts(mime), mime)
	}
}

func TestProcess_StaticImage(t *testing.T) {
	proc, storage := setupProcessor(t)
	src := writeTestPNG(t, t.TempDir(), 400, 300)

	result, err := proc.Process(context.Background(), src, "image/png", "digest1")
	require.NoError(t, err)

	assert.Equal(t, domain.MediaTypeImage, result.MediaType)
	assert.Equal(t, ".png", result.FileExt)
	assert.Equal(t, storage.AssetPath("digest1", ".png"), result.AssetPath)
	assert.Equal(t, result.AssetPath, result.FramePath)
	assert.NotEmpty(t, result.BlurHash)

	// Asset and preview exist on disk.
	_, err = os.Stat(result.AssetPath)
	require.NoError(t, err)
	_, err = os.Stat(result.PreviewPath)
	require.NoError(t, err)

	// Preview fits within the bound and keeps aspect ratio.
	f, err := os.Open(result.PreviewPath)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 150, cfg.Width)
	assert.Equal(t, 112, cfg.Height)
}

func TestProcess_SmallImageNotUpscaled(t *testing.T) {
	proc, _ := setupProcessor(t)
	src := writeTestPNG(t, t.TempDir(), 40, 30)

	result, err := proc.Process(context.Background(), src, "image/png", "digest2")
	require.NoError(t, err)

	f, err := os.Open(result.PreviewPath)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestProcess_UnsupportedType(t *testing.T) {
	proc, _ := setupProcessor(t)

	_, err := proc.Process(context.Background(), "whatever", "application/pdf", "digest3")
	require.ErrorIs(t, err, apperrors.ErrUnsupportedMedia)
}

func TestProcess_CorruptImageCleansUp(t *testing.T) {
	proc, storage := setupProcessor(t)

	src := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(src, []byte("not a png at all"), 0o644))

	_, err := proc.Process(context.Background(), src, "image/png", "digest4")
	require.ErrorIs(t, err, apperrors.ErrProcessing)

	// No partial artifacts left behind.
	_, err = os.Stat(storage.AssetPath("digest4", ".png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(storage.PreviewPath("digest4"))
	assert.True(t, os.IsNotExist(err))
}

func TestStorage_RemoveMissingIsNoError(t *testing.T) {
	_, storage := setupProcessor(t)

	require.NoError(t, storage.Remove("never_stored", ".png"))
}
