package media

import (
	"context"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder (first frame)
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/sambooru/sambooru-server/internal/config"
	"github.com/sambooru/sambooru-server/internal/domain"
	apperrors "github.com/sambooru/sambooru-server/internal/errors"
)

// previewSize is the longest-side bound for derived previews.
const previewSize = 150

// previewQuality is the JPEG quality for previews.
const previewQuality = 80

// Processor turns accepted uploads into canonical assets and previews.
type Processor struct {
	storage    *Storage
	logger     *slog.Logger
	ffmpegPath string
}

// NewProcessor creates a Processor. ffmpeg is located at startup; without
// it video uploads are rejected but image processing still works.
func NewProcessor(storage *Storage, cfg config.TranscodeConfig, logger *slog.Logger) (*Processor, error) {
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		path, err := exec.LookPath("ffmpeg")
		if err != nil {
			logger.Warn("ffmpeg not found, video uploads will be rejected")
		}
		ffmpegPath = path
	}
	if ffmpegPath != "" {
		logger.Info("using ffmpeg", slog.String("path", ffmpegPath))
	}

	return &Processor{
		storage:    storage,
		logger:     logger,
		ffmpegPath: ffmpegPath,
	}, nil
}

// Process converts the uploaded file at srcPath into stored artifacts named
// by digest. On any failure, partially written artifacts are removed so a
// retry of the same content starts clean.
func (p *Processor) Process(ctx context.Context, srcPath, mimeType, digest string) (*Result, error) {
	f, ok := acceptedFormats[mimeType]
	if !ok {
		return nil, apperrors.UnsupportedMedia(fmt.Sprintf("unsupported media type %q", mimeType))
	}

	var (
		result *Result
		err    error
	)
	switch f.kind {
	case KindStatic:
		result, err = p.processStatic(ctx, srcPath, digest)
	case KindAnimated:
		result, err = p.processAnimated(ctx, srcPath, digest)
	case KindVideo:
		result, err = p.processVideo(ctx, srcPath, digest)
	}

	if err != nil {
		if rmErr := p.storage.Remove(digest, f.ext); rmErr != nil {
			p.logger.Warn("failed to clean up partial artifacts",
				slog.String("digest", digest),
				slog.Any("error", rmErr),
			)
		}
		return nil, err
	}

	return result, nil
}

// processStatic decodes a static image and re-encodes it as PNG.
func (p *Processor) processStatic(ctx context.Context, srcPath, digest string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := decodeImageFile(srcPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProcessing, "failed to decode image")
	}

	assetPath := p.storage.AssetPath(digest, ".png")
	out, err := os.Create(assetPath)
	if err != nil {
		return nil, fmt.Errorf("create asset file: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeProcessing, "failed to encode image")
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close asset file: %w", err)
	}

	preview, hash, err := p.writePreview(img, digest)
	if err != nil {
		return nil, err
	}

	return &Result{
		MediaType:   domain.MediaTypeImage,
		FileExt:     ".png",
		AssetPath:   assetPath,
		PreviewPath: preview,
		BlurHash:    hash,
		FramePath:   assetPath,
	}, nil
}

// processAnimated stores a GIF byte-for-byte. Re-encoding would flatten
// the animation, so the original bytes are the canonical asset; the
// preview comes from the first frame.
func (p *Processor) processAnimated(ctx context.Context, srcPath, digest string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	assetPath := p.storage.AssetPath(digest, ".gif")
	if err := copyFile(srcPath, assetPath); err != nil {
		return nil, fmt.Errorf("store animated asset: %w", err)
	}

	img, err := decodeImageFile(assetPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProcessing, "failed to decode gif")
	}

	preview, hash, err := p.writePreview(img, digest)
	if err != nil {
		return nil, err
	}

	return &Result{
		MediaType:   domain.MediaTypeImage,
		FileExt:     ".gif",
		AssetPath:   assetPath,
		PreviewPath: preview,
		BlurHash:    hash,
		FramePath:   preview,
	}, nil
}

// processVideo transcodes a video to H.264/AAC MP4 and extracts a frame
// for the preview and auto-tagging.
func (p *Processor) processVideo(ctx context.Context, srcPath, digest string) (*Result, error) {
	if p.ffmpegPath == "" {
		return nil, apperrors.UnsupportedMedia("video uploads require ffmpeg, which is not installed")
	}

	assetPath := p.storage.AssetPath(digest, ".mp4")

	args := []string{
		"-y",
		"-i", srcPath,
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p", // broadest player compatibility
		"-c:a", "aac",
		"-movflags", "+faststart",
		assetPath,
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...) //nolint:gosec // ffmpegPath is resolved at startup
	if output, err := cmd.CombinedOutput(); err != nil {
		p.logger.Warn("ffmpeg transcode failed",
			slog.String("digest", digest),
			slog.String("output", tail(string(output), 512)),
		)
		return nil, apperrors.Wrap(err, apperrors.CodeProcessing, "failed to transcode video")
	}

	// Frame from the transcoded output, not the source: if the transcode
	// produced it, we can decode it.
	framePath := filepath.Join(os.TempDir(), digest+"_frame.png")
	frameArgs := []string{
		"-y",
		"-ss", "1",
		"-i", assetPath,
		"-frames:v", "1",
		framePath,
	}
	cmd = exec.CommandContext(ctx, p.ffmpegPath, frameArgs...) //nolint:gosec // ffmpegPath is resolved at startup
	if output, err := cmd.CombinedOutput(); err != nil {
		// Videos shorter than a second have no frame at 1s; retry at the start.
		frameArgs[2] = "0"
		cmd = exec.CommandContext(ctx, p.ffmpegPath, frameArgs...) //nolint:gosec // ffmpegPath is resolved at startup
		if output2, err2 := cmd.CombinedOutput(); err2 != nil {
			p.logger.Warn("frame extraction failed",
				slog.String("digest", digest),
				slog.String("output", tail(string(output)+string(output2), 512)),
			)
			return nil, apperrors.Wrap(err2, apperrors.CodeProcessing, "failed to extract video frame")
		}
	}

	img, err := decodeImageFile(framePath)
	if err != nil {
		_ = os.Remove(framePath)
		return nil, apperrors.Wrap(err, apperrors.CodeProcessing, "failed to decode video frame")
	}

	preview, hash, err := p.writePreview(img, digest)
	if err != nil {
		_ = os.Remove(framePath)
		return nil, err
	}

	return &Result{
		MediaType:   domain.MediaTypeVideo,
		FileExt:     ".mp4",
		AssetPath:   assetPath,
		PreviewPath: preview,
		BlurHash:    hash,
		FramePath:   framePath,
	}, nil
}

// RemoveArtifacts deletes the stored asset and preview for a digest.
func (p *Processor) RemoveArtifacts(digest, ext string) error {
	return p.storage.Remove(digest, ext)
}

// CleanupFrame removes a transient frame file produced for a video.
// No-op when the frame is a stored artifact.
func (p *Processor) CleanupFrame(result *Result) {
	if result == nil || result.FramePath == "" {
		return
	}
	if result.FramePath == result.AssetPath || result.FramePath == result.PreviewPath {
		return
	}
	_ = os.Remove(result.FramePath)
}

// writePreview scales an image to fit previewSize, writes it as JPEG, and
// computes the BlurHash from the scaled pixels.
func (p *Processor) writePreview(img image.Image, digest string) (string, string, error) {
	scaled := scaleToFit(img, previewSize)

	previewPath := p.storage.PreviewPath(digest)
	out, err := os.Create(previewPath)
	if err != nil {
		return "", "", fmt.Errorf("create preview file: %w", err)
	}
	if err := jpeg.Encode(out, scaled, &jpeg.Options{Quality: previewQuality}); err != nil {
		out.Close()
		return "", "", apperrors.Wrap(err, apperrors.CodeProcessing, "failed to encode preview")
	}
	if err := out.Close(); err != nil {
		return "", "", fmt.Errorf("close preview file: %w", err)
	}

	// 4x3 components balance hash size against detail. The preview is
	// already small, so encoding is cheap.
	hash, err := blurhash.Encode(4, 3, scaled)
	if err != nil {
		p.logger.Warn("blurhash encoding failed",
			slog.String("digest", digest),
			slog.Any("error", err),
		)
		hash = ""
	}

	return previewPath, hash, nil
}

// scaleToFit scales an image so its longest side is at most size,
// preserving aspect ratio. Images already within bounds pass through.
func scaleToFit(img image.Image, size int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= size && h <= size {
		return img
	}

	var dw, dh int
	if w > h {
		dw = size
		dh = max(h*size/w, 1)
	} else {
		dh = size
		dw = max(w*size/h, 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// decodeImageFile opens and decodes an image using the registered decoders.
func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// copyFile copies src to dst, creating or truncating dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // Read-only file

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// tail returns at most the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
