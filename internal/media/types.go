// Package media converts uploaded files into canonical stored assets and
// derived previews. Static images are re-encoded to PNG, animated GIFs are
// kept as-is, and videos are transcoded to H.264/AAC MP4 via ffmpeg. Every
// post also gets a small JPEG preview and a BlurHash placeholder.
package media

import (
	"github.com/sambooru/sambooru-server/internal/domain"
)

// Kind describes how an accepted MIME type is processed.
type Kind int

// Processing kinds.
const (
	KindStatic   Kind = iota // decode and re-encode to PNG
	KindAnimated             // stored byte-for-byte, preview from first frame
	KindVideo                // transcoded to MP4
)

// format describes one accepted upload MIME type.
type format struct {
	kind Kind
	ext  string // extension of the canonical asset
}

// acceptedFormats is the upload allow-list. Anything else is rejected
// before any processing happens.
var acceptedFormats = map[string]format{
	"image/jpeg":      {kind: KindStatic, ext: ".png"},
	"image/png":       {kind: KindStatic, ext: ".png"},
	"image/webp":      {kind: KindStatic, ext: ".png"},
	"image/gif":       {kind: KindAnimated, ext: ".gif"},
	"video/mp4":       {kind: KindVideo, ext: ".mp4"},
	"video/webm":      {kind: KindVideo, ext: ".mp4"},
	"video/quicktime": {kind: KindVideo, ext: ".mp4"},
}

// Accepts reports whether the given MIME type is on the upload allow-list.
func Accepts(mimeType string) bool {
	_, ok := acceptedFormats[mimeType]
	return ok
}

// Result describes the stored artifacts produced from one upload.
type Result struct {
	MediaType   domain.MediaType
	FileExt     string // canonical asset extension
	AssetPath   string // canonical asset on disk
	PreviewPath string // derived JPEG preview
	BlurHash    string // compact placeholder hash, "" for videos we could not frame

	// FramePath is a still image suitable for auto-tagging: the asset
	// itself for images, an extracted frame for videos.
	FramePath string
}
