package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sambooru/sambooru-server/internal/catalog"
	apperrors "github.com/sambooru/sambooru-server/internal/errors"
	"github.com/sambooru/sambooru-server/internal/http/response"
	"github.com/sambooru/sambooru-server/internal/id"
	"github.com/sambooru/sambooru-server/internal/ingest"
	"github.com/sambooru/sambooru-server/internal/media"
	"github.com/sambooru/sambooru-server/internal/progress"
)

// maxUploadBytes caps one upload's size.
const maxUploadBytes = 512 << 20 // 512 MiB

// handleUpload accepts a multipart upload and streams ingestion progress
// back as Server-Sent Events. Validation failures are reported as plain
// JSON errors before the response switches to SSE; once streaming starts,
// failures arrive as terminal pipeline events.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if !s.uploads.Allow(user.ID) {
		response.TooManyRequests(w, "upload rate limit exceeded, try again later", s.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "a file is required", s.logger)
		return
	}
	defer file.Close() //nolint:errcheck // Multipart part

	userTags := r.FormValue("tags")
	if len(catalog.SplitTokens(userTags)) == 0 {
		response.BadRequest(w, "at least one tag is required", s.logger)
		return
	}

	mimeType, err := detectMimeType(file, header.Header.Get("Content-Type"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if !media.Accepts(mimeType) {
		response.HandleError(w,
			apperrors.UnsupportedMedia(fmt.Sprintf("unsupported media type %q", mimeType)),
			s.logger)
		return
	}

	tempPath, err := s.saveUpload(file)
	if err != nil {
		s.logger.Error("failed to save upload", "error", err)
		response.InternalError(w, "failed to receive upload", s.logger)
		return
	}

	// Validation passed. Switch to SSE; the temp file now belongs to the
	// pipeline, which removes it when the run ends.
	streamer, err := progress.NewStreamer(w, s.logger)
	if err != nil {
		_ = os.Remove(tempPath)
		response.InternalError(w, "streaming not supported", s.logger)
		return
	}

	events := s.pipeline.Ingest(ingest.Upload{
		TempPath: tempPath,
		MimeType: mimeType,
		UserTags: userTags,
		Category: r.FormValue("category"),
		Uploader: user,
	})

	streamer.Stream(r.Context().Done(), events)
}

// detectMimeType sniffs the upload's content, falling back to the
// declared type when sniffing is inconclusive (e.g. QuickTime, which the
// sniffer reports as octet-stream).
func detectMimeType(file io.ReadSeeker, declared string) (string, error) {
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read upload head: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	sniffed := http.DetectContentType(buf[:n])
	if media.Accepts(sniffed) {
		return sniffed, nil
	}
	return declared, nil
}

// saveUpload copies the multipart file to the transient uploads directory.
func (s *Server) saveUpload(file io.Reader) (string, error) {
	dir := s.cfg.UploadsPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}

	name, err := id.Generate("up")
	if err != nil {
		return "", fmt.Errorf("generate upload id: %w", err)
	}

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return path, nil
}
