// Package tagger asks a local Ollama vision model to describe an image
// and turns the answer into tag names. Auto-tagging is best-effort: any
// failure yields an empty tag set, never an error, so uploads succeed
// whether or not the model is reachable.
package tagger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/sambooru/sambooru-server/internal/catalog"
	"github.com/sambooru/sambooru-server/internal/config"
)

// prompt asks for keywords, not prose. Space separation with underscore
// compounds keeps multi-word concepts as single tokens; a whitespace
// split would fragment them otherwise.
const prompt = "Describe this image as a short list of space-separated keywords, " +
	"joining multi-word concepts with underscores " +
	"(for example: cat blue_sky window smile). " +
	"Only output the keywords, nothing else."

// Tagger generates tag names for images via an Ollama vision model.
type Tagger struct {
	client  *http.Client
	logger  *slog.Logger
	host    string
	model   string
	timeout time.Duration
	enabled bool
}

// New creates a Tagger from configuration.
func New(cfg config.TaggerConfig, logger *slog.Logger) *Tagger {
	return &Tagger{
		client:  &http.Client{},
		logger:  logger,
		host:    cfg.Host,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		enabled: cfg.Enabled,
	}
}

// Enabled reports whether auto-tagging is configured on.
func (t *Tagger) Enabled() bool { return t.enabled }

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// TagImage returns normalized tag names for the image at path.
// Never returns an error: model failures are logged and yield nil.
func (t *Tagger) TagImage(ctx context.Context, path string) []string {
	if !t.enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	raw, err := t.generate(ctx, path)
	if err != nil {
		t.logger.Warn("auto-tagging failed",
			slog.String("path", path),
			slog.String("model", t.model),
			slog.Any("error", err),
		)
		return nil
	}

	names := catalog.SplitTokens(raw)
	t.logger.Debug("auto-tagged image",
		slog.String("path", path),
		slog.Int("tags", len(names)),
	)
	return names
}

// generate calls Ollama's /api/generate endpoint with the image inlined
// as base64.
func (t *Tagger) generate(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	body, err := json.Marshal(generateRequest{
		Model:  t.model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(data)},
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Response body

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.UnmarshalRead(resp.Body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return parsed.Response, nil
}
