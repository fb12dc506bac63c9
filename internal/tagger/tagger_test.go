package tagger_test

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambooru/sambooru-server/internal/config"
	"github.com/sambooru/sambooru-server/internal/tagger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, os.WriteFile(path, []byte("fake image bytes"), 0o644))
	return path
}

func newTagger(host string) *tagger.Tagger {
	return tagger.New(config.TaggerConfig{
		Enabled: true,
		Host:    host,
		Model:   "moondream",
		Timeout: 5 * time.Second,
	}, discardLogger())
}

func TestTagImage_ParsesAndNormalizesResponse(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.UnmarshalRead(r.Body, &gotBody))
		// Models occasionally slip in commas despite the prompt;
		// normalization strips them.
		_, _ = w.Write([]byte(`{"response":"Cat blue_sky, Blue_Sky cat"}`))
	}))
	defer srv.Close()

	names := newTagger(srv.URL).TagImage(context.Background(), writeTestImage(t))

	assert.Equal(t, []string{"cat", "blue_sky"}, names)
	assert.Equal(t, "moondream", gotBody["model"])
	assert.Equal(t, false, gotBody["stream"])
	images, ok := gotBody["images"].([]any)
	require.True(t, ok)
	require.Len(t, images, 1)
}

func TestTagImage_ServerErrorYieldsNoTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	names := newTagger(srv.URL).TagImage(context.Background(), writeTestImage(t))
	assert.Nil(t, names)
}

func TestTagImage_SlowModelTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(`{"response":"too late"}`))
	}))
	defer srv.Close()

	tg := tagger.New(config.TaggerConfig{
		Enabled: true,
		Host:    srv.URL,
		Model:   "moondream",
		Timeout: 20 * time.Millisecond,
	}, discardLogger())

	names := tg.TagImage(context.Background(), writeTestImage(t))
	assert.Nil(t, names)
}

func TestTagImage_UnreachableHostYieldsNoTags(t *testing.T) {
	names := newTagger("http://127.0.0.1:1").TagImage(context.Background(), writeTestImage(t))
	assert.Nil(t, names)
}

func TestTagImage_MissingFileYieldsNoTags(t *testing.T) {
	names := newTagger("http://127.0.0.1:1").TagImage(context.Background(), "/nope/missing.png")
	assert.Nil(t, names)
}

func TestTagImage_DisabledSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer srv.Close()

	tg := tagger.New(config.TaggerConfig{
		Enabled: false,
		Host:    srv.URL,
		Model:   "moondream",
		Timeout: time.Second,
	}, discardLogger())

	names := tg.TagImage(context.Background(), writeTestImage(t))
	assert.Nil(t, names)
	assert.False(t, called)
	assert.False(t, tg.Enabled())
}
