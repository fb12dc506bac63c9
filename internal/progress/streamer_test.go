package progress

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambooru/sambooru-server/internal/ingest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewStreamer_SetsHeaders(t *testing.T) {
	w := httptest.NewRecorder()

	_, err := NewStreamer(w, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))
}

func TestSend_WritesSSEFraming(t *testing.T) {
	w := httptest.NewRecorder()
	s, err := NewStreamer(w, discardLogger())
	require.NoError(t, err)

	require.NoError(t, s.Send(ingest.Event{Stage: ingest.StageHashing}))

	body := w.Body.String()
	assert.Contains(t, body, "event: hashing\n")
	assert.Contains(t, body, `data: {"stage":"hashing"}`)
	assert.Contains(t, body, "\n\n")
}

func TestStream_ForwardsUntilClose(t *testing.T) {
	w := httptest.NewRecorder()
	s, err := NewStreamer(w, discardLogger())
	require.NoError(t, err)

	events := make(chan ingest.Event, 3)
	events <- ingest.Event{Stage: ingest.StageReceived}
	events <- ingest.Event{Stage: ingest.StageCommitted, PostID: "7"}
	close(events)

	done := make(chan struct{})
	s.Stream(done, events)

	body := w.Body.String()
	assert.Contains(t, body, "event: received")
	assert.Contains(t, body, "event: committed")
	assert.Contains(t, body, `"post_id":"7"`)
}

func TestStream_SendsKeepAliveWhileQuiet(t *testing.T) {
	w := httptest.NewRecorder()
	s, err := NewStreamer(w, discardLogger())
	require.NoError(t, err)
	s.keepAlive = 10 * time.Millisecond

	events := make(chan ingest.Event) // Open and empty: a quiet stage
	done := make(chan struct{})

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		s.Stream(done, events)
	}()

	time.Sleep(100 * time.Millisecond)
	close(done)
	<-finished

	assert.Contains(t, w.Body.String(), "event: keep_alive\n")
}

func TestStream_StopsWhenClientGone(t *testing.T) {
	w := httptest.NewRecorder()
	s, err := NewStreamer(w, discardLogger())
	require.NoError(t, err)

	events := make(chan ingest.Event) // Unbuffered, nothing will arrive
	done := make(chan struct{})
	close(done)

	// Must return instead of blocking on the event channel.
	s.Stream(done, events)
}
