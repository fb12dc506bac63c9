// Package progress streams ingestion pipeline events to a client over
// Server-Sent Events.
package progress

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sambooru/sambooru-server/internal/ingest"
)

// writeDeadline bounds each event write so a stalled client cannot hang
// the connection.
const writeDeadline = 60 * time.Second

// keepAliveInterval is how often a heartbeat goes out while the pipeline
// is between stages. Slow stages (transcodes, model calls) can run for
// minutes without emitting, and intermediaries drop connections that go
// silent.
const keepAliveInterval = 30 * time.Second

// Streamer writes one ingestion run's events to an HTTP response as SSE.
type Streamer struct {
	w         http.ResponseWriter
	rc        *http.ResponseController
	logger    *slog.Logger
	keepAlive time.Duration
}

// NewStreamer switches the response into SSE mode and flushes headers.
// Must be called before anything is written to w.
func NewStreamer(w http.ResponseWriter, logger *slog.Logger) (*Streamer, error) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("streaming not supported: %w", err)
	}

	return &Streamer{w: w, rc: rc, logger: logger, keepAlive: keepAliveInterval}, nil
}

// Stream forwards events until the channel closes or the client goes
// away, interleaving keep-alive heartbeats while the pipeline is quiet.
// The pipeline keeps running either way; a departed client just stops
// receiving updates.
func (s *Streamer) Stream(done <-chan struct{}, events <-chan ingest.Event) {
	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			s.logger.Debug("client disconnected during upload stream")
			return
		case <-ticker.C:
			if err := s.sendKeepAlive(); err != nil {
				s.logger.Debug("failed to write keep-alive", slog.Any("error", err))
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := s.Send(event); err != nil {
				s.logger.Debug("failed to write upload event", slog.Any("error", err))
				return
			}
			ticker.Reset(s.keepAlive)
		}
	}
}

// Send writes one event in SSE framing and flushes it.
func (s *Streamer) Send(event ingest.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.writeFrame(string(event.Stage), data)
}

// sendKeepAlive writes a heartbeat event carrying no payload.
func (s *Streamer) sendKeepAlive() error {
	return s.writeFrame("keep_alive", []byte("{}"))
}

// writeFrame writes one SSE frame and flushes it.
func (s *Streamer) writeFrame(name string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		return err
	}

	// Reset the write deadline after each successful write.
	if err := s.rc.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		s.logger.Debug("failed to set write deadline", slog.Any("error", err))
	}

	return nil
}
