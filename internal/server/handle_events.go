package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/drawcast/internal/eventbus"
)

const streamWriteTimeout = 10 * time.Second

// sseSink writes text/event-stream frames.
type sseSink struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newSSESink(w http.ResponseWriter) *sseSink {
	return &sseSink{w: w, rc: http.NewResponseController(w)}
}

func (s *sseSink) WriteEvent(_ context.Context, e eventbus.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.write("event: %s\ndata: %s\n\n", e.Kind, data)
}

func (s *sseSink) WriteKeepAlive(_ context.Context) error {
	return s.write(": ping\n\n")
}

func (s *sseSink) write(format string, args ...any) error {
	// Recorders and some wrappers cannot set deadlines; writes still work.
	if err := s.rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	if _, err := fmt.Fprintf(s.w, format, args...); err != nil {
		return err
	}
	return s.rc.Flush()
}

func handleEvents(gw *Gateway, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		if err := gw.Serve(r.Context(), newSSESink(w)); err != nil {
			logger.Debug("sse stream ended", "error", err)
		}
	}
}
