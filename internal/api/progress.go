package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/asyncops/internal/model"
	"github.com/seantiz/asyncops/internal/store"
)

// handleStreamProgress streams progress updates of one operation as SSE
// "progress" events, followed by a "done" event once the operation finishes.
func (s *Server) handleStreamProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	op, err := s.engine.Operation(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, r, "get operation for progress stream", err)
		return
	}

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	// Subscribe before reading the current snapshot so no update between the
	// two is missed. A finished operation yields an already closed channel.
	var ch <-chan model.Progress
	if !op.Status.Terminal() {
		var unsub func()
		ch, unsub = s.engine.Broker().Subscribe(id)
		defer unsub()
	}

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}

	current, err := s.engine.OperationProgress(r.Context(), id)
	switch {
	case err == nil:
		if err := writeProgressEvent(w, current); err != nil {
			return
		}
	case !errors.Is(err, store.ErrNotFound):
		s.logger.Error("get progress for stream", "operation_id", id, "error", err)
	}
	flush()

	if ch == nil {
		_ = writeSSEEvent(w, "done", string(op.Status))
		flush()
		return
	}

	for {
		select {
		case p, ok := <-ch:
			if !ok {
				// Topic closed; report the status the operation was left in.
				status := "finished"
				if final, err := s.engine.Operation(r.Context(), id); err == nil {
					status = string(final.Status)
				}
				_ = writeSSEEvent(w, "done", status)
				flush()
				return
			}
			if err := writeProgressEvent(w, &p); err != nil {
				return // Write failed (e.g. client gone).
			}
			flush()
		case <-r.Context().Done():
			return // Client disconnected.
		}
	}
}

func writeProgressEvent(w http.ResponseWriter, p *model.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "event: progress\n"); err != nil {
		return err
	}
	return writeSSEData(w, string(data))
}

// writeSSEData writes a data event. Multi-line strings are split so that each
// segment gets its own "data:" prefix.
func writeSSEData(w http.ResponseWriter, line string) error {
	for seg := range strings.SplitSeq(line, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", seg); err != nil {
			return err
		}
	}
	// Blank line terminates the event.
	_, err := fmt.Fprint(w, "\n")
	return err
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
