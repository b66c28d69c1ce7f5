package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/asyncops/internal/engine"
	"github.com/seantiz/asyncops/internal/process"
)

const defaultCancelTimeoutMS = 30000

// payloadEnvelope picks the type name out of a publish body when the
// payload_type query parameter is absent.
type payloadEnvelope struct {
	PayloadType string `json:"payload_type"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	typeName := r.URL.Query().Get("payload_type")
	if typeName == "" && len(body) > 0 {
		var env payloadEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		typeName = env.PayloadType
	}
	if typeName == "" {
		s.writeError(w, http.StatusBadRequest, "payload_type is required")
		return
	}

	payload, err := s.engine.Registry().Decode(typeName, body)
	if err != nil {
		if errors.Is(err, process.ErrUnknownPayloadType) {
			s.writeEngineError(w, r, "decode payload", err)
			return
		}
		setOutcome(r, outcomeInvalidPayload)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payload.Base().PayloadType = typeName

	op, err := s.engine.Publish(r.Context(), payload, engine.PublishOptions{
		WaitForQueueSpace:  parseBoolQuery(r, "wait_for_queue_space", false),
		WaitForPayloadSlot: parseBoolQuery(r, "wait_for_payload_slot", false),
	})
	if err != nil {
		s.writeEngineError(w, r, "publish operation", err)
		return
	}

	s.writeJSON(w, http.StatusOK, op)
}

// cancelResponse reports a cancel request and, when available, the
// operation's stored state afterwards.
type cancelResponse struct {
	OperationID string `json:"operation_id"`
	Canceled    bool   `json:"canceled"`
	Waited      bool   `json:"waited"`
	Status      string `json:"status,omitempty"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	timeoutMS := parseIntQuery(r, "timeout_ms", defaultCancelTimeoutMS)
	if timeoutMS < 0 {
		timeoutMS = defaultCancelTimeoutMS
	}
	opts := engine.CancelOptions{
		ThrowIfCancellationRequested: parseBoolQuery(r, "throw_if_cancellation_requested", false),
		WaitForCompletion:            parseBoolQuery(r, "wait_for_completion", false),
		Timeout:                      time.Duration(timeoutMS) * time.Millisecond,
	}

	if err := s.engine.Cancel(r.Context(), id, opts); err != nil {
		s.writeEngineError(w, r, "cancel operation", err)
		return
	}

	resp := cancelResponse{OperationID: id, Canceled: true, Waited: opts.WaitForCompletion}
	if op, err := s.engine.Operation(r.Context(), id); err == nil {
		resp.Status = string(op.Status)
	}
	s.writeJSON(w, http.StatusOK, resp)
}
