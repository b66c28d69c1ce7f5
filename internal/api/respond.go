package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/seantiz/asyncops/internal/engine"
	"github.com/seantiz/asyncops/internal/process"
	"github.com/seantiz/asyncops/internal/store"
)

const maxBodySize = 1 << 20 // 1 MB

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// Outcome labels for aos_http_requests_total.
const (
	outcomeOK             = "ok"
	outcomeClientError    = "client_error"
	outcomeInternal       = "internal"
	outcomeQueueFull      = "queue_full"
	outcomeTypeLimit      = "type_limit"
	outcomeNotFound       = "not_found"
	outcomeUnknownType    = "unknown_type"
	outcomeInvalidPayload = "invalid_payload"
	outcomeCancelTimeout  = "cancel_timeout"
	outcomeStopped        = "stopped"
	outcomeStorageFull    = "storage_full"
)

// errorClass maps one engine or storage sentinel to a response. The first
// match wins.
type errorClass struct {
	target  error
	status  int
	outcome string
}

var errorClasses = []errorClass{
	{engine.ErrQueueFull, http.StatusTooManyRequests, outcomeQueueFull},
	{engine.ErrPayloadTypeLimitExceeded, http.StatusTooManyRequests, outcomeTypeLimit},
	{engine.ErrOperationNotFound, http.StatusNotFound, outcomeNotFound},
	{store.ErrNotFound, http.StatusNotFound, outcomeNotFound},
	{engine.ErrProcessNotFound, http.StatusBadRequest, outcomeUnknownType},
	{process.ErrUnknownPayloadType, http.StatusBadRequest, outcomeUnknownType},
	{engine.ErrInvalidPayload, http.StatusBadRequest, outcomeInvalidPayload},
	{engine.ErrCancelTimeout, http.StatusRequestTimeout, outcomeCancelTimeout},
	{engine.ErrEngineStopped, http.StatusServiceUnavailable, outcomeStopped},
	{store.ErrLimitReached, http.StatusInsufficientStorage, outcomeStorageFull},
}

func classify(err error) (int, string) {
	for _, c := range errorClasses {
		if errors.Is(err, c.target) {
			return c.status, c.outcome
		}
	}
	return http.StatusInternalServerError, outcomeInternal
}

// writeEngineError maps an engine or storage error onto a status code and
// records its outcome. Server-side failures are logged under op and
// reported without detail.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, outcome := classify(err)
	setOutcome(r, outcome)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op, "error", err, "request_id", middleware.GetReqID(r.Context()))
		if status == http.StatusServiceUnavailable {
			s.writeError(w, status, err.Error())
			return
		}
		s.writeError(w, status, "failed to "+op)
		return
	}
	s.writeError(w, status, err.Error())
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolQuery parses a boolean query parameter with a default value.
func parseBoolQuery(r *http.Request, key string, defaultVal bool) bool {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return v
}
