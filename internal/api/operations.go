package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/asyncops/internal/model"
	"github.com/seantiz/asyncops/internal/store"
)

const (
	defaultLookback  = 7 * 24 * time.Hour
	defaultLookahead = 24 * time.Hour
)

type progressHistoryResponse struct {
	OperationID string            `json:"operation_id"`
	Progress    []*model.Progress `json:"progress"`
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	q, err := parseOperationQuery(r, time.Now().UTC())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.engine.Operations(r.Context(), q)
	if err != nil {
		s.writeEngineError(w, r, "list operations", err)
		return
	}
	if page.Operations == nil {
		page.Operations = []*model.Operation{}
	}
	s.writeJSON(w, http.StatusOK, page)
}

// parseOperationQuery reads the listing filters. The date window defaults to
// the last seven days through tomorrow.
func parseOperationQuery(r *http.Request, now time.Time) (store.OperationQuery, error) {
	values := r.URL.Query()
	q := store.OperationQuery{
		From:      now.Add(-defaultLookback),
		To:        now.Add(defaultLookahead),
		OwnerID:   values.Get("owner_id"),
		Search:    values.Get("search"),
		Ascending: !parseBoolQuery(r, "desc", true),
		Page:      parseIntQuery(r, "page", 1),
		PageSize:  parseIntQuery(r, "page_size", 0),
	}

	for key, dst := range map[string]*time.Time{"start_date": &q.From, "end_date": &q.To} {
		v := values.Get(key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, fmt.Errorf("invalid %s: expected RFC 3339 timestamp", key)
		}
		*dst = t.UTC()
	}
	if q.To.Before(q.From) {
		return q, fmt.Errorf("end_date is before start_date")
	}

	for _, raw := range values["status"] {
		for part := range strings.SplitSeq(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			st, err := model.ParseStatus(part)
			if err != nil {
				return q, err
			}
			q.Statuses = append(q.Statuses, st)
		}
	}

	return q.Normalize(), nil
}

func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	op, err := s.engine.Operation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, "get operation", err)
		return
	}
	s.writeJSON(w, http.StatusOK, op)
}

func (s *Server) handleGetOperationPayload(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.OperationPayload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, "get operation payload", err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetOperationProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.OperationProgress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, "get operation progress", err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetProgressHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.engine.Operation(r.Context(), id); err != nil {
		s.writeEngineError(w, r, "get operation", err)
		return
	}

	history, err := s.engine.OperationProgressHistory(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, r, "get progress history", err)
		return
	}
	if history == nil {
		history = []*model.Progress{}
	}
	s.writeJSON(w, http.StatusOK, progressHistoryResponse{OperationID: id, Progress: history})
}

func (s *Server) handleGetOperationResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.OperationResult(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, "get operation result", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetPayload(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Payload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, "get payload", err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetPayloadProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.PayloadProgress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, "get payload progress", err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}
