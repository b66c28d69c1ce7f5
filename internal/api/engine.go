package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/asyncops/internal/engine"
	"github.com/seantiz/asyncops/internal/model"
	"github.com/seantiz/asyncops/internal/process"
)

type activeListResponse struct {
	Active []engine.ActiveProcess `json:"active"`
	Count  int                    `json:"count"`
}

type payloadTypesResponse struct {
	PayloadTypes []process.TypeInfo `json:"payload_types"`
}

// payloadTypeResponse describes one registered type with a zero-valued
// example of its payload body.
type payloadTypeResponse struct {
	process.TypeInfo
	Example model.Payload `json:"example"`
}

func (s *Server) handleEngineInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Info())
}

func (s *Server) handleListActive(w http.ResponseWriter, r *http.Request) {
	active := s.engine.ActiveProcesses()
	s.writeJSON(w, http.StatusOK, activeListResponse{Active: active, Count: len(active)})
}

func (s *Server) handleGetActive(w http.ResponseWriter, r *http.Request) {
	ap, ok := s.engine.ActiveProcess(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "active operation not found")
		return
	}
	s.writeJSON(w, http.StatusOK, ap)
}

func (s *Server) handleListPayloadTypes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, payloadTypesResponse{PayloadTypes: s.engine.RegisteredPayloads()})
}

func (s *Server) handleGetPayloadType(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	entry, ok := s.engine.Registry().Lookup(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "payload type not found")
		return
	}

	for _, info := range s.engine.RegisteredPayloads() {
		if info.PayloadType == name {
			example := entry.NewPayload()
			example.Base().PayloadType = name
			s.writeJSON(w, http.StatusOK, payloadTypeResponse{TypeInfo: info, Example: example})
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "payload type not found")
}
