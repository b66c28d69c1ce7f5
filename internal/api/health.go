package api

import (
	"net/http"
)

type healthResponse struct {
	Status  string `json:"status"`
	Engine  string `json:"engine"`
	Storage string `json:"storage"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	info := s.engine.Info()
	resp := healthResponse{Status: "ok", Engine: "running", Storage: info.StorageType}
	if !info.Running {
		resp.Engine = "stopped"
	}
	s.writeJSON(w, http.StatusOK, resp)
}
