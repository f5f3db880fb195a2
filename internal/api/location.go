package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"shiptrack/internal/geo"
)

// LocationHandler handles GET /v1/locations/{code}.
func (s *Server) LocationHandler(w http.ResponseWriter, r *http.Request) {
	if s.Geo == nil {
		writeProblem(w, http.StatusNotImplemented, "Location lookup unavailable", "no location source configured", r.URL.Path)
		return
	}
	code := geo.NormalizeCode(chi.URLParam(r, "code"))
	c, ok, err := s.Geo.Lookup(r.Context(), code)
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Location lookup failed", err.Error(), r.URL.Path)
		return
	}
	if !ok {
		writeProblem(w, http.StatusNotFound, "Location not found", code, r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": code, "coordinates": c})
}
