package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shiptrack/internal/model"
	"shiptrack/internal/store"
)

func (s *Server) ListHistoryHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.History.List(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List history failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNilSlice(items)})
}

func (s *Server) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.historyEntry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) DeleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.History.Remove(r.Context(), chi.URLParam(r, "key")); err != nil {
		s.historyProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.History.Clear(r.Context()); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Clear history failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadHistoryHandler handles POST /v1/history/{key}/load?session=&slot=.
// Without a session parameter a new session is created.
func (s *Server) LoadHistoryHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.historyEntry(w, r)
	if !ok {
		return
	}
	slot, ok := slotParam(w, r, r.URL.Query().Get("slot"))
	if !ok {
		return
	}
	id := r.URL.Query().Get("session")
	if id == "" {
		s.loadDocument(w, r, s.Sessions.Create(), slot, e.RawData, false)
		return
	}
	sess, err := s.Sessions.Get(id)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Session not found", err.Error(), r.URL.Path)
		return
	}
	s.loadDocument(w, r, sess, slot, e.RawData, false)
}

func (s *Server) historyEntry(w http.ResponseWriter, r *http.Request) (model.HistoryEntry, bool) {
	e, err := s.History.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.historyProblem(w, r, err)
		return model.HistoryEntry{}, false
	}
	return e, true
}

func (s *Server) historyProblem(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "History entry not found", "", r.URL.Path)
		return
	}
	writeProblem(w, http.StatusInternalServerError, "History lookup failed", err.Error(), r.URL.Path)
}
