package api

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"shiptrack/internal/docstore"
	"shiptrack/internal/session"
)

type docStoreQuery struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Session string `json:"session,omitempty"`
	Slot    string `json:"slot,omitempty"`
}

// DocStoreQueryHandler handles POST /v1/docstore/query. The document found
// is returned as is; when a session is named it is also loaded into slot.
func (s *Server) DocStoreQueryHandler(w http.ResponseWriter, r *http.Request) {
	if s.DocStore == nil {
		writeProblem(w, http.StatusNotImplemented, "Document store unavailable", errNoDocStore.Error(), r.URL.Path)
		return
	}
	var q docStoreQuery
	if err := decodeJSON(r, &q); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if q.Value == "" {
		writeProblem(w, http.StatusBadRequest, "Missing value", "value is required", r.URL.Path)
		return
	}
	if !slices.Contains(docstore.Fields, q.Field) {
		writeProblem(w, http.StatusBadRequest, "Invalid field", "field must be one of "+strings.Join(docstore.Fields, ", "), r.URL.Path)
		return
	}
	if !s.DocStore.Connected() {
		if err := s.DocStore.Connect(r.Context()); err != nil {
			writeProblem(w, http.StatusBadGateway, "Document store connect failed", err.Error(), r.URL.Path)
			return
		}
	}
	doc, err := s.DocStore.Query(r.Context(), q.Field, q.Value)
	if err != nil {
		var he *docstore.HTTPError
		switch {
		case errors.Is(err, docstore.ErrNoDocument):
			writeProblem(w, http.StatusNotFound, "No document found", q.Field+"="+q.Value, r.URL.Path)
		case errors.As(err, &he):
			writeProblem(w, http.StatusBadGateway, "Document store error", he.Error(), r.URL.Path)
		default:
			writeProblem(w, http.StatusBadGateway, "Document store query failed", err.Error(), r.URL.Path)
		}
		return
	}
	if q.Session == "" {
		writeJSON(w, http.StatusOK, map[string]any{"document": doc})
		return
	}
	sess, err := s.Sessions.Get(q.Session)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Session not found", err.Error(), r.URL.Path)
		return
	}
	slot, err := session.ParseSlot(q.Slot)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Unknown slot", err.Error(), r.URL.Path)
		return
	}
	s.loadDocument(w, r, sess, slot, doc, true)
}
