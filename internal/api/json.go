package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"shiptrack/internal/ingest"
	"shiptrack/internal/metrics"
)

// maxBodyBytes bounds uploaded shipment documents.
const maxBodyBytes = 16 << 20

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeInputError reports a rejected shipment document. Invalid JSON is a
// 400; well-formed JSON of the wrong shape is a 422.
func writeInputError(w http.ResponseWriter, r *http.Request, err error) {
	var ie *ingest.InputError
	if !errors.As(err, &ie) {
		writeProblem(w, http.StatusBadRequest, "Invalid document", err.Error(), r.URL.Path)
		return
	}
	metrics.ShipmentsRejected.WithLabelValues(ie.Kind).Inc()
	status, title := http.StatusUnprocessableEntity, "Unrecognized shipment document"
	if ie.Kind == ingest.KindInvalidJSON {
		status, title = http.StatusBadRequest, "Invalid JSON"
	}
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   ie.Err.Error(),
		Instance: r.URL.Path,
		Kind:     ie.Kind,
	})
}

func readBody(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	return b, nil
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}
