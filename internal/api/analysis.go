package api

import (
	"errors"
	"net/http"
	"strconv"

	"shiptrack/internal/alerts"
	"shiptrack/internal/geo"
	"shiptrack/internal/model"
	"shiptrack/internal/session"
)

// analysis derives the analysis of the session named in the path with the
// thresholds from the query, falling back to the session's own. It writes
// the problem response itself and returns nil on failure.
func (s *Server) analysis(w http.ResponseWriter, r *http.Request) (*session.Session, *session.Analysis) {
	sess, ok := s.session(w, r)
	if !ok {
		return nil, nil
	}
	return sess, s.analyze(w, r, sess)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, sess *session.Session) *session.Analysis {
	t, err := thresholdsFromQuery(r, sess.Thresholds())
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid threshold", err.Error(), r.URL.Path)
		return nil
	}
	a, err := sess.AnalyzeWith(t)
	if err != nil {
		if errors.Is(err, session.ErrNoPrimary) {
			writeProblem(w, http.StatusConflict, "No primary shipment", "load a primary shipment first", r.URL.Path)
			return nil
		}
		writeProblem(w, http.StatusInternalServerError, "Analysis failed", err.Error(), r.URL.Path)
		return nil
	}
	return a
}

func thresholdsFromQuery(r *http.Request, t alerts.Thresholds) (alerts.Thresholds, error) {
	q := r.URL.Query()
	for name, dst := range map[string]*float64{"polHours": &t.POLDepartureHours, "podHours": &t.PODArrivalHours} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return t, errors.New(name + " must be a non-negative number")
		}
		*dst = f
	}
	return t, nil
}

func (s *Server) AnalysisHandler(w http.ResponseWriter, r *http.Request) {
	if _, a := s.analysis(w, r); a != nil {
		writeJSON(w, http.StatusOK, a)
	}
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if _, a := s.analysis(w, r); a != nil {
		writeJSON(w, http.StatusOK, a.Status)
	}
}

func (s *Server) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	if _, a := s.analysis(w, r); a != nil {
		writeJSON(w, http.StatusOK, a.Summary)
	}
}

type routeResponse struct {
	Route         []model.PortNode     `json:"route"`
	VesselChanges []model.VesselChange `json:"vesselChanges,omitempty"`
	DistanceKm    *float64             `json:"distanceKm,omitempty"`
	Committed     *bool                `json:"committed,omitempty"`
}

// RouteHandler returns the port sequence. Coordinates committed by the
// latest route generation are included when present. With coords=1 every
// node is resolved through the location source before responding; the
// result is committed to the session only if no newer change happened
// meanwhile.
func (s *Server) RouteHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	coords := wantCoords(r)
	if coords && s.Geo == nil {
		writeProblem(w, http.StatusNotImplemented, "Location lookup unavailable", "no location source configured", r.URL.Path)
		return
	}
	// The generation is taken before the records are read.
	var token uint64
	if coords {
		token = sess.Routes.Begin()
	}
	a := s.analyze(w, r, sess)
	if a == nil {
		return
	}
	resp := routeResponse{Route: a.Route, VesselChanges: a.VesselChanges}
	if resp.Route == nil {
		resp.Route = []model.PortNode{}
	}

	if !coords {
		if nodes, ok := sess.Routes.Latest(); ok {
			dist := geo.RouteDistanceKm(nodes)
			resp.Route, resp.DistanceKm = nodes, &dist
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	nodes, err := geo.ResolveRoute(r.Context(), s.Geo, a.Route, sessionLogger(s.Logger, sess.ID))
	if err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Route resolution cancelled", err.Error(), r.URL.Path)
		return
	}
	committed := sess.Routes.Commit(token, nodes)
	dist := geo.RouteDistanceKm(nodes)
	resp.Route, resp.DistanceKm, resp.Committed = nodes, &dist, &committed
	writeJSON(w, http.StatusOK, resp)
}

func wantCoords(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("coords"))
	return v
}

func (s *Server) MilestonesHandler(w http.ResponseWriter, r *http.Request) {
	if _, a := s.analysis(w, r); a != nil {
		writeJSON(w, http.StatusOK, map[string]any{"milestones": nonNilSlice(a.Milestones)})
	}
}

func (s *Server) TimelineHandler(w http.ResponseWriter, r *http.Request) {
	if _, a := s.analysis(w, r); a != nil {
		writeJSON(w, http.StatusOK, a.Timeline)
	}
}

func (s *Server) ComparisonHandler(w http.ResponseWriter, r *http.Request) {
	if _, a := s.analysis(w, r); a != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"compared":    a.Compared,
			"differences": nonNilSlice(a.Differences),
		})
	}
}

func (s *Server) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	if _, a := s.analysis(w, r); a != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"compared": a.Compared,
			"alerts":   nonNilSlice(a.Alerts),
		})
	}
}

// InsightsHandler returns delay predictions for the primary shipment.
func (s *Server) InsightsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	rec, ok := sess.Get(session.SlotPrimary)
	if !ok {
		writeProblem(w, http.StatusConflict, "No primary shipment", "load a primary shipment first", r.URL.Path)
		return
	}
	enriched := s.Predictor.Enrich(rec)
	writeJSON(w, http.StatusOK, map[string]any{
		"insights": enriched.Insights,
		"events":   enriched.Events,
	})
}

func nonNilSlice[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
