package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"shiptrack/internal/alerts"
	"shiptrack/internal/geo"
	"shiptrack/internal/ingest"
	"shiptrack/internal/metrics"
	"shiptrack/internal/model"
	"shiptrack/internal/mq"
	"shiptrack/internal/session"
	"shiptrack/internal/store"
)

// Event types pushed on session streams.
const (
	EventAnalysisUpdated = "analysis.updated"
	EventRouteResolved   = "route.resolved"
	EventSessionDeleted  = "session.deleted"
)

// routeResolveTimeout bounds the background coordinate resolution started
// after each change.
const routeResolveTimeout = 10 * time.Second

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	type pinger interface{ Ping(ctx context.Context) error }
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	for _, dep := range []any{s.History, s.Broker} {
		if p, ok := dep.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type sessionInfo struct {
	ID           string            `json:"id"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Version      uint64            `json:"version"`
	HasPrimary   bool              `json:"hasPrimary"`
	HasSecondary bool              `json:"hasSecondary"`
	Thresholds   alerts.Thresholds `json:"thresholds"`
}

func describeSession(sess *session.Session) sessionInfo {
	_, p := sess.Get(session.SlotPrimary)
	_, sec := sess.Get(session.SlotSecondary)
	return sessionInfo{
		ID:           sess.ID,
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt(),
		Version:      sess.Version(),
		HasPrimary:   p,
		HasSecondary: sec,
		Thresholds:   sess.Thresholds(),
	}
}

// session resolves the {id} path parameter, writing a 404 when unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Session not found", err.Error(), r.URL.Path)
		return nil, false
	}
	return sess, true
}

func slotParam(w http.ResponseWriter, r *http.Request, raw string) (session.Slot, bool) {
	slot, err := session.ParseSlot(raw)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Unknown slot", err.Error(), r.URL.Path)
		return "", false
	}
	return slot, true
}

func (s *Server) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Create()
	s.Logger.Info().Str("session", sess.ID).Msg("session created")
	writeJSON(w, http.StatusCreated, describeSession(sess))
}

func (s *Server) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	items := []sessionInfo{}
	for _, sess := range s.Sessions.List() {
		items = append(items, describeSession(sess))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, describeSession(sess))
}

func (s *Server) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Delete(id); err != nil {
		writeProblem(w, http.StatusNotFound, "Session not found", err.Error(), r.URL.Path)
		return
	}
	s.forgetSession(id)
	s.Broker.Publish(id, SSEEvent{Type: EventSessionDeleted, Data: map[string]any{"sessionId": id}})
	w.WriteHeader(http.StatusNoContent)
}

// LoadSlotHandler handles PUT /v1/sessions/{id}/{slot}. The body is a raw
// provider document or a display record; a rejected document leaves the
// slot unchanged.
func (s *Server) LoadSlotHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	slot, ok := slotParam(w, r, chi.URLParam(r, "slot"))
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeProblem(w, http.StatusRequestEntityTooLarge, "Body too large", err.Error(), r.URL.Path)
		return
	}
	s.loadDocument(w, r, sess, slot, body, true)
}

// loadDocument parses data into slot and writes the load result. Documents
// loaded from history are not recorded again.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request, sess *session.Session, slot session.Slot, data []byte, remember bool) {
	rec, format, err := ingest.Parse(data)
	if err != nil {
		writeInputError(w, r, err)
		return
	}
	sess.Set(slot, rec)
	metrics.ShipmentsLoaded.WithLabelValues(string(format), string(slot)).Inc()
	logger := sessionLogger(s.Logger, sess.ID)
	logger.Info().
		Str("slot", string(slot)).
		Str("format", string(format)).
		Int("events", len(rec.Events)).
		Msg("shipment loaded")

	if remember {
		s.saveHistory(r.Context(), data)
	}
	a := s.afterChange(r.Context(), sess)

	resp := map[string]any{
		"session": describeSession(sess),
		"slot":    slot,
		"format":  format,
	}
	if a != nil {
		resp["analysis"] = a
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) ClearSlotHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	slot, ok := slotParam(w, r, chi.URLParam(r, "slot"))
	if !ok {
		return
	}
	sess.ClearSlot(slot)
	s.afterChange(r.Context(), sess)
	writeJSON(w, http.StatusOK, describeSession(sess))
}

func (s *Server) SwapHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Swap()
	s.afterChange(r.Context(), sess)
	writeJSON(w, http.StatusOK, describeSession(sess))
}

func (s *Server) ClearHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Clear()
	s.afterChange(r.Context(), sess)
	writeJSON(w, http.StatusOK, describeSession(sess))
}

// ThresholdsHandler handles PUT /v1/sessions/{id}/thresholds.
func (s *Server) ThresholdsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var t alerts.Thresholds
	if err := decodeJSON(r, &t); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if t.POLDepartureHours < 0 || t.PODArrivalHours < 0 {
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid thresholds", "thresholds must not be negative", r.URL.Path)
		return
	}
	sess.SetThresholds(t)
	s.afterChange(r.Context(), sess)
	writeJSON(w, http.StatusOK, describeSession(sess))
}

// afterChange recomputes the analysis of sess, notifies stream subscribers
// and, when the alert set changed, fans the alerts out to webhooks and
// Kafka. It returns nil when no primary is loaded.
//
// Every change starts a new route generation before the records are read,
// so a coordinate build still running for earlier contents is discarded.
func (s *Server) afterChange(ctx context.Context, sess *session.Session) *session.Analysis {
	token := sess.Routes.Begin()
	data := map[string]any{"sessionId": sess.ID, "version": sess.Version()}
	a, err := sess.Analyze()
	switch {
	case errors.Is(err, session.ErrNoPrimary):
		a = nil
	case err != nil:
		logger := sessionLogger(s.Logger, sess.ID)
		logger.Error().Err(err).Msg("analysis failed")
		a = nil
	default:
		data["digest"] = a.Digest
		data["status"] = a.Status
		data["compared"] = a.Compared
		data["alerts"] = len(a.Alerts)
		data["differences"] = len(a.Differences)
		s.notifyAlerts(ctx, sess, a)
		if s.Geo != nil {
			s.resolveRouteAsync(sess, token, a.Route)
		}
	}
	s.Broker.Publish(sess.ID, SSEEvent{Type: EventAnalysisUpdated, Data: data})
	return a
}

func (s *Server) notifyAlerts(ctx context.Context, sess *session.Session, a *session.Analysis) {
	if !s.alertsChanged(sess.ID, a.Alerts) || len(a.Alerts) == 0 {
		return
	}
	for _, al := range a.Alerts {
		metrics.AlertsEmitted.WithLabelValues(string(al.Level), al.Category).Inc()
	}
	logger := sessionLogger(s.Logger, sess.ID)
	if s.Pub != nil {
		n := s.Pub.Emit(ctx, sess.ID, a.Status, a.Alerts)
		logger.Debug().Int("deliveries", n).Int("alerts", len(a.Alerts)).Msg("alert webhooks enqueued")
	}
	if s.Alerts != nil {
		primary, _ := sess.Get(session.SlotPrimary)
		msg := mq.AlertMessage{
			SessionID:   sess.ID,
			Identity:    recordIdentity(primary),
			Status:      a.Status,
			Alerts:      a.Alerts,
			Differences: len(a.Differences),
		}
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.Alerts.Publish(pctx, msg); err != nil {
			logger.Warn().Err(err).Msg("publish alerts to kafka failed")
		}
	}
}

// resolveRouteAsync attaches coordinates to the route of generation token
// off the request path. A result for an older generation is discarded by the
// session's route guard.
func (s *Server) resolveRouteAsync(sess *session.Session, token uint64, route []model.PortNode) {
	logger := sessionLogger(s.Logger, sess.ID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), routeResolveTimeout)
		defer cancel()
		nodes, err := geo.ResolveRoute(ctx, s.Geo, route, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("route resolution abandoned")
			return
		}
		if !sess.Routes.Commit(token, nodes) {
			logger.Debug().Uint64("token", token).Msg("stale route resolution discarded")
			return
		}
		s.Broker.Publish(sess.ID, SSEEvent{Type: EventRouteResolved, Data: map[string]any{
			"sessionId":  sess.ID,
			"token":      token,
			"distanceKm": geo.RouteDistanceKm(nodes),
		}})
	}()
}

// saveHistory records a successfully loaded document. Failures are logged
// and never fail the load.
func (s *Server) saveHistory(ctx context.Context, data []byte) {
	if s.History == nil {
		return
	}
	meta, _, err := ingest.Describe(data)
	if err != nil {
		return
	}
	entry := store.NewHistoryEntry(meta, json.RawMessage(data), time.Now())
	if err := s.History.Save(ctx, entry); err != nil {
		s.Logger.Warn().Err(err).Str("identity", entry.Identity).Msg("history save failed")
	}
}

func recordIdentity(rec model.ShipmentRecord) string {
	return model.HistoryMetadata{
		ShipmentID:      rec.ShipmentID,
		BlNo:            rec.BlNo,
		ContainerNumber: rec.ContainerNumber,
	}.Identity()
}
