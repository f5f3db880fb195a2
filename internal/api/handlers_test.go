package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiptrack/internal/config"
	"shiptrack/internal/docstore"
	"shiptrack/internal/geo"
	"shiptrack/internal/model"
	"shiptrack/internal/store"
)

const (
	adminToken = "Bearer ops:admin"
	userToken  = "Bearer viewer:user"
)

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Defaults()
	for _, m := range mutate {
		m(&cfg)
	}
	return NewServer(cfg, zerolog.Nop())
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile("../ingest/testdata/" + name)
	require.NoError(t, err)
	return b
}

// delayedPOD moves the estimated POD arrival of the raw fixture 48h later.
func delayedPOD(t *testing.T) []byte {
	t.Helper()
	raw := string(readFixture(t, "raw_shipment.json"))
	require.Contains(t, raw, "2025-03-15T08:00:00+01:00")
	return []byte(strings.Replace(raw, "2025-03-15T08:00:00+01:00", "2025-03-17T08:00:00+01:00", 1))
}

func do(t *testing.T, h http.Handler, method, path string, body []byte, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/v1/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	info := decode[sessionInfo](t, rec)
	require.NotEmpty(t, info.ID)
	return info.ID
}

func TestHealthAndReady(t *testing.T) {
	h := newTestServer(t).Routes()

	rec := do(t, h, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode[Problem](t, rec).Title)
}

func TestSessionLifecycle(t *testing.T) {
	h := newTestServer(t).Routes()
	id := createSession(t, h)
	base := "/v1/sessions/" + id

	rec := do(t, h, http.MethodGet, base+"/analysis", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPut, base+"/primary", readFixture(t, "raw_shipment.json"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loaded := decode[map[string]any](t, rec)
	assert.Equal(t, "raw", loaded["format"])
	assert.Equal(t, "primary", loaded["slot"])

	rec = do(t, h, http.MethodGet, base+"/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusInTransit, decode[model.Status](t, rec).Kind)

	rec = do(t, h, http.MethodGet, base+"/route", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	route := decode[routeResponse](t, rec)
	var codes []string
	for _, n := range route.Route {
		codes = append(codes, n.LocationCode)
	}
	assert.Equal(t, []string{"CNYTN", "SGSIN", "NLRTM"}, codes)
	assert.Nil(t, route.DistanceKm)

	rec = do(t, h, http.MethodGet, base+"/milestones", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[map[string][]model.Milestone](t, rec)["milestones"])

	rec = do(t, h, http.MethodGet, base+"/timeline", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, base+"/summary", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, base+"/comparison", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"compared":false,"differences":[]}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, base+"/secondary", readFixture(t, "display_shipment.json"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "display", decode[map[string]any](t, rec)["format"])

	rec = do(t, h, http.MethodGet, base+"/comparison", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cmp := decode[struct {
		Compared    bool               `json:"compared"`
		Differences []model.Difference `json:"differences"`
	}](t, rec)
	assert.True(t, cmp.Compared)
	assert.NotEmpty(t, cmp.Differences)

	rec = do(t, h, http.MethodPost, base+"/swap", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[sessionInfo](t, rec)
	assert.True(t, info.HasPrimary)
	assert.True(t, info.HasSecondary)

	rec = do(t, h, http.MethodDelete, base+"/secondary", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[sessionInfo](t, rec).HasSecondary)

	rec = do(t, h, http.MethodPost, base+"/clear", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[sessionInfo](t, rec).HasPrimary)

	rec = do(t, h, http.MethodPut, base+"/tertiary", []byte(`{}`), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, base, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, base, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoadSlot_RejectsMalformedDocuments(t *testing.T) {
	h := newTestServer(t).Routes()
	id := createSession(t, h)
	base := "/v1/sessions/" + id

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"invalid json", `{"events": [`, http.StatusBadRequest, "invalid_json"},
		{"unknown shape", `{"hello": "world"}`, http.StatusUnprocessableEntity, ""},
		{"events not an array", `{"shipmentId": "X", "events": {"a": 1}}`, http.StatusUnprocessableEntity, "events_not_array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPut, base+"/primary", []byte(tt.body), "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			p := decode[Problem](t, rec)
			assert.Equal(t, tt.status, p.Status)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, p.Kind)
			}
		})
	}

	rec := do(t, h, http.MethodGet, base, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[sessionInfo](t, rec)
	assert.False(t, info.HasPrimary)
	assert.Zero(t, info.Version)
}

func TestAlerts_ThresholdOverrideAndWebhooks(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()
	ctx := context.Background()
	_, err := s.Hooks.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://hooks.example.com/a", Levels: []string{"warning"}})
	require.NoError(t, err)
	_, err = s.Hooks.CreateSubscription(ctx, model.SubscriptionRequest{URL: "https://hooks.example.com/b", Categories: []string{"route"}})
	require.NoError(t, err)

	id := createSession(t, h)
	base := "/v1/sessions/" + id
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, base+"/primary", readFixture(t, "raw_shipment.json"), "").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, base+"/secondary", delayedPOD(t), "").Code)

	type alertsBody struct {
		Compared bool          `json:"compared"`
		Alerts   []model.Alert `json:"alerts"`
	}
	rec := do(t, h, http.MethodGet, base+"/alerts", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[alertsBody](t, rec)
	assert.True(t, got.Compared)
	require.Len(t, got.Alerts, 1)
	assert.Equal(t, model.AlertWarning, got.Alerts[0].Level)
	assert.Equal(t, model.CategoryPOD, got.Alerts[0].Category)
	require.NotNil(t, got.Alerts[0].DeltaHours)
	assert.InDelta(t, 48.0, *got.Alerts[0].DeltaHours, 0.001)

	rec = do(t, h, http.MethodGet, base+"/alerts?podHours=72", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[alertsBody](t, rec).Alerts)

	rec = do(t, h, http.MethodGet, base+"/alerts?podHours=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Only the warning subscriber matches.
	items, err := s.Hooks.ListWebhookDeliveries(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// Same alert set again: nothing new is enqueued.
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, base+"/secondary", delayedPOD(t), "").Code)
	items, err = s.Hooks.ListWebhookDeliveries(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestThresholdsHandler(t *testing.T) {
	h := newTestServer(t).Routes()
	id := createSession(t, h)
	base := "/v1/sessions/" + id

	rec := do(t, h, http.MethodPut, base+"/thresholds", []byte(`{"polDepartureHours": 6, "podArrivalHours": 72}`), "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[sessionInfo](t, rec)
	assert.Equal(t, 72.0, info.Thresholds.PODArrivalHours)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, base+"/primary", readFixture(t, "raw_shipment.json"), "").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, base+"/secondary", delayedPOD(t), "").Code)
	rec = do(t, h, http.MethodGet, base+"/alerts", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alerts":[]`)

	rec = do(t, h, http.MethodPut, base+"/thresholds", []byte(`{"polDepartureHours": -1}`), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestInsights(t *testing.T) {
	h := newTestServer(t).Routes()
	id := createSession(t, h)
	base := "/v1/sessions/" + id

	rec := do(t, h, http.MethodGet, base+"/insights", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, base+"/primary", readFixture(t, "raw_shipment.json"), "").Code)
	rec = do(t, h, http.MethodGet, base+"/insights", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Insights model.Insights `json:"insights"`
	}](t, rec)
	assert.Equal(t, "tfjs-mvp-1", body.Insights.ModelVersion)
	assert.NotEmpty(t, body.Insights.Predictions)
}

func TestHistory(t *testing.T) {
	h := newTestServer(t).Routes()
	id := createSession(t, h)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/v1/sessions/"+id+"/primary", readFixture(t, "raw_shipment.json"), "").Code)

	rec := do(t, h, http.MethodGet, "/v1/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]model.HistoryEntry](t, rec)["items"]
	require.Len(t, list, 1)
	e := list[0]
	assert.Equal(t, "SHP-20250215-0001", e.Identity)
	assert.Equal(t, "CNYTN", e.Metadata.POL)
	assert.Equal(t, "NLRTM", e.Metadata.POD)

	rec = do(t, h, http.MethodGet, "/v1/history/"+e.Key, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/v1/history/missing-1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/history/"+e.Key+"/load?slot=secondary&session="+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodGet, "/v1/sessions/"+id+"/comparison", nil, "")
	assert.JSONEq(t, `{"compared":true,"differences":[]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/history/"+e.Key+"/load", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	newID := decode[struct {
		Session sessionInfo `json:"session"`
	}](t, rec).Session.ID
	assert.NotEqual(t, id, newID)

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodDelete, "/v1/history", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodDelete, "/v1/history", nil, userToken).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/v1/history", nil, adminToken).Code)

	rec = do(t, h, http.MethodGet, "/v1/history", nil, "")
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestSubscriptionsAdmin(t *testing.T) {
	h := newTestServer(t).Routes()

	body := []byte(`{"url":"https://hooks.example.com/x","secret":"s","levels":["warning"]}`)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/v1/subscriptions", body, "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, "/v1/subscriptions", body, userToken).Code)

	rec := do(t, h, http.MethodPost, "/v1/subscriptions", body, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	sub := decode[model.Subscription](t, rec)
	assert.NotEmpty(t, sub.ID)
	assert.NotContains(t, rec.Body.String(), `"secret"`)

	tests := []struct {
		name string
		body string
	}{
		{"relative url", `{"url":"/hook"}`},
		{"bad scheme", `{"url":"ftp://example.com"}`},
		{"unknown level", `{"url":"https://example.com","levels":["critical"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/subscriptions", []byte(tt.body), adminToken)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}

	rec = do(t, h, http.MethodGet, "/v1/subscriptions", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.Subscription](t, rec)["items"], 1)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil, adminToken).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil, adminToken).Code)
}

func TestWebhookDeliveriesAdmin(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()
	ctx := context.Background()
	id, err := s.Hooks.EnqueueWebhook(ctx, "sub_1", "shipment.alerts", "https://hooks.example.com", "", []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, s.Hooks.FailWebhookDelivery(ctx, id, "HTTP 500", 500, 12))

	rec := do(t, h, http.MethodGet, "/v1/admin/webhook-deliveries?status="+store.DeliveryFailed, nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]store.DeliveryInfo](t, rec)["items"], 1)

	rec = do(t, h, http.MethodGet, "/v1/admin/webhook-deliveries?limit=zero", nil, adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/admin/webhook-deliveries/"+id+"/retry", nil, adminToken)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec = do(t, h, http.MethodPost, "/v1/admin/webhook-deliveries/nope/retry", nil, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func testLocations() *geo.Dataset {
	return geo.NewDataset(map[string]geo.Entry{
		"CNYTN": {Name: "Yantian", Coordinates: "2235N 11416E"},
		"SGSIN": {Name: "Singapore", Coordinates: "0117N 10350E"},
		"NLRTM": {Name: "Rotterdam", Coordinates: "5155N 00430E"},
	})
}

func TestLocationHandler(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()
	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodGet, "/v1/locations/SGSIN", nil, "").Code)

	s.Geo = testLocations()
	rec := do(t, h, http.MethodGet, "/v1/locations/sgsin", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Code        string           `json:"code"`
		Coordinates model.Coordinate `json:"coordinates"`
	}](t, rec)
	assert.Equal(t, "SGSIN", body.Code)
	assert.InDelta(t, 1.2833, body.Coordinates.Lat, 0.001)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/locations/XXXXX", nil, "").Code)
}

func TestRouteWithCoordinates(t *testing.T) {
	s := newTestServer(t)
	s.Geo = testLocations()
	h := s.Routes()
	id := createSession(t, h)
	base := "/v1/sessions/" + id
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, base+"/primary", readFixture(t, "raw_shipment.json"), "").Code)

	rec := do(t, h, http.MethodGet, base+"/route?coords=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	route := decode[routeResponse](t, rec)
	require.Len(t, route.Route, 3)
	for _, n := range route.Route {
		assert.NotNil(t, n.Coordinates, n.LocationCode)
	}
	require.NotNil(t, route.DistanceKm)
	assert.Greater(t, *route.DistanceKm, 10000.0)
	require.NotNil(t, route.Committed)
	assert.True(t, *route.Committed)
}

// gatedSource blocks every lookup until release is closed.
type gatedSource struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	next    geo.Source
}

func (g *gatedSource) Lookup(ctx context.Context, code string) (model.Coordinate, bool, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return model.Coordinate{}, false, ctx.Err()
	}
	return g.next.Lookup(ctx, code)
}

func TestRouteBuild_DiscardedAfterClear(t *testing.T) {
	s := newTestServer(t)
	src := &gatedSource{started: make(chan struct{}), release: make(chan struct{}), next: testLocations()}
	s.Geo = src
	h := s.Routes()
	id := createSession(t, h)
	base := "/v1/sessions/" + id
	sess, err := s.Sessions.Get(id)
	require.NoError(t, err)
	events := s.Broker.Subscribe(id)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, base+"/primary", readFixture(t, "raw_shipment.json"), "").Code)
	select {
	case <-src.started:
	case <-time.After(2 * time.Second):
		t.Fatal("route build did not start")
	}
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, base+"/clear", nil, "").Code)
	close(src.release)

	assert.Never(t, func() bool {
		_, token := sess.Routes.Current()
		return token != 0
	}, 300*time.Millisecond, 10*time.Millisecond)
	_, ok := sess.Routes.Latest()
	assert.False(t, ok)

drain:
	for {
		select {
		case ev := <-events:
			assert.NotEqual(t, EventRouteResolved, ev.Type)
		default:
			break drain
		}
	}
}

func TestRouteServesCommittedBuild(t *testing.T) {
	s := newTestServer(t)
	s.Geo = testLocations()
	h := s.Routes()
	id := createSession(t, h)
	base := "/v1/sessions/" + id
	sess, err := s.Sessions.Get(id)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, base+"/primary", readFixture(t, "raw_shipment.json"), "").Code)
	require.Eventually(t, func() bool {
		_, ok := sess.Routes.Latest()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	rec := do(t, h, http.MethodGet, base+"/route", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	route := decode[routeResponse](t, rec)
	require.Len(t, route.Route, 3)
	for _, n := range route.Route {
		assert.NotNil(t, n.Coordinates, n.LocationCode)
	}
	require.NotNil(t, route.DistanceKm)
	assert.Nil(t, route.Committed)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, base+"/clear", nil, "").Code)
	_, ok := sess.Routes.Latest()
	assert.False(t, ok)
}

func TestDocStoreQuery(t *testing.T) {
	raw := readFixture(t, "raw_shipment.json")
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Filter map[string]string `json:"filter"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if v, ok := req.Filter["blNo"]; ok && v != "ONEYSZXB1234567" {
			_, _ = w.Write([]byte(`{"document":null}`))
			return
		}
		_, _ = w.Write([]byte(`{"document":` + string(raw) + `}`))
	}))
	defer fake.Close()

	s := newTestServer(t)
	h := s.Routes()
	q := []byte(`{"field":"blNo","value":"ONEYSZXB1234567"}`)
	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodPost, "/v1/docstore/query", q, "").Code)

	dc, err := docstore.NewClient(docstore.Config{URL: fake.URL, Database: "tracking", Collection: "shipments"})
	require.NoError(t, err)
	s.DocStore = dc

	rec := do(t, h, http.MethodPost, "/v1/docstore/query", q, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "SHP-20250215-0001")

	rec = do(t, h, http.MethodPost, "/v1/docstore/query", []byte(`{"field":"blNo","value":"OTHER"}`), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/docstore/query", []byte(`{"field":"vessel","value":"X"}`), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	id := createSession(t, h)
	rec = do(t, h, http.MethodPost, "/v1/docstore/query", []byte(`{"field":"blNo","value":"ONEYSZXB1234567","session":"`+id+`"}`), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodGet, "/v1/sessions/"+id+"/status", nil, "")
	assert.Equal(t, model.StatusInTransit, decode[model.Status](t, rec).Kind)
}

func TestOpenAPIAndDebug(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) {
		c.AuthHMACSecret = "do-not-leak"
		c.DatabaseURL = "postgres://user:pw@db/shiptrack"
	}).Routes()

	rec := do(t, h, http.MethodGet, "/openapi.json", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[map[string]any](t, rec)
	assert.Equal(t, "3.0.3", doc["openapi"])
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/v1/sessions/{id}/alerts")

	rec = do(t, h, http.MethodGet, "/debug/config", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "do-not-leak")
	assert.NotContains(t, rec.Body.String(), "user:pw")
	assert.Contains(t, rec.Body.String(), `"HAS_DATABASE_URL":true`)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) {
		c.RateRPS = 1
		c.RateBurst = 1
	}).Routes()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", nil, "").Code)
	rec := do(t, h, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestSessionStream_SSE(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()
	h := s.Routes()
	id := createSession(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/sessions/"+id+"/events/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 8)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if line := sc.Text(); strings.HasPrefix(line, "event: ") || strings.HasPrefix(line, "data: ") {
				events <- line
			}
		}
		close(events)
	}()
	next := func() string {
		select {
		case l, ok := <-events:
			require.True(t, ok, "stream closed")
			return l
		case <-ctx.Done():
			t.Fatal("timeout waiting for event")
		}
		return ""
	}

	assert.Equal(t, "event: analysis.updated", next())
	assert.Contains(t, next(), `"version":0`)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/v1/sessions/"+id+"/primary", readFixture(t, "raw_shipment.json"), "").Code)
	assert.Equal(t, "event: analysis.updated", next())
	data := next()
	assert.Contains(t, data, `"version":1`)
	assert.Contains(t, data, `"in_transit"`)
}

func TestSessionStream_WebSocket(t *testing.T) {
	s := newTestServer(t)
	h := s.Routes()
	srv := httptest.NewServer(h)
	defer srv.Close()
	id := createSession(t, h)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sessions/" + id + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var evt SSEEvent
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, EventAnalysisUpdated, evt.Type)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/v1/sessions/"+id+"/swap", nil, "").Code)
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, EventAnalysisUpdated, evt.Type)
	assert.EqualValues(t, 1, evt.Data["version"])

	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/v1/sessions/"+id, nil, "").Code)
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, EventSessionDeleted, evt.Type)
}
