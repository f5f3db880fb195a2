package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiptrack/internal/model"
	"shiptrack/internal/store"
)

type recordStore struct {
	*store.Memory
	mu    sync.Mutex
	marks []markRec
	fails []string
}

type markRec struct {
	ID      string
	Success bool
	Code    int
	LastErr string
}

func (r *recordStore) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.marks = append(r.marks, markRec{ID: id, Success: success, Code: responseCode, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.MarkWebhookDelivery(ctx, id, success, nextAttemptAt, lastError, responseCode, latencyMs)
}

func (r *recordStore) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.fails = append(r.fails, id)
	r.mu.Unlock()
	return r.Memory.FailWebhookDelivery(ctx, id, lastError, responseCode, latencyMs)
}

func newWorker(rs *recordStore, client *http.Client, max int) *Worker {
	w := NewWorker(rs, max, zerolog.Nop())
	w.HTTP = client
	return w
}

func TestWorkerProcessOnce_SuccessAndSignature(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotType = r.Header.Get("X-Event-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	body := []byte(`{"id":"evt1"}`)
	_, err := rs.EnqueueWebhook(context.Background(), "", EventAlerts, srv.URL, "secret", body)
	require.NoError(t, err)

	newWorker(rs, srv.Client(), 3).processOnce(context.Background())

	assert.Equal(t, EventAlerts, gotType)
	assert.True(t, VerifyHMAC("secret", gotBody, gotSig))
	require.Len(t, rs.marks, 1)
	assert.True(t, rs.marks[0].Success)
	assert.Equal(t, http.StatusNoContent, rs.marks[0].Code)
}

func TestWorkerProcessOnce_RetryThenDeadLetter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	id, _ := rs.EnqueueWebhook(context.Background(), "", EventAlerts, srv.URL, "", []byte(`{}`))
	w := newWorker(rs, srv.Client(), 2)

	w.processOnce(context.Background())
	require.Len(t, rs.marks, 1)
	assert.False(t, rs.marks[0].Success)
	assert.Equal(t, "HTTP 500", rs.marks[0].LastErr)
	assert.Empty(t, rs.fails)

	require.NoError(t, rs.RetryWebhookDelivery(context.Background(), id))
	w.processOnce(context.Background())
	assert.Equal(t, []string{id}, rs.fails)

	failed, _ := rs.ListWebhookDeliveries(context.Background(), store.DeliveryFailed, 0)
	assert.Len(t, failed, 1)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, time.Second, nextBackoff(0))
	assert.Equal(t, 8*time.Second, nextBackoff(3))
	assert.Equal(t, time.Hour, nextBackoff(12))
	assert.Equal(t, time.Hour, nextBackoff(40))
	assert.Equal(t, time.Second, nextBackoff(-1))
}

func TestPublisherEmit_FiltersPerSubscription(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_, _ = mem.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://all"})
	_, _ = mem.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://warn", Levels: []string{"warning"}})
	_, _ = mem.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://route", Categories: []string{"route"}})

	p := NewPublisher(mem, zerolog.Nop())
	p.Now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	alerts := []model.Alert{
		{Level: model.AlertInfo, Category: "POL", Message: "info"},
		{Level: model.AlertWarning, Category: "POD", Message: "drift"},
	}
	n := p.Emit(ctx, "sess-1", model.Status{}, alerts)
	assert.Equal(t, 2, n)

	due, err := mem.FetchDueWebhookDeliveries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	byURL := map[string]Payload{}
	for _, d := range due {
		var pl Payload
		require.NoError(t, json.Unmarshal(d.Payload, &pl))
		byURL[d.URL] = pl
	}
	assert.Len(t, byURL["http://all"].Data.Alerts, 2)
	require.Len(t, byURL["http://warn"].Data.Alerts, 1)
	assert.Equal(t, "drift", byURL["http://warn"].Data.Alerts[0].Message)
	assert.Equal(t, EventAlerts, byURL["http://all"].Type)
	assert.Equal(t, "sess-1", byURL["http://all"].Data.SessionID)
	assert.Equal(t, "2025-03-01T00:00:00Z", byURL["http://all"].TS)

	assert.Zero(t, p.Emit(ctx, "sess-1", model.Status{}, nil))
}
