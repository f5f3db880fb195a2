//go:build postgres_integration

package store

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiptrack/internal/model"
)

func TestPostgresHistoryAndQueue(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	ctx := context.Background()
	p, err := NewPostgres(dsn)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Migrate(ctx))
	require.NoError(t, p.Clear(ctx))

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := json.RawMessage(`{"id":"S1"}`)
	require.NoError(t, p.Save(ctx, NewHistoryEntry(model.HistoryMetadata{ShipmentID: "S1"}, raw, base)))
	require.NoError(t, p.Save(ctx, NewHistoryEntry(model.HistoryMetadata{ShipmentID: "S1"}, raw, base.Add(time.Minute))))

	list, err := p.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.JSONEq(t, `{"id":"S1"}`, string(list[0].RawData))

	sub, err := p.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://example.invalid/hook", Levels: []string{"warning"}})
	require.NoError(t, err)
	subs, err := p.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, subs)
	require.NoError(t, p.DeleteSubscription(ctx, sub.ID))
	assert.ErrorIs(t, p.DeleteSubscription(ctx, sub.ID), ErrNotFound)
}
