package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiptrack/internal/model"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func entry(id string, at time.Duration) model.HistoryEntry {
	raw := json.RawMessage(fmt.Sprintf(`{"id":%q}`, id))
	return NewHistoryEntry(model.HistoryMetadata{ShipmentID: id, POL: "CNYTN"}, raw, t0.Add(at))
}

func TestNewHistoryEntry(t *testing.T) {
	e := NewHistoryEntry(model.HistoryMetadata{BlNo: "BL1"}, nil, t0)
	assert.Equal(t, "BL1", e.Identity)
	assert.Equal(t, fmt.Sprintf("BL1-%d", t0.UnixMilli()), e.Key)
	assert.Equal(t, "2025-03-01T12:00:00.000Z", e.ViewedAt)

	e = NewHistoryEntry(model.HistoryMetadata{}, nil, t0)
	assert.Equal(t, "shipment", e.Identity)
}

func backends(t *testing.T) map[string]History {
	t.Helper()
	b, err := OpenBolt(filepath.Join(t.TempDir(), "history.db"), 3)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	m := NewMemory()
	m.HistoryMax = 3
	return map[string]History{"memory": m, "bolt": b}
}

func TestHistory_Backends(t *testing.T) {
	for name, h := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, h.Save(ctx, entry("A", 0)))
			require.NoError(t, h.Save(ctx, entry("B", time.Second)))
			require.NoError(t, h.Save(ctx, entry("A", 2*time.Second)))

			list, err := h.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2, "same identity replaces the older entry")
			assert.Equal(t, "A", list[0].Identity)
			assert.Equal(t, "B", list[1].Identity)

			require.NoError(t, h.Save(ctx, entry("C", 3*time.Second)))
			require.NoError(t, h.Save(ctx, entry("D", 4*time.Second)))
			list, err = h.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, []string{"D", "C", "A"}, []string{list[0].Identity, list[1].Identity, list[2].Identity})

			got, err := h.Get(ctx, list[1].Key)
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"C"}`, string(got.RawData))
			assert.Equal(t, "CNYTN", got.Metadata.POL)

			require.NoError(t, h.Remove(ctx, list[1].Key))
			_, err = h.Get(ctx, list[1].Key)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, h.Remove(ctx, "nope"), ErrNotFound)

			require.NoError(t, h.Clear(ctx))
			list, err = h.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestBolt_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	b, err := OpenBolt(path, 0)
	require.NoError(t, err)
	require.NoError(t, b.Save(context.Background(), entry("A", 0)))
	require.NoError(t, b.Close())

	b, err = OpenBolt(path, 0)
	require.NoError(t, err)
	defer b.Close()
	list, err := b.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Identity)
}

func TestPrepend_DefaultCap(t *testing.T) {
	var list []model.HistoryEntry
	for i := 0; i < 20; i++ {
		list, _ = prepend(list, entry(fmt.Sprintf("S%02d", i), time.Duration(i)*time.Second), 0)
	}
	require.Len(t, list, DefaultHistoryMax)
	assert.Equal(t, "S19", list[0].Identity)
	assert.Equal(t, "S05", list[len(list)-1].Identity)
}
