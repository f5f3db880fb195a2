//go:build postgres_integration

package geo

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiptrack/internal/model"
)

func TestPostgresSource_RoundTrip(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	src, err := OpenPostgres(dsn)
	require.NoError(t, err)
	defer src.DB().Close()
	require.NoError(t, src.Migrate(ctx))

	require.NoError(t, src.Upsert(ctx, "zzsin", model.Coordinate{Lat: 1.2833, Lng: 103.8333, Name: "Test Singapore"}))
	t.Cleanup(func() { _, _ = src.DB().Exec(`DELETE FROM locations WHERE unlocode = 'ZZSIN'`) })

	c, ok, err := src.Lookup(ctx, "ZZSIN")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Test Singapore", c.Name)
	assert.InDelta(t, 1.2833, c.Lat, 1e-6)
	assert.InDelta(t, 103.8333, c.Lng, 1e-6)

	many, err := src.LookupMany(ctx, []string{"ZZSIN", "ZZNONE", ""})
	require.NoError(t, err)
	assert.Len(t, many, 1)

	_, ok, err = src.Lookup(ctx, "ZZNONE")
	require.NoError(t, err)
	assert.False(t, ok)
}
