package geo

import (
	"context"

	"shiptrack/internal/metrics"
	"shiptrack/internal/model"
)

// Counted records every lookup of the wrapped source in
// location_lookups_total.
type Counted struct {
	Source
}

func (c Counted) Lookup(ctx context.Context, code string) (model.Coordinate, bool, error) {
	coord, ok, err := c.Source.Lookup(ctx, code)
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case ok:
		result = "hit"
	}
	metrics.LocationLookups.WithLabelValues(result).Inc()
	return coord, ok, err
}
