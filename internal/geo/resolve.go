package geo

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"shiptrack/internal/model"
)

// maxConcurrentLookups bounds the lookups in flight for one route.
const maxConcurrentLookups = 8

// ResolveRoute returns a copy of nodes with coordinates attached. Lookups
// run concurrently; a failed or missing lookup leaves that node without
// coordinates and never fails the route. Only ctx cancellation is returned.
func ResolveRoute(ctx context.Context, src Source, nodes []model.PortNode, logger zerolog.Logger) ([]model.PortNode, error) {
	out := make([]model.PortNode, len(nodes))
	copy(out, nodes)
	if src == nil {
		return out, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i := range out {
		i := i
		code := out[i].LocationCode
		if code == "" {
			continue
		}
		g.Go(func() error {
			c, ok, err := src.Lookup(gctx, code)
			if err != nil {
				logger.Warn().Err(err).Str("code", code).Msg("location lookup failed")
				return nil
			}
			if ok {
				out[i].Coordinates = &c
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
