package geo

import (
	"context"

	"shiptrack/internal/model"
)

// Chain asks each source in order and returns the first hit. An error from
// one source is returned only when no later source finds the code.
type Chain []Source

func (c Chain) Lookup(ctx context.Context, code string) (model.Coordinate, bool, error) {
	var firstErr error
	for _, src := range c {
		if src == nil {
			continue
		}
		coord, ok, err := src.Lookup(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return model.Coordinate{}, false, ctx.Err()
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return coord, true, nil
		}
	}
	return model.Coordinate{}, false, firstErr
}
