// Package integrations holds carrier feed adapters that turn carrier exports
// into raw shipment documents.
package integrations

import (
	"context"
	"io"

	"shiptrack/internal/model"
)

// FeedAdapter reads one carrier export format.
type FeedAdapter interface {
	Name() string
	Fetch(ctx context.Context, r io.Reader) ([]model.RawShipment, error)
	// MapStatus maps a carrier status word to an event code. Unknown words
	// are returned upper-cased.
	MapStatus(code string) string
}

// CommonStatusCodes maps status words used by several carriers to event codes.
var CommonStatusCodes = map[string]string{
	"GATE OUT":         "OG",
	"GATE IN":          "IG",
	"LOADED":           "AL",
	"DEPARTED":         "VD",
	"VESSEL DEPARTURE": "VD",
	"ARRIVED":          "VA",
	"VESSEL ARRIVAL":   "VA",
	"DISCHARGED":       "UV",
	"RAIL DEPARTURE":   "RD",
	"RAIL ARRIVAL":     "RA",
	"EMPTY RETURN":     "RT",
}
