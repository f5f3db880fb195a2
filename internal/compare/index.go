package compare

import (
	"sort"

	"shiptrack/internal/model"
	"shiptrack/internal/tracking"
)

// EventKey identifies matching events across two shipments:
// eventCode|locationType|locationCode, with the location text standing in
// when the event has no code.
func EventKey(e model.NormalizedEvent) string {
	loc := e.UnLocationCode
	if loc == "" {
		loc = e.Location
	}
	return e.EventCode + "|" + e.LocationType + "|" + loc
}

// Index buckets a shipment's events by EventKey. Buckets are chronological;
// events whose display time does not parse go to the end of their bucket.
type Index struct {
	keys    []string
	buckets map[string][]model.NormalizedEvent
}

func NewIndex(events []model.NormalizedEvent) *Index {
	ix := &Index{buckets: map[string][]model.NormalizedEvent{}}
	for _, e := range events {
		k := EventKey(e)
		if _, ok := ix.buckets[k]; !ok {
			ix.keys = append(ix.keys, k)
		}
		ix.buckets[k] = append(ix.buckets[k], e)
	}
	for _, k := range ix.keys {
		sortChronologically(ix.buckets[k])
	}
	return ix
}

// Keys returns the bucket keys in first-occurrence order.
func (ix *Index) Keys() []string { return ix.keys }

func (ix *Index) Bucket(key string) []model.NormalizedEvent { return ix.buckets[key] }

func (ix *Index) Has(key string) bool {
	_, ok := ix.buckets[key]
	return ok
}

// Match returns every indexed event with the given code and location type,
// across all locations, in key order.
func (ix *Index) Match(code, locationType string) []model.NormalizedEvent {
	var out []model.NormalizedEvent
	for _, k := range ix.keys {
		b := ix.buckets[k]
		if b[0].EventCode == code && b[0].LocationType == locationType {
			out = append(out, b...)
		}
	}
	return out
}

func sortChronologically(events []model.NormalizedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		ti, okI := tracking.ParseTime(events[i].EventDateTime)
		tj, okJ := tracking.ParseTime(events[j].EventDateTime)
		switch {
		case okI && okJ:
			return ti.Before(tj)
		case okI:
			return true
		default:
			return false
		}
	})
}
