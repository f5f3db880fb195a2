package tracking

import (
	"sort"
	"time"

	"shiptrack/internal/model"
)

// Timeline is the date-ordered view of a shipment's events. Events whose
// display time does not parse are kept aside in Undated.
type Timeline struct {
	Days    []Day                   `json:"days"`
	Undated []model.NormalizedEvent `json:"undated,omitempty"`
}

type Day struct {
	Date   string                  `json:"date"`
	Events []model.NormalizedEvent `json:"events"`
}

type datedEvent struct {
	at time.Time
	ev model.NormalizedEvent
}

// SplitDated returns the events with a parseable display time in
// chronological order (stable for equal times) and the rest in input order.
func SplitDated(events []model.NormalizedEvent) (dated, undated []model.NormalizedEvent) {
	ds := sortedDated(events, &undated)
	dated = make([]model.NormalizedEvent, 0, len(ds))
	for _, d := range ds {
		dated = append(dated, d.ev)
	}
	return dated, undated
}

func sortedDated(events []model.NormalizedEvent, undated *[]model.NormalizedEvent) []datedEvent {
	ds := make([]datedEvent, 0, len(events))
	for _, ev := range events {
		t, ok := ParseTime(ev.EventDateTime)
		if !ok {
			*undated = append(*undated, ev)
			continue
		}
		ds = append(ds, datedEvent{at: t, ev: ev})
	}
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].at.Before(ds[j].at) })
	return ds
}

// GroupByDay buckets dated events by the calendar day of their display time,
// read in the event's own offset. Days ascend, events within a day ascend.
func GroupByDay(events []model.NormalizedEvent) Timeline {
	var tl Timeline
	ds := sortedDated(events, &tl.Undated)
	index := map[string]int{}
	for _, d := range ds {
		key := d.at.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			i = len(tl.Days)
			index[key] = i
			tl.Days = append(tl.Days, Day{Date: key})
		}
		tl.Days[i].Events = append(tl.Days[i].Events, d.ev)
	}
	// Offsets can put a later instant on an earlier calendar day.
	sort.SliceStable(tl.Days, func(i, j int) bool { return tl.Days[i].Date < tl.Days[j].Date })
	return tl
}
