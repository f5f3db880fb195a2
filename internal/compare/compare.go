// Package compare diffs two normalized shipment records.
package compare

import (
	"fmt"
	"strconv"

	"shiptrack/internal/model"
)

// Placeholder shown for an absent value.
const Absent = "—"

type field struct {
	label string
	get   func(model.ShipmentRecord) string
}

var fields = []field{
	{"Shipment ID", func(r model.ShipmentRecord) string { return r.ShipmentID }},
	{"BL Number", func(r model.ShipmentRecord) string { return r.BlNo }},
	{"Booking Number", func(r model.ShipmentRecord) string { return r.BookingNumber }},
	{"Container Number", func(r model.ShipmentRecord) string { return r.ContainerNumber }},
	{"Container Size", func(r model.ShipmentRecord) string { return r.ContainerSize }},
	{"Container Type", func(r model.ShipmentRecord) string { return r.ContainerType }},
	{"Container ISO Code", func(r model.ShipmentRecord) string { return r.ContainerISOCode }},
	{"Container Weight", func(r model.ShipmentRecord) string { return r.ContainerWeight }},
	{"Shipment Type", func(r model.ShipmentRecord) string { return r.ShipmentType }},
	{"Carrier", func(r model.ShipmentRecord) string { return r.Carrier }},
	{"Origin", func(r model.ShipmentRecord) string { return r.Origin }},
	{"Destination", func(r model.ShipmentRecord) string { return r.Destination }},
	{"Source", func(r model.ShipmentRecord) string { return r.Source }},
}

type timeField struct {
	name string
	get  func(model.NormalizedEvent) string
}

var timeFields = []timeField{
	{"Actual", func(e model.NormalizedEvent) string { return e.ActualTime }},
	{"Estimated", func(e model.NormalizedEvent) string { return e.EstimatedTime }},
	{"Planned", func(e model.NormalizedEvent) string { return e.PlannedTime }},
}

// Compare returns the differences between primary and secondary: scalar
// fields first, then the event count, then per-event differences in key
// order (primary keys first, then keys only the secondary has).
func Compare(primary, secondary model.ShipmentRecord) []model.Difference {
	var out []model.Difference
	for _, f := range fields {
		p, s := f.get(primary), f.get(secondary)
		if p == s {
			continue
		}
		out = append(out, model.Difference{
			Kind:           model.DiffField,
			Label:          f.label,
			PrimaryValue:   p,
			SecondaryValue: s,
			Message:        fmt.Sprintf("%s: %q vs %q", f.label, display(p), display(s)),
		})
	}

	if pc, sc := len(primary.Events), len(secondary.Events); pc != sc {
		out = append(out, model.Difference{
			Kind:           model.DiffEventCount,
			Label:          "Event Count",
			PrimaryValue:   strconv.Itoa(pc),
			SecondaryValue: strconv.Itoa(sc),
			Message:        fmt.Sprintf("Event Count: %d vs %d", pc, sc),
		})
	}

	return append(out, CompareEvents(NewIndex(primary.Events), NewIndex(secondary.Events))...)
}

// CompareEvents matches bucket by bucket. Events at a position only one side
// has are reported missing; matched pairs are compared on their times.
func CompareEvents(primary, secondary *Index) []model.Difference {
	var out []model.Difference
	for _, k := range primary.Keys() {
		pb, sb := primary.Bucket(k), secondary.Bucket(k)
		n := max(len(pb), len(sb))
		for i := 0; i < n; i++ {
			switch {
			case i >= len(sb):
				out = append(out, missing(pb[i], i, n, "secondary"))
			case i >= len(pb):
				out = append(out, missing(sb[i], i, n, "primary"))
			default:
				out = append(out, compareTimes(pb[i], sb[i], EventLabel(pb[i], i, n))...)
			}
		}
	}
	for _, k := range secondary.Keys() {
		if primary.Has(k) {
			continue
		}
		sb := secondary.Bucket(k)
		for i, e := range sb {
			out = append(out, missing(e, i, len(sb), "primary"))
		}
	}
	return out
}

// EventLabel is eventType @ location, suffixed with #pos+1 when the bucket
// holds more than one event.
func EventLabel(e model.NormalizedEvent, pos, bucketLen int) string {
	label := e.EventType
	if label == "" {
		label = "Unknown"
	}
	if e.Location != "" {
		label += " @ " + e.Location
	}
	if bucketLen > 1 {
		label += " #" + strconv.Itoa(pos+1)
	}
	return label
}

func missing(e model.NormalizedEvent, pos, bucketLen int, side string) model.Difference {
	label := EventLabel(e, pos, bucketLen)
	d := model.Difference{
		Kind:    model.DiffEventMissing,
		Label:   label,
		Message: fmt.Sprintf("Event %s missing in %s shipment", label, side),
	}
	if side == "secondary" {
		d.PrimaryValue = e.EventDateTime
	} else {
		d.SecondaryValue = e.EventDateTime
	}
	return d
}

func compareTimes(p, s model.NormalizedEvent, label string) []model.Difference {
	var out []model.Difference
	typed := false
	for _, tf := range timeFields {
		pv, sv := tf.get(p), tf.get(s)
		if pv != "" || sv != "" {
			typed = true
		}
		if pv == sv {
			continue
		}
		out = append(out, timeDifference(label+" "+tf.name+" time", pv, sv))
	}
	if typed {
		return out
	}
	if p.EventDateTime != s.EventDateTime {
		out = append(out, timeDifference(label+" time", p.EventDateTime, s.EventDateTime))
	}
	return out
}

func timeDifference(label, p, s string) model.Difference {
	return model.Difference{
		Kind:           model.DiffEventTime,
		Label:          label,
		PrimaryValue:   p,
		SecondaryValue: s,
		Message:        fmt.Sprintf("Event %s: %q vs %q", label, display(p), display(s)),
	}
}

func display(v string) string {
	if v == "" {
		return Absent
	}
	return v
}
