package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiptrack/internal/model"
)

func ev(code, locType, locCode, at string) model.NormalizedEvent {
	return model.NormalizedEvent{
		EventType:      code,
		EventCode:      code,
		LocationType:   locType,
		UnLocationCode: locCode,
		Location:       locCode,
		EventDateTime:  at,
	}
}

func messages(diffs []model.Difference) []string {
	out := make([]string, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, d.Message)
	}
	return out
}

func TestCompare_Fields(t *testing.T) {
	p := model.ShipmentRecord{ShipmentID: "S1", BlNo: "BL1", Origin: "Yantian", Carrier: "ONE"}
	s := model.ShipmentRecord{ShipmentID: "S2", BlNo: "BL1", Origin: "Yantian"}

	diffs := Compare(p, s)
	require.Len(t, diffs, 2)
	assert.Equal(t, model.DiffField, diffs[0].Kind)
	assert.Equal(t, `Shipment ID: "S1" vs "S2"`, diffs[0].Message)
	assert.Equal(t, "Carrier", diffs[1].Label)
	assert.Equal(t, `Carrier: "ONE" vs "—"`, diffs[1].Message)
	assert.Equal(t, "", diffs[1].SecondaryValue)
}

func TestCompare_IdenticalRecords(t *testing.T) {
	rec := model.ShipmentRecord{
		ShipmentID: "S1",
		Events: []model.NormalizedEvent{
			ev("IG", "POL", "CNYTN", "2025-02-15T09:00:00+08:00"),
			ev("VD", "POL", "CNYTN", "2025-02-18T14:00:00+08:00"),
		},
	}
	assert.Empty(t, Compare(rec, rec))
}

func TestCompare_SecondaryOnlyBucketIsSuffixed(t *testing.T) {
	p := model.ShipmentRecord{}
	s := model.ShipmentRecord{Events: []model.NormalizedEvent{
		ev("VA", "POT", "SGSIN", "2025-02-25T06:00:00+08:00"),
		ev("VA", "POT", "SGSIN", "2025-02-21T06:00:00+08:00"),
	}}

	diffs := Compare(p, s)
	require.Len(t, diffs, 3)
	assert.Equal(t, "Event Count: 0 vs 2", diffs[0].Message)

	assert.Equal(t, model.DiffEventMissing, diffs[1].Kind)
	assert.Equal(t, "Event VA @ SGSIN #1 missing in primary shipment", diffs[1].Message)
	assert.Equal(t, "2025-02-21T06:00:00+08:00", diffs[1].SecondaryValue)
	assert.Equal(t, "Event VA @ SGSIN #2 missing in primary shipment", diffs[2].Message)
	assert.Equal(t, "2025-02-25T06:00:00+08:00", diffs[2].SecondaryValue)
}

func TestCompare_PrimaryOnlyEvent(t *testing.T) {
	p := model.ShipmentRecord{Events: []model.NormalizedEvent{ev("OG", "POD", "NLRTM", "2025-03-20T10:00:00+01:00")}}
	s := model.ShipmentRecord{Events: []model.NormalizedEvent{ev("OG", "POD", "DEHAM", "2025-03-20T10:00:00+01:00")}}

	assert.Equal(t, []string{
		"Event OG @ NLRTM missing in secondary shipment",
		"Event OG @ DEHAM missing in primary shipment",
	}, messages(Compare(p, s)))
}

func TestCompare_ExtraEventInSharedBucket(t *testing.T) {
	p := model.ShipmentRecord{Events: []model.NormalizedEvent{
		ev("VA", "POT", "SGSIN", "2025-02-21T06:00:00+08:00"),
	}}
	s := model.ShipmentRecord{Events: []model.NormalizedEvent{
		ev("VA", "POT", "SGSIN", "2025-02-21T06:00:00+08:00"),
		ev("VA", "POT", "SGSIN", "2025-03-01T06:00:00+08:00"),
	}}

	assert.Equal(t, []string{
		"Event Count: 1 vs 2",
		"Event VA @ SGSIN #2 missing in primary shipment",
	}, messages(Compare(p, s)))
}

func TestCompare_TypedTimes(t *testing.T) {
	pe := ev("VD", "POL", "CNYTN", "2025-02-18T14:00:00+08:00")
	pe.EstimatedTime = "2025-02-18T14:00:00+08:00"
	pe.PlannedTime = "2025-02-17T14:00:00+08:00"
	se := pe
	se.ActualTime = "2025-02-19T02:00:00+08:00"
	se.EstimatedTime = "2025-02-18T20:00:00+08:00"

	diffs := Compare(model.ShipmentRecord{Events: []model.NormalizedEvent{pe}}, model.ShipmentRecord{Events: []model.NormalizedEvent{se}})
	require.Len(t, diffs, 2)
	assert.Equal(t, model.DiffEventTime, diffs[0].Kind)
	assert.Equal(t, "VD @ CNYTN Actual time", diffs[0].Label)
	assert.Equal(t, `Event VD @ CNYTN Actual time: "—" vs "2025-02-19T02:00:00+08:00"`, diffs[0].Message)
	assert.Equal(t, `Event VD @ CNYTN Estimated time: "2025-02-18T14:00:00+08:00" vs "2025-02-18T20:00:00+08:00"`, diffs[1].Message)
}

func TestCompare_FallsBackToDisplayTime(t *testing.T) {
	pe := ev("VD", "POL", "", "2025-02-18T14:00:00+08:00")
	pe.EventType = ""
	pe.Location = "Yantian"
	se := pe
	se.EventDateTime = "2025-02-18T16:00:00+08:00"

	diffs := Compare(model.ShipmentRecord{Events: []model.NormalizedEvent{pe}}, model.ShipmentRecord{Events: []model.NormalizedEvent{se}})
	require.Len(t, diffs, 1)
	assert.Equal(t, `Event Unknown @ Yantian time: "2025-02-18T14:00:00+08:00" vs "2025-02-18T16:00:00+08:00"`, diffs[0].Message)
}

func TestEventKey(t *testing.T) {
	assert.Equal(t, "VA|POT|SGSIN", EventKey(model.NormalizedEvent{EventCode: "VA", LocationType: "POT", UnLocationCode: "SGSIN", Location: "Singapore"}))
	assert.Equal(t, "VA|POT|Singapore", EventKey(model.NormalizedEvent{EventCode: "VA", LocationType: "POT", Location: "Singapore"}))
}

func TestIndex_SortsBucketsAndMatches(t *testing.T) {
	ix := NewIndex([]model.NormalizedEvent{
		ev("VA", "POT", "SGSIN", "not a date"),
		ev("VA", "POT", "SGSIN", "2025-02-25T06:00:00+08:00"),
		ev("VA", "POT", "MYPKG", "2025-02-20T06:00:00+08:00"),
		ev("VA", "POD", "NLRTM", "2025-03-20T06:00:00+01:00"),
		ev("VA", "POT", "SGSIN", "2025-02-21T06:00:00+08:00"),
	})

	assert.Equal(t, []string{"VA|POT|SGSIN", "VA|POT|MYPKG", "VA|POD|NLRTM"}, ix.Keys())
	b := ix.Bucket("VA|POT|SGSIN")
	require.Len(t, b, 3)
	assert.Equal(t, "2025-02-21T06:00:00+08:00", b[0].EventDateTime)
	assert.Equal(t, "not a date", b[2].EventDateTime)

	assert.Len(t, ix.Match("VA", "POT"), 4)
	assert.Len(t, ix.Match("VA", "POD"), 1)
	assert.Empty(t, ix.Match("VD", "POL"))
}
