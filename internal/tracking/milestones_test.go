package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiptrack/internal/model"
)

func TestDeriveMilestones_OriginAndDestination(t *testing.T) {
	equipment := []model.EquipmentEvent{
		{EventCode: "IG", LocationType: "POL", TimeType: "A", EventTime: "2025-02-15T09:00:00+08:00", Location: loc("CNYTN", "Yantian")},
		{EventCode: "AL", LocationType: "POL", TimeType: "A", EventTime: "2025-02-17T21:00:00+08:00", Location: loc("CNYTN", "Yantian")},
	}
	transport := []model.TransportEvent{
		{Seq: seq(1), EventCode: "VD", LocationType: "POL", TimeType: "A", EventTime: "2025-02-18T14:00:00+08:00", Location: loc("CNYTN", "Yantian")},
		{Seq: seq(2), EventCode: "VA", LocationType: "POD", TimeType: "E", EventTime: "2025-03-15T08:00:00+01:00", Location: loc("NLRTM", "Rotterdam")},
	}

	ms := DeriveMilestones(recordOf(equipment, transport))
	require.Len(t, ms, 6)

	assert.Equal(t, "Gate In at Port of Loading", ms[0].Label)
	assert.Equal(t, model.PhaseOrigin, ms[0].Phase)
	assert.True(t, ms[0].Completed)
	assert.Equal(t, "2025-02-15T09:00:00+08:00", ms[0].Time)
	assert.True(t, ms[1].Completed)
	assert.True(t, ms[2].Completed)

	assert.Equal(t, "Vessel Arrival at Port of Discharge", ms[3].Label)
	assert.Equal(t, model.PhaseDestination, ms[3].Phase)
	assert.False(t, ms[3].Completed)
	assert.Equal(t, "2025-03-15T08:00:00+01:00", ms[3].Time)
	assert.False(t, ms[4].Completed)
	assert.Empty(t, ms[4].Time)
	assert.False(t, ms[5].Completed)
}

func TestDeriveMilestones_TransitIncludesPortsOfCall(t *testing.T) {
	transport := []model.TransportEvent{
		{Seq: seq(1), EventCode: "VD", LocationType: "POL", TimeType: "A", EventTime: "2025-01-02T10:00:00-03:00", Location: loc("ARBUE", "Buenos Aires")},
		{Seq: seq(2), EventCode: "VA", LocationType: "POC", TimeType: "A", EventTime: "2025-01-28T06:00:00+08:00", Location: loc("SGSIN", "Singapore")},
		{Seq: seq(3), EventCode: "VD", LocationType: "POC", TimeType: "A", EventTime: "2025-01-29T18:00:00+08:00", Location: loc("SGSIN", "Singapore")},
		{Seq: seq(4), EventCode: "VA", LocationType: "POT", TimeType: "E", EventTime: "2025-01-31T07:00:00+08:00", Location: loc("MYPKG", "Port Klang")},
		{Seq: seq(5), EventCode: "VA", LocationType: "POD", TimeType: "E", EventTime: "2025-02-20T07:00:00+08:00", Location: loc("HKHKG", "Hong Kong")},
	}

	ms := DeriveMilestones(recordOf(nil, transport))
	require.Len(t, ms, 10)

	var transit []model.Milestone
	for _, m := range ms {
		if m.Phase == model.PhaseTransit {
			transit = append(transit, m)
		}
	}
	require.Len(t, transit, 4)

	assert.Equal(t, "Arrival at Singapore", transit[0].Label)
	assert.Equal(t, "POC", transit[0].LocationType)
	assert.Equal(t, "SGSIN", transit[0].LocationCode)
	assert.True(t, transit[0].Completed)
	assert.Equal(t, "Departure from Singapore", transit[1].Label)
	assert.True(t, transit[1].Completed)

	assert.Equal(t, "Arrival at Port Klang", transit[2].Label)
	assert.False(t, transit[2].Completed)
	assert.Equal(t, "2025-01-31T07:00:00+08:00", transit[2].Time)
	assert.Equal(t, "Departure from Port Klang", transit[3].Label)
	assert.False(t, transit[3].Completed)
	assert.Empty(t, transit[3].Time)
}

func TestDeriveMilestones_EquipmentActualDoesNotCompleteTransit(t *testing.T) {
	equipment := []model.EquipmentEvent{
		{EventCode: "VA", LocationType: "POT", TimeType: "A", EventTime: "2025-01-28T06:00:00+08:00", Location: loc("SGSIN", "Singapore")},
	}
	transport := []model.TransportEvent{
		{Seq: seq(1), EventCode: "VA", LocationType: "POT", TimeType: "E", EventTime: "2025-01-28T05:00:00+08:00", Location: loc("SGSIN", "Singapore")},
	}
	ms := DeriveMilestones(recordOf(equipment, transport))
	require.Len(t, ms, 8)
	assert.Equal(t, "Arrival at Singapore", ms[3].Label)
	assert.False(t, ms[3].Completed)
}

func TestDeriveMilestones_EmptyRecord(t *testing.T) {
	ms := DeriveMilestones(model.ShipmentRecord{})
	require.Len(t, ms, 6)
	for _, m := range ms {
		assert.False(t, m.Completed, m.Label)
	}
}
