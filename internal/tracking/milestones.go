package tracking

import "shiptrack/internal/model"

type checkpoint struct {
	code, locationType, label string
}

var (
	originCheckpoints = []checkpoint{
		{CodeGateIn, POL, "Gate In at Port of Loading"},
		{CodeLoadedVessel, POL, "Loaded on Vessel at Port of Loading"},
		{CodeVesselDeparture, POL, "Vessel Departure from Port of Loading"},
	}
	destinationCheckpoints = []checkpoint{
		{CodeVesselArrival, POD, "Vessel Arrival at Port of Discharge"},
		{CodeUnloadedVessel, POD, "Unloaded from Vessel at Port of Discharge"},
		{CodeGateOut, POD, "Gate Out at Port of Discharge"},
	}
)

// DeriveMilestones returns the journey checklist: origin checkpoints, an
// arrival and departure per transhipment or call port, then destination
// checkpoints.
//
// Origin and destination milestones complete when an actual record exists
// for the (code, location type) pair in either stream. Transit milestones
// complete only on an actual transport record at that exact location code.
func DeriveMilestones(rec model.ShipmentRecord) []model.Milestone {
	var out []model.Milestone
	for _, c := range originCheckpoints {
		out = append(out, fixedMilestone(rec, c, model.PhaseOrigin))
	}
	for _, port := range transitPorts(rec.TransportEvents) {
		out = append(out,
			transitMilestone(rec.TransportEvents, port, CodeVesselArrival, "Arrival at "+port.name),
			transitMilestone(rec.TransportEvents, port, CodeVesselDeparture, "Departure from "+port.name),
		)
	}
	for _, c := range destinationCheckpoints {
		out = append(out, fixedMilestone(rec, c, model.PhaseDestination))
	}
	return out
}

func fixedMilestone(rec model.ShipmentRecord, c checkpoint, phase model.Phase) model.Milestone {
	m := model.Milestone{Label: c.label, EventCode: c.code, LocationType: c.locationType, Phase: phase}
	var pending string
	for _, e := range rec.Events {
		if e.EventCode != c.code || e.LocationType != c.locationType {
			continue
		}
		if HasActual(e) {
			m.Completed = true
			m.Time = firstNonEmpty(e.ActualTime, e.EventDateTime)
			return m
		}
		if pending == "" {
			pending = firstNonEmpty(e.EstimatedTime, e.PlannedTime, e.EventDateTime)
		}
	}
	for _, te := range rec.TransportEvents {
		if te.EventCode != c.code || te.LocationType != c.locationType {
			continue
		}
		if te.TimeType == TimeActual {
			m.Completed = true
			m.Time = te.EventTime
			return m
		}
		if pending == "" {
			pending = te.EventTime
		}
	}
	m.Time = pending
	return m
}

type transitPort struct {
	code, locationType, name string
}

// transitPorts lists distinct POT and POC codes in route order.
func transitPorts(transport []model.TransportEvent) []transitPort {
	var out []transitPort
	seen := map[string]bool{}
	for _, e := range ResolveTransport(transport) {
		if e.LocationType != POT && e.LocationType != POC {
			continue
		}
		code := e.Location.UnLocationCode
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		name := e.Location.UnLocationName
		if name == "" {
			name = code
		}
		out = append(out, transitPort{code: code, locationType: e.LocationType, name: name})
	}
	return out
}

func transitMilestone(transport []model.TransportEvent, port transitPort, code, label string) model.Milestone {
	m := model.Milestone{
		Label:        label,
		EventCode:    code,
		LocationType: port.locationType,
		LocationCode: port.code,
		Phase:        model.PhaseTransit,
	}
	for _, te := range transport {
		if te.EventCode != code || te.Location.UnLocationCode != port.code {
			continue
		}
		if te.TimeType == TimeActual {
			m.Completed = true
			m.Time = te.EventTime
			return m
		}
		if m.Time == "" {
			m.Time = te.EventTime
		}
	}
	return m
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
