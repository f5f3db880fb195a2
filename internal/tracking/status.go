package tracking

import "shiptrack/internal/model"

var (
	statusUnavailable = model.Status{
		Kind:        model.StatusUnavailable,
		Label:       "Status Unavailable",
		Description: "No event data has been loaded yet.",
	}
	statusCompleted = model.Status{
		Kind:        model.StatusCompleted,
		Label:       "Completed",
		Description: "Actual gate in/out recorded at the port of discharge.",
	}
	statusCompletedHK = model.Status{
		Kind:        model.StatusCompletedHongKongOnly,
		Label:       "Completed (Hong Kong Only)",
		Description: "Actual vessel departure recorded in Hong Kong with no other actual ports.",
	}
	statusInTransit = model.Status{
		Kind:        model.StatusInTransit,
		Label:       "In Transit",
		Description: "Awaiting an actual gate event at POD or an actual Hong Kong departure.",
	}
)

// fact is the slice of an event the status rules look at.
type fact struct {
	code, locationType, locationCode string
	actual                           bool
}

// ClassifyStatus applies the status rules to a display record, reading both
// its normalized events and its raw transport events.
func ClassifyStatus(rec model.ShipmentRecord) model.Status {
	if len(rec.Events) == 0 && len(rec.TransportEvents) == 0 {
		return statusUnavailable
	}
	facts := make([]fact, 0, len(rec.Events)+len(rec.TransportEvents))
	for _, e := range rec.Events {
		facts = append(facts, fact{e.EventCode, e.LocationType, e.UnLocationCode, HasActual(e)})
	}
	facts = appendTransportFacts(facts, rec.TransportEvents)
	return classify(facts)
}

// ClassifyRaw applies the same rules directly to raw provider arrays.
func ClassifyRaw(equipment []model.EquipmentEvent, transport []model.TransportEvent) model.Status {
	if len(equipment) == 0 && len(transport) == 0 {
		return statusUnavailable
	}
	facts := make([]fact, 0, len(equipment)+len(transport))
	for _, e := range equipment {
		facts = append(facts, fact{e.EventCode, e.LocationType, e.Location.UnLocationCode, e.TimeType == TimeActual})
	}
	facts = appendTransportFacts(facts, transport)
	return classify(facts)
}

func appendTransportFacts(facts []fact, transport []model.TransportEvent) []fact {
	for _, te := range transport {
		facts = append(facts, fact{te.EventCode, te.LocationType, te.Location.UnLocationCode, te.TimeType == TimeActual})
	}
	return facts
}

// classify evaluates the rules in order; the gate rule must run before the
// Hong Kong rule.
func classify(facts []fact) model.Status {
	for _, f := range facts {
		if f.actual && f.locationType == POD && (f.code == CodeGateIn || f.code == CodeGateOut) {
			return statusCompleted
		}
	}
	hkDeparture, elsewhere := false, false
	for _, f := range facts {
		if !f.actual || f.locationCode == "" {
			continue
		}
		if f.locationCode != HongKongCode {
			elsewhere = true
			continue
		}
		if f.code == CodeVesselDeparture && (f.locationType == POL || f.locationType == POT || f.locationType == POC) {
			hkDeparture = true
		}
	}
	if hkDeparture && !elsewhere {
		return statusCompletedHK
	}
	return statusInTransit
}
