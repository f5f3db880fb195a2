package tracking

import (
	"fmt"
	"sort"
	"strings"

	"shiptrack/internal/model"
)

// GroupKey is the equipment grouping key: eventCode|locationCode|locationType.
func GroupKey(code, locationCode, locationType string) string {
	return code + "|" + locationCode + "|" + locationType
}

// Normalize converts raw equipment and transport events into display events.
// Equipment records sharing a GroupKey collapse into one event that keeps
// every time type present in the group; groups keep first-occurrence order.
// Transport records map one to one, after all equipment groups.
func Normalize(equipment []model.EquipmentEvent, transport []model.TransportEvent) []model.NormalizedEvent {
	out := make([]model.NormalizedEvent, 0, len(equipment)+len(transport))
	out = append(out, groupEquipment(equipment)...)
	for _, te := range transport {
		out = append(out, normalizeTransport(te))
	}
	return out
}

func groupEquipment(events []model.EquipmentEvent) []model.NormalizedEvent {
	var order []string
	groups := map[string][]model.EquipmentEvent{}
	for _, e := range events {
		k := GroupKey(e.EventCode, e.Location.UnLocationCode, e.LocationType)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}
	out := make([]model.NormalizedEvent, 0, len(order))
	for _, k := range order {
		out = append(out, mergeGroup(groups[k]))
	}
	return out
}

func mergeGroup(group []model.EquipmentEvent) model.NormalizedEvent {
	actual := findTimeType(group, TimeActual)
	estimated := findTimeType(group, TimeEstimated)
	planned := findTimeType(group, TimePlanned)

	display := actual
	if display == nil {
		display = estimated
	}
	if display == nil {
		display = planned
	}
	if display == nil {
		display = earliest(group)
	}

	var details []string
	ev := model.NormalizedEvent{
		EventType:       EventLabel(display.EventCode, display.EventName),
		EventDateTime:   display.EventTime,
		Location:        FormatLocation(display.Location),
		Status:          fmt.Sprintf("%s - %s", ContainerStatusLabel(display.ContainerStatus), TimeTypeLabel(display.TimeType)),
		EventCode:       display.EventCode,
		LocationType:    display.LocationType,
		TimeType:        display.TimeType,
		ContainerStatus: display.ContainerStatus,
		ModeOfTransport: display.ModeOfTransport,
		FacilityCode:    display.Location.FacilityCode,
		FacilityName:    display.Location.FacilityName,
		UnLocationCode:  display.Location.UnLocationCode,
		UnLocationName:  display.Location.UnLocationName,
		DataProvider:    display.DataProvider,
	}
	if display.ConveyanceInfo != nil {
		ev.Vessel = display.ConveyanceInfo.ConveyanceName
		ev.Voyage = display.ConveyanceInfo.ConveyanceNumber
	}
	if actual != nil {
		ev.ActualTime = actual.EventTime
		details = append(details, "Actual: "+FormatTime(actual.EventTime))
	}
	if estimated != nil {
		ev.EstimatedTime = estimated.EventTime
		details = append(details, "Estimated: "+FormatTime(estimated.EventTime))
	}
	if planned != nil {
		ev.PlannedTime = planned.EventTime
		details = append(details, "Planned: "+FormatTime(planned.EventTime))
	}
	if len(details) > 1 {
		ev.TimeDetails = strings.Join(details, " | ")
	}
	ev.Description = equipmentDescription(*display, details)
	return ev
}

func findTimeType(group []model.EquipmentEvent, tt string) *model.EquipmentEvent {
	for i := range group {
		if group[i].TimeType == tt {
			return &group[i]
		}
	}
	return nil
}

// earliest picks the first record by event time; unparseable times sort last.
func earliest(group []model.EquipmentEvent) *model.EquipmentEvent {
	idx := make([]int, len(group))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return timeLess(group[idx[a]].EventTime, group[idx[b]].EventTime)
	})
	return &group[idx[0]]
}

// timeLess orders parseable timestamps chronologically ahead of unparseable ones.
func timeLess(a, b string) bool {
	ta, okA := ParseTime(a)
	tb, okB := ParseTime(b)
	switch {
	case okA && okB:
		return ta.Before(tb)
	case okA:
		return true
	default:
		return false
	}
}

func normalizeTransport(te model.TransportEvent) model.NormalizedEvent {
	ev := model.NormalizedEvent{
		EventType:       EventLabel(te.EventCode, te.EventName),
		EventDateTime:   te.EventTime,
		Location:        FormatLocation(te.Location),
		Description:     transportDescription(te),
		Status:          TimeTypeLabel(te.TimeType),
		EventCode:       te.EventCode,
		LocationType:    te.LocationType,
		TimeType:        te.TimeType,
		ModeOfTransport: te.ModeOfTransport,
		FacilityCode:    te.Location.FacilityCode,
		FacilityName:    te.Location.FacilityName,
		UnLocationCode:  te.Location.UnLocationCode,
		UnLocationName:  te.Location.UnLocationName,
		DataProvider:    te.DataProvider,
	}
	if te.Seq != nil {
		seq := *te.Seq
		ev.Seq = &seq
	}
	if te.ConveyanceInfo != nil {
		ev.Vessel = te.ConveyanceInfo.ConveyanceName
		ev.Voyage = te.ConveyanceInfo.ConveyanceNumber
	}
	return ev
}

// FormatLocation joins the facility name and the location name (or code).
func FormatLocation(loc model.Location) string {
	var parts []string
	if loc.FacilityName != "" {
		parts = append(parts, loc.FacilityName)
	}
	if loc.UnLocationName != "" {
		parts = append(parts, loc.UnLocationName)
	} else if loc.UnLocationCode != "" {
		parts = append(parts, loc.UnLocationCode)
	}
	return strings.Join(parts, ", ")
}

func equipmentDescription(e model.EquipmentEvent, details []string) string {
	var parts []string
	if e.EventName != "" {
		parts = append(parts, e.EventName)
	}
	if e.ContainerStatus != "" {
		parts = append(parts, "("+ContainerStatusLabel(e.ContainerStatus)+" container)")
	}
	if e.ModeOfTransport != "" {
		parts = append(parts, "via "+e.ModeOfTransport)
	}
	if len(details) > 1 {
		parts = append(parts, "- "+strings.Join(details, ", "))
	}
	if len(parts) == 0 {
		return "Equipment event"
	}
	return strings.Join(parts, " ")
}

func transportDescription(te model.TransportEvent) string {
	var parts []string
	if te.EventName != "" {
		parts = append(parts, te.EventName)
	}
	if te.ModeOfTransport != "" {
		parts = append(parts, "via "+te.ModeOfTransport)
	}
	if te.LocationType != "" {
		parts = append(parts, "at "+LocationTypeLabel(te.LocationType))
	}
	if len(parts) == 0 {
		return "Transport event"
	}
	return strings.Join(parts, " ")
}

// HasActual reports whether a display event carries an actual time.
func HasActual(e model.NormalizedEvent) bool {
	return e.TimeType == TimeActual || e.ActualTime != ""
}
