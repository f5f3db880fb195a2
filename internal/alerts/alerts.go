// Package alerts derives severity-tagged notices from a primary shipment and
// a newer secondary version of it.
package alerts

import (
	"fmt"
	"math"

	"shiptrack/internal/compare"
	"shiptrack/internal/model"
	"shiptrack/internal/tracking"
)

const DefaultThresholdHours = 24

// Thresholds are the estimated-time drift limits in hours. A zero value
// selects DefaultThresholdHours.
type Thresholds struct {
	POLDepartureHours float64 `json:"polDepartureHours" yaml:"polDepartureHours"`
	PODArrivalHours   float64 `json:"podArrivalHours" yaml:"podArrivalHours"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{POLDepartureHours: DefaultThresholdHours, PODArrivalHours: DefaultThresholdHours}
}

type Engine struct {
	Thresholds Thresholds
}

func NewEngine(t Thresholds) *Engine {
	if t.POLDepartureHours == 0 {
		t.POLDepartureHours = DefaultThresholdHours
	}
	if t.PODArrivalHours == 0 {
		t.PODArrivalHours = DefaultThresholdHours
	}
	return &Engine{Thresholds: t}
}

type pair struct{ code, locationType string }

var infoPairs = []pair{
	{tracking.CodeGateIn, tracking.POL},
	{tracking.CodeGateOut, tracking.POL},
	{tracking.CodeVesselDeparture, tracking.POL},
	{tracking.CodeVesselArrival, tracking.POD},
	{tracking.CodeGateIn, tracking.POD},
	{tracking.CodeGateOut, tracking.POD},
}

// side is one shipment as the rules read it.
type side struct {
	rec model.ShipmentRecord
	ix  *compare.Index
}

func newSide(rec model.ShipmentRecord) side {
	return side{rec: rec, ix: compare.NewIndex(rec.Events)}
}

func (s side) empty() bool {
	return len(s.rec.Events) == 0 && len(s.rec.TransportEvents) == 0
}

// Evaluate returns info alerts, then drift warnings, then the route warning.
// Either side without events yields no alerts.
func (e *Engine) Evaluate(primary, secondary model.ShipmentRecord) []model.Alert {
	p, s := newSide(primary), newSide(secondary)
	if p.empty() || s.empty() {
		return nil
	}
	var out []model.Alert
	for _, pr := range infoPairs {
		if a, ok := infoAlert(p, s, pr); ok {
			out = append(out, a)
		}
	}
	if a, ok := driftAlert(p, s, pair{tracking.CodeVesselDeparture, tracking.POL}, e.Thresholds.POLDepartureHours); ok {
		out = append(out, a)
	}
	if a, ok := driftAlert(p, s, pair{tracking.CodeVesselArrival, tracking.POD}, e.Thresholds.PODArrivalHours); ok {
		out = append(out, a)
	}
	if a, ok := routeAlert(p, s); ok {
		out = append(out, a)
	}
	return out
}

// occurrence is an actual sighting of a pair, from either stream.
type occurrence struct {
	location, at, vessel, voyage string
}

func (s side) actual(pr pair) (occurrence, bool) {
	for _, ev := range s.ix.Match(pr.code, pr.locationType) {
		if tracking.HasActual(ev) {
			loc := ev.Location
			if loc == "" {
				loc = ev.UnLocationCode
			}
			return occurrence{loc, firstNonEmpty(ev.ActualTime, ev.EventDateTime), ev.Vessel, ev.Voyage}, true
		}
	}
	for _, te := range s.rec.TransportEvents {
		if te.EventCode == pr.code && te.LocationType == pr.locationType && te.TimeType == tracking.TimeActual {
			o := occurrence{location: tracking.FormatLocation(te.Location), at: te.EventTime}
			if te.ConveyanceInfo != nil {
				o.vessel, o.voyage = te.ConveyanceInfo.ConveyanceName, te.ConveyanceInfo.ConveyanceNumber
			}
			return o, true
		}
	}
	return occurrence{}, false
}

// estimate prefers an estimated transport record and falls back to the
// first event carrying an estimated time.
func (s side) estimate(pr pair) (string, bool) {
	for _, te := range s.rec.TransportEvents {
		if te.EventCode == pr.code && te.LocationType == pr.locationType && te.TimeType == tracking.TimeEstimated {
			return te.EventTime, true
		}
	}
	for _, ev := range s.ix.Match(pr.code, pr.locationType) {
		if ev.EstimatedTime != "" {
			return ev.EstimatedTime, true
		}
		if ev.TimeType == tracking.TimeEstimated && ev.EventDateTime != "" {
			return ev.EventDateTime, true
		}
	}
	return "", false
}

func infoAlert(p, s side, pr pair) (model.Alert, bool) {
	occ, ok := s.actual(pr)
	if !ok {
		return model.Alert{}, false
	}
	if _, seen := p.actual(pr); seen {
		return model.Alert{}, false
	}
	msg := fmt.Sprintf("Actual %s recorded at %s", tracking.CodeLabel(pr.code), pr.locationType)
	if occ.location != "" {
		msg += " (" + occ.location + ")"
	}
	msg += " on " + tracking.FormatTime(occ.at)
	if (pr.code == tracking.CodeVesselDeparture || pr.code == tracking.CodeVesselArrival) && occ.vessel != "" {
		msg += " by " + occ.vessel
		if occ.voyage != "" {
			msg += " " + occ.voyage
		}
	}
	return model.Alert{
		Level:        model.AlertInfo,
		Category:     pr.locationType,
		Message:      msg,
		EventCode:    pr.code,
		LocationType: pr.locationType,
	}, true
}

func driftAlert(p, s side, pr pair, threshold float64) (model.Alert, bool) {
	if _, ok := s.actual(pr); ok {
		return model.Alert{}, false
	}
	pv, okP := p.estimate(pr)
	sv, okS := s.estimate(pr)
	if !okP || !okS {
		return model.Alert{}, false
	}
	pt, okP := tracking.ParseTime(pv)
	st, okS := tracking.ParseTime(sv)
	if !okP || !okS {
		return model.Alert{}, false
	}
	diff := tracking.HoursBetween(pt, st)
	if math.Abs(diff) < threshold {
		return model.Alert{}, false
	}
	direction := "delayed"
	if diff < 0 {
		direction = "advanced"
	}
	what := "Vessel Departure at POL"
	if pr.locationType == tracking.POD {
		what = "Vessel Arrival at POD"
	}
	delta := tracking.Round1(diff)
	return model.Alert{
		Level:    model.AlertWarning,
		Category: pr.locationType,
		Message: fmt.Sprintf("Estimated %s %s by %.1fh: %q → %q",
			what, direction, math.Abs(diff), tracking.FormatTime(pv), tracking.FormatTime(sv)),
		EventCode:    pr.code,
		LocationType: pr.locationType,
		DeltaHours:   &delta,
	}, true
}

func routeAlert(p, s side) (model.Alert, bool) {
	pc, sc := len(p.transhipmentPorts()), len(s.transhipmentPorts())
	if pc == sc {
		return model.Alert{}, false
	}
	return model.Alert{
		Level:        model.AlertWarning,
		Category:     model.CategoryRoute,
		Message:      fmt.Sprintf("Transhipment port count changed: %d vs %d", pc, sc),
		LocationType: tracking.POT,
	}, true
}

// transhipmentPorts collects distinct POT codes from both streams.
func (s side) transhipmentPorts() map[string]struct{} {
	ports := map[string]struct{}{}
	for _, te := range s.rec.TransportEvents {
		if te.LocationType == tracking.POT && te.Location.UnLocationCode != "" {
			ports[te.Location.UnLocationCode] = struct{}{}
		}
	}
	for _, ev := range s.rec.Events {
		if ev.LocationType == tracking.POT && ev.UnLocationCode != "" {
			ports[ev.UnLocationCode] = struct{}{}
		}
	}
	return ports
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
