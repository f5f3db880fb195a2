// Package insights estimates delays for events that have not happened yet.
//
// The model is a fixed-weight linear heuristic over three inputs: the gap to
// the last actual event, the dwell time at the event's port and the best
// provider priority reported for that port.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"shiptrack/internal/model"
	"shiptrack/internal/tracking"
)

const ModelVersion = "tfjs-mvp-1"

// Model maps normalized inputs to a raw score.
type Model interface {
	Score(gap, dwell, priority float64) float64
}

// Linear is a single dense unit.
type Linear struct {
	Weights [3]float64
	Bias    float64
}

func DefaultModel() Linear {
	return Linear{Weights: [3]float64{0.08, 0.35, 0.12}, Bias: 0.05}
}

func (l Linear) Score(gap, dwell, priority float64) float64 {
	return l.Weights[0]*gap + l.Weights[1]*dwell + l.Weights[2]*priority + l.Bias
}

type Predictor struct {
	Model Model
	Now   func() time.Time
}

func NewPredictor() *Predictor {
	return &Predictor{Model: DefaultModel(), Now: time.Now}
}

// Estimate turns raw inputs into a delay in hours and a confidence in
// [0.35, 0.95].
func (p *Predictor) Estimate(gapHours, dwellHours, priority float64) (delay, confidence float64) {
	raw := p.Model.Score(scale(gapHours, 96), scale(dwellHours, 72), scale(priority, 5))
	delay = math.Max(0, raw*12)
	confidence = tracking.Round2(math.Max(0.35, math.Min(0.95, 0.55+raw*0.5)))
	return delay, confidence
}

func scale(v, max float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Min(1, math.Max(0, v/max))
}

type portTiming struct {
	arrival, departure string
	priority           *float64
	dwell              float64
}

func portTimings(transport []model.TransportEvent) map[string]*portTiming {
	ports := map[string]*portTiming{}
	for _, te := range transport {
		code := te.Location.UnLocationCode
		pt, ok := ports[code]
		if !ok {
			pt = &portTiming{}
			ports[code] = pt
		}
		switch te.EventCode {
		case tracking.CodeVesselArrival, tracking.CodeRailArrival:
			pt.arrival = te.EventTime
		case tracking.CodeVesselDeparture, tracking.CodeRailDeparture:
			pt.departure = te.EventTime
		}
		if te.DataProviderPriority != nil {
			if pt.priority == nil || *te.DataProviderPriority < *pt.priority {
				v := *te.DataProviderPriority
				pt.priority = &v
			}
		}
	}
	for _, pt := range ports {
		a, okA := tracking.ParseTime(pt.arrival)
		d, okD := tracking.ParseTime(pt.departure)
		if okA && okD && d.After(a) {
			pt.dwell = tracking.Round1(tracking.HoursBetween(a, d))
		}
	}
	return ports
}

// Predict returns one prediction per event without an actual time, in
// chronological order. The gap is measured from the closest earlier actual
// event and counts as 24h when it is zero.
func (p *Predictor) Predict(rec model.ShipmentRecord) []model.Prediction {
	if len(rec.Events) == 0 {
		return nil
	}
	ports := portTimings(rec.TransportEvents)
	events := make([]model.NormalizedEvent, len(rec.Events))
	copy(events, rec.Events)
	sort.SliceStable(events, func(i, j int) bool {
		ti, okI := tracking.ParseTime(events[i].EventDateTime)
		tj, okJ := tracking.ParseTime(events[j].EventDateTime)
		if okI && okJ {
			return ti.Before(tj)
		}
		return okI
	})

	var out []model.Prediction
	for i, ev := range events {
		if tracking.HasActual(ev) {
			continue
		}
		target, ok := tracking.ParseTime(firstNonEmpty(ev.EstimatedTime, ev.PlannedTime, ev.EventDateTime))
		if !ok {
			continue
		}
		reference := target
		if prev, ok := previousActual(events, i); ok {
			reference = prev
		}
		gap := math.Max(0, tracking.HoursBetween(reference, target))
		if gap == 0 {
			gap = 24
		}
		dwell, priority := 0.0, 1.0
		if pt, ok := ports[ev.UnLocationCode]; ok {
			dwell = pt.dwell
			if pt.priority != nil {
				priority = *pt.priority
			}
		}

		delay, confidence := p.Estimate(gap, dwell, priority)
		predicted := target.Add(time.Duration(delay * float64(time.Hour)))
		out = append(out, model.Prediction{
			TargetEventCode: ev.EventCode,
			LocationCode:    ev.UnLocationCode,
			PredictedTime:   predicted.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			DelayHours:      tracking.Round1(delay),
			RiskLevel:       riskLevel(delay),
			Confidence:      confidence,
			Drivers:         drivers(delay, dwell, priority),
		})
	}
	return out
}

// previousActual returns the time of the closest earlier event that has an
// actual time.
func previousActual(events []model.NormalizedEvent, i int) (time.Time, bool) {
	for j := i - 1; j >= 0; j-- {
		if !tracking.HasActual(events[j]) {
			continue
		}
		return tracking.ParseTime(firstNonEmpty(events[j].ActualTime, events[j].EventDateTime))
	}
	return time.Time{}, false
}

func riskLevel(delay float64) model.RiskLevel {
	switch {
	case delay > 6:
		return model.RiskHigh
	case delay > 2:
		return model.RiskMedium
	}
	return model.RiskLow
}

func drivers(delay, dwell, priority float64) []string {
	var out []string
	if dwell > 0 {
		out = append(out, fmt.Sprintf("dwell:%sh", trim(tracking.Round1(dwell))))
	}
	if priority > 1 {
		out = append(out, "priority:"+trim(priority))
	}
	if delay > 0 {
		out = append(out, fmt.Sprintf("delta:%sh", trim(tracking.Round1(delay))))
	}
	return out
}

func trim(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Enrich returns a copy of rec with insights attached. Events without an
// actual time get the first prediction matching their code and location.
func (p *Predictor) Enrich(rec model.ShipmentRecord) model.ShipmentRecord {
	preds := p.Predict(rec)
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	if preds == nil {
		preds = []model.Prediction{}
	}
	rec.Insights = &model.Insights{
		ModelVersion: ModelVersion,
		GeneratedAt:  now().UTC().Format(time.RFC3339Nano),
		Predictions:  preds,
	}
	events := make([]model.NormalizedEvent, len(rec.Events))
	for i, ev := range rec.Events {
		events[i] = ev
		if tracking.HasActual(ev) {
			continue
		}
		for j := range preds {
			pr := preds[j]
			if pr.TargetEventCode == ev.EventCode && (pr.LocationCode == "" || pr.LocationCode == ev.UnLocationCode) {
				events[i].Prediction = &pr
				events[i].PredictedTime = pr.PredictedTime
				break
			}
		}
	}
	rec.Events = events
	return rec
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
