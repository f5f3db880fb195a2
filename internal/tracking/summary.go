package tracking

import (
	"math"
	"strconv"
	"strings"

	"shiptrack/internal/model"
)

// Summary is the headline view of one shipment.
type Summary struct {
	Status              model.Status           `json:"status"`
	ShipmentTypeLabel   string                 `json:"shipmentTypeLabel,omitempty"`
	TotalEvents         int                    `json:"totalEvents"`
	TransportEventCount int                    `json:"transportEventCount"`
	UndatedEvents       int                    `json:"undatedEvents"`
	FirstEvent          *model.NormalizedEvent `json:"firstEvent,omitempty"`
	LatestEvent         *model.NormalizedEvent `json:"latestEvent,omitempty"`
	Indicators          Indicators             `json:"indicators"`
	Progress            *Progress              `json:"voyageProgress,omitempty"`
}

type Indicators struct {
	Reefer         bool `json:"reefer"`
	DangerousGoods bool `json:"dangerousGoods"`
	Damaged        bool `json:"damaged"`
	ReeferMismatch bool `json:"reeferTemperatureMismatch"`
}

// Progress counts departure legs of the transport stream.
type Progress struct {
	TotalLegs     int `json:"totalLegs"`
	CompletedLegs int `json:"completedLegs"`
	Percent       int `json:"percent"`
}

// Variance compares an event's actual time with its estimate.
type Variance struct {
	DiffHours float64 `json:"diffHours"`
	Late      bool    `json:"late"`
	Tone      string  `json:"tone"`
}

// reeferTolerance is the allowed gap between required and read temperature.
const reeferTolerance = 0.5

func Summarize(rec model.ShipmentRecord) Summary {
	s := Summary{
		Status:              ClassifyStatus(rec),
		TotalEvents:         len(rec.Events),
		TransportEventCount: len(rec.TransportEvents),
		Progress:            VoyageProgress(rec.TransportEvents),
	}
	if rec.ShipmentType != "" {
		s.ShipmentTypeLabel = ShipmentTypeLabel(rec.ShipmentType)
	}
	dated, undated := SplitDated(rec.Events)
	s.UndatedEvents = len(undated)
	if len(dated) > 0 {
		first, last := dated[0], dated[len(dated)-1]
		s.FirstEvent, s.LatestEvent = &first, &last
	}
	s.Indicators.DangerousGoods = len(rec.DG) > 0
	s.Indicators.Damaged = len(rec.DMG) > 0
	if rec.TerminalData != nil && rec.TerminalData.ReeferData != nil {
		s.Indicators.Reefer = true
		s.Indicators.ReeferMismatch = ReeferMismatch(*rec.TerminalData.ReeferData)
	}
	return s
}

// VoyageProgress returns nil when there are no transport events.
func VoyageProgress(transport []model.TransportEvent) *Progress {
	if len(transport) == 0 {
		return nil
	}
	p := &Progress{}
	for _, te := range transport {
		if !isDeparture(te.EventCode) {
			continue
		}
		p.TotalLegs++
		if te.TimeType == TimeActual {
			p.CompletedLegs++
		}
	}
	if p.TotalLegs > 0 {
		p.Percent = int(math.Round(100 * float64(p.CompletedLegs) / float64(p.TotalLegs)))
	}
	return p
}

// ETAVariance returns nil unless both actual and estimated times parse.
func ETAVariance(e model.NormalizedEvent) *Variance {
	actual, okA := ParseTime(e.ActualTime)
	estimated, okE := ParseTime(e.EstimatedTime)
	if !okA || !okE {
		return nil
	}
	diff := Round1(math.Abs(HoursBetween(estimated, actual)))
	v := &Variance{DiffHours: diff, Late: actual.After(estimated)}
	switch {
	case diff <= 2:
		v.Tone = "green"
	case diff <= 12:
		v.Tone = "amber"
	default:
		v.Tone = "red"
	}
	return v
}

// ReeferMismatch reports a reading that drifted from the required
// temperature. Readings in different units or that do not parse are not
// compared.
func ReeferMismatch(r model.ReeferData) bool {
	if !strings.EqualFold(strings.TrimSpace(r.RequireTempUnit), strings.TrimSpace(r.ReadingTempUnit)) {
		return false
	}
	req, err1 := strconv.ParseFloat(strings.TrimSpace(r.RequireTemp), 64)
	got, err2 := strconv.ParseFloat(strings.TrimSpace(r.ReadingTemp), 64)
	if err1 != nil || err2 != nil {
		return false
	}
	return math.Abs(req-got) > reeferTolerance
}
