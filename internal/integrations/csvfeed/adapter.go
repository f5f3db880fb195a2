// Package csvfeed reads carrier CSV exports with one event per row.
package csvfeed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"shiptrack/internal/integrations"
	"shiptrack/internal/model"
)

// Columns lists the header names the adapter understands. Order in the file
// does not matter and unknown columns are ignored.
var Columns = []string{
	"shipmentId", "blNo", "containerNo", "containerISOCode", "shipmentType", "source",
	"kind", "seq", "eventCode", "eventName", "locationType", "eventTime", "timeType",
	"unLocationCode", "unLocationName", "facilityCode", "facilityName",
	"containerStatus", "modeOfTransport", "conveyanceName", "conveyanceNumber",
	"dataProvider", "dataProviderPriority",
}

var required = []string{"shipmentId", "kind", "eventCode"}

var ErrMissingColumn = errors.New("csvfeed: missing required column")

// RowError reports a bad data row; Line is 1-based and counts the header.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("csvfeed: line %d: %v", e.Line, e.Err) }
func (e *RowError) Unwrap() error { return e.Err }

type Adapter struct{}

var _ integrations.FeedAdapter = Adapter{}

func (Adapter) Name() string { return "csv" }

func (Adapter) MapStatus(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if mapped, ok := integrations.CommonStatusCodes[c]; ok {
		return mapped
	}
	return c
}

// Fetch groups rows into shipments by shipmentId, in order of first
// appearance. Events keep row order within a shipment.
func (a Adapter) Fetch(ctx context.Context, r io.Reader) ([]model.RawShipment, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csvfeed: read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := cols[strings.ToLower(name)]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	var (
		order []string
		byID  = map[string]*model.RawShipment{}
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &RowError{Line: pe.Line, Err: pe.Err}
			}
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := func(name string) string {
			i, ok := cols[strings.ToLower(name)]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if isBlank(rec) {
			continue
		}

		id := row("shipmentId")
		if id == "" {
			return nil, &RowError{Line: line, Err: errors.New("empty shipmentId")}
		}
		s, ok := byID[id]
		if !ok {
			s = &model.RawShipment{
				ID:               id,
				BlNo:             row("blNo"),
				ContainerNo:      row("containerNo"),
				ContainerISOCode: row("containerISOCode"),
				ShipmentType:     row("shipmentType"),
				Source:           row("source"),
			}
			byID[id] = s
			order = append(order, id)
		}
		if err := a.addEvent(s, row); err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
	}

	out := make([]model.RawShipment, 0, len(order))
	for _, id := range order {
		s := byID[id]
		s.POL = portOf(s.TransportEvents, "POL")
		s.POD = portOf(s.TransportEvents, "POD")
		out = append(out, *s)
	}
	return out, nil
}

func (a Adapter) addEvent(s *model.RawShipment, row func(string) string) error {
	code := a.MapStatus(row("eventCode"))
	loc := model.Location{
		UnLocationCode: row("unLocationCode"),
		UnLocationName: row("unLocationName"),
		FacilityCode:   row("facilityCode"),
		FacilityName:   row("facilityName"),
	}
	var conv *model.ConveyanceInfo
	if n, v := row("conveyanceName"), row("conveyanceNumber"); n != "" || v != "" {
		conv = &model.ConveyanceInfo{ConveyanceName: n, ConveyanceNumber: v}
	}
	priority, err := optionalFloat(row("dataProviderPriority"))
	if err != nil {
		return fmt.Errorf("dataProviderPriority: %w", err)
	}
	timeType := strings.ToUpper(row("timeType"))

	switch strings.ToLower(row("kind")) {
	case "equipment":
		s.EquipmentEvents = append(s.EquipmentEvents, model.EquipmentEvent{
			EventCode:            code,
			EventName:            row("eventName"),
			LocationType:         row("locationType"),
			EventTime:            row("eventTime"),
			TimeType:             timeType,
			ContainerStatus:      row("containerStatus"),
			ModeOfTransport:      row("modeOfTransport"),
			DataProvider:         row("dataProvider"),
			DataProviderPriority: priority,
			ConveyanceInfo:       conv,
			Location:             loc,
		})
	case "transport":
		seq, err := optionalInt(row("seq"))
		if err != nil {
			return fmt.Errorf("seq: %w", err)
		}
		s.TransportEvents = append(s.TransportEvents, model.TransportEvent{
			Seq:                  seq,
			EventCode:            code,
			EventName:            row("eventName"),
			LocationType:         row("locationType"),
			EventTime:            row("eventTime"),
			TimeType:             timeType,
			ModeOfTransport:      row("modeOfTransport"),
			ConveyanceInfo:       conv,
			Location:             loc,
			DataProvider:         row("dataProvider"),
			DataProviderPriority: priority,
		})
	default:
		return fmt.Errorf("kind %q is neither equipment nor transport", row("kind"))
	}
	return nil
}

func portOf(events []model.TransportEvent, locType string) *model.Location {
	for _, te := range events {
		if te.LocationType == locType && (te.Location.UnLocationCode != "" || te.Location.UnLocationName != "") {
			loc := te.Location
			return &loc
		}
	}
	return nil
}

func optionalInt(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func optionalFloat(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
