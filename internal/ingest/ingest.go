// Package ingest detects and parses the two accepted shipment documents: the
// raw provider format and the canonical display format.
package ingest

import (
	"bytes"
	"encoding/json"

	"shiptrack/internal/model"
	"shiptrack/internal/tracking"
)

type Format string

const (
	FormatRaw     Format = "raw"
	FormatDisplay Format = "display"
)

var rawRequired = []string{"id", "eventId", "source", "blNo", "containerNo", "containerISOCode", "shipmentType"}

// Detect classifies a document without decoding it fully.
func Detect(data []byte) (Format, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		if isJSON(data) {
			return "", &InputError{Kind: KindShape, Err: ErrUnrecognizedFormat}
		}
		return "", invalidJSON(err)
	}
	if isRaw(obj) {
		return FormatRaw, nil
	}
	if ev, ok := obj["events"]; ok {
		if isArray(ev) {
			return FormatDisplay, nil
		}
		return "", &InputError{Kind: KindEventsLayout, Err: ErrEventsNotArray}
	}
	return "", &InputError{Kind: KindShape, Err: ErrUnrecognizedFormat}
}

func isRaw(obj map[string]json.RawMessage) bool {
	for _, k := range rawRequired {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return isArray(obj["transportEvents"]) || isArray(obj["equipmentEvents"])
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isJSON(data []byte) bool {
	var v any
	return json.Unmarshal(data, &v) == nil
}

// Parse detects the document format and returns the display record. Raw
// documents are normalized; display documents are decoded as they are.
func Parse(data []byte) (model.ShipmentRecord, Format, error) {
	format, err := Detect(data)
	if err != nil {
		return model.ShipmentRecord{}, "", err
	}
	switch format {
	case FormatRaw:
		var raw model.RawShipment
		if err := json.Unmarshal(data, &raw); err != nil {
			return model.ShipmentRecord{}, "", invalidJSON(err)
		}
		return FromRaw(raw), FormatRaw, nil
	default:
		var rec model.ShipmentRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return model.ShipmentRecord{}, "", invalidJSON(err)
		}
		return rec, FormatDisplay, nil
	}
}

// FromRaw converts a provider document into a display record. Provider fields
// no display field covers are carried over as they are.
func FromRaw(raw model.RawShipment) model.ShipmentRecord {
	rec := model.ShipmentRecord{
		ShipmentID:       raw.ID,
		BookingNumber:    raw.BookingNo,
		ContainerNumber:  raw.ContainerNo,
		Carrier:          raw.ShippingLine,
		Events:           tracking.Normalize(raw.EquipmentEvents, raw.TransportEvents),
		BlNo:             raw.BlNo,
		ContainerSize:    raw.ContainerSize,
		ContainerType:    raw.ContainerType,
		ContainerISOCode: raw.ContainerISOCode,
		ShipmentType:     raw.ShipmentType,
		EventID:          raw.EventID,
		Source:           raw.Source,
		ContainerWeight:  raw.ContainerWeight,
		SealNo:           raw.SealNo,
		DG:               raw.DG,
		DMG:              raw.DMG,
		TransportEvents:  raw.TransportEvents,
		TerminalData:     raw.TerminalData,
		Extra:            raw.Extra,
	}
	if raw.POL != nil {
		rec.Origin = tracking.FormatLocation(*raw.POL)
	}
	if raw.POD != nil {
		rec.Destination = tracking.FormatLocation(*raw.POD)
	}
	return rec
}

// Describe extracts history metadata from a document of either format.
func Describe(data []byte) (model.HistoryMetadata, Format, error) {
	format, err := Detect(data)
	if err != nil {
		return model.HistoryMetadata{}, "", err
	}
	if format == FormatDisplay {
		var rec model.ShipmentRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return model.HistoryMetadata{}, "", invalidJSON(err)
		}
		return model.HistoryMetadata{
			ShipmentID:      rec.ShipmentID,
			BlNo:            rec.BlNo,
			ContainerNumber: rec.ContainerNumber,
			POL:             rec.Origin,
			POD:             rec.Destination,
		}, format, nil
	}
	var raw model.RawShipment
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.HistoryMetadata{}, "", invalidJSON(err)
	}
	return model.HistoryMetadata{
		ShipmentID:      raw.ID,
		BlNo:            raw.BlNo,
		ContainerNumber: raw.ContainerNo,
		POL:             portCode(raw.POL),
		POD:             portCode(raw.POD),
	}, format, nil
}

func portCode(l *model.Location) string {
	if l == nil {
		return ""
	}
	if l.UnLocationCode != "" {
		return l.UnLocationCode
	}
	return l.UnLocationName
}
