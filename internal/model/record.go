package model

import "encoding/json"

// NormalizedEvent is the canonical display event. Equipment events are grouped
// so ActualTime, EstimatedTime and PlannedTime can all be set at once while
// EventDateTime carries the one that is displayed.
type NormalizedEvent struct {
	EventType       string      `json:"eventType"`
	EventDateTime   string      `json:"eventDateTime"`
	Location        string      `json:"location,omitempty"`
	Description     string      `json:"description"`
	Vessel          string      `json:"vessel,omitempty"`
	Voyage          string      `json:"voyage,omitempty"`
	Status          string      `json:"status,omitempty"`
	Seq             *int        `json:"seq,omitempty"`
	EventCode       string      `json:"eventCode,omitempty"`
	LocationType    string      `json:"locationType,omitempty"`
	TimeType        string      `json:"timeType,omitempty"`
	ContainerStatus string      `json:"containerStatus,omitempty"`
	ModeOfTransport string      `json:"modeOfTransport,omitempty"`
	FacilityCode    string      `json:"facilityCode,omitempty"`
	FacilityName    string      `json:"facilityName,omitempty"`
	UnLocationCode  string      `json:"unLocationCode,omitempty"`
	UnLocationName  string      `json:"unLocationName,omitempty"`
	DataProvider    string      `json:"dataProvider,omitempty"`
	ActualTime      string      `json:"actualTime,omitempty"`
	EstimatedTime   string      `json:"estimatedTime,omitempty"`
	PlannedTime     string      `json:"plannedTime,omitempty"`
	TimeDetails     string      `json:"timeDetails,omitempty"`
	Prediction      *Prediction `json:"aiPrediction,omitempty"`
	PredictedTime   string      `json:"predictedTime,omitempty"`

	// Extra keeps provider fields this type does not model.
	Extra map[string]json.RawMessage `json:"-"`
}

// ShipmentRecord is the canonical display format: one shipment with its
// normalized events plus the raw transport events the route needs.
type ShipmentRecord struct {
	ShipmentID       string            `json:"shipmentId,omitempty"`
	Origin           string            `json:"origin,omitempty"`
	Destination      string            `json:"destination,omitempty"`
	Carrier          string            `json:"carrier,omitempty"`
	BookingNumber    string            `json:"bookingNumber,omitempty"`
	ContainerNumber  string            `json:"containerNumber,omitempty"`
	Events           []NormalizedEvent `json:"events"`
	BlNo             string            `json:"blNo,omitempty"`
	ContainerSize    string            `json:"containerSize,omitempty"`
	ContainerType    string            `json:"containerType,omitempty"`
	ContainerISOCode string            `json:"containerISOCode,omitempty"`
	ShipmentType     string            `json:"shipmentType,omitempty"`
	EventID          string            `json:"eventId,omitempty"`
	Source           string            `json:"source,omitempty"`
	ContainerWeight  string            `json:"containerWeight,omitempty"`
	SealNo           []string          `json:"sealNo,omitempty"`
	DG               []string          `json:"dg,omitempty"`
	DMG              []string          `json:"dmg,omitempty"`
	TransportEvents  []TransportEvent  `json:"transportEvents,omitempty"`
	TerminalData     *TerminalData     `json:"terminalData,omitempty"`
	Insights         *Insights         `json:"aiInsights,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var (
	normalizedEventFields = jsonFieldNames(NormalizedEvent{})
	shipmentRecordFields  = jsonFieldNames(ShipmentRecord{})
)

func (e *NormalizedEvent) UnmarshalJSON(data []byte) error {
	type plain NormalizedEvent
	var p plain
	extra, err := decodeWithExtra(data, &p, normalizedEventFields)
	if err != nil {
		return err
	}
	*e = NormalizedEvent(p)
	e.Extra = extra
	return nil
}

func (e NormalizedEvent) MarshalJSON() ([]byte, error) {
	type plain NormalizedEvent
	return encodeWithExtra(plain(e), e.Extra)
}

func (r *ShipmentRecord) UnmarshalJSON(data []byte) error {
	type plain ShipmentRecord
	var p plain
	extra, err := decodeWithExtra(data, &p, shipmentRecordFields)
	if err != nil {
		return err
	}
	*r = ShipmentRecord(p)
	r.Extra = extra
	return nil
}

func (r ShipmentRecord) MarshalJSON() ([]byte, error) {
	type plain ShipmentRecord
	return encodeWithExtra(plain(r), r.Extra)
}
