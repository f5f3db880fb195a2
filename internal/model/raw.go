package model

import "encoding/json"

// Raw provider format (the carrier "OpShipmentEventRaw" document).

type Location struct {
	FacilityCode   string `json:"facilityCode,omitempty"`
	FacilityName   string `json:"facilityName,omitempty"`
	UnLocationCode string `json:"unLocationCode"`
	UnLocationName string `json:"unLocationName"`
}

type ConveyanceInfo struct {
	ConveyanceName   string `json:"conveyanceName"`
	ConveyanceNumber string `json:"conveyanceNumber"`
}

// TransportEvent is a voyage-leg milestone. Seq and DataProviderPriority are
// optional; nil means the provider did not send them.
type TransportEvent struct {
	Seq                  *int            `json:"seq,omitempty"`
	EventCode            string          `json:"eventCode"`
	EventName            string          `json:"eventName,omitempty"`
	LocationType         string          `json:"locationType"`
	EventTime            string          `json:"eventTime"`
	TimeType             string          `json:"timeType"`
	ModeOfTransport      string          `json:"modeOfTransport,omitempty"`
	ConveyanceInfo       *ConveyanceInfo `json:"conveyanceInfo,omitempty"`
	Location             Location        `json:"location"`
	DataProvider         string          `json:"DataProvider,omitempty"`
	DataProviderPriority *float64        `json:"DataProviderPriority,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// EquipmentEvent is a container-centric milestone.
type EquipmentEvent struct {
	EventCode            string          `json:"eventCode"`
	EventName            string          `json:"eventName,omitempty"`
	LocationType         string          `json:"locationType"`
	EventTime            string          `json:"eventTime"`
	TimeType             string          `json:"timeType"`
	ContainerStatus      string          `json:"containerStatus,omitempty"`
	ModeOfTransport      string          `json:"modeOfTransport,omitempty"`
	DataProvider         string          `json:"DataProvider,omitempty"`
	DataProviderPriority *float64        `json:"DataProviderPriority,omitempty"`
	ConveyanceInfo       *ConveyanceInfo `json:"conveyanceInfo,omitempty"`
	Location             Location        `json:"location"`
}

type ReeferData struct {
	ID                 string `json:"id,omitempty"`
	EventID            string `json:"eventId,omitempty"`
	EventTime          string `json:"eventTime,omitempty"`
	Terminal           string `json:"terminal,omitempty"`
	ContainerNumber    string `json:"containerNumber,omitempty"`
	VesselName         string `json:"vesselName,omitempty"`
	VoyageNumber       string `json:"voyageNumber,omitempty"`
	RequireTemp        string `json:"requireTemp"`
	RequireTempUnit    string `json:"requireTempUnit"`
	ReadingTemp        string `json:"readingTemp"`
	ReadingTempUnit    string `json:"readingTempUnit"`
	ReadingTime        string `json:"readingTime"`
	ShipmentType       string `json:"shipmentType,omitempty"`
	ShippingLine       string `json:"shippingLine,omitempty"`
	BillOfLadingNumber string `json:"billOfLadingNumber,omitempty"`
	BookingNumber      string `json:"bookingNumber,omitempty"`
}

// TerminalData is the terminal's own view of the container. Hotbox readings
// are kept opaque.
type TerminalData struct {
	ID                 string          `json:"id,omitempty"`
	ContainerNo        string          `json:"containerNo,omitempty"`
	ShipmentType       string          `json:"shipmentType,omitempty"`
	ShippingLine       string          `json:"shippingLine,omitempty"`
	BillOfLadingNumber string          `json:"billOfLadingNumber,omitempty"`
	BookingNumber      string          `json:"bookingNumber,omitempty"`
	ReeferData         *ReeferData     `json:"reeferData,omitempty"`
	HotboxData         json.RawMessage `json:"hotboxData,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// RawShipment is the provider document. Required keys for detection are id,
// eventId, source, blNo, containerNo, containerISOCode and shipmentType.
type RawShipment struct {
	ID               string           `json:"id"`
	Version          int              `json:"version,omitempty"`
	EgateNo          string           `json:"egateNo,omitempty"`
	EventID          string           `json:"eventId"`
	EventTime        string           `json:"eventTime,omitempty"`
	Source           string           `json:"source"`
	BlNo             string           `json:"blNo"`
	BookingNo        string           `json:"bookingNo,omitempty"`
	ShippingLine     string           `json:"shippingLine,omitempty"`
	ContainerNo      string           `json:"containerNo"`
	ContainerSize    string           `json:"containerSize,omitempty"`
	ContainerType    string           `json:"containerType,omitempty"`
	ShipmentType     string           `json:"shipmentType"`
	ContainerISOCode string           `json:"containerISOCode"`
	ContainerWeight  string           `json:"containerWeight,omitempty"`
	PscNo            string           `json:"pscNo,omitempty"`
	SealNo           []string         `json:"sealNo,omitempty"`
	DG               []string         `json:"dg,omitempty"`
	DMG              []string         `json:"dmg,omitempty"`
	CreateDate       string           `json:"createDate,omitempty"`
	ModifyDate       string           `json:"modifyDate,omitempty"`
	TransportEvents  []TransportEvent `json:"transportEvents,omitempty"`
	EquipmentEvents  []EquipmentEvent `json:"equipmentEvents,omitempty"`
	POL              *Location        `json:"pol,omitempty"`
	POD              *Location        `json:"pod,omitempty"`
	TerminalData     *TerminalData    `json:"terminalData,omitempty"`

	// Extra keeps provider fields this type does not model.
	Extra map[string]json.RawMessage `json:"-"`
}

var (
	transportEventFields = jsonFieldNames(TransportEvent{})
	terminalDataFields   = jsonFieldNames(TerminalData{})
	rawShipmentFields    = jsonFieldNames(RawShipment{})
)

func (e *TransportEvent) UnmarshalJSON(data []byte) error {
	type plain TransportEvent
	var p plain
	extra, err := decodeWithExtra(data, &p, transportEventFields)
	if err != nil {
		return err
	}
	*e = TransportEvent(p)
	e.Extra = extra
	return nil
}

func (e TransportEvent) MarshalJSON() ([]byte, error) {
	type plain TransportEvent
	return encodeWithExtra(plain(e), e.Extra)
}

func (d *TerminalData) UnmarshalJSON(data []byte) error {
	type plain TerminalData
	var p plain
	extra, err := decodeWithExtra(data, &p, terminalDataFields)
	if err != nil {
		return err
	}
	*d = TerminalData(p)
	d.Extra = extra
	return nil
}

func (d TerminalData) MarshalJSON() ([]byte, error) {
	type plain TerminalData
	return encodeWithExtra(plain(d), d.Extra)
}

func (r *RawShipment) UnmarshalJSON(data []byte) error {
	type plain RawShipment
	var p plain
	extra, err := decodeWithExtra(data, &p, rawShipmentFields)
	if err != nil {
		return err
	}
	*r = RawShipment(p)
	r.Extra = extra
	return nil
}

func (r RawShipment) MarshalJSON() ([]byte, error) {
	type plain RawShipment
	return encodeWithExtra(plain(r), r.Extra)
}
