package model

import "encoding/json"

type HistoryMetadata struct {
	ShipmentID      string `json:"shipmentId,omitempty"`
	BlNo            string `json:"blNo,omitempty"`
	ContainerNumber string `json:"containerNumber,omitempty"`
	POL             string `json:"pol,omitempty"`
	POD             string `json:"pod,omitempty"`
}

// HistoryEntry is a previously viewed shipment document, stored verbatim.
type HistoryEntry struct {
	Key      string          `json:"key"`
	Identity string          `json:"identity"`
	Metadata HistoryMetadata `json:"metadata"`
	RawData  json.RawMessage `json:"rawData"`
	ViewedAt string          `json:"viewedAt"`
}

// Identity is the history de-duplication key: the first of shipment id, BL
// number and container number that is set.
func (m HistoryMetadata) Identity() string {
	for _, v := range []string{m.ShipmentID, m.BlNo, m.ContainerNumber} {
		if v != "" {
			return v
		}
	}
	return "shipment"
}
