package tracking

import "shiptrack/internal/model"

func seq(n int) *int { return &n }

func prio(p float64) *float64 { return &p }

func loc(code, name string) model.Location {
	return model.Location{UnLocationCode: code, UnLocationName: name}
}

func vessel(name, number string) *model.ConveyanceInfo {
	return &model.ConveyanceInfo{ConveyanceName: name, ConveyanceNumber: number}
}

func recordOf(equipment []model.EquipmentEvent, transport []model.TransportEvent) model.ShipmentRecord {
	return model.ShipmentRecord{Events: Normalize(equipment, transport), TransportEvents: transport}
}
