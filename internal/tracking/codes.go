package tracking

// Event codes used by carrier feeds.
const (
	CodeGateOut           = "OG"
	CodeGateIn            = "IG"
	CodeArrivedExport     = "AE"
	CodeVesselDeparture   = "VD"
	CodeVesselArrival     = "VA"
	CodeUnloadedVessel    = "UV"
	CodeLoadedVessel      = "AL"
	CodeUnloadedRail      = "UR"
	CodeRailDeparture     = "RD"
	CodeRailArrival       = "RA"
	CodeTruckArrival      = "TA"
	CodeContainerTerminal = "CT"
	CodeReturnTerminal    = "RT"
	CodeShipmentStatus    = "SS"
	CodeOther             = "ZZ"
	CodePortDischarge     = "PD"
)

// Location roles.
const (
	POL = "POL"
	POD = "POD"
	POT = "POT"
	POC = "POC"
)

// Time types.
const (
	TimeActual    = "A"
	TimeEstimated = "E"
	TimePlanned   = "G"
)

// HongKongCode is the UN/LOCODE checked by the Hong Kong only completion rule.
const HongKongCode = "HKHKG"

var eventCodeLabels = map[string]string{
	CodeGateOut:           "Gate Out",
	CodeGateIn:            "Gate In",
	CodeArrivedExport:     "Arrived at Export",
	CodeVesselDeparture:   "Vessel Departure",
	CodeVesselArrival:     "Vessel Arrival",
	CodeUnloadedVessel:    "Unloaded from Vessel",
	CodeLoadedVessel:      "Loaded on Vessel",
	CodeUnloadedRail:      "Unloaded from Rail",
	CodeRailDeparture:     "Rail Departure",
	CodeRailArrival:       "Rail Arrival",
	CodeTruckArrival:      "Truck Arrival",
	CodeContainerTerminal: "Container Terminal",
	CodeReturnTerminal:    "Return to Terminal",
	CodeShipmentStatus:    "Shipment Status",
	CodeOther:             "Other",
	CodePortDischarge:     "Port Discharge",
}

var locationTypeLabels = map[string]string{
	POL: "Port of Loading",
	POD: "Port of Discharge",
	POT: "Port of Transhipment",
	POC: "Port of Call",
}

var timeTypeLabels = map[string]string{
	TimeActual:    "Actual",
	TimeEstimated: "Estimated",
	TimePlanned:   "Planned",
}

var containerStatusLabels = map[string]string{
	"F": "Full",
	"E": "Empty",
}

var shipmentTypeLabels = map[string]string{
	"IM": "Import",
	"EX": "Export",
	"TS": "Transhipment",
}

// EventLabel returns the provider's event name when present, else the label
// for code, else code itself.
func EventLabel(code, name string) string {
	if name != "" {
		return name
	}
	return CodeLabel(code)
}

// CodeLabel returns the fixed label for an event code.
func CodeLabel(code string) string {
	if l, ok := eventCodeLabels[code]; ok {
		return l
	}
	return code
}

func LocationTypeLabel(lt string) string { return lookup(locationTypeLabels, lt) }

func TimeTypeLabel(tt string) string { return lookup(timeTypeLabels, tt) }

func ContainerStatusLabel(cs string) string { return lookup(containerStatusLabels, cs) }

// ShipmentTypeLabel maps IM/EX/TS to a readable name.
func ShipmentTypeLabel(st string) string { return lookup(shipmentTypeLabels, st) }

func lookup(m map[string]string, k string) string {
	if v, ok := m[k]; ok {
		return v
	}
	return k
}

func isDeparture(code string) bool { return code == CodeVesselDeparture || code == CodeRailDeparture }

func isArrival(code string) bool { return code == CodeVesselArrival || code == CodeRailArrival }
