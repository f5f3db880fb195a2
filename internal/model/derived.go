package model

// Coordinate is a resolved location position.
type Coordinate struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name"`
}

// PortNode aggregates arrival and departure facts for one location code of
// the transport route.
type PortNode struct {
	LocationName      string      `json:"locationName"`
	LocationCode      string      `json:"locationCode"`
	LocationType      string      `json:"locationType"`
	ArrivalTime       string      `json:"arrivalTime,omitempty"`
	ArrivalTimeType   string      `json:"arrivalTimeType,omitempty"`
	DepartureTime     string      `json:"departureTime,omitempty"`
	DepartureTimeType string      `json:"departureTimeType,omitempty"`
	ArrivalVessel     string      `json:"arrivalVessel,omitempty"`
	DepartureVessel   string      `json:"departureVessel,omitempty"`
	DwellTimeHours    *float64    `json:"dwellTimeHours,omitempty"`
	Coordinates       *Coordinate `json:"coordinates,omitempty"`
}

// VesselChange marks a change of departing vessel between route node Index
// and Index+1.
type VesselChange struct {
	Index     int    `json:"index"`
	Port      string `json:"port"`
	NewVessel string `json:"newVessel"`
}

type Phase string

const (
	PhaseOrigin      Phase = "origin"
	PhaseTransit     Phase = "transit"
	PhaseDestination Phase = "destination"
)

type Milestone struct {
	Label        string `json:"label"`
	EventCode    string `json:"eventCode"`
	LocationType string `json:"locationType"`
	LocationCode string `json:"locationCode,omitempty"`
	Phase        Phase  `json:"phase"`
	Completed    bool   `json:"completed"`
	Time         string `json:"time,omitempty"`
}

type StatusKind string

const (
	StatusUnavailable           StatusKind = "unavailable"
	StatusCompleted             StatusKind = "completed"
	StatusCompletedHongKongOnly StatusKind = "completed_hk_only"
	StatusInTransit             StatusKind = "in_transit"
)

type Status struct {
	Kind        StatusKind `json:"kind"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
}

type DifferenceKind string

const (
	DiffField        DifferenceKind = "field"
	DiffEventCount   DifferenceKind = "eventCount"
	DiffEventMissing DifferenceKind = "eventMissing"
	DiffEventTime    DifferenceKind = "eventTime"
)

// Difference is one line of a two-shipment comparison.
type Difference struct {
	Kind           DifferenceKind `json:"kind"`
	Label          string         `json:"label"`
	PrimaryValue   string         `json:"primaryValue"`
	SecondaryValue string         `json:"secondaryValue"`
	Message        string         `json:"message"`
}

type AlertLevel string

const (
	AlertInfo    AlertLevel = "info"
	AlertWarning AlertLevel = "warning"
)

const (
	CategoryPOL   = "POL"
	CategoryPOD   = "POD"
	CategoryRoute = "route"
)

type Alert struct {
	Level        AlertLevel `json:"level"`
	Category     string     `json:"category"`
	Message      string     `json:"message"`
	EventCode    string     `json:"eventCode,omitempty"`
	LocationType string     `json:"locationType,omitempty"`
	DeltaHours   *float64   `json:"deltaHours,omitempty"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type Prediction struct {
	TargetEventCode string    `json:"targetEventCode"`
	LocationCode    string    `json:"locationCode,omitempty"`
	PredictedTime   string    `json:"predictedTime"`
	DelayHours      float64   `json:"delayHours"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	Confidence      float64   `json:"confidence"`
	Drivers         []string  `json:"drivers,omitempty"`
}

type Insights struct {
	ModelVersion string       `json:"modelVersion"`
	GeneratedAt  string       `json:"generatedAt"`
	Predictions  []Prediction `json:"predictions"`
}
