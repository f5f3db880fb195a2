package tracking

import (
	"sort"
	"sync"
	"sync/atomic"

	"shiptrack/internal/model"
)

// ResolveTransport drops duplicate-seq records and returns the survivors in
// route order.
//
// Within each seq cohort the record with the lowest DataProviderPriority is
// kept; a record without a priority loses to any record that has one. Ties
// go to the earlier event time, then the lower location code, then the lower
// event code, so the winner does not depend on input order. Records without seq are never
// dropped. Ordering is stable: seq ascending when both records carry one,
// records with seq ahead of records without, event time otherwise.
func ResolveTransport(events []model.TransportEvent) []model.TransportEvent {
	winners := map[int]int{}
	for i, e := range events {
		if e.Seq == nil {
			continue
		}
		cur, ok := winners[*e.Seq]
		if !ok || outranks(e, events[cur]) {
			winners[*e.Seq] = i
		}
	}
	out := make([]model.TransportEvent, 0, len(events))
	for i, e := range events {
		if e.Seq != nil && winners[*e.Seq] != i {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return transportLess(out[i], out[j]) })
	return out
}

// outranks reports whether a beats b for the same seq.
func outranks(a, b model.TransportEvent) bool {
	pa, pb := a.DataProviderPriority, b.DataProviderPriority
	switch {
	case pa != nil && pb == nil:
		return true
	case pa == nil && pb != nil:
		return false
	case pa != nil && *pa != *pb:
		return *pa < *pb
	}
	if timeLess(a.EventTime, b.EventTime) {
		return true
	}
	if timeLess(b.EventTime, a.EventTime) {
		return false
	}
	if a.Location.UnLocationCode != b.Location.UnLocationCode {
		return a.Location.UnLocationCode < b.Location.UnLocationCode
	}
	return a.EventCode < b.EventCode
}

func transportLess(a, b model.TransportEvent) bool {
	switch {
	case a.Seq != nil && b.Seq != nil:
		if *a.Seq != *b.Seq {
			return *a.Seq < *b.Seq
		}
		return timeLess(a.EventTime, b.EventTime)
	case a.Seq != nil:
		return true
	case b.Seq != nil:
		return false
	default:
		return timeLess(a.EventTime, b.EventTime)
	}
}

// BuildRoute aggregates transport events into one PortNode per location code
// in first-occurrence order of the resolved list.
//
// VD/RD write the departure fields and VA/RA the arrival fields. A later
// record for a port already seen overwrites the same-direction fields with
// no priority check.
func BuildRoute(events []model.TransportEvent) []model.PortNode {
	resolved := ResolveTransport(events)
	var nodes []model.PortNode
	index := map[string]int{}
	for _, e := range resolved {
		code := e.Location.UnLocationCode
		if code == "" {
			code = e.Location.UnLocationName
		}
		if code == "" {
			continue
		}
		i, ok := index[code]
		if !ok {
			name := e.Location.UnLocationName
			if name == "" {
				name = e.Location.UnLocationCode
			}
			i = len(nodes)
			index[code] = i
			nodes = append(nodes, model.PortNode{
				LocationName: name,
				LocationCode: e.Location.UnLocationCode,
				LocationType: e.LocationType,
			})
		}
		n := &nodes[i]
		vessel := ""
		if e.ConveyanceInfo != nil {
			vessel = e.ConveyanceInfo.ConveyanceName
		}
		switch {
		case isDeparture(e.EventCode):
			n.DepartureTime = e.EventTime
			n.DepartureTimeType = e.TimeType
			n.DepartureVessel = vessel
		case isArrival(e.EventCode):
			n.ArrivalTime = e.EventTime
			n.ArrivalTimeType = e.TimeType
			n.ArrivalVessel = vessel
		}
	}
	for i := range nodes {
		nodes[i].DwellTimeHours = dwellHours(nodes[i].ArrivalTime, nodes[i].DepartureTime)
	}
	return nodes
}

// dwellHours is set only when departure strictly follows arrival.
func dwellHours(arrival, departure string) *float64 {
	a, okA := ParseTime(arrival)
	d, okD := ParseTime(departure)
	if !okA || !okD || !d.After(a) {
		return nil
	}
	h := Round1(HoursBetween(a, d))
	return &h
}

// VesselChanges flags adjacent nodes whose departure vessels are both known
// and differ. The change is recorded at the earlier node.
func VesselChanges(nodes []model.PortNode) []model.VesselChange {
	var out []model.VesselChange
	for i := 0; i+1 < len(nodes); i++ {
		if v, ok := VesselChangeAt(nodes, i); ok {
			out = append(out, model.VesselChange{Index: i, Port: nodes[i+1].LocationCode, NewVessel: v})
		}
	}
	return out
}

// VesselChangeAt returns the new vessel when the departure vessel changes
// between node i and node i+1.
func VesselChangeAt(nodes []model.PortNode, i int) (string, bool) {
	if i < 0 || i+1 >= len(nodes) {
		return "", false
	}
	cur, next := nodes[i].DepartureVessel, nodes[i+1].DepartureVessel
	if cur == "" || next == "" || cur == next {
		return "", false
	}
	return next, true
}

// RouteBuilder guards route results computed off the caller's goroutine. A
// build takes a token from Begin and applies its result with Commit, which
// refuses the result once a newer build has begun.
type RouteBuilder struct {
	gen atomic.Uint64

	mu      sync.Mutex
	applied uint64
	nodes   []model.PortNode
}

func (b *RouteBuilder) Begin() uint64 { return b.gen.Add(1) }

func (b *RouteBuilder) Commit(token uint64, nodes []model.PortNode) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if token != b.gen.Load() {
		return false
	}
	b.applied = token
	b.nodes = nodes
	return true
}

// Latest returns the committed route when no newer build has begun since.
func (b *RouteBuilder) Latest() ([]model.PortNode, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.applied == 0 || b.applied != b.gen.Load() {
		return nil, false
	}
	return b.nodes, true
}

// Current returns the last committed route and its token.
func (b *RouteBuilder) Current() ([]model.PortNode, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nodes, b.applied
}
