// Package geo resolves UN/LOCODE location codes to coordinates.
package geo

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"shiptrack/internal/model"
)

// Source looks up one location code. A code that is unknown, or whose entry
// has no usable coordinates, is reported with ok=false and no error.
type Source interface {
	Lookup(ctx context.Context, code string) (c model.Coordinate, ok bool, err error)
}

// Entry is one dataset record in UN/LOCODE notation, e.g. "0117N 10350E".
type Entry struct {
	Name        string `json:"name" yaml:"name"`
	Coordinates string `json:"coordinates" yaml:"coordinates"`
}

var coordPattern = regexp.MustCompile(`(?i)^(\d{4})([NS])\s+(\d{5})([EW])$`)

// ParseCoordinates reads "DDMM[NS] DDDMM[EW]". The last two digits of each
// part are minutes; south and west are negative.
func ParseCoordinates(s string) (lat, lng float64, ok bool) {
	m := coordPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	lat = decimalDegrees(m[1], strings.ToUpper(m[2]))
	lng = decimalDegrees(m[3], strings.ToUpper(m[4]))
	return lat, lng, true
}

func decimalDegrees(v, dir string) float64 {
	split := len(v) - 2
	deg, _ := strconv.Atoi(v[:split])
	mins, _ := strconv.Atoi(v[split:])
	d := float64(deg) + float64(mins)/60
	if dir == "S" || dir == "W" {
		return -d
	}
	return d
}

// NormalizeCode trims and upper-cases a location code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (e Entry) coordinate(code string) (model.Coordinate, bool) {
	lat, lng, ok := ParseCoordinates(e.Coordinates)
	if !ok {
		return model.Coordinate{}, false
	}
	name := e.Name
	if name == "" {
		name = code
	}
	return model.Coordinate{Lat: lat, Lng: lng, Name: name}, true
}

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometres.
func Distance(a, b model.Coordinate) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	la1 := toRad(a.Lat)
	la2 := toRad(b.Lat)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// RouteDistanceKm sums the legs between consecutive nodes that both have
// coordinates. Nodes without coordinates are skipped.
func RouteDistanceKm(nodes []model.PortNode) float64 {
	var total float64
	var prev *model.Coordinate
	for _, n := range nodes {
		if n.Coordinates == nil {
			continue
		}
		if prev != nil {
			total += Distance(*prev, *n.Coordinates)
		}
		prev = n.Coordinates
	}
	return math.Round(total*10) / 10
}
