package tracking

import (
	"math"
	"strings"
	"time"
)

// Feeds mostly send RFC 3339, but zone-less local stamps show up too. Those
// are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses a feed timestamp. The second result is false when s is
// empty or matches no known layout.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTime renders a feed timestamp for messages in its own offset. Values
// that do not parse are returned unchanged.
func FormatTime(s string) string {
	t, ok := ParseTime(s)
	if !ok {
		return s
	}
	return t.Format("2006-01-02 15:04 MST")
}

// HoursBetween returns b - a in hours.
func HoursBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours()
}

// Round1 rounds to one decimal place, halves away from zero.
func Round1(v float64) float64 { return math.Round(v*10) / 10 }

// Round2 rounds to two decimal places.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }
