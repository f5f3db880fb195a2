package model

import "time"

// SubscriptionRequest registers a URL for shipment.alerts deliveries. Empty
// filters match every alert.
type SubscriptionRequest struct {
	URL        string   `json:"url"`
	Secret     string   `json:"secret,omitempty"`
	Levels     []string `json:"levels,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

type Subscription struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Secret     string    `json:"-"`
	Levels     []string  `json:"levels"`
	Categories []string  `json:"categories"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Filter returns the alerts that pass the subscription's filters.
func (s Subscription) Filter(alerts []Alert) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if matches(s.Levels, string(a.Level)) && matches(s.Categories, a.Category) {
			out = append(out, a)
		}
	}
	return out
}

func matches(filter []string, v string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == v {
			return true
		}
	}
	return false
}
