package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shiptrack/internal/model"
	"shiptrack/internal/store"
)

// EventAlerts is the event type of every delivery this package emits.
const EventAlerts = "shipment.alerts"

// AlertsData is the data member of a shipment.alerts payload.
type AlertsData struct {
	SessionID string        `json:"sessionId"`
	Status    model.Status  `json:"status"`
	Alerts    []model.Alert `json:"alerts"`
}

type Payload struct {
	ID   string     `json:"id"`
	Type string     `json:"type"`
	TS   string     `json:"ts"`
	Data AlertsData `json:"data"`
}

type Publisher struct {
	Store  store.Webhooks
	Logger zerolog.Logger
	Now    func() time.Time
}

func NewPublisher(s store.Webhooks, logger zerolog.Logger) *Publisher {
	return &Publisher{Store: s, Logger: logger, Now: time.Now}
}

// Emit enqueues one delivery per subscription whose filters match at least
// one alert. Each subscriber only receives the alerts it asked for. It
// returns the number of deliveries enqueued.
func (p *Publisher) Emit(ctx context.Context, sessionID string, status model.Status, alerts []model.Alert) int {
	if len(alerts) == 0 {
		return 0
	}
	subs, err := p.Store.ListSubscriptions(ctx)
	if err != nil {
		p.Logger.Warn().Err(err).Msg("list subscriptions failed")
		return 0
	}
	n := 0
	for _, s := range subs {
		matched := s.Filter(alerts)
		if len(matched) == 0 {
			continue
		}
		body, err := json.Marshal(Payload{
			ID:   "evt_" + uuid.NewString(),
			Type: EventAlerts,
			TS:   p.Now().UTC().Format(time.RFC3339),
			Data: AlertsData{SessionID: sessionID, Status: status, Alerts: matched},
		})
		if err != nil {
			continue
		}
		if _, err := p.Store.EnqueueWebhook(ctx, s.ID, EventAlerts, s.URL, s.Secret, body); err != nil {
			p.Logger.Warn().Err(err).Str("subscription", s.ID).Msg("enqueue webhook failed")
			continue
		}
		n++
	}
	return n
}
