package mq

import (
	"context"
	"time"

	"github.com/google/uuid"

	"shiptrack/internal/model"
)

// AlertMessage is the value written to the alerts topic.
type AlertMessage struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"sessionId,omitempty"`
	Identity    string        `json:"identity"`
	Status      model.Status  `json:"status"`
	Alerts      []model.Alert `json:"alerts"`
	Differences int           `json:"differences"`
	PublishedAt time.Time     `json:"publishedAt"`
}

type AlertPublisher struct {
	w messageWriter
}

func NewAlertPublisher(brokers []string, topic string) *AlertPublisher {
	return &AlertPublisher{w: NewWriter(brokers, topic)}
}

// Publish writes one message keyed by the shipment identity, so every
// update for a shipment lands on the same partition.
func (p *AlertPublisher) Publish(ctx context.Context, msg AlertMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.PublishedAt.IsZero() {
		msg.PublishedAt = time.Now().UTC()
	}
	if msg.Alerts == nil {
		msg.Alerts = []model.Alert{}
	}
	return PublishJSON(ctx, p.w, msg.Identity, msg)
}

func (p *AlertPublisher) Close() error { return p.w.Close() }
