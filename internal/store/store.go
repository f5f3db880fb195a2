package store

import (
	"context"
	"errors"
	"time"

	"shiptrack/internal/model"
)

// History keeps recently viewed shipment documents, newest first.
type History interface {
	Save(ctx context.Context, e model.HistoryEntry) error
	List(ctx context.Context) ([]model.HistoryEntry, error)
	Get(ctx context.Context, key string) (model.HistoryEntry, error)
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Webhooks is the persistence used by the alert webhook publisher and worker.
type Webhooks interface {
	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error

	// Deliveries
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, status string, limit int) ([]DeliveryInfo, error)
	RetryWebhookDelivery(ctx context.Context, id string) error
}

var ErrNotFound = errors.New("not found")

// DefaultHistoryMax is the number of history entries kept.
const DefaultHistoryMax = 15
