package mq

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"shiptrack/internal/ingest"
	"shiptrack/internal/metrics"
	"shiptrack/internal/model"
)

// ShipmentMessage is one parsed document from the shipments topic.
type ShipmentMessage struct {
	Key    string
	Raw    []byte
	Format ingest.Format
	Record model.ShipmentRecord
}

type ShipmentHandler func(ctx context.Context, msg ShipmentMessage) error

type ShipmentConsumer struct {
	r      messageReader
	logger zerolog.Logger
	// backoff after a failed read
	backoff time.Duration
}

func NewShipmentConsumer(brokers []string, topic, group string, logger zerolog.Logger) *ShipmentConsumer {
	return &ShipmentConsumer{r: NewReader(brokers, topic, group), logger: logger, backoff: 500 * time.Millisecond}
}

// Run reads until ctx is cancelled. Malformed documents and handler errors
// are logged and skipped.
func (c *ShipmentConsumer) Run(ctx context.Context, handle ShipmentHandler) error {
	for {
		msg, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Warn().Err(err).Msg("shipment read failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		rec, format, err := ingest.Parse(msg.Value)
		if err != nil {
			kind := "unknown"
			var ie *ingest.InputError
			if errors.As(err, &ie) {
				kind = ie.Kind
			}
			metrics.ShipmentsRejected.WithLabelValues(kind).Inc()
			c.logger.Warn().Err(err).Str("key", string(msg.Key)).Int64("offset", msg.Offset).Msg("skipping malformed shipment")
			continue
		}
		metrics.ShipmentsLoaded.WithLabelValues(string(format), "stream").Inc()

		if err := handle(ctx, ShipmentMessage{Key: string(msg.Key), Raw: msg.Value, Format: format, Record: rec}); err != nil {
			c.logger.Error().Err(err).Str("key", string(msg.Key)).Msg("shipment handler failed")
		}
	}
}

func (c *ShipmentConsumer) Close() error { return c.r.Close() }
