package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"shiptrack/internal/alerts"
	"shiptrack/internal/config"
	"shiptrack/internal/ingest"
	"shiptrack/internal/log"
	"shiptrack/internal/metrics"
	"shiptrack/internal/model"
	"shiptrack/internal/mq"
	"shiptrack/internal/session"
	"shiptrack/internal/store"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Consume shipment documents from Kafka and publish delay alerts",
	Long: `Read shipment documents from the shipments topic. Each document is
compared with the previous version of the same shipment kept in history;
alerts are published to the alerts topic and the new version replaces the
old one.

Brokers, topics, history backend and thresholds come from the service
configuration (KAFKA_BROKERS, DATABASE_URL, HISTORY_PATH, ...).`,
	Args: cobra.NoArgs,
	RunE: runConsume,
}

func init() {
	consumeCmd.Flags().StringP("config", "c", "", "Path to a YAML config file")
}

func runConsume(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if len(cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is not set")
	}
	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON, Output: cmd.ErrOrStderr()})
	logger := log.WithComponent("consumer")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var h store.History
	switch {
	case cfg.DatabaseURL != "":
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		pg.SetHistoryMax(cfg.HistoryMax)
		if cfg.DBMigrate {
			if err := pg.Migrate(ctx); err != nil {
				return err
			}
		}
		h = pg
	default:
		p := cfg.HistoryPath
		if p == "" {
			p = defaultHistoryPath()
		}
		b, err := store.OpenBolt(p, cfg.HistoryMax)
		if err != nil {
			return err
		}
		defer b.Close()
		h = b
	}

	pub := mq.NewAlertPublisher(cfg.KafkaBrokers, cfg.KafkaTopicAlerts)
	defer pub.Close()
	consumer := mq.NewShipmentConsumer(cfg.KafkaBrokers, cfg.KafkaTopicShipments, cfg.KafkaGroup, logger)
	defer consumer.Close()

	p := &versionPairer{
		history:    h,
		thresholds: cfg.Thresholds(),
		publish:    pub.Publish,
		logger:     logger,
	}
	logger.Info().
		Strs("brokers", cfg.KafkaBrokers).
		Str("topic", cfg.KafkaTopicShipments).
		Str("alerts_topic", cfg.KafkaTopicAlerts).
		Msg("consumer started")
	err = consumer.Run(ctx, p.handle)
	logger.Info().Msg("consumer stopped")
	return err
}

// versionPairer compares each incoming document with the previous version
// of the same shipment found in history.
type versionPairer struct {
	history    store.History
	thresholds alerts.Thresholds
	publish    func(ctx context.Context, msg mq.AlertMessage) error
	logger     zerolog.Logger
}

func (p *versionPairer) handle(ctx context.Context, msg mq.ShipmentMessage) error {
	meta, _, err := ingest.Describe(msg.Raw)
	if err != nil {
		return err
	}
	identity := meta.Identity()
	logger := p.logger.With().Str("identity", identity).Str("key", msg.Key).Logger()

	prev, found, err := p.previous(ctx, identity)
	if err != nil {
		return err
	}
	if found {
		a := session.Analyze(msg.Record, &prev, p.thresholds)
		logger.Debug().Int("differences", len(a.Differences)).Int("alerts", len(a.Alerts)).Msg("compared with previous version")
		if len(a.Alerts) > 0 {
			for _, al := range a.Alerts {
				metrics.AlertsEmitted.WithLabelValues(string(al.Level), al.Category).Inc()
			}
			pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := p.publish(pctx, mq.AlertMessage{
				Identity:    identity,
				Status:      a.Status,
				Alerts:      a.Alerts,
				Differences: len(a.Differences),
			})
			cancel()
			if err != nil {
				return fmt.Errorf("publish alerts: %w", err)
			}
			logger.Info().Int("alerts", len(a.Alerts)).Msg("alerts published")
		}
	}
	return p.history.Save(ctx, store.NewHistoryEntry(meta, msg.Raw, time.Now()))
}

// previous returns the history version of identity. A stored document that
// no longer parses is treated as absent.
func (p *versionPairer) previous(ctx context.Context, identity string) (model.ShipmentRecord, bool, error) {
	if identity == "" {
		return model.ShipmentRecord{}, false, nil
	}
	entries, err := p.history.List(ctx)
	if err != nil {
		return model.ShipmentRecord{}, false, err
	}
	for _, e := range entries {
		if e.Identity != identity {
			continue
		}
		rec, _, err := ingest.Parse(e.RawData)
		if err != nil {
			p.logger.Warn().Err(err).Str("key", e.Key).Msg("stored version does not parse")
			return model.ShipmentRecord{}, false, nil
		}
		return rec, true, nil
	}
	return model.ShipmentRecord{}, false, nil
}
