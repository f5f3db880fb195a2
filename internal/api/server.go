// Package api implements the HTTP surface of the shipment tracking service.
package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"shiptrack/internal/auth"
	"shiptrack/internal/config"
	"shiptrack/internal/docstore"
	"shiptrack/internal/geo"
	"shiptrack/internal/insights"
	"shiptrack/internal/model"
	"shiptrack/internal/mq"
	"shiptrack/internal/session"
	"shiptrack/internal/store"
	"shiptrack/internal/webhooks"
)

type Server struct {
	Config    config.Config
	Logger    zerolog.Logger
	Sessions  *session.Registry
	History   store.History
	Hooks     store.Webhooks
	Pub       *webhooks.Publisher
	Geo       geo.Source
	DocStore  *docstore.Client
	Auth      *auth.Verifier
	Broker    EventBroker
	Alerts    *mq.AlertPublisher
	Predictor *insights.Predictor

	mu          sync.Mutex
	alertDigest map[string]string // sessionID -> digest of the last emitted alert set
	closers     []io.Closer
}

// NewServer creates a Server with in-memory backends. Callers swap fields
// for real ones; NewServerFromConfig does that from configuration.
func NewServer(cfg config.Config, logger zerolog.Logger) *Server {
	mem := store.NewMemory()
	mem.HistoryMax = cfg.HistoryMax
	return &Server{
		Config:      cfg,
		Logger:      logger,
		Sessions:    session.NewRegistry(cfg.Thresholds()),
		History:     mem,
		Hooks:       mem,
		Pub:         webhooks.NewPublisher(mem, logger.With().Str("component", "webhooks").Logger()),
		Auth:        auth.NewVerifier(cfg.AuthMode, cfg.AuthHMACSecret),
		Broker:      NewBroker(),
		Predictor:   insights.NewPredictor(),
		alertDigest: map[string]string{},
	}
}

// NewServerFromConfig selects backends from cfg. With DATABASE_URL, history,
// webhooks and locations live in Postgres; otherwise HISTORY_PATH selects a
// bbolt history file and everything else stays in memory. REDIS_URL enables
// the shared event broker and the location cache.
func NewServerFromConfig(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	s := NewServer(cfg, logger)
	var sources geo.Chain

	if cfg.LocationsFile != "" {
		ds, err := geo.LoadFile(cfg.LocationsFile)
		if err != nil {
			return nil, err
		}
		logger.Info().Int("entries", ds.Len()).Str("file", cfg.LocationsFile).Msg("location dataset loaded")
		sources = append(sources, ds)
	}

	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pg)
		pg.SetHistoryMax(cfg.HistoryMax)
		locs := geo.NewPostgresSource(pg.DB())
		if cfg.DBMigrate {
			if err := pg.Migrate(ctx); err != nil {
				s.Close()
				return nil, err
			}
			if err := locs.Migrate(ctx); err != nil {
				s.Close()
				return nil, err
			}
		}
		s.History, s.Hooks = pg, pg
		s.Pub.Store = pg
		sources = append(sources, locs)
	case cfg.HistoryPath != "":
		b, err := store.OpenBolt(cfg.HistoryPath, cfg.HistoryMax)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, b)
		s.History = b
	}

	if len(sources) > 0 {
		var src geo.Source = sources
		if cfg.RedisURL != "" {
			cache, err := geo.NewRedisCacheURL(cfg.RedisURL, src, cfg.LocationCacheTTL)
			if err != nil {
				s.Close()
				return nil, err
			}
			src = cache
		}
		s.Geo = geo.Counted{Source: src}
	}

	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL, logger.With().Str("component", "broker").Logger())
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, rb)
		s.Broker = rb
	}

	if cfg.DocStore.Enabled() {
		dc, err := docstore.NewClient(cfg.DocStore)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.DocStore = dc
	}

	if len(cfg.KafkaBrokers) > 0 {
		s.Alerts = mq.NewAlertPublisher(cfg.KafkaBrokers, cfg.KafkaTopicAlerts)
		s.closers = append(s.closers, s.Alerts)
	}
	return s, nil
}

// Close releases every backend opened by NewServerFromConfig.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Hooks, s.Config.WebhookMaxAttempts, s.Logger.With().Str("component", "webhooks").Logger())
}

// alertsChanged records the alert set of a session and reports whether it
// differs from the previous one.
func (s *Server) alertsChanged(sessionID string, alerts []model.Alert) bool {
	b, err := json.Marshal(alerts)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(b)
	d := hex.EncodeToString(sum[:])
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alertDigest[sessionID] == d {
		return false
	}
	s.alertDigest[sessionID] = d
	return true
}

// ExpireSessions drops sessions idle since cutoff and returns how many.
func (s *Server) ExpireSessions(cutoff time.Time) int {
	n := s.Sessions.Expire(cutoff)
	if n == 0 {
		return 0
	}
	s.mu.Lock()
	for id := range s.alertDigest {
		if _, err := s.Sessions.Get(id); err != nil {
			delete(s.alertDigest, id)
		}
	}
	s.mu.Unlock()
	return n
}

func (s *Server) forgetSession(id string) {
	s.mu.Lock()
	delete(s.alertDigest, id)
	s.mu.Unlock()
}

func sessionLogger(l zerolog.Logger, id string) zerolog.Logger {
	return l.With().Str("session", id).Logger()
}

var errNoDocStore = errors.New("document store is not configured")
