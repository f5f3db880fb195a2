package api

import (
	"net/http"
	"time"

	"shiptrack/internal/buildinfo"
)

// DebugJSON reports build info and the effective configuration. Secrets are
// never serialized; only their presence is.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config
	writeJSON(w, http.StatusOK, map[string]any{
		"build":  buildinfo.Info(),
		"time":   time.Now().UTC().Format(time.RFC3339),
		"config": cfg,
		"backends": map[string]any{
			"HAS_DATABASE_URL": cfg.DatabaseURL != "",
			"HAS_REDIS_URL":    cfg.RedisURL != "",
			"HAS_KAFKA":        len(cfg.KafkaBrokers) > 0,
			"HAS_DOCSTORE":     cfg.DocStore.Enabled(),
			"HAS_LOCATIONS":    s.Geo != nil,
			"SESSIONS":         len(s.Sessions.List()),
		},
	})
}
