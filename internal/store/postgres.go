package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"shiptrack/internal/model"
)

type Postgres struct {
	db  *sql.DB
	max int
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db, max: DefaultHistoryMax}, nil
}

// SetHistoryMax changes the number of history rows kept on Save.
func (p *Postgres) SetHistoryMax(n int) {
	if n >= 1 {
		p.max = n
	}
}

func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS shipment_history (
    key TEXT PRIMARY KEY,
    identity TEXT NOT NULL,
    metadata JSONB NOT NULL,
    raw_data JSONB NOT NULL,
    viewed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS shipment_history_identity_idx ON shipment_history (identity);
CREATE TABLE IF NOT EXISTS webhook_subscriptions (
    id UUID PRIMARY KEY,
    url TEXT NOT NULL,
    secret TEXT,
    levels TEXT[] NOT NULL DEFAULT '{}',
    categories TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS webhook_deliveries (
    id UUID PRIMARY KEY,
    subscription_id UUID,
    event_type TEXT NOT NULL,
    url TEXT NOT NULL,
    secret TEXT,
    payload JSONB NOT NULL,
    status TEXT NOT NULL,
    attempts INT NOT NULL DEFAULT 0,
    next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_error TEXT,
    response_code INT,
    latency_ms INT,
    dedup_key TEXT NOT NULL,
    delivered_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (event_type, url, dedup_key)
);`

// Migrate creates the tables used by this store.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *Postgres) Save(ctx context.Context, e model.HistoryEntry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	viewed, err := time.Parse(viewedAtLayout, e.ViewedAt)
	if err != nil {
		viewed = time.Now().UTC()
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shipment_history WHERE identity=$1`, e.Identity); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO shipment_history (key, identity, metadata, raw_data, viewed_at) VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (key) DO UPDATE SET metadata=EXCLUDED.metadata, raw_data=EXCLUDED.raw_data, viewed_at=EXCLUDED.viewed_at`,
		e.Key, e.Identity, meta, rawOrNull(e.RawData), viewed)
	if err != nil {
		return err
	}
	var stale []string
	rows, err := tx.QueryContext(ctx, `SELECT key FROM shipment_history ORDER BY viewed_at DESC, key DESC OFFSET $1`, p.max)
	if err != nil {
		return err
	}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return err
		}
		stale = append(stale, k)
	}
	rows.Close()
	if len(stale) > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM shipment_history WHERE key = ANY($1)`, pq.Array(stale)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) List(ctx context.Context) ([]model.HistoryEntry, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key, identity, metadata, raw_data, viewed_at FROM shipment_history ORDER BY viewed_at DESC, key DESC LIMIT $1`, p.max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.HistoryEntry{}
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) Get(ctx context.Context, key string) (model.HistoryEntry, error) {
	row := p.db.QueryRowContext(ctx, `SELECT key, identity, metadata, raw_data, viewed_at FROM shipment_history WHERE key=$1`, key)
	e, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.HistoryEntry{}, ErrNotFound
	}
	return e, err
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM shipment_history WHERE key=$1`, key)
	if err != nil {
		return err
	}
	return notFoundIfNone(res)
}

func (p *Postgres) Clear(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM shipment_history`)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHistory(s scanner) (model.HistoryEntry, error) {
	var (
		e         model.HistoryEntry
		meta, raw []byte
		viewed    time.Time
	)
	if err := s.Scan(&e.Key, &e.Identity, &meta, &raw, &viewed); err != nil {
		return model.HistoryEntry{}, err
	}
	if err := json.Unmarshal(meta, &e.Metadata); err != nil {
		return model.HistoryEntry{}, err
	}
	e.RawData = json.RawMessage(raw)
	e.ViewedAt = viewed.UTC().Format(viewedAtLayout)
	return e, nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	s := model.Subscription{
		ID:         uuid.New().String(),
		URL:        req.URL,
		Secret:     req.Secret,
		Levels:     nonNil(req.Levels),
		Categories: nonNil(req.Categories),
	}
	err := p.db.QueryRowContext(ctx, `INSERT INTO webhook_subscriptions (id, url, secret, levels, categories) VALUES ($1,$2,$3,$4,$5) RETURNING created_at`,
		s.ID, s.URL, nullIfEmpty(s.Secret), pq.Array(s.Levels), pq.Array(s.Categories)).Scan(&s.CreatedAt)
	return s, err
}

func (p *Postgres) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, COALESCE(secret,''), levels, categories, created_at FROM webhook_subscriptions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.ID, &s.URL, &s.Secret, pq.Array(&s.Levels), pq.Array(&s.Categories), &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Levels, s.Categories = nonNil(s.Levels), nonNil(s.Categories)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM webhook_subscriptions WHERE id::text=$1`, id)
	if err != nil {
		return err
	}
	return notFoundIfNone(res)
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	dk := computeDedupKey(payload)
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,$6,'pending',0,now(),$7)
        ON CONFLICT (event_type, url, dedup_key) DO NOTHING`, id, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload, dk)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id::text=$1`, id, responseCode, latencyMs)
		return err
	}
	if nextAttemptAt == nil {
		t := time.Now().Add(time.Minute)
		nextAttemptAt = &t
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id::text=$1`,
		id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id::text=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, status string, limit int) ([]DeliveryInfo, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, COALESCE(subscription_id::text,''), event_type, url, status, attempts, next_attempt_at, COALESCE(last_error,''), COALESCE(response_code,0), COALESCE(latency_ms,0)
        FROM webhook_deliveries WHERE ($1 = '' OR status = $1) ORDER BY updated_at DESC, id LIMIT $2`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DeliveryInfo{}
	for rows.Next() {
		var (
			d      DeliveryInfo
			nextAt time.Time
		)
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Status, &d.Attempts, &nextAt, &d.LastError, &d.ResponseCode, &d.LatencyMs); err != nil {
			return nil, err
		}
		if d.Status == DeliveryPending || d.Status == DeliveryRetry {
			d.NextAttemptAt = &nextAt
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) RetryWebhookDelivery(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='pending', next_attempt_at=now(), updated_at=now() WHERE id::text=$1`, id)
	if err != nil {
		return err
	}
	return notFoundIfNone(res)
}

// computeDedupKey uses the event id when the payload carries one, else a
// short content hash.
func computeDedupKey(payload []byte) string {
	var m map[string]any
	if json.Unmarshal(payload, &m) == nil {
		if v, ok := m["id"].(string); ok && v != "" {
			return v
		}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

func notFoundIfNone(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func rawOrNull(raw json.RawMessage) any {
	if len(raw) == 0 {
		return []byte("null")
	}
	return []byte(raw)
}
