// Package session holds the primary and secondary shipment of a comparison
// and derives everything shown about them on demand.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"shiptrack/internal/alerts"
	"shiptrack/internal/compare"
	"shiptrack/internal/model"
	"shiptrack/internal/tracking"
)

var (
	ErrNoPrimary   = errors.New("session: no primary shipment loaded")
	ErrNotFound    = errors.New("session: not found")
	ErrInvalidSlot = errors.New("session: slot must be primary or secondary")
)

type Slot string

const (
	SlotPrimary   Slot = "primary"
	SlotSecondary Slot = "secondary"
)

func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotPrimary, SlotSecondary:
		return Slot(s), nil
	case "":
		return SlotPrimary, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSlot, s)
}

// Analysis is every derived view of a session. Differences and Alerts are
// only set when both slots are loaded.
type Analysis struct {
	Digest        string               `json:"digest"`
	Status        model.Status         `json:"status"`
	Summary       tracking.Summary     `json:"summary"`
	Route         []model.PortNode     `json:"route"`
	VesselChanges []model.VesselChange `json:"vesselChanges,omitempty"`
	Milestones    []model.Milestone    `json:"milestones"`
	Timeline      tracking.Timeline    `json:"timeline"`
	Differences   []model.Difference   `json:"differences,omitempty"`
	Alerts        []model.Alert        `json:"alerts,omitempty"`
	Compared      bool                 `json:"compared"`
}

// Session is safe for concurrent use. Every mutation bumps Version.
type Session struct {
	ID        string
	CreatedAt time.Time

	// Routes guards coordinate-enriched route builds for this session.
	Routes tracking.RouteBuilder

	mu         sync.RWMutex
	primary    *model.ShipmentRecord
	secondary  *model.ShipmentRecord
	thresholds alerts.Thresholds
	version    uint64
	updatedAt  time.Time

	memoMu sync.Mutex
	memo   map[string]*Analysis
}

func New(id string, thresholds alerts.Thresholds) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, CreatedAt: now, updatedAt: now, thresholds: thresholds}
}

func (s *Session) Set(slot Slot, rec model.ShipmentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot == SlotSecondary {
		s.secondary = &rec
	} else {
		s.primary = &rec
	}
	s.touch()
}

func (s *Session) SetPrimary(rec model.ShipmentRecord)   { s.Set(SlotPrimary, rec) }
func (s *Session) SetSecondary(rec model.ShipmentRecord) { s.Set(SlotSecondary, rec) }

// ClearSlot empties one slot.
func (s *Session) ClearSlot(slot Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot == SlotSecondary {
		s.secondary = nil
	} else {
		s.primary = nil
	}
	s.touch()
}

// Clear empties both slots.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary, s.secondary = nil, nil
	s.touch()
}

// Swap exchanges primary and secondary.
func (s *Session) Swap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary, s.secondary = s.secondary, s.primary
	s.touch()
}

func (s *Session) touch() {
	s.version++
	s.updatedAt = time.Now().UTC()
}

// Get returns a copy of the record in slot.
func (s *Session) Get(slot Slot) (model.ShipmentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.primary
	if slot == SlotSecondary {
		p = s.secondary
	}
	if p == nil {
		return model.ShipmentRecord{}, false
	}
	return *p, true
}

func (s *Session) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

func (s *Session) Thresholds() alerts.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thresholds
}

func (s *Session) SetThresholds(t alerts.Thresholds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds = t
	s.touch()
}

// Analyze derives the analysis with the session thresholds.
func (s *Session) Analyze() (*Analysis, error) {
	return s.AnalyzeWith(s.Thresholds())
}

// AnalyzeWith derives the analysis with the given thresholds. Results are
// memoized by a digest of both records and the thresholds, so any change of
// input recomputes from scratch.
func (s *Session) AnalyzeWith(t alerts.Thresholds) (*Analysis, error) {
	s.mu.RLock()
	primary, secondary := s.primary, s.secondary
	s.mu.RUnlock()
	if primary == nil {
		return nil, ErrNoPrimary
	}
	digest, err := Digest(primary, secondary, t)
	if err != nil {
		return nil, err
	}

	s.memoMu.Lock()
	defer s.memoMu.Unlock()
	if a, ok := s.memo[digest]; ok {
		return a, nil
	}
	a := Analyze(*primary, secondary, t)
	a.Digest = digest
	// Only the latest input and its threshold variants are worth keeping.
	if len(s.memo) >= 8 {
		s.memo = nil
	}
	if s.memo == nil {
		s.memo = map[string]*Analysis{}
	}
	s.memo[digest] = a
	return a, nil
}

// Digest hashes the inputs of an analysis.
func Digest(primary, secondary *model.ShipmentRecord, t alerts.Thresholds) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, v := range []any{primary, secondary, t} {
		if err := enc.Encode(v); err != nil {
			return "", fmt.Errorf("session: digest: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Analyze computes every derived view of primary, and the comparison with
// secondary when it is non-nil.
func Analyze(primary model.ShipmentRecord, secondary *model.ShipmentRecord, t alerts.Thresholds) *Analysis {
	route := tracking.BuildRoute(primary.TransportEvents)
	a := &Analysis{
		Status:        tracking.ClassifyStatus(primary),
		Summary:       tracking.Summarize(primary),
		Route:         route,
		VesselChanges: tracking.VesselChanges(route),
		Milestones:    tracking.DeriveMilestones(primary),
		Timeline:      tracking.GroupByDay(primary.Events),
	}
	if secondary != nil {
		a.Compared = true
		a.Differences = compare.Compare(primary, *secondary)
		a.Alerts = alerts.NewEngine(t).Evaluate(primary, *secondary)
	}
	return a
}
