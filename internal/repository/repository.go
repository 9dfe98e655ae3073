package repository

import (
	"context"
	"time"

	"signalfeed/internal/models"
)

// SignalStore is the authoritative, deduplicated collection of signals.
// Upsert, ExpireStale and Cancel are the only mutating calls on normal paths
// and each is atomic with respect to a single record.
type SignalStore interface {
	// Upsert inserts the candidate or refreshes the ACTIVE record sharing its
	// (symbol, direction, source) identity inside the current window.
	Upsert(ctx context.Context, candidate models.Candidate) (models.Signal, bool, error)
	// ExpireStale moves ACTIVE bot signals created before now-ttl to EXPIRED.
	ExpireStale(ctx context.Context, now time.Time, ttl time.Duration) (int64, error)
	Cancel(ctx context.Context, id string) (models.Signal, error)
	// ClearAll physically removes signals, optionally only those of one source.
	ClearAll(ctx context.Context, source *models.Source) (int64, error)
	Get(ctx context.Context, id string) (models.Signal, error)
	Query(ctx context.Context, params QuerySignalsParams) ([]models.Signal, error)
	Count(ctx context.Context, params QuerySignalsParams) (int64, error)
}

type RunStore interface {
	InsertIngestionRun(ctx context.Context, item *models.IngestionRun) error
	ListIngestionRuns(ctx context.Context, limit int) ([]models.IngestionRun, error)
}

type SettingsStore interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error)
}

// Repository is everything the service needs from persistence.
type Repository interface {
	SignalStore
	RunStore
	SettingsStore
	Ping(ctx context.Context) error
}

// QuerySignalsParams filters signals. Nil fields do not filter and a
// non-positive Limit returns every match. Results are ordered by created_at
// desc, then insertion sequence desc.
type QuerySignalsParams struct {
	Limit     int
	Offset    int
	Status    *models.Status
	Source    *models.Source
	Symbol    *string
	Direction *models.Direction
	Since     *time.Time
}

// Options configures store backends. Now is injectable for tests.
type Options struct {
	Window models.Window
	Now    func() time.Time
}

func (o Options) Clock() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func NormalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func NormalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// NewSignal builds a fresh ACTIVE record from a normalized candidate.
func NewSignal(id string, c models.Candidate) models.Signal {
	return models.Signal{
		ID:         id,
		Symbol:     c.Symbol,
		Direction:  c.Direction,
		Source:     c.Source,
		Status:     models.StatusActive,
		EntryPrice: c.EntryPrice,
		StopLoss:   c.StopLoss,
		TakeProfit: c.TakeProfit,
		Confidence: c.Confidence,
		Analyzer:   c.Analyzer,
		Note:       c.Note,
		Payload:    c.Payload,
		CreatedAt:  c.ObservedAt,
		LastSeenAt: c.ObservedAt,
	}
}

// Refresh applies a same-identity candidate to an existing record.
// Confidence and entry price always follow the candidate; optional fields only
// when supplied. created_at never moves.
func Refresh(sig models.Signal, c models.Candidate) models.Signal {
	sig.Confidence = c.Confidence
	sig.EntryPrice = c.EntryPrice
	if c.StopLoss != nil {
		sig.StopLoss = c.StopLoss
	}
	if c.TakeProfit != nil {
		sig.TakeProfit = c.TakeProfit
	}
	if c.Analyzer != "" {
		sig.Analyzer = c.Analyzer
	}
	if c.Note != "" {
		sig.Note = c.Note
	}
	if len(c.Payload) > 0 {
		sig.Payload = c.Payload
	}
	if c.ObservedAt.After(sig.LastSeenAt) {
		sig.LastSeenAt = c.ObservedAt
	}
	return sig
}
