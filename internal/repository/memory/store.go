// Package memory is an in-process SignalStore. With a Journal attached every
// mutation is written ahead to durable storage before it becomes visible.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"signalfeed/internal/apperr"
	"signalfeed/internal/models"
	"signalfeed/internal/repository"
)

const maxRuns = 500

// Journal persists signal mutations. A failed write aborts the mutation.
type Journal interface {
	PutSignals(ctx context.Context, items []models.Signal) error
	DeleteSignals(ctx context.Context, ids []string) error
}

// StateJournal is implemented by journals that also persist ingestion runs
// and system settings. Without it those live only in memory.
type StateJournal interface {
	PutRun(ctx context.Context, item models.IngestionRun) error
	PutSetting(ctx context.Context, item models.SystemSetting) error
}

// Snapshot is the durable state handed to NewWithJournal on startup.
type Snapshot struct {
	Signals  []models.Signal
	Runs     []models.IngestionRun
	Settings []models.SystemSetting
}

type identityKey struct {
	symbol    string
	direction models.Direction
	source    models.Source
}

type Store struct {
	opts    repository.Options
	journal Journal
	state   StateJournal

	mu       sync.RWMutex
	signals  map[string]models.Signal
	identity map[identityKey][]string
	seq      int64

	runs     []models.IngestionRun
	settings map[string]models.SystemSetting
}

var _ repository.Repository = (*Store)(nil)

func New(opts repository.Options) *Store {
	return &Store{
		opts:     opts,
		signals:  map[string]models.Signal{},
		identity: map[identityKey][]string{},
		settings: map[string]models.SystemSetting{},
	}
}

// NewWithJournal restores snap and writes future mutations to j.
func NewWithJournal(opts repository.Options, j Journal, snap Snapshot) *Store {
	s := New(opts)
	s.journal = j
	if sj, ok := j.(StateJournal); ok {
		s.state = sj
	}
	for _, sig := range snap.Signals {
		s.apply(sig)
		if sig.Seq > s.seq {
			s.seq = sig.Seq
		}
	}
	runs := append([]models.IngestionRun(nil), snap.Runs...)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
	if len(runs) > maxRuns {
		runs = runs[len(runs)-maxRuns:]
	}
	s.runs = runs
	for _, item := range snap.Settings {
		s.settings[item.Key] = item
	}
	return s
}

func keyOf(sig models.Signal) identityKey {
	return identityKey{symbol: sig.Symbol, direction: sig.Direction, source: sig.Source}
}

// apply stores sig and indexes it. Caller holds mu.
func (s *Store) apply(sig models.Signal) {
	if _, ok := s.signals[sig.ID]; !ok {
		k := keyOf(sig)
		s.identity[k] = append(s.identity[k], sig.ID)
	}
	s.signals[sig.ID] = sig
}

// remove drops ids from the maps. Caller holds mu.
func (s *Store) remove(ids []string) {
	for _, id := range ids {
		sig, ok := s.signals[id]
		if !ok {
			continue
		}
		delete(s.signals, id)
		k := keyOf(sig)
		list := s.identity[k]
		for i, v := range list {
			if v == id {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(s.identity, k)
		} else {
			s.identity[k] = list
		}
	}
}

func (s *Store) put(ctx context.Context, items ...models.Signal) error {
	if s.journal == nil || len(items) == 0 {
		return nil
	}
	if err := s.journal.PutSignals(ctx, items); err != nil {
		return apperr.StoreIO(err, "journal put signals")
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, candidate models.Candidate) (models.Signal, bool, error) {
	c := candidate.Normalize(s.opts.Clock())
	if err := c.Validate(); err != nil {
		return models.Signal{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return models.Signal{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := identityKey{symbol: c.Symbol, direction: c.Direction, source: c.Source}
	var (
		existing models.Signal
		found    bool
	)
	for _, id := range s.identity[k] {
		sig := s.signals[id]
		if sig.Status != models.StatusActive || !s.opts.Window.Contains(sig.CreatedAt, c.ObservedAt) {
			continue
		}
		if !found || sig.CreatedAt.After(existing.CreatedAt) || (sig.CreatedAt.Equal(existing.CreatedAt) && sig.Seq > existing.Seq) {
			existing = sig
			found = true
		}
	}

	if found {
		updated := repository.Refresh(existing, c)
		if err := s.put(ctx, updated); err != nil {
			return models.Signal{}, false, err
		}
		s.apply(updated)
		return updated, false, nil
	}

	sig := repository.NewSignal(uuid.NewString(), c)
	sig.Seq = s.seq + 1
	if err := s.put(ctx, sig); err != nil {
		return models.Signal{}, false, err
	}
	s.seq = sig.Seq
	s.apply(sig)
	return sig, true, nil
}

func (s *Store) ExpireStale(ctx context.Context, now time.Time, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	if now.IsZero() {
		now = s.opts.Clock()
	}
	cutoff := now.UTC().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []models.Signal
	for _, sig := range s.signals {
		if sig.Status != models.StatusActive || sig.Source != models.SourceBot {
			continue
		}
		if !sig.CreatedAt.Before(cutoff) {
			continue
		}
		ts := now.UTC()
		sig.Status = models.StatusExpired
		sig.StatusChangedAt = &ts
		changed = append(changed, sig)
	}
	if err := s.put(ctx, changed...); err != nil {
		return 0, err
	}
	for _, sig := range changed {
		s.apply(sig)
	}
	return int64(len(changed)), nil
}

func (s *Store) Cancel(ctx context.Context, id string) (models.Signal, error) {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.signals[id]
	if !ok {
		return models.Signal{}, apperr.NotFound("signal %q not found", id)
	}
	if sig.Status != models.StatusActive {
		return models.Signal{}, apperr.InvalidState("signal %q is %s", id, sig.Status)
	}
	ts := s.opts.Clock()
	sig.Status = models.StatusCancelled
	sig.StatusChangedAt = &ts
	if err := s.put(ctx, sig); err != nil {
		return models.Signal{}, err
	}
	s.apply(sig)
	return sig, nil
}

func (s *Store) ClearAll(ctx context.Context, source *models.Source) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, sig := range s.signals {
		if source != nil && sig.Source != *source {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if s.journal != nil {
		if err := s.journal.DeleteSignals(ctx, ids); err != nil {
			return 0, apperr.StoreIO(err, "journal delete signals")
		}
	}
	s.remove(ids)
	return int64(len(ids)), nil
}

func (s *Store) Get(ctx context.Context, id string) (models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signals[strings.TrimSpace(id)]
	if !ok {
		return models.Signal{}, apperr.NotFound("signal %q not found", id)
	}
	return sig, nil
}

func (s *Store) Query(ctx context.Context, params repository.QuerySignalsParams) ([]models.Signal, error) {
	items := s.match(params)
	offset := repository.NormalizeOffset(params.Offset)
	if offset >= len(items) {
		return []models.Signal{}, nil
	}
	items = items[offset:]
	if params.Limit > 0 && params.Limit < len(items) {
		items = items[:params.Limit]
	}
	return items, nil
}

func (s *Store) Count(ctx context.Context, params repository.QuerySignalsParams) (int64, error) {
	return int64(len(s.match(params))), nil
}

func (s *Store) match(params repository.QuerySignalsParams) []models.Signal {
	var symbol string
	if params.Symbol != nil {
		symbol = models.NormalizeSymbol(*params.Symbol)
	}

	s.mu.RLock()
	out := make([]models.Signal, 0, len(s.signals))
	for _, sig := range s.signals {
		if params.Status != nil && sig.Status != *params.Status {
			continue
		}
		if params.Source != nil && sig.Source != *params.Source {
			continue
		}
		if symbol != "" && sig.Symbol != symbol {
			continue
		}
		if params.Direction != nil && sig.Direction != *params.Direction {
			continue
		}
		if params.Since != nil && !params.Since.IsZero() && sig.CreatedAt.Before(*params.Since) {
			continue
		}
		out = append(out, sig)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return out
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) InsertIngestionRun(ctx context.Context, item *models.IngestionRun) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		if err := s.state.PutRun(ctx, *item); err != nil {
			return apperr.StoreIO(err, "journal put ingestion run")
		}
	}
	s.runs = append(s.runs, *item)
	if len(s.runs) > maxRuns {
		s.runs = s.runs[len(s.runs)-maxRuns:]
	}
	return nil
}

func (s *Store) ListIngestionRuns(ctx context.Context, limit int) ([]models.IngestionRun, error) {
	limit = repository.NormalizeLimit(limit, 50)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.IngestionRun, 0, limit)
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.runs[i])
	}
	return out, nil
}

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if item == nil || strings.TrimSpace(item.Key) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Clock()
	if prev, ok := s.settings[item.Key]; ok {
		item.CreatedAt = prev.CreatedAt
	} else if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if s.state != nil {
		if err := s.state.PutSetting(ctx, *item); err != nil {
			return apperr.StoreIO(err, "journal put system setting")
		}
	}
	s.settings[item.Key] = *item
	return nil
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.settings[strings.TrimSpace(key)]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	s.mu.RLock()
	out := make([]models.SystemSetting, 0, len(s.settings))
	for _, item := range s.settings {
		out = append(out, item)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
