package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"signalfeed/internal/apperr"
	"signalfeed/internal/models"
	"signalfeed/internal/repository"
)

type Store struct {
	db   *gorm.DB
	opts repository.Options
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB, opts repository.Options) *Store {
	return &Store{db: db, opts: opts}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return apperr.StoreIO(errors.New("database not configured"), "ping")
	}
	sqldb, err := s.db.DB()
	if err != nil {
		return apperr.StoreIO(err, "ping")
	}
	if err := sqldb.PingContext(ctx); err != nil {
		return apperr.StoreIO(err, "ping")
	}
	return nil
}

func identityLockKey(c models.Candidate) string {
	return "signal:" + c.Symbol + ":" + string(c.Direction) + ":" + string(c.Source)
}

// Upsert serializes writers per identity with a transaction-scoped advisory
// lock, so concurrent candidates for the same key never create two rows.
func (s *Store) Upsert(ctx context.Context, candidate models.Candidate) (models.Signal, bool, error) {
	c := candidate.Normalize(s.opts.Clock())
	if err := c.Validate(); err != nil {
		return models.Signal{}, false, err
	}
	if s == nil || s.db == nil {
		return models.Signal{}, false, apperr.StoreIO(errors.New("database not configured"), "upsert")
	}

	var (
		out      models.Signal
		inserted bool
	)
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", identityLockKey(c)).Error; err != nil {
			return err
		}
		start := s.opts.Window.Start(c.ObservedAt)
		query := tx.Model(&models.Signal{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("symbol = ? AND direction = ? AND source = ?", c.Symbol, c.Direction, c.Source).
			Where("status = ?", models.StatusActive).
			Where("created_at >= ?", start)
		if s.opts.Window.Rolling <= 0 {
			query = query.Where("created_at < ?", start.Add(24*time.Hour))
		}
		var existing models.Signal
		err := query.Order("created_at desc, seq desc").First(&existing).Error
		switch {
		case err == nil:
			out = repository.Refresh(existing, c)
			return tx.Model(&models.Signal{}).Where("id = ?", existing.ID).Updates(map[string]any{
				"confidence":   out.Confidence,
				"entry_price":  out.EntryPrice,
				"stop_loss":    out.StopLoss,
				"take_profit":  out.TakeProfit,
				"analyzer":     out.Analyzer,
				"note":         out.Note,
				"payload":      out.Payload,
				"last_seen_at": out.LastSeenAt,
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			out = repository.NewSignal(uuid.NewString(), c)
			inserted = true
			return tx.Create(&out).Error
		default:
			return err
		}
	})
	if err != nil {
		return models.Signal{}, false, apperr.StoreIO(err, "upsert signal")
	}
	return out, inserted, nil
}

func (s *Store) ExpireStale(ctx context.Context, now time.Time, ttl time.Duration) (int64, error) {
	if s == nil || s.db == nil || ttl <= 0 {
		return 0, nil
	}
	if now.IsZero() {
		now = s.opts.Clock()
	}
	now = now.UTC()
	res := s.db.WithContext(ctx).
		Model(&models.Signal{}).
		Where("status = ?", models.StatusActive).
		Where("source = ?", models.SourceBot).
		Where("created_at < ?", now.Add(-ttl)).
		Updates(map[string]any{
			"status":            models.StatusExpired,
			"status_changed_at": now,
		})
	if res.Error != nil {
		return 0, apperr.StoreIO(res.Error, "expire stale signals")
	}
	return res.RowsAffected, nil
}

// Cancel is a conditional update; a miss is resolved into not_found or invalid_state.
func (s *Store) Cancel(ctx context.Context, id string) (models.Signal, error) {
	id = strings.TrimSpace(id)
	if s == nil || s.db == nil {
		return models.Signal{}, apperr.StoreIO(errors.New("database not configured"), "cancel")
	}
	now := s.opts.Clock()
	res := s.db.WithContext(ctx).
		Model(&models.Signal{}).
		Where("id = ? AND status = ?", id, models.StatusActive).
		Updates(map[string]any{
			"status":            models.StatusCancelled,
			"status_changed_at": now,
		})
	if res.Error != nil {
		return models.Signal{}, apperr.StoreIO(res.Error, "cancel signal")
	}
	sig, err := s.Get(ctx, id)
	if err != nil {
		return models.Signal{}, err
	}
	if res.RowsAffected == 0 {
		return models.Signal{}, apperr.InvalidState("signal %q is %s", id, sig.Status)
	}
	return sig, nil
}

func (s *Store) ClearAll(ctx context.Context, source *models.Source) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	if source != nil {
		query = query.Where("source = ?", *source)
	}
	res := query.Delete(&models.Signal{})
	if res.Error != nil {
		return 0, apperr.StoreIO(res.Error, "clear signals")
	}
	return res.RowsAffected, nil
}

func (s *Store) Get(ctx context.Context, id string) (models.Signal, error) {
	if s == nil || s.db == nil {
		return models.Signal{}, apperr.NotFound("signal %q not found", id)
	}
	var item models.Signal
	err := s.db.WithContext(ctx).Model(&models.Signal{}).Where("id = ?", strings.TrimSpace(id)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Signal{}, apperr.NotFound("signal %q not found", id)
	}
	if err != nil {
		return models.Signal{}, apperr.StoreIO(err, "get signal")
	}
	return item, nil
}

func (s *Store) filtered(ctx context.Context, params repository.QuerySignalsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Signal{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Source != nil {
		query = query.Where("source = ?", *params.Source)
	}
	if params.Symbol != nil {
		if sym := models.NormalizeSymbol(*params.Symbol); sym != "" {
			query = query.Where("symbol = ?", sym)
		}
	}
	if params.Direction != nil {
		query = query.Where("direction = ?", *params.Direction)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

func (s *Store) Query(ctx context.Context, params repository.QuerySignalsParams) ([]models.Signal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.filtered(ctx, params), "created_at", nil, "created_at")
	query = query.Order("seq desc")
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	if offset := repository.NormalizeOffset(params.Offset); offset > 0 {
		query = query.Offset(offset)
	}
	var items []models.Signal
	if err := query.Find(&items).Error; err != nil {
		return nil, apperr.StoreIO(err, "query signals")
	}
	return items, nil
}

func (s *Store) Count(ctx context.Context, params repository.QuerySignalsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.filtered(ctx, params).Count(&total).Error; err != nil {
		return 0, apperr.StoreIO(err, "count signals")
	}
	return total, nil
}

func (s *Store) InsertIngestionRun(ctx context.Context, item *models.IngestionRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return apperr.StoreIO(err, "insert ingestion run")
	}
	return nil
}

func (s *Store) ListIngestionRuns(ctx context.Context, limit int) ([]models.IngestionRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = repository.NormalizeLimit(limit, 50)
	var items []models.IngestionRun
	if err := applyOrder(s.db.WithContext(ctx).Model(&models.IngestionRun{}), "started_at", nil, "started_at").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, apperr.StoreIO(err, "list ingestion runs")
	}
	return items, nil
}

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SystemSetting
	if err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Order("key asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}
