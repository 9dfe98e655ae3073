package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"signalfeed/internal/apperr"
	"signalfeed/internal/models"
	"signalfeed/internal/repository"
)

const (
	FeatureIngestion    = "feature.ingestion"
	FeatureFeedStream   = "feature.feed_stream"
	FeatureSignalsClear = "feature.signals_clear"
)

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeatureIngestion:    true,
		FeatureFeedStream:   true,
		FeatureSignalsClear: true,
	}
}

type SystemSettingsService struct {
	Repo repository.SettingsStore
}

type FeatureSwitch struct {
	Key       string    `json:"key"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EnsureDefaultSwitches writes missing switches with their defaults. Existing
// values are left alone so operator choices survive restarts.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range DefaultFeatureSwitches() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "feature switch",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return fallback
	}
	return enabled
}

// SetEnabled only accepts known switch keys.
func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if _, ok := DefaultFeatureSwitches()[key]; !ok {
		return apperr.NotFound("unknown feature switch %q", key)
	}
	raw, _ := json.Marshal(enabled)
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: "feature switch",
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
		return apperr.StoreIO(err, "update feature switch")
	}
	return nil
}

// ListSwitches reports every known switch, falling back to defaults for unset keys.
func (s *SystemSettingsService) ListSwitches(ctx context.Context) ([]FeatureSwitch, error) {
	defaults := DefaultFeatureSwitches()
	out := make([]FeatureSwitch, 0, len(defaults))
	stored := map[string]models.SystemSetting{}
	if s != nil && s.Repo != nil {
		items, err := s.Repo.ListSystemSettings(ctx)
		if err != nil {
			return nil, apperr.StoreIO(err, "list settings")
		}
		for _, item := range items {
			stored[item.Key] = item
		}
	}
	for key, def := range defaults {
		sw := FeatureSwitch{Key: key, Enabled: def}
		if item, ok := stored[key]; ok {
			var v bool
			if err := json.Unmarshal(item.Value, &v); err == nil {
				sw.Enabled = v
			}
			sw.UpdatedAt = item.UpdatedAt
		}
		out = append(out, sw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
