package service

import (
	"context"
	"errors"
	"testing"

	"signalfeed/internal/apperr"
	"signalfeed/internal/repository"
	"signalfeed/internal/repository/memory"
)

func TestSystemSettings_DefaultsAndToggle(t *testing.T) {
	ctx := context.Background()
	svc := &SystemSettingsService{Repo: memory.New(repository.Options{})}

	if err := svc.EnsureDefaultSwitches(ctx); err != nil {
		t.Fatalf("ensure err=%v", err)
	}
	if !svc.IsEnabled(ctx, FeatureIngestion, false) {
		t.Fatalf("ingestion should default on")
	}
	if err := svc.SetEnabled(ctx, FeatureIngestion, false); err != nil {
		t.Fatalf("set err=%v", err)
	}
	if err := svc.EnsureDefaultSwitches(ctx); err != nil {
		t.Fatalf("ensure err=%v", err)
	}
	if svc.IsEnabled(ctx, FeatureIngestion, true) {
		t.Fatalf("operator choice must survive EnsureDefaultSwitches")
	}
	if err := svc.SetEnabled(ctx, "feature.unknown", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown key err=%v want not_found", err)
	}

	list, err := svc.ListSwitches(ctx)
	if err != nil || len(list) != len(DefaultFeatureSwitches()) {
		t.Fatalf("list=%v err=%v", list, err)
	}
	for _, sw := range list {
		if sw.Key == FeatureIngestion && sw.Enabled {
			t.Fatalf("listed ingestion switch should be off")
		}
	}
}

func TestSystemSettings_NilRepoFallsBack(t *testing.T) {
	var svc *SystemSettingsService
	if !svc.IsEnabled(context.Background(), FeatureIngestion, true) {
		t.Fatalf("nil service must return fallback")
	}
}
