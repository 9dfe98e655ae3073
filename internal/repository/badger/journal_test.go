package badgerjournal

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signalfeed/internal/models"
	"signalfeed/internal/repository"
	"signalfeed/internal/service"
)

func TestJournal_ReopenRestoresSignals(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	opts := repository.Options{Window: models.CalendarDay, Now: func() time.Time { return now }}

	store, j, err := OpenStore(ctx, OpenOptions{Path: dir}, opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	first, inserted, err := store.Upsert(ctx, models.Candidate{
		Symbol:     "EURUSD",
		Direction:  models.DirectionBuy,
		Source:     models.SourceBot,
		EntryPrice: decimal.RequireFromString("1.0842"),
		Confidence: 85,
	})
	if err != nil || !inserted {
		t.Fatalf("upsert err=%v inserted=%v", err, inserted)
	}
	admin, _, err := store.Upsert(ctx, models.Candidate{
		Symbol:     "XAUUSD",
		Direction:  models.DirectionSell,
		Source:     models.SourceAdmin,
		EntryPrice: decimal.NewFromInt(2300),
		Confidence: 70,
	})
	if err != nil {
		t.Fatalf("admin upsert: %v", err)
	}
	if _, err := store.Cancel(ctx, admin.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store2, j2, err := OpenStore(ctx, OpenOptions{Path: dir}, opts)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()

	got, err := store2.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Seq != first.Seq || got.Confidence != 85 || !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("restored=%+v want=%+v", got, first)
	}
	gotAdmin, err := store2.Get(ctx, admin.ID)
	if err != nil || gotAdmin.Status != models.StatusCancelled {
		t.Fatalf("admin status=%v err=%v want=CANCELLED", gotAdmin.Status, err)
	}

	// Same identity after restart refreshes instead of duplicating.
	refreshed, inserted, err := store2.Upsert(ctx, models.Candidate{
		Symbol:     "eurusd",
		Direction:  models.DirectionBuy,
		Source:     models.SourceBot,
		EntryPrice: decimal.RequireFromString("1.0850"),
		Confidence: 90,
	})
	if err != nil || inserted || refreshed.ID != first.ID {
		t.Fatalf("refresh id=%v inserted=%v err=%v want id=%v", refreshed.ID, inserted, err, first.ID)
	}
}

func TestJournal_ClearDeletesDurably(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	opts := repository.Options{Window: models.CalendarDay}

	store, j, err := OpenStore(ctx, OpenOptions{Path: dir}, opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, sym := range []string{"EURUSD", "GBPUSD", "USDJPY"} {
		if _, _, err := store.Upsert(ctx, models.Candidate{
			Symbol:     sym,
			Direction:  models.DirectionBuy,
			Source:     models.SourceBot,
			EntryPrice: decimal.NewFromInt(1),
			Confidence: 60,
		}); err != nil {
			t.Fatalf("upsert %s: %v", sym, err)
		}
	}
	n, err := store.ClearAll(ctx, nil)
	if err != nil || n != 3 {
		t.Fatalf("clear n=%v err=%v want=3", n, err)
	}
	_ = j.Close()

	j2, err := Open(OpenOptions{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()
	left, err := j2.LoadSignals(ctx)
	if err != nil || len(left) != 0 {
		t.Fatalf("left=%d err=%v want=0", len(left), err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(OpenOptions{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestJournal_ReopenRestoresSwitchesAndRuns(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	opts := repository.Options{Window: models.CalendarDay, Now: func() time.Time { return t0 }}

	store, j, err := OpenStore(ctx, OpenOptions{Path: dir}, opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	settings := &service.SystemSettingsService{Repo: store}
	if err := settings.EnsureDefaultSwitches(ctx); err != nil {
		t.Fatalf("ensure switches: %v", err)
	}
	if err := settings.SetEnabled(ctx, service.FeatureSignalsClear, false); err != nil {
		t.Fatalf("disable clear: %v", err)
	}
	for i, trigger := range []string{"cron", "manual"} {
		run := &models.IngestionRun{
			ID:         trigger,
			Trigger:    trigger,
			Inserted:   i + 1,
			StartedAt:  t0.Add(time.Duration(i) * time.Minute),
			FinishedAt: t0.Add(time.Duration(i)*time.Minute + time.Second),
		}
		if err := store.InsertIngestionRun(ctx, run); err != nil {
			t.Fatalf("insert run: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store2, j2, err := OpenStore(ctx, OpenOptions{Path: dir}, opts)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()

	settings2 := &service.SystemSettingsService{Repo: store2}
	if err := settings2.EnsureDefaultSwitches(ctx); err != nil {
		t.Fatalf("ensure switches after restart: %v", err)
	}
	if settings2.IsEnabled(ctx, service.FeatureSignalsClear, true) {
		t.Fatalf("%s re-enabled after restart", service.FeatureSignalsClear)
	}
	if !settings2.IsEnabled(ctx, service.FeatureIngestion, false) {
		t.Fatalf("%s want=enabled", service.FeatureIngestion)
	}

	runs, err := store2.ListIngestionRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "manual" || runs[1].ID != "cron" {
		t.Fatalf("runs=%+v want [manual cron]", runs)
	}
	if runs[0].Inserted != 2 || !runs[0].StartedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("restored run=%+v", runs[0])
	}
}
