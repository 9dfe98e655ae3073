package feed

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signalfeed/internal/models"
	"signalfeed/internal/repository"
	"signalfeed/internal/repository/memory"
)

type fixture struct {
	store *memory.Store
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	f.store = memory.New(repository.Options{Window: models.CalendarDay, Now: func() time.Time { return f.now }})
	return f
}

func (f *fixture) add(t *testing.T, symbol string, dir models.Direction, src models.Source, conf float64, at time.Time) models.Signal {
	t.Helper()
	sig, _, err := f.store.Upsert(context.Background(), models.Candidate{
		Symbol:     symbol,
		Direction:  dir,
		Source:     src,
		EntryPrice: decimal.NewFromInt(1),
		Confidence: conf,
		ObservedAt: at,
	})
	if err != nil {
		t.Fatalf("upsert %s: %v", symbol, err)
	}
	return sig
}

func TestCompose_Ordering(t *testing.T) {
	f := newFixture(t)
	f.add(t, "A", models.DirectionBuy, models.SourceBot, 60, f.now)
	f.add(t, "B", models.DirectionBuy, models.SourceBot, 95, f.now.Add(-time.Hour))
	f.add(t, "C", models.DirectionBuy, models.SourceAdmin, 81, f.now.Add(-2*time.Hour))

	items, err := NewComposer(f.store, 80).Compose(context.Background(), Filters{})
	if err != nil {
		t.Fatalf("Compose err=%v", err)
	}
	got := []float64{}
	for _, it := range items {
		got = append(got, it.Confidence)
	}
	if len(got) != 3 || got[0] != 95 || got[1] != 81 || got[2] != 60 {
		t.Fatalf("order=%v want=[95 81 60]", got)
	}
	if !items[0].IsRecommended || !items[1].IsRecommended || items[2].IsRecommended {
		t.Fatalf("recommended flags wrong: %+v", items)
	}
}

func TestCompose_RecommendedBeforeHigherTimestamp(t *testing.T) {
	f := newFixture(t)
	f.add(t, "NEW", models.DirectionBuy, models.SourceBot, 79.99, f.now)
	f.add(t, "OLD", models.DirectionBuy, models.SourceBot, 80, f.now.Add(-3*time.Hour))

	items, _ := NewComposer(f.store, 80).Compose(context.Background(), Filters{})
	if items[0].Symbol != "OLD" {
		t.Fatalf("first=%s want=OLD (threshold is inclusive)", items[0].Symbol)
	}
}

func TestCompose_TieBreaksByCreatedAtThenSeq(t *testing.T) {
	f := newFixture(t)
	f.add(t, "EARLY", models.DirectionBuy, models.SourceBot, 70, f.now.Add(-time.Hour))
	f.add(t, "LATE", models.DirectionBuy, models.SourceBot, 70, f.now)
	f.add(t, "SAME", models.DirectionBuy, models.SourceBot, 70, f.now)

	items, _ := NewComposer(f.store, 80).Compose(context.Background(), Filters{})
	if items[0].Symbol != "SAME" || items[1].Symbol != "LATE" || items[2].Symbol != "EARLY" {
		t.Fatalf("order=%s,%s,%s", items[0].Symbol, items[1].Symbol, items[2].Symbol)
	}
}

func TestCompose_ActiveOnlyAndAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bot := f.add(t, "EURUSD", models.DirectionBuy, models.SourceBot, 90, f.now)
	f.add(t, "XAUUSD", models.DirectionSell, models.SourceAdmin, 70, f.now)
	cancelled := f.add(t, "GBPUSD", models.DirectionBuy, models.SourceAdmin, 99, f.now)
	if _, err := f.store.Cancel(ctx, cancelled.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	c := NewComposer(f.store, 80)
	items, _ := c.Compose(ctx, Filters{})
	if len(items) != 2 {
		t.Fatalf("items=%d want=2 (cancelled hidden)", len(items))
	}
	items, _ = c.Compose(ctx, Filters{AdminOnly: true})
	if len(items) != 1 || items[0].Source != models.SourceAdmin {
		t.Fatalf("admin-only items=%+v", items)
	}
	for _, it := range items {
		if it.ID == bot.ID {
			t.Fatalf("bot signal leaked into admin-only feed")
		}
	}
}

func TestCompose_Filters(t *testing.T) {
	f := newFixture(t)
	f.add(t, "EURUSD", models.DirectionBuy, models.SourceBot, 90, f.now)
	f.add(t, "EURUSD", models.DirectionSell, models.SourceBot, 50, f.now)
	f.add(t, "GBPUSD", models.DirectionBuy, models.SourceBot, 85, f.now.Add(-5*time.Hour))

	c := NewComposer(f.store, 80)
	ctx := context.Background()

	items, _ := c.Compose(ctx, Filters{Symbol: "eurusd"})
	if len(items) != 2 {
		t.Fatalf("symbol filter items=%d want=2", len(items))
	}
	sell := models.DirectionSell
	items, _ = c.Compose(ctx, Filters{Direction: &sell})
	if len(items) != 1 || items[0].Direction != models.DirectionSell {
		t.Fatalf("direction filter items=%+v", items)
	}
	items, _ = c.Compose(ctx, Filters{RecommendedOnly: true})
	if len(items) != 2 {
		t.Fatalf("recommended-only items=%d want=2", len(items))
	}
	since := f.now.Add(-time.Hour)
	items, _ = c.Compose(ctx, Filters{Since: &since, MinConfidence: 60})
	if len(items) != 1 || items[0].Confidence != 90 {
		t.Fatalf("since+min items=%+v", items)
	}
	items, _ = c.Compose(ctx, Filters{Limit: 1, Offset: 1})
	if len(items) != 1 || items[0].Confidence != 85 {
		t.Fatalf("page items=%+v", items)
	}
}

func TestCompose_Empty(t *testing.T) {
	f := newFixture(t)
	items, err := NewComposer(f.store, 80).Compose(context.Background(), Filters{})
	if err != nil || len(items) != 0 {
		t.Fatalf("items=%v err=%v", items, err)
	}
}

func TestCompose_SourceFilter(t *testing.T) {
	f := newFixture(t)
	f.add(t, "EURUSD", models.DirectionBuy, models.SourceBot, 90, f.now)
	f.add(t, "EURUSD", models.DirectionBuy, models.SourceAdmin, 90, f.now)

	bot := models.SourceBot
	items, err := NewComposer(f.store, 80).Compose(context.Background(), Filters{Source: &bot})
	if err != nil {
		t.Fatalf("Compose err=%v", err)
	}
	if len(items) != 1 || items[0].Source != models.SourceBot {
		t.Fatalf("items=%+v want only the bot signal", items)
	}

	items, _ = NewComposer(f.store, 80).Compose(context.Background(), Filters{AdminOnly: true})
	if len(items) != 1 || items[0].Source != models.SourceAdmin {
		t.Fatalf("items=%+v want only the admin signal", items)
	}
}

func TestFilters_Matches(t *testing.T) {
	bot, sell := models.SourceBot, models.DirectionSell
	sig := models.Signal{Symbol: "EURUSD", Direction: models.DirectionBuy, Source: models.SourceAdmin}
	tests := []struct {
		f    Filters
		want bool
	}{
		{Filters{}, true},
		{Filters{AdminOnly: true}, true},
		{Filters{Source: &bot}, false},
		{Filters{Symbol: "eur usd"}, true},
		{Filters{Symbol: "GBPUSD"}, false},
		{Filters{Direction: &sell}, false},
	}
	for i, tt := range tests {
		if got := tt.f.Matches(sig); got != tt.want {
			t.Fatalf("case %d Matches=%v want=%v", i, got, tt.want)
		}
	}
}
