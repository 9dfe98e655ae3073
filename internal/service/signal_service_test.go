package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signalfeed/internal/apperr"
	"signalfeed/internal/models"
	"signalfeed/internal/repository"
	"signalfeed/internal/repository/memory"
	"signalfeed/internal/signal"
)

type recordingSink struct {
	mu      sync.Mutex
	actions []string
	details []map[string]any
}

func (s *recordingSink) Record(ctx context.Context, action, level string, details map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
	s.details = append(s.details, details)
}

func newSignalService() (*SignalService, *memory.Store, *recordingSink) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := memory.New(repository.Options{Window: models.CalendarDay, Now: func() time.Time { return now }})
	sink := &recordingSink{}
	return &SignalService{Store: store, Hub: signal.NewHub(nil), Audit: sink}, store, sink
}

func TestSignalService_CreateAdmin(t *testing.T) {
	svc, _, sink := newSignalService()
	ctx := context.Background()
	sig, inserted, err := svc.CreateAdmin(ctx, AdminSignalInput{
		Symbol:     "xauusd",
		Direction:  "long",
		EntryPrice: decimal.NewFromInt(2300),
		Confidence: 88,
		Note:       " breakout ",
		Actor:      "ops@desk",
	})
	if err != nil || !inserted {
		t.Fatalf("err=%v inserted=%v", err, inserted)
	}
	if sig.Source != models.SourceAdmin || sig.Symbol != "XAUUSD" || sig.Direction != models.DirectionBuy {
		t.Fatalf("sig=%+v", sig)
	}
	if sig.Note != "breakout" || sig.Analyzer != "ops@desk" {
		t.Fatalf("note=%q analyzer=%q", sig.Note, sig.Analyzer)
	}
	if len(sink.actions) != 1 || sink.actions[0] != "signal_admin_create" {
		t.Fatalf("audit=%v", sink.actions)
	}

	if _, _, err := svc.CreateAdmin(ctx, AdminSignalInput{Symbol: "X", Direction: "HOLD", EntryPrice: decimal.NewFromInt(1)}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("bad direction err=%v want validation", err)
	}
	if _, _, err := svc.CreateAdmin(ctx, AdminSignalInput{Symbol: "X", Direction: "BUY", EntryPrice: decimal.NewFromInt(1), Confidence: 101}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("bad confidence err=%v want validation", err)
	}
}

func TestSignalService_CancelAndClear(t *testing.T) {
	svc, store, sink := newSignalService()
	ctx := context.Background()
	events, cancel := svc.Hub.Subscribe(8)
	defer cancel()

	sig, _, _ := svc.CreateAdmin(ctx, AdminSignalInput{Symbol: "EURUSD", Direction: "SELL", EntryPrice: decimal.NewFromInt(1), Confidence: 60})
	for _, sym := range []string{"GBPUSD", "USDJPY"} {
		if _, _, err := store.Upsert(ctx, models.Candidate{Symbol: sym, Direction: models.DirectionBuy, Source: models.SourceBot, EntryPrice: decimal.NewFromInt(1), Confidence: 70}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := svc.Cancel(ctx, sig.ID, "")
	if err != nil || got.Status != models.StatusCancelled {
		t.Fatalf("cancel status=%v err=%v", got.Status, err)
	}
	if _, err := svc.Cancel(ctx, sig.ID, ""); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("second cancel err=%v want invalid_state", err)
	}
	if _, err := svc.Cancel(ctx, "nope", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown cancel err=%v want not_found", err)
	}

	bot := models.SourceBot
	n, err := svc.Clear(ctx, &bot, "ops")
	if err != nil || n != 2 {
		t.Fatalf("clear n=%d err=%v want=2", n, err)
	}
	if left, _ := store.Count(ctx, repository.QuerySignalsParams{}); left != 1 {
		t.Fatalf("left=%d want=1 (admin kept)", left)
	}
	last := sink.details[len(sink.details)-1]
	if sink.actions[len(sink.actions)-1] != "signals_clear" || last["removed"] != int64(2) || last["source"] != "BOT_GENERATED" {
		t.Fatalf("clear audit=%v %v", sink.actions, last)
	}

	var types []signal.EventType
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	want := []signal.EventType{signal.EventInserted, signal.EventCancelled, signal.EventCleared}
	if len(types) != len(want) {
		t.Fatalf("events=%v want=%v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events=%v want=%v", types, want)
		}
	}
}

func TestSignalService_List(t *testing.T) {
	svc, store, _ := newSignalService()
	ctx := context.Background()
	for _, sym := range []string{"A", "B", "C"} {
		_, _, _ = store.Upsert(ctx, models.Candidate{Symbol: sym, Direction: models.DirectionBuy, Source: models.SourceBot, EntryPrice: decimal.NewFromInt(1), Confidence: 50})
	}
	items, total, err := svc.List(ctx, repository.QuerySignalsParams{Limit: 2})
	if err != nil || len(items) != 2 || total != 3 {
		t.Fatalf("items=%d total=%d err=%v", len(items), total, err)
	}
}
