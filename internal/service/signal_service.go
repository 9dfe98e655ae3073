package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signalfeed/internal/apperr"
	"signalfeed/internal/audit"
	"signalfeed/internal/metrics"
	"signalfeed/internal/models"
	"signalfeed/internal/repository"
	"signalfeed/internal/signal"
)

// SignalService owns the admin-facing mutations: create, cancel and clear.
type SignalService struct {
	Store  repository.SignalStore
	Hub    *signal.Hub
	Audit  audit.Sink
	Logger *zap.Logger
}

type AdminSignalInput struct {
	Symbol     string
	Direction  string
	EntryPrice decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	Confidence float64
	Note       string
	Actor      string
}

func (s *SignalService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *SignalService) record(ctx context.Context, action, level string, details map[string]any) {
	if s.Audit != nil {
		s.Audit.Record(ctx, action, level, details)
	}
}

func actorOr(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return "admin"
}

// CreateAdmin upserts an ADMIN_GENERATED signal under the same identity rules as bot signals.
func (s *SignalService) CreateAdmin(ctx context.Context, in AdminSignalInput) (models.Signal, bool, error) {
	dir, ok := models.ParseDirection(in.Direction)
	if !ok {
		return models.Signal{}, false, apperr.Validation("direction must be BUY or SELL (got %q)", in.Direction)
	}
	actor := actorOr(in.Actor)
	sig, inserted, err := s.Store.Upsert(ctx, models.Candidate{
		Symbol:     in.Symbol,
		Direction:  dir,
		Source:     models.SourceAdmin,
		EntryPrice: in.EntryPrice,
		StopLoss:   in.StopLoss,
		TakeProfit: in.TakeProfit,
		Confidence: in.Confidence,
		Analyzer:   actor,
		Note:       strings.TrimSpace(in.Note),
	})
	if err != nil {
		return models.Signal{}, false, err
	}
	metrics.AdminActions.WithLabelValues("create").Inc()
	s.Hub.PublishSignal(sig, inserted)
	s.logger().Info("admin signal saved",
		zap.String("id", sig.ID),
		zap.String("symbol", sig.Symbol),
		zap.String("direction", string(sig.Direction)),
		zap.Float64("confidence", sig.Confidence),
		zap.Bool("inserted", inserted),
		zap.String("actor", actor),
	)
	s.record(ctx, "signal_admin_create", "info", map[string]any{
		"id":         sig.ID,
		"symbol":     sig.Symbol,
		"direction":  sig.Direction,
		"confidence": sig.Confidence,
		"inserted":   inserted,
		"actor":      actor,
	})
	return sig, inserted, nil
}

func (s *SignalService) Cancel(ctx context.Context, id, actor string) (models.Signal, error) {
	if strings.TrimSpace(id) == "" {
		return models.Signal{}, apperr.Validation("id is required")
	}
	sig, err := s.Store.Cancel(ctx, id)
	if err != nil {
		return models.Signal{}, err
	}
	actor = actorOr(actor)
	metrics.AdminActions.WithLabelValues("cancel").Inc()
	s.Hub.Publish(signal.Event{Type: signal.EventCancelled, Signal: &sig})
	s.logger().Info("signal cancelled", zap.String("id", sig.ID), zap.String("actor", actor))
	s.record(ctx, "signal_cancel", "info", map[string]any{"id": sig.ID, "symbol": sig.Symbol, "actor": actor})
	return sig, nil
}

// Clear permanently removes signals, optionally limited to one source. The
// removed count is always logged.
func (s *SignalService) Clear(ctx context.Context, source *models.Source, actor string) (int64, error) {
	n, err := s.Store.ClearAll(ctx, source)
	if err != nil {
		return 0, err
	}
	actor = actorOr(actor)
	scope := "all"
	if source != nil {
		scope = string(*source)
	}
	metrics.AdminActions.WithLabelValues("clear").Inc()
	metrics.SignalsCleared.Add(float64(n))
	s.Hub.Publish(signal.Event{Type: signal.EventCleared, Count: n})
	s.logger().Warn("signals cleared",
		zap.Int64("removed", n),
		zap.String("source", scope),
		zap.String("actor", actor),
	)
	s.record(ctx, "signals_clear", "warn", map[string]any{"removed": n, "source": scope, "actor": actor})
	return n, nil
}

func (s *SignalService) Get(ctx context.Context, id string) (models.Signal, error) {
	return s.Store.Get(ctx, id)
}

// List returns one page plus the total match count.
func (s *SignalService) List(ctx context.Context, params repository.QuerySignalsParams) ([]models.Signal, int64, error) {
	items, err := s.Store.Query(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
