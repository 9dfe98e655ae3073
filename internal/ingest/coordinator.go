// Package ingest drives the analyzer over the configured symbol universe and
// merges the results into the signal store.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"signalfeed/internal/analyzer"
	"signalfeed/internal/apperr"
	"signalfeed/internal/marketdata"
	"signalfeed/internal/metrics"
	"signalfeed/internal/models"
	"signalfeed/internal/repository"
	"signalfeed/internal/signal"
)

type Outcome string

const (
	OutcomeInserted    Outcome = "inserted"
	OutcomeUpdated     Outcome = "updated"
	OutcomeNoSignal    Outcome = "no_signal"
	OutcomeRejected    Outcome = "rejected"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeFailed      Outcome = "failed"
)

const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

type Config struct {
	Symbols      []string
	Workers      int
	FetchTimeout time.Duration
	TTL          time.Duration
	Interval     string
	Period       string
}

// Deps are the collaborators. Runs, Hub and Logger are optional.
type Deps struct {
	Source   marketdata.Source
	Analyzer analyzer.Analyzer
	Store    repository.SignalStore
	Runs     repository.RunStore
	Hub      *signal.Hub
	Logger   *zap.Logger
	Now      func() time.Time
}

type SymbolOutcome struct {
	Symbol   string  `json:"symbol"`
	Outcome  Outcome `json:"outcome"`
	SignalID string  `json:"signal_id,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type CycleReport struct {
	ID          string          `json:"id"`
	Trigger     string          `json:"trigger"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Outcomes    []SymbolOutcome `json:"outcomes"`
	Expired     int64           `json:"expired"`
	ExpireError string          `json:"expire_error,omitempty"`
	Cancelled   bool            `json:"cancelled"`
}

// Count returns how many symbols ended with o.
func (r CycleReport) Count(o Outcome) int {
	n := 0
	for _, item := range r.Outcomes {
		if item.Outcome == o {
			n++
		}
	}
	return n
}

type Coordinator struct {
	cfg  Config
	deps Deps

	locks keyedMutex
}

func New(cfg Config, deps Deps) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if strings.TrimSpace(cfg.Interval) == "" {
		cfg.Interval = "1h"
	}
	if strings.TrimSpace(cfg.Period) == "" {
		cfg.Period = "5d"
	}
	cfg.Symbols = NormalizeSymbols(cfg.Symbols)
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Coordinator{cfg: cfg, deps: deps}
}

func (c *Coordinator) Symbols() []string {
	return append([]string(nil), c.cfg.Symbols...)
}

// NormalizeSymbols canonicalizes, drops empties and removes duplicates, keeping first-seen order.
func NormalizeSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		s := models.NormalizeSymbol(raw)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// RunCycle processes every symbol once, then expires stale bot signals once.
// Failures are per symbol; the returned error is non-nil only when ctx ended
// before the cycle finished, in which case the report is partial.
func (c *Coordinator) RunCycle(ctx context.Context, trigger string) (CycleReport, error) {
	if trigger == "" {
		trigger = TriggerManual
	}
	report := CycleReport{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: c.deps.Now(),
		Outcomes:  make([]SymbolOutcome, len(c.cfg.Symbols)),
	}
	metrics.IngestionCycles.WithLabelValues(trigger).Inc()

	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)
	for i, sym := range c.cfg.Symbols {
		i, sym := i, sym
		g.Go(func() error {
			res := c.process(ctx, sym)
			report.Outcomes[i] = res.outcome
			metrics.IngestionOutcomes.WithLabelValues(string(res.outcome.Outcome)).Inc()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		report.Cancelled = true
	} else {
		n, err := c.deps.Store.ExpireStale(ctx, c.deps.Now(), c.cfg.TTL)
		if err != nil {
			report.ExpireError = err.Error()
			c.deps.Logger.Warn("expire stale signals failed", zap.Error(err))
		} else {
			report.Expired = n
			if n > 0 {
				metrics.SignalsExpired.Add(float64(n))
				c.deps.Hub.Publish(signal.Event{Type: signal.EventExpired, Count: n})
			}
		}
	}
	report.FinishedAt = c.deps.Now()
	metrics.IngestionCycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	c.persist(ctx, report)
	c.deps.Logger.Info("ingestion cycle finished",
		zap.String("id", report.ID),
		zap.String("trigger", trigger),
		zap.Int("symbols", len(report.Outcomes)),
		zap.Int("inserted", report.Count(OutcomeInserted)),
		zap.Int("updated", report.Count(OutcomeUpdated)),
		zap.Int("no_signal", report.Count(OutcomeNoSignal)),
		zap.Int("rejected", report.Count(OutcomeRejected)),
		zap.Int("unavailable", report.Count(OutcomeUnavailable)),
		zap.Int("failed", report.Count(OutcomeFailed)),
		zap.Int64("expired", report.Expired),
		zap.Bool("cancelled", report.Cancelled),
	)
	if report.Cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

// Generate runs one analyzer pass for symbol. It returns nil, false, nil when
// the analyzer finds nothing actionable.
func (c *Coordinator) Generate(ctx context.Context, symbol string) (*models.Signal, bool, error) {
	sym := models.NormalizeSymbol(symbol)
	if sym == "" {
		return nil, false, apperr.Validation("symbol is required")
	}
	res := c.process(ctx, sym)
	switch res.outcome.Outcome {
	case OutcomeInserted, OutcomeUpdated:
		return res.signal, res.outcome.Outcome == OutcomeInserted, nil
	case OutcomeNoSignal:
		return nil, false, nil
	default:
		return nil, false, res.err
	}
}

type result struct {
	outcome SymbolOutcome
	signal  *models.Signal
	err     error
}

func (c *Coordinator) process(ctx context.Context, sym string) result {
	unlock := c.locks.Lock(sym)
	defer unlock()

	log := c.deps.Logger.With(zap.String("symbol", sym))
	fail := func(o Outcome, err error) result {
		return result{outcome: SymbolOutcome{Symbol: sym, Outcome: o, Error: apperr.Message(err)}, err: err}
	}

	fctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	start := time.Now()
	bars, err := c.deps.Source.History(fctx, sym, c.cfg.Interval, c.cfg.Period)
	cancel()
	if err != nil {
		metrics.MarketDataFetchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if apperr.KindOf(err) != apperr.KindDataUnavailable {
			err = apperr.Wrap(apperr.KindDataUnavailable, err, "fetch %s", sym)
		}
		log.Warn("market data unavailable", zap.Error(err))
		return fail(OutcomeUnavailable, err)
	}
	metrics.MarketDataFetchDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	cand, err := c.deps.Analyzer.Analyze(sym, analyzer.FromBars(bars))
	if err != nil {
		if errors.Is(err, apperr.ErrDataUnavailable) {
			log.Warn("analysis skipped", zap.Error(err))
			return fail(OutcomeUnavailable, err)
		}
		log.Error("analyzer failed", zap.Error(err))
		return fail(OutcomeFailed, err)
	}
	if cand == nil {
		return result{outcome: SymbolOutcome{Symbol: sym, Outcome: OutcomeNoSignal}}
	}

	cand.Source = models.SourceBot
	if cand.Symbol == "" {
		cand.Symbol = sym
	}
	if err := cand.Normalize(c.deps.Now()).Validate(); err != nil {
		log.Warn("candidate rejected", zap.Error(err), zap.Float64("confidence", cand.Confidence))
		return fail(OutcomeRejected, err)
	}

	sig, inserted, err := c.deps.Store.Upsert(ctx, *cand)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			log.Warn("candidate rejected by store", zap.Error(err))
			return fail(OutcomeRejected, err)
		}
		log.Error("upsert signal failed", zap.Error(err))
		return fail(OutcomeFailed, err)
	}
	c.deps.Hub.PublishSignal(sig, inserted)

	o := OutcomeUpdated
	if inserted {
		o = OutcomeInserted
	}
	return result{outcome: SymbolOutcome{Symbol: sym, Outcome: o, SignalID: sig.ID}, signal: &sig}
}

func (c *Coordinator) persist(ctx context.Context, report CycleReport) {
	if c.deps.Runs == nil {
		return
	}
	outcomes := append([]SymbolOutcome(nil), report.Outcomes...)
	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].Symbol < outcomes[j].Symbol })
	raw, _ := json.Marshal(outcomes)
	run := &models.IngestionRun{
		ID:          report.ID,
		Trigger:     report.Trigger,
		Symbols:     len(report.Outcomes),
		Inserted:    report.Count(OutcomeInserted),
		Updated:     report.Count(OutcomeUpdated),
		NoSignal:    report.Count(OutcomeNoSignal),
		Rejected:    report.Count(OutcomeRejected),
		Unavailable: report.Count(OutcomeUnavailable),
		Failed:      report.Count(OutcomeFailed),
		Expired:     report.Expired,
		Cancelled:   report.Cancelled,
		Outcomes:    raw,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.deps.Runs.InsertIngestionRun(wctx, run); err != nil {
		c.deps.Logger.Warn("persist ingestion run failed", zap.String("id", report.ID), zap.Error(err))
	}
}
