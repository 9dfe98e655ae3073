package analyzer

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"signalfeed/internal/apperr"
	"signalfeed/internal/models"
)

type MomentumConfig struct {
	// TriggerPct is the minimum absolute percent move that produces a signal.
	TriggerPct float64
	// StrengthScale is how many multiples of TriggerPct count as full strength.
	StrengthScale  float64
	BaseConfidence float64
	MinSamples     int
	StopLossPct    float64
	TakeProfitPct  float64
}

// MomentumAnalyzer signals in the direction of the move between the first
// and last usable prices once it clears TriggerPct.
type MomentumAnalyzer struct {
	cfg MomentumConfig
}

func NewMomentum(cfg MomentumConfig) *MomentumAnalyzer {
	if cfg.TriggerPct <= 0 {
		cfg.TriggerPct = 0.5
	}
	if cfg.StrengthScale <= 0 {
		cfg.StrengthScale = 4
	}
	if cfg.BaseConfidence < 0 || cfg.BaseConfidence > 100 {
		cfg.BaseConfidence = 50
	}
	if cfg.MinSamples < 2 {
		cfg.MinSamples = 2
	}
	if cfg.StopLossPct < 0 {
		cfg.StopLossPct = 0
	}
	if cfg.TakeProfitPct < 0 {
		cfg.TakeProfitPct = 0
	}
	return &MomentumAnalyzer{cfg: cfg}
}

func (a *MomentumAnalyzer) Name() string { return "momentum" }

func (a *MomentumAnalyzer) Analyze(symbol string, history []PricePoint) (*models.Candidate, error) {
	if len(history) == 0 {
		return nil, apperr.DataUnavailable("no price history for %s", symbol)
	}
	prices := make([]float64, 0, len(history))
	for _, p := range history {
		if usable(p.Price) {
			prices = append(prices, p.Price)
		}
	}
	if len(prices) == 0 {
		return nil, apperr.DataUnavailable("no usable prices for %s", symbol)
	}
	if len(prices) < a.cfg.MinSamples {
		return nil, nil
	}

	first, last := prices[0], prices[len(prices)-1]
	pct := (last - first) / first * 100.0
	if math.Abs(pct) < a.cfg.TriggerPct {
		return nil, nil
	}

	direction := models.DirectionBuy
	if pct < 0 {
		direction = models.DirectionSell
	}
	strength := math.Min(1, math.Abs(pct)/(a.cfg.TriggerPct*a.cfg.StrengthScale))
	consistency := stepConsistency(prices, direction)
	confidence := Confidence(a.cfg.BaseConfidence, strength, consistency)

	entry := decimal.NewFromFloat(last)
	sl, tp := a.levels(entry, direction)

	payload, _ := json.Marshal(map[string]any{
		"change_pct":  round(pct, 4),
		"samples":     len(prices),
		"first_price": first,
		"last_price":  last,
		"strength":    round(strength, 4),
		"consistency": round(consistency, 4),
		"trigger_pct": a.cfg.TriggerPct,
	})

	return &models.Candidate{
		Symbol:     symbol,
		Direction:  direction,
		Source:     models.SourceBot,
		EntryPrice: entry,
		StopLoss:   sl,
		TakeProfit: tp,
		Confidence: confidence,
		Analyzer:   a.Name(),
		Note:       fmt.Sprintf("momentum %+.2f%% over %d samples", pct, len(prices)),
		Payload:    payload,
	}, nil
}

// Confidence maps strength and consistency in [0,1] onto [base,100], rounded to 2 dp.
func Confidence(base, strength, consistency float64) float64 {
	strength = clamp(strength, 0, 1)
	consistency = clamp(consistency, 0, 1)
	c := base + (100-base)*(0.7*strength+0.3*consistency)
	return round(clamp(c, 0, 100), 2)
}

func (a *MomentumAnalyzer) levels(entry decimal.Decimal, dir models.Direction) (*decimal.Decimal, *decimal.Decimal) {
	hundred := decimal.NewFromInt(100)
	slFrac := decimal.NewFromFloat(a.cfg.StopLossPct).Div(hundred)
	tpFrac := decimal.NewFromFloat(a.cfg.TakeProfitPct).Div(hundred)
	one := decimal.NewFromInt(1)

	var sl, tp decimal.Decimal
	if dir == models.DirectionBuy {
		sl = entry.Mul(one.Sub(slFrac))
		tp = entry.Mul(one.Add(tpFrac))
	} else {
		sl = entry.Mul(one.Add(slFrac))
		tp = entry.Mul(one.Sub(tpFrac))
	}
	sl = sl.Round(8)
	tp = tp.Round(8)
	if tp.IsNegative() {
		tp = decimal.Zero
	}
	return &sl, &tp
}

// stepConsistency is the fraction of consecutive steps moving in dir.
func stepConsistency(prices []float64, dir models.Direction) float64 {
	steps := len(prices) - 1
	if steps <= 0 {
		return 0
	}
	with := 0
	for i := 1; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		if (dir == models.DirectionBuy && d > 0) || (dir == models.DirectionSell && d < 0) {
			with++
		}
	}
	return float64(with) / float64(steps)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
