package models

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"signalfeed/internal/apperr"
)

// Candidate is an unpersisted signal proposed by a producer.
// ID and timestamps are assigned by the store.
type Candidate struct {
	Symbol     string    `validate:"required,max=32"`
	Direction  Direction `validate:"required,oneof=BUY SELL"`
	Source     Source    `validate:"required,oneof=BOT_GENERATED ADMIN_GENERATED"`
	EntryPrice decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
	Confidence float64 `validate:"gte=0,lte=100"`

	Analyzer string `validate:"max=64"`
	Note     string
	Payload  datatypes.JSON

	// ObservedAt is the logical time of the upsert. Zero means wall clock.
	ObservedAt time.Time
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func candidateValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Normalize canonicalizes the symbol and defaults ObservedAt. It never
// adjusts confidence or prices.
func (c Candidate) Normalize(now time.Time) Candidate {
	c.Symbol = NormalizeSymbol(c.Symbol)
	c.Analyzer = strings.TrimSpace(c.Analyzer)
	if c.ObservedAt.IsZero() {
		c.ObservedAt = now
	}
	c.ObservedAt = c.ObservedAt.UTC()
	return c
}

// Validate returns a validation error for out-of-range confidence, unknown
// enums, or negative prices.
func (c Candidate) Validate() error {
	if err := candidateValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Validation("%s: failed %q check (value %v)", strings.ToLower(fe.Field()), fe.Tag(), fe.Value())
		}
		return apperr.Validation("%v", err)
	}
	if c.EntryPrice.IsNegative() {
		return apperr.Validation("entry_price must be non-negative (got %s)", c.EntryPrice.String())
	}
	if c.StopLoss != nil && c.StopLoss.IsNegative() {
		return apperr.Validation("stop_loss must be non-negative (got %s)", c.StopLoss.String())
	}
	if c.TakeProfit != nil && c.TakeProfit.IsNegative() {
		return apperr.Validation("take_profit must be non-negative (got %s)", c.TakeProfit.String())
	}
	return nil
}
