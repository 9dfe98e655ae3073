// Package analyzer turns recent price history into at most one candidate signal.
package analyzer

import (
	"math"
	"time"

	"signalfeed/internal/marketdata"
	"signalfeed/internal/models"
)

type PricePoint struct {
	Time  time.Time
	Price float64
}

// Analyzer is pure: it never touches persisted state. A nil candidate with a
// nil error means no actionable pattern.
type Analyzer interface {
	Name() string
	Analyze(symbol string, history []PricePoint) (*models.Candidate, error)
}

// FromBars keeps bar order and uses closes as prices.
func FromBars(bars []marketdata.Bar) []PricePoint {
	out := make([]PricePoint, 0, len(bars))
	for _, b := range bars {
		out = append(out, PricePoint{Time: b.Time, Price: b.Close})
	}
	return out
}

func usable(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
