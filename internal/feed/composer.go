// Package feed ranks stored signals into the consumer-facing feed.
package feed

import (
	"context"
	"sort"
	"time"

	"signalfeed/internal/models"
	"signalfeed/internal/repository"
)

// Item is a signal plus its derived recommendation flag.
type Item struct {
	models.Signal
	IsRecommended bool `json:"is_recommended"`
}

// Filters narrows the feed. AdminOnly is shorthand for Source=ADMIN_GENERATED.
type Filters struct {
	AdminOnly       bool
	Source          *models.Source
	Symbol          string
	Direction       *models.Direction
	Since           *time.Time
	MinConfidence   float64
	RecommendedOnly bool
	Limit           int
	Offset          int
}

func (f Filters) source() (models.Source, bool) {
	if f.AdminOnly {
		return models.SourceAdmin, true
	}
	if f.Source != nil {
		return *f.Source, true
	}
	return "", false
}

// Matches reports whether a signal passes the source, symbol and direction
// filters.
func (f Filters) Matches(s models.Signal) bool {
	if src, ok := f.source(); ok && s.Source != src {
		return false
	}
	if f.Symbol != "" && s.Symbol != models.NormalizeSymbol(f.Symbol) {
		return false
	}
	if f.Direction != nil && s.Direction != *f.Direction {
		return false
	}
	return true
}

// Composer is read-only over the store.
type Composer struct {
	store     repository.SignalStore
	threshold float64
}

func NewComposer(store repository.SignalStore, threshold float64) *Composer {
	return &Composer{store: store, threshold: threshold}
}

func (c *Composer) Threshold() float64 { return c.threshold }

// Compose returns ACTIVE signals ordered recommended first, then confidence
// desc, then newest first. Limit and Offset apply after ranking.
func (c *Composer) Compose(ctx context.Context, f Filters) ([]Item, error) {
	status := models.StatusActive
	params := repository.QuerySignalsParams{
		Status:    &status,
		Direction: f.Direction,
		Since:     f.Since,
	}
	if src, ok := f.source(); ok {
		params.Source = &src
	}
	if f.Symbol != "" {
		sym := f.Symbol
		params.Symbol = &sym
	}
	signals, err := c.store.Query(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(signals))
	for _, s := range signals {
		if s.Confidence < f.MinConfidence {
			continue
		}
		rec := s.Recommended(c.threshold)
		if f.RecommendedOnly && !rec {
			continue
		}
		items = append(items, Item{Signal: s, IsRecommended: rec})
	}
	Rank(items)
	return page(items, f.Offset, f.Limit), nil
}

// Rank sorts items in feed order.
func Rank(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.IsRecommended != b.IsRecommended {
			return a.IsRecommended
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Seq > b.Seq
	})
}

func page(items []Item, offset, limit int) []Item {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []Item{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
