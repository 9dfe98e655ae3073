package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Source is the producer category of a signal.
type Source string

const (
	SourceBot   Source = "BOT_GENERATED"
	SourceAdmin Source = "ADMIN_GENERATED"
)

func (s Source) Valid() bool {
	return s == SourceBot || s == SourceAdmin
}

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusExpired || s == StatusCancelled
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusExpired || s == StatusCancelled
}

// Signal is a directional recommendation for one instrument.
// The identity index backs the per-window uniqueness check on (symbol, direction, source).
type Signal struct {
	ID  string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Seq int64  `gorm:"autoIncrement;uniqueIndex" json:"-"`

	Symbol    string    `gorm:"type:varchar(32);not null;index:idx_signals_identity,priority:1" json:"symbol"`
	Direction Direction `gorm:"type:varchar(8);not null;index:idx_signals_identity,priority:2" json:"direction"`
	Source    Source    `gorm:"type:varchar(20);not null;index:idx_signals_identity,priority:3" json:"source"`
	Status    Status    `gorm:"type:varchar(12);not null;index;default:'ACTIVE'" json:"status"`

	EntryPrice decimal.Decimal  `gorm:"type:numeric(30,10);not null" json:"entry_price"`
	StopLoss   *decimal.Decimal `gorm:"type:numeric(30,10)" json:"stop_loss,omitempty"`
	TakeProfit *decimal.Decimal `gorm:"type:numeric(30,10)" json:"take_profit,omitempty"`
	Confidence float64          `gorm:"not null" json:"confidence"`

	Analyzer string         `gorm:"type:varchar(64)" json:"analyzer,omitempty"`
	Note     string         `gorm:"type:text" json:"note,omitempty"`
	Payload  datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`

	CreatedAt       time.Time  `gorm:"type:timestamptz;not null;index" json:"created_at"`
	LastSeenAt      time.Time  `gorm:"type:timestamptz;not null" json:"last_seen_at"`
	StatusChangedAt *time.Time `gorm:"type:timestamptz" json:"status_changed_at,omitempty"`
}

func (Signal) TableName() string {
	return "signals"
}

// Recommended reports whether the signal clears the recommendation threshold.
func (s Signal) Recommended(threshold float64) bool {
	return s.Confidence >= threshold
}

// NormalizeSymbol uppercases and strips all whitespace.
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}

// ParseDirection accepts BUY/SELL in any case. LONG/SHORT are accepted as aliases.
func ParseDirection(raw string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY", "LONG":
		return DirectionBuy, true
	case "SELL", "SHORT":
		return DirectionSell, true
	default:
		return "", false
	}
}

// ParseSource accepts the enum names plus the short forms "bot" and "admin".
func ParseSource(raw string) (Source, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BOT_GENERATED", "BOT":
		return SourceBot, true
	case "ADMIN_GENERATED", "ADMIN":
		return SourceAdmin, true
	default:
		return "", false
	}
}

func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}
