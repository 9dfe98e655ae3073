package models

import (
	"time"

	"gorm.io/datatypes"
)

// IngestionRun records the outcome summary of one ingestion cycle.
type IngestionRun struct {
	ID      string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Trigger string `gorm:"type:varchar(20);not null;index" json:"trigger"`

	Symbols     int   `gorm:"not null" json:"symbols"`
	Inserted    int   `gorm:"not null" json:"inserted"`
	Updated     int   `gorm:"not null" json:"updated"`
	NoSignal    int   `gorm:"not null" json:"no_signal"`
	Rejected    int   `gorm:"not null" json:"rejected"`
	Unavailable int   `gorm:"not null" json:"unavailable"`
	Failed      int   `gorm:"not null" json:"failed"`
	Expired     int64 `gorm:"not null" json:"expired"`
	Cancelled   bool  `gorm:"not null;default:false" json:"cancelled"`

	// Outcomes is the per-symbol summary as a JSON array.
	Outcomes datatypes.JSON `gorm:"type:jsonb" json:"outcomes,omitempty"`

	StartedAt  time.Time `gorm:"type:timestamptz;not null;index" json:"started_at"`
	FinishedAt time.Time `gorm:"type:timestamptz;not null" json:"finished_at"`
}

func (IngestionRun) TableName() string {
	return "ingestion_runs"
}
