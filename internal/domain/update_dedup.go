// Package domain defines the core persistence models for the application.
package domain

import "time"

// ProcessedUpdate records a Telegram update identifier that has already been
// handled. Telegram redelivers webhook updates until it sees a 2xx, so a
// crashed or slow turn can arrive twice; the unique primary key lets the
// webhook layer drop redeliveries without re-running side effects.
type ProcessedUpdate struct {
	UpdateID  int64     `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedUpdate) TableName() string { return "processed_updates" }
