// Package domain defines the persistence models for employees and their
// daily status summaries. These types are mapped with GORM and form the
// core data layer of the report bot.
package domain

import (
	"time"
)

// DayLayout is the format used for the Summary.Day calendar-date column.
// Days are always computed in UTC; the employee's local timezone is
// deliberately ignored.
const DayLayout = "2006-01-02"

// UTCDay returns t's calendar date in UTC, formatted with DayLayout.
func UTCDay(t time.Time) string { return t.UTC().Format(DayLayout) }

// Employee represents a person who submits status reports. The primary key
// is the stable, externally assigned Telegram chat identifier; rows are
// created lazily the first time any message or summary arrives from that
// identity.
//
// Fields:
//   - ChatID: Telegram chat identifier (stable, externally assigned).
//   - FullName: display name; last write wins.
//   - TeamID: owning team; last write wins. Nil when unknown.
//   - TrackerTaskID: identifier of the mirrored task-tracker record; set
//     once on first mirror and stable afterwards. Nil when never mirrored.
//   - CreatedAt / UpdatedAt: audit timestamps managed by GORM.
type Employee struct {
	ChatID        int64     `json:"chat_id"         gorm:"primaryKey;autoIncrement:false"`
	FullName      string    `json:"full_name"       gorm:"type:varchar(255)"`
	TeamID        *int      `json:"team_id,omitempty"`
	TrackerTaskID *int64    `json:"tracker_task_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for Employee.
func (Employee) TableName() string { return "employees" }

// Summary is one confirmed status report. The composite uniqueness of
// (ChatID, Day) is the central invariant of the store: at most one row per
// employee per UTC day. A repeated confirmation on the same day overwrites
// Text and ConversationID in place; a new day produces a new row.
//
// Fields:
//   - ID: UUID surrogate key (char(36)); stable across same-day overwrites.
//   - ChatID: foreign key to the owning employee.
//   - Day: UTC calendar date in DayLayout; part of the unique key.
//   - ConversationID: originating chat-backend conversation, if known.
//   - Text: the captured summary body.
//   - CreatedAt / UpdatedAt: UpdatedAt refreshes on every overwrite; the
//     (chat_id, updated_at DESC) index supports "most recent first" reads.
type Summary struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	ChatID         int64     `json:"chat_id"         gorm:"not null;uniqueIndex:ux_summaries_chat_day,priority:1;index:idx_summaries_chat_time,priority:1"`
	Day            string    `json:"day"             gorm:"type:char(10);not null;uniqueIndex:ux_summaries_chat_day,priority:2"`
	ConversationID string    `json:"conversation_id" gorm:"type:varchar(64)"`
	Text           string    `json:"text"            gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"      gorm:"index:idx_summaries_chat_time,priority:2,sort:desc"`

	// Employee is the report author. Summaries are cascade-deleted if the
	// employee row is removed.
	Employee Employee `json:"-" gorm:"foreignKey:ChatID;references:ChatID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Summary.
func (Summary) TableName() string { return "summaries" }
