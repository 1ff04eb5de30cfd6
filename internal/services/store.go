// Package services – summary store contract and the primary DB-backed
// implementation.
//
// The store owns the central invariant of the whole bot: at most one
// summary row per (employee, UTC day), overwritten in place on repeated
// confirmations. Two implementations exist, this GORM/SQLite one and the
// file-backed fallback in internal/storage, selected by configuration and
// never mixed.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/Schankelqt/meetings-dify-bot/internal/repo"
)

// SummaryUpsert carries one confirmed summary into the store. Name and team
// ride along so the employee row can be refreshed (last write wins) before
// the summary row is touched.
type SummaryUpsert struct {
	ChatID         int64
	FullName       string
	TeamID         *int
	ConversationID string
	Text           string
}

// SummaryStore is the durable (employee, day) → summary mapping.
//
// Implementations must be safe for concurrent use. Concurrent upserts for
// the same key may commit in any order; the stored text is whichever write
// commits last.
//
// Only today's entries are guaranteed to be retrievable: the DB store keeps
// per-day history, but the file fallback retains just each employee's latest
// record, so FetchDay for a past day may come back empty there. Callers must
// not assume history beyond the current day.
type SummaryStore interface {
	// Upsert writes rec for the given UTC day, inserting or overwriting the
	// single row for (rec.ChatID, day), and returns the record's identity.
	Upsert(ctx context.Context, day string, rec SummaryUpsert) (string, error)

	// FetchDay returns the summaries stored for day across chatIDs, keyed
	// by chat id. Employees without a record for that day are omitted.
	FetchDay(ctx context.Context, day string, chatIDs []int64) (map[int64]string, error)

	// TrackerTaskID returns the employee's mirrored task id, or 0 when the
	// employee is unknown or has never been mirrored.
	TrackerTaskID(ctx context.Context, chatID int64) (int64, error)

	// SetTrackerTaskID records the employee's mirrored task id.
	SetTrackerTaskID(ctx context.Context, chatID, taskID int64) error
}

// DBStore implements SummaryStore on the relational schema in internal/repo.
type DBStore struct {
	DB *gorm.DB
}

// NewDBStore wraps a GORM handle as a SummaryStore.
func NewDBStore(db *gorm.DB) *DBStore { return &DBStore{DB: db} }

// Upsert refreshes the employee row first (name/team last-write-wins), then
// inserts or overwrites the day's summary row.
func (s *DBStore) Upsert(ctx context.Context, day string, rec SummaryUpsert) (string, error) {
	if err := repo.UpsertEmployee(ctx, s.DB, rec.ChatID, rec.FullName, rec.TeamID); err != nil {
		return "", err
	}
	row, err := repo.UpsertSummary(ctx, s.DB, rec.ChatID, day, rec.ConversationID, rec.Text)
	if err != nil {
		return "", err
	}
	return row.ID, nil
}

// FetchDay proxies repo.FetchDay.
func (s *DBStore) FetchDay(ctx context.Context, day string, chatIDs []int64) (map[int64]string, error) {
	return repo.FetchDay(ctx, s.DB, day, chatIDs)
}

// TrackerTaskID proxies repo.TrackerTaskID.
func (s *DBStore) TrackerTaskID(ctx context.Context, chatID int64) (int64, error) {
	return repo.TrackerTaskID(ctx, s.DB, chatID)
}

// SetTrackerTaskID proxies repo.SetTrackerTaskID.
func (s *DBStore) SetTrackerTaskID(ctx context.Context, chatID, taskID int64) error {
	return repo.SetTrackerTaskID(ctx, s.DB, chatID, taskID)
}
