// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Employee
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an employee is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Schankelqt/meetings-dify-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertEmployee inserts the employee row for chatID or, when it already
// exists, overwrites full_name and team_id (last write wins) and refreshes
// updated_at. TrackerTaskID is deliberately left untouched here: it is set
// once via SetTrackerTaskID and stable afterwards.
func UpsertEmployee(ctx context.Context, db *gorm.DB, chatID int64, fullName string, teamID *int) error {
	now := time.Now().UTC()
	e := &domain.Employee{
		ChatID:    chatID,
		FullName:  fullName,
		TeamID:    teamID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"full_name":  fullName,
			"team_id":    teamID,
			"updated_at": now,
		}),
	}).Create(e).Error
}

// GetEmployee fetches a single employee by chat id, or ErrNotFound.
func GetEmployee(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Employee, error) {
	var e domain.Employee
	if err := db.WithContext(ctx).Where("chat_id = ?", chatID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// SetTrackerTaskID records the external task-tracker record id for chatID.
// The employee row is created when absent so a mirror-first flow cannot lose
// the id. If no rows are affected and creation fails, the raw error is
// returned.
func SetTrackerTaskID(ctx context.Context, db *gorm.DB, chatID, taskID int64) error {
	now := time.Now().UTC()
	e := &domain.Employee{
		ChatID:        chatID,
		TrackerTaskID: &taskID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"tracker_task_id": taskID,
			"updated_at":      now,
		}),
	}).Create(e).Error
}

// TrackerTaskID returns the stored task-tracker record id for chatID, or 0
// when the employee is unknown or has never been mirrored.
func TrackerTaskID(ctx context.Context, db *gorm.DB, chatID int64) (int64, error) {
	e, err := GetEmployee(ctx, db, chatID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	if e.TrackerTaskID == nil {
		return 0, nil
	}
	return *e.TrackerTaskID, nil
}
