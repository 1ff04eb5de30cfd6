// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Summary
// model, including the daily-idempotent upsert that backs the capture flow.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Schankelqt/meetings-dify-bot/internal/domain"
)

// UpsertSummary inserts a summary row for (chatID, day) or, when one exists,
// overwrites its text and conversation id and refreshes updated_at. The
// surrogate ID of the original row is preserved across overwrites; the
// returned record always reflects what is stored after the call.
//
// Concurrent upserts for the same key are resolved by the database: last
// committed write wins, and the (chat_id, day) unique index guarantees one
// row either way.
func UpsertSummary(ctx context.Context, db *gorm.DB, chatID int64, day, conversationID, text string) (*domain.Summary, error) {
	now := time.Now().UTC()
	s := &domain.Summary{
		ID:             uuid.NewString(),
		ChatID:         chatID,
		Day:            day,
		ConversationID: conversationID,
		Text:           text,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chat_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]any{
			"text":            text,
			"conversation_id": conversationID,
			"updated_at":      now,
		}),
	}).Create(s).Error
	if err != nil {
		return nil, err
	}

	// Re-read: on conflict the stored row keeps its original ID and CreatedAt.
	var out domain.Summary
	if err := db.WithContext(ctx).Where("chat_id = ? AND day = ?", chatID, day).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchDay returns summary text keyed by chat id for the given day, limited
// to chatIDs. Employees without a row for that day are simply absent from
// the map; the caller decides how to render "no report yet".
func FetchDay(ctx context.Context, db *gorm.DB, day string, chatIDs []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}
	var rows []domain.Summary
	err := db.WithContext(ctx).
		Where("day = ? AND chat_id IN ?", day, chatIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ChatID] = r.Text
	}
	return out, nil
}

// CountSummaries returns the total number of summaries stored for chatID.
// A zero chatID counts across all employees.
func CountSummaries(ctx context.Context, db *gorm.DB, chatID int64) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Summary{})
	if chatID != 0 {
		q = q.Where("chat_id = ?", chatID)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListSummariesPage returns a paginated slice of summaries ordered by last
// write descending (most recent first). A zero chatID lists across all
// employees. Use CountSummaries to obtain the total for pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListSummariesPage(ctx context.Context, db *gorm.DB, chatID int64, offset, limit int) ([]domain.Summary, error) {
	var out []domain.Summary
	q := db.WithContext(ctx)
	if chatID != 0 {
		q = q.Where("chat_id = ?", chatID)
	}
	err := q.
		Order("updated_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
