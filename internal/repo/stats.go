// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Schankelqt/meetings-dify-bot/internal/domain"
)

// SummariesStats returns aggregate metadata for the summaries of a set of
// employees on one day: the number of rows and the maximum UpdatedAt among
// them. When no one has reported yet, count is 0 and maxUpdatedAt is nil.
//
// Return values:
//   - count:        summaries stored for day across chatIDs
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func SummariesStats(ctx context.Context, db *gorm.DB, day string, chatIDs []int64) (count int64, maxUpdatedAt *time.Time, err error) {
	if len(chatIDs) == 0 {
		return 0, nil, nil
	}
	q := db.WithContext(ctx).Model(&domain.Summary{}).Where("day = ? AND chat_id IN ?", day, chatIDs)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
