// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// ProcessedUpdate model used to drop redelivered Telegram webhook updates.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Schankelqt/meetings-dify-bot/internal/domain"
)

// ErrDuplicate indicates that an update id has already been recorded, i.e.
// the webhook delivery is a retry of an update that was (or is being)
// processed.
var ErrDuplicate = errors.New("duplicate")

// MarkUpdateProcessed records updateID as handled. It returns ErrDuplicate
// when the id was already recorded, which callers treat as "skip this
// delivery". Expired rows for other ids are purged opportunistically so the
// table stays bounded.
func MarkUpdateProcessed(ctx context.Context, db *gorm.DB, updateID int64, ttl time.Duration) error {
	now := time.Now().UTC()
	rec := &domain.ProcessedUpdate{
		UpdateID:  updateID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicate
		}
		return err
	}

	// Best-effort cleanup; a failure here never blocks the webhook.
	db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.ProcessedUpdate{})
	return nil
}
