// Package handlers – Telegram webhook endpoint.
//
// Telegram delivers one Update per request and retries any non-2xx response;
// the handler therefore answers 200 for every decodable delivery, including
// duplicates and turns that ended in a backend apology. Retries are made
// harmless by recording each update_id before processing: a delivery whose
// id is already recorded is acknowledged without a second backend call.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"github.com/Schankelqt/meetings-dify-bot/internal/http/middleware"
	"github.com/Schankelqt/meetings-dify-bot/internal/repo"
	"github.com/Schankelqt/meetings-dify-bot/internal/services"
)

// Notifier sends bot messages back to a Telegram chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// Reporter handles one inbound report turn.
type Reporter interface {
	HandleTurn(ctx context.Context, chatID int64, text string) (string, services.TurnOutcome)
}

// DigestBuilder renders a team's report digest.
type DigestBuilder interface {
	BuildReport(ctx context.Context, teamID int) (string, error)
}

// Handler bundles the HTTP endpoints with their collaborators.
type Handler struct {
	Reports  Reporter
	Digest   DigestBuilder
	Notifier Notifier
	DB       *gorm.DB // nil when the relational store is disabled
	DedupTTL time.Duration
}

// New constructs a Handler. DB may be nil; update dedup and the summaries
// listing are then unavailable (deliveries are still processed).
func New(reports Reporter, digest DigestBuilder, notifier Notifier, db *gorm.DB, dedupTTL time.Duration) *Handler {
	return &Handler{Reports: reports, Digest: digest, Notifier: notifier, DB: db, DedupTTL: dedupTTL}
}

// Webhook handles POST /webhook/telegram.
//
// Flow: decode the Update, drop non-text deliveries, dedup by update_id,
// run the turn, send the reply back through the notifier. The response body
// is diagnostic only; Telegram looks at the status code.
func (h *Handler) Webhook(c *gin.Context) {
	var upd tgbotapi.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed update payload")
		return
	}

	lg := middleware.LoggerFrom(c)

	// Only plain text messages carry report turns; edits, joins, stickers
	// and the rest are acknowledged and dropped.
	msg := upd.Message
	if msg == nil || msg.Text == "" || msg.Chat == nil {
		ok(c, http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	chatID := msg.Chat.ID

	if h.DB != nil {
		err := repo.MarkUpdateProcessed(c.Request.Context(), h.DB, int64(upd.UpdateID), h.DedupTTL)
		if errors.Is(err, repo.ErrDuplicate) {
			lg.Info().Int("update_id", upd.UpdateID).Int64("chat_id", chatID).Msg("duplicate delivery dropped")
			ok(c, http.StatusOK, gin.H{"status": "duplicate"})
			return
		}
		if err != nil {
			// Dedup is protection, not a gate: process the turn anyway.
			lg.Warn().Err(err).Int("update_id", upd.UpdateID).Msg("update dedup failed")
		}
	}

	reply, outcome := h.Reports.HandleTurn(c.Request.Context(), chatID, msg.Text)

	if err := h.Notifier.Notify(c.Request.Context(), chatID, reply); err != nil {
		lg.Error().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
	}

	ok(c, http.StatusOK, gin.H{"status": "ok", "outcome": string(outcome)})
}
