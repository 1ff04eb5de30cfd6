// Package handlers – admin API endpoints for managers.
//
// These endpoints let a manager pull the current digest for a team on
// demand (outside the scheduled broadcast) and page through recently
// captured summaries.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Schankelqt/meetings-dify-bot/internal/config"
	"github.com/Schankelqt/meetings-dify-bot/internal/domain"
	"github.com/Schankelqt/meetings-dify-bot/internal/http/middleware"
	"github.com/Schankelqt/meetings-dify-bot/internal/repo"
	"github.com/Schankelqt/meetings-dify-bot/internal/services"
	"github.com/Schankelqt/meetings-dify-bot/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SummaryItem is one row of the recent-summaries listing.
type SummaryItem struct {
	ID             string    `json:"id"`
	ChatID         int64     `json:"chat_id"`
	Day            string    `json:"day"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Text           string    `json:"text"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SummariesPage is the paginated listing envelope.
type SummariesPage struct {
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Items []SummaryItem `json:"items"`
}

// TeamReport handles GET /teams/:id/report.
//
// It renders today's digest for the team. When the relational store is
// available the response carries a weak ETag derived from the team's
// summary count and latest write, so pollers holding a fresh copy get 304.
func (h *Handler) TeamReport(teams *config.Teams) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID := utils.AtoiDefault(c.Param("id"), 0)
		if teamID <= 0 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "team id must be a positive integer")
			return
		}

		if h.DB != nil && teams != nil {
			if team := teams.Team(teamID); team != nil {
				day := time.Now().UTC().Format(domain.DayLayout)
				count, maxUpd, err := repo.SummariesStats(c.Request.Context(), h.DB, day, team.MemberIDs())
				if err == nil {
					etag := weakETag(count, maxUpd)
					c.Header("ETag", etag)
					if c.GetHeader("If-None-Match") == etag {
						c.Status(http.StatusNotModified)
						return
					}
				} else {
					middleware.LoggerFrom(c).Warn().Err(err).Int("team_id", teamID).Msg("summary stats failed")
				}
			}
		}

		report, err := h.Digest.BuildReport(c.Request.Context(), teamID)
		switch {
		case errors.Is(err, services.ErrTeamNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "team not found")
		case err != nil:
			fail(c, http.StatusInternalServerError, ErrCodeReportFailed, "could not build report")
		default:
			ok(c, http.StatusOK, gin.H{"team_id": teamID, "report": report})
		}
	}
}

// RecentSummaries handles GET /summaries/recent.
//
// Query params: page (1-based, default 1), limit (default 20, max 100),
// chat_id (optional filter). Requires the relational store.
func (h *Handler) RecentSummaries(c *gin.Context) {
	if h.DB == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeStoreDisabled, "summary store is disabled")
		return
	}

	page := utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := utils.AtoiDefault(c.Query("limit"), defaultPageSize)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	// Chat ids exceed 32 bits, so this must not go through platform int.
	chatID, err := strconv.ParseInt(c.Query("chat_id"), 10, 64)
	if err != nil {
		chatID = 0
	}

	ctx := c.Request.Context()
	total, err := repo.CountSummaries(ctx, h.DB, chatID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not count summaries")
		return
	}
	rows, err := repo.ListSummariesPage(ctx, h.DB, chatID, (page-1)*limit, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list summaries")
		return
	}

	items := make([]SummaryItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, SummaryItem{
			ID:             r.ID,
			ChatID:         r.ChatID,
			Day:            r.Day,
			ConversationID: r.ConversationID,
			Text:           r.Text,
			UpdatedAt:      r.UpdatedAt,
		})
	}
	ok(c, http.StatusOK, SummariesPage{Total: total, Page: page, Limit: limit, Items: items})
}

// weakETag builds a validator from the summary count and latest write time.
func weakETag(count int64, maxUpd *time.Time) string {
	var ts int64
	if maxUpd != nil {
		ts = maxUpd.UnixNano()
	}
	return fmt.Sprintf(`W/"%d-%d"`, count, ts)
}
