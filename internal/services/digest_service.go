// Package services – DigestService
//
// This file builds the per-team digest: one block per member with today's
// captured summary (or a placeholder when no report arrived), plus a
// responded/total footer. Digests are read-only over the summary store;
// building one never mutates anything.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Schankelqt/meetings-dify-bot/internal/config"
)

// noReportPlaceholder marks members without a summary for the day. A
// missing record renders as this placeholder, never as an empty string.
const noReportPlaceholder = "-"

// DigestService assembles team reports from the summary store.
type DigestService struct {
	Store SummaryStore
	Teams *config.Teams
	Log   zerolog.Logger

	// now is a test seam; nil means time.Now.
	now func() time.Time
}

// clock returns the current time via the test seam.
func (s *DigestService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// BuildReport renders the digest text for teamID over today's (UTC)
// summaries. It returns ErrTeamNotFound for unknown teams and propagates
// store errors so schedule runs surface persistence trouble.
func (s *DigestService) BuildReport(ctx context.Context, teamID int) (string, error) {
	team := s.Teams.Team(teamID)
	if team == nil {
		return "", ErrTeamNotFound
	}

	now := s.clock().UTC()
	day := now.Format("2006-01-02")

	byMember := map[int64]string{}
	if s.Store != nil {
		var err error
		byMember, err = s.Store.FetchDay(ctx, day, team.MemberIDs())
		if err != nil {
			return "", err
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📝 Отчёт по команде «%s» за %s", team.Name, s.reportDate(*team, now))

	responded := 0
	for _, m := range team.Members {
		summary, ok := byMember[m.ChatID]
		if ok {
			responded++
		} else {
			summary = noReportPlaceholder
		}
		fmt.Fprintf(&b, "\n\n👤 %s\n%s", strings.TrimSpace(m.Name), summary)
	}
	fmt.Fprintf(&b, "\n\n📊 Отчитались: %d/%d", responded, len(team.Members))
	return b.String(), nil
}

// reportDate renders the digest header date: the UTC day for daily teams,
// the Monday–Friday range of the current week for weekly teams.
func (s *DigestService) reportDate(team config.Team, now time.Time) string {
	if !team.Weekly() {
		return now.Format("2006-01-02")
	}
	// Back up to Monday; Go's Sunday==0 needs the usual offset dance.
	offset := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -offset)
	friday := monday.AddDate(0, 0, 4)
	return monday.Format("02.01.2006") + " - " + friday.Format("02.01.2006")
}
