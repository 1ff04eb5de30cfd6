// Package scheduler drives the broadcast calendar: at the configured
// per-team times it sends the morning questions to every member and the
// digest report to the team's managers.
//
// The calendar is minute-resolution wall-clock slots (weekday + HH:MM in a
// configured location), which is all the product needs; a fired slot is
// remembered per day so a tick can never double-send.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Schankelqt/meetings-dify-bot/internal/config"
)

// Notifier sends one text to one chat; satisfied by telegram.Notifier.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// DigestBuilder renders a team's report; satisfied by services.DigestService.
type DigestBuilder interface {
	BuildReport(ctx context.Context, teamID int) (string, error)
}

// Scheduler walks every team's schedule entries on a fixed tick.
type Scheduler struct {
	Teams    *config.Teams
	Digest   DigestBuilder
	Notifier Notifier
	Location *time.Location
	Log      zerolog.Logger

	// Tick is the polling interval; zero selects 30 seconds.
	Tick time.Duration

	// fired remembers the day each slot last executed, so the map stays
	// bounded by the number of configured slots.
	fired map[string]string

	// now is a test seam; nil means time.Now.
	now func() time.Time
}

// clock returns the current time in the scheduler's location.
func (s *Scheduler) clock() time.Time {
	now := time.Now()
	if s.now != nil {
		now = s.now()
	}
	if s.Location != nil {
		now = now.In(s.Location)
	}
	return now
}

// Run polls the calendar until ctx is cancelled. It blocks; start it on its
// own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	tick := s.Tick
	if tick <= 0 {
		tick = 30 * time.Second
	}
	s.Log.Info().Dur("tick", tick).Msg("broadcast scheduler started")

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Log.Info().Msg("broadcast scheduler stopped")
			return
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// RunDue fires every schedule entry whose slot matches the current minute
// and has not fired yet today. Exported for tests and for a manual
// "run now" admin path.
func (s *Scheduler) RunDue(ctx context.Context) {
	now := s.clock()
	for _, team := range s.Teams.All() {
		for i, entry := range team.Schedule {
			if !slotMatches(entry, now) {
				continue
			}
			key := fmt.Sprintf("%d/%d", team.ID, i)
			day := now.Format("2006-01-02")
			if s.fired == nil {
				s.fired = make(map[string]string)
			}
			if s.fired[key] == day {
				continue
			}
			s.fired[key] = day
			s.runEntry(ctx, team, entry)
		}
	}
}

// slotMatches reports whether the entry's weekday and minute equal now's.
func slotMatches(entry config.ScheduleEntry, now time.Time) bool {
	return entry.ParsedWeekday() == now.Weekday() && now.Format("15:04") == entry.At
}

// runEntry executes one slot. Send failures are logged per recipient and
// never abort the rest of the broadcast.
func (s *Scheduler) runEntry(ctx context.Context, team config.Team, entry config.ScheduleEntry) {
	switch entry.Action {
	case config.ActionQuestions:
		text := s.Teams.Questions(entry.QuestionSet)
		if text == "" {
			s.Log.Error().Int("team", team.ID).Str("set", entry.QuestionSet).Msg("empty question set")
			return
		}
		s.Log.Info().Int("team", team.ID).Str("set", entry.QuestionSet).Msg("broadcasting questions")
		for _, m := range team.Members {
			if err := s.Notifier.Notify(ctx, m.ChatID, text); err != nil {
				s.Log.Error().Err(err).Int64("chat_id", m.ChatID).Msg("question broadcast failed")
			}
		}
	case config.ActionDigest:
		report, err := s.Digest.BuildReport(ctx, team.ID)
		if err != nil {
			s.Log.Error().Err(err).Int("team", team.ID).Msg("digest build failed")
			return
		}
		s.Log.Info().Int("team", team.ID).Msg("sending digest")
		for _, manager := range team.Managers {
			if err := s.Notifier.Notify(ctx, manager, report); err != nil {
				s.Log.Error().Err(err).Int64("chat_id", manager).Msg("digest send failed")
			}
		}
	}
}
