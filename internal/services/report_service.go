// Package services – ReportService
//
// This file implements the turn-handling decision procedure. One inbound
// employee message flows through: resolve the cached conversation handle,
// relay the text to the chat backend (retrying exactly once on the specific
// "conversation not found" signal), classify the exchange, and either
// capture the final summary (persist + mirror + fixed acknowledgement) or
// pass the backend's raw reply through unchanged.
//
// Failure policy: only a failure of the chat-completion call changes the
// user-visible reply (fixed apology). Persistence and tracker-mirror
// failures are logged at this boundary and never reach the employee: the
// acknowledgement is sent even when the durable write failed, a deliberate
// best-effort tradeoff.
//
// Observability: HandleTurn is OpenTelemetry-instrumented, and every turn
// outcome is counted in Prometheus.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Schankelqt/meetings-dify-bot/internal/chat"
	"github.com/Schankelqt/meetings-dify-bot/internal/tracker"
)

// TurnOutcome labels how a turn ended.
type TurnOutcome string

const (
	// TurnPassthrough: the backend's raw reply is relayed unmodified.
	TurnPassthrough TurnOutcome = "passthrough"
	// TurnSummary: a final-summary turn; the summary was captured and the
	// employee gets the fixed acknowledgement.
	TurnSummary TurnOutcome = "summary"
	// TurnBackendError: the chat backend failed; the employee gets the
	// fixed apology and nothing is persisted.
	TurnBackendError TurnOutcome = "backend_error"
)

// Default user-facing texts; overridable via configuration.
const (
	DefaultAckText     = "✅ Отчёт принят"
	DefaultApologyText = "⚠️ Ассистент сейчас недоступен, попробуйте ещё раз позже"
)

// turnOutcomes counts handled turns by outcome.
var turnOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "report_turns_total",
		Help: "Total number of handled report turns by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(turnOutcomes)
}

// ChatBackend is the outbound chat-completion collaborator.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ChatBackend interface {
	// SendTurn relays one message; an empty conversationID starts a fresh
	// conversation. The "conversation not found" condition must surface as
	// chat.ErrConversationNotFound.
	SendTurn(ctx context.Context, chatID int64, text, conversationID string) (chat.Reply, error)
	// FindConversation returns the employee's most recent conversation id,
	// or "" when the backend holds none.
	FindConversation(ctx context.Context, chatID int64) (string, error)
}

// TaskTracker is the outbound task-tracking mirror collaborator.
type TaskTracker interface {
	// UpsertRecord creates the employee's task when taskID is zero or
	// updates it otherwise, returning the task that holds the record.
	UpsertRecord(ctx context.Context, taskID int64, rec tracker.Record) (int64, error)
	// AppendNote adds a dated comment to the task.
	AppendNote(ctx context.Context, taskID int64, text string) error
}

// Directory resolves an employee's roster data from the configured teams.
type Directory interface {
	// Lookup returns the employee's display name and team id; ok is false
	// for identities outside the roster.
	Lookup(chatID int64) (name string, teamID int, ok bool)
}

// ReportService drives the turn-handling state machine. Construct it with
// all collaborators wired; Store and Tracker may be nil, which disables the
// corresponding side effect (logged once at startup by the caller).
type ReportService struct {
	Backend  ChatBackend
	Store    SummaryStore      // nil => persistence disabled
	Tracker  TaskTracker       // nil => mirror disabled
	Matcher  *ConfirmationMatcher
	Sessions *ConversationCache
	Teams    Directory // nil => employees outside any roster

	// Marker is the substring delimiting the backend's preamble from its
	// final summary.
	Marker string

	// AckText and ApologyText are the fixed user-visible replies; empty
	// values fall back to the defaults.
	AckText     string
	ApologyText string

	// TurnTimeout bounds the chat-backend call; zero means no extra bound
	// beyond the client's own.
	TurnTimeout time.Duration

	Log zerolog.Logger

	// now is a test seam; nil means time.Now.
	now func() time.Time
}

// clock returns the current time via the test seam.
func (s *ReportService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// day returns the current UTC calendar day.
func (s *ReportService) day() string { return s.clock().UTC().Format("2006-01-02") }

// HandleTurn processes one inbound message from chatID and returns the
// reply text to send back plus the turn's outcome. It never returns an
// error: every failure mode maps to a fixed user-visible text.
func (s *ReportService) HandleTurn(ctx context.Context, chatID int64, text string) (string, TurnOutcome) {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "HandleTurn",
		trace.WithAttributes(attribute.Int64("employee.chat_id", chatID)),
	)
	defer span.End()

	reply, outcome := s.handleTurn(ctx, chatID, text)
	span.SetAttributes(attribute.String("turn.outcome", string(outcome)))
	turnOutcomes.WithLabelValues(string(outcome)).Inc()
	return reply, outcome
}

func (s *ReportService) handleTurn(ctx context.Context, chatID int64, text string) (string, TurnOutcome) {
	if s.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.TurnTimeout)
		defer cancel()
	}
	day := s.day()

	// 1. Resolve the conversation handle: cache hit, or backend lookup.
	convID := s.Sessions.Resolve(ctx, chatID, day, func(ctx context.Context) (string, error) {
		id, err := s.Backend.FindConversation(ctx, chatID)
		if err != nil {
			s.Log.Warn().Err(err).Int64("chat_id", chatID).Msg("conversation lookup failed")
		}
		return id, err
	})

	// 2. Relay the message. The specific "not found" signal means the
	// cached handle points at a dead conversation: drop it and retry
	// exactly once with no handle, adopting whatever the backend creates.
	reply, err := s.Backend.SendTurn(ctx, chatID, text, convID)
	if errors.Is(err, chat.ErrConversationNotFound) {
		s.Sessions.Invalidate(chatID)
		reply, err = s.Backend.SendTurn(ctx, chatID, text, "")
	}
	if err != nil {
		s.Log.Error().Err(err).Int64("chat_id", chatID).Msg("chat backend call failed")
		return s.apology(), TurnBackendError
	}
	s.Sessions.Adopt(chatID, day, reply.ConversationID)

	// 3. Classify: confirmation turn + marker in the reply = final summary.
	if !s.Matcher.IsConfirmation(text) || !ContainsMarker(reply.Answer, s.Marker) {
		return reply.Answer, TurnPassthrough
	}

	summary := ExtractSummary(reply.Answer, s.Marker)
	s.capture(ctx, chatID, day, reply.ConversationID, summary)
	return s.ack(), TurnSummary
}

// capture commits the summary and mirrors it, both best-effort: failures
// are logged for alerting but never change the acknowledgement.
func (s *ReportService) capture(ctx context.Context, chatID int64, day, conversationID, summary string) {
	name, teamID, known := "", (*int)(nil), false
	if s.Teams != nil {
		var team int
		var n string
		if n, team, known = s.Teams.Lookup(chatID); known {
			name, teamID = n, &team
		}
	}
	if !known {
		s.Log.Warn().Int64("chat_id", chatID).Msg("summary from employee outside the roster")
	}

	if s.Store != nil {
		recordID, err := s.Store.Upsert(ctx, day, SummaryUpsert{
			ChatID:         chatID,
			FullName:       name,
			TeamID:         teamID,
			ConversationID: conversationID,
			Text:           summary,
		})
		if err != nil {
			// Surfaced for monitoring; the user still sees success.
			s.Log.Error().Err(err).Int64("chat_id", chatID).Str("day", day).Msg("summary persist failed")
		} else {
			s.Log.Info().Int64("chat_id", chatID).Str("day", day).Str("record_id", recordID).Msg("summary stored")
		}
	}

	if s.Tracker != nil {
		s.mirror(ctx, chatID, name, teamID, conversationID, summary)
	}
}

// mirror pushes the summary into the task tracker: resolve the employee's
// task (create on first capture), refresh its fields, and append a dated
// note. Failures are logged only, never surfaced, never rolled back.
func (s *ReportService) mirror(ctx context.Context, chatID int64, name string, teamID *int, conversationID, summary string) {
	var known int64
	if s.Store != nil {
		id, err := s.Store.TrackerTaskID(ctx, chatID)
		if err != nil {
			s.Log.Warn().Err(err).Int64("chat_id", chatID).Msg("tracker task lookup failed")
		} else {
			known = id
		}
	}

	taskID, err := s.Tracker.UpsertRecord(ctx, known, tracker.Record{
		ChatID:         chatID,
		FullName:       name,
		TeamID:         teamID,
		ConversationID: conversationID,
		LastSummary:    summary,
	})
	if err != nil {
		s.Log.Error().Err(err).Int64("chat_id", chatID).Msg("tracker mirror failed")
		return
	}
	if taskID != known && s.Store != nil {
		if err := s.Store.SetTrackerTaskID(ctx, chatID, taskID); err != nil {
			s.Log.Error().Err(err).Int64("chat_id", chatID).Int64("task_id", taskID).Msg("tracker task id persist failed")
		}
	}
	if err := s.Tracker.AppendNote(ctx, taskID, summary); err != nil {
		s.Log.Error().Err(err).Int64("chat_id", chatID).Int64("task_id", taskID).Msg("tracker note failed")
	}
}

// ack returns the fixed acknowledgement text.
func (s *ReportService) ack() string {
	if strings.TrimSpace(s.AckText) != "" {
		return s.AckText
	}
	return DefaultAckText
}

// apology returns the fixed backend-failure text.
func (s *ReportService) apology() string {
	if strings.TrimSpace(s.ApologyText) != "" {
		return s.ApologyText
	}
	return DefaultApologyText
}
