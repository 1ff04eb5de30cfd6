// Team roster and broadcast-schedule configuration.
//
// Teams are data, not code: membership, managers, question sets, and the
// per-team broadcast times all live in one YAML file so that per-team quirks
// never become branching code paths. The file is loaded once at startup and
// treated as immutable afterwards.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Member is one employee inside a team.
type Member struct {
	ChatID int64  `yaml:"chat_id"`
	Name   string `yaml:"name"`
}

// ScheduleEntry is one broadcast slot: on Weekday at At (HH:MM, in the
// scheduler's location), perform Action for the team.
type ScheduleEntry struct {
	// Weekday is the lower-case English day name ("monday" … "sunday").
	Weekday string `yaml:"weekday"`
	// At is the wall-clock time "15:04".
	At string `yaml:"at"`
	// Action is "questions" or "digest".
	Action string `yaml:"action"`
	// QuestionSet names the question set sent when Action is "questions".
	QuestionSet string `yaml:"question_set,omitempty"`
}

// Schedule actions.
const (
	ActionQuestions = "questions"
	ActionDigest    = "digest"
)

// Team is one reporting unit: a named set of members whose digests go to
// the listed managers. Tag selects the reporting cadence and affects only
// how the digest header renders its date range.
type Team struct {
	ID       int             `yaml:"id"`
	Name     string          `yaml:"name"`
	Tag      string          `yaml:"tag"` // "daily" or "weekly"
	Members  []Member        `yaml:"members"`
	Managers []int64         `yaml:"managers"`
	Schedule []ScheduleEntry `yaml:"schedule"`
}

// Weekly reports whether the team reports on a weekly cadence.
func (t Team) Weekly() bool { return strings.EqualFold(t.Tag, "weekly") }

// MemberIDs returns the chat ids of all members, in roster order.
func (t Team) MemberIDs() []int64 {
	out := make([]int64, 0, len(t.Members))
	for _, m := range t.Members {
		out = append(out, m.ChatID)
	}
	return out
}

// Teams is the full roster: every team plus the shared question sets.
type Teams struct {
	Teams        []Team              `yaml:"teams"`
	QuestionSets map[string][]string `yaml:"question_sets"`

	byMember map[int64]memberRef
	byID     map[int]*Team
}

// memberRef locates a member inside the roster.
type memberRef struct {
	name   string
	teamID int
}

// LoadTeams reads and validates the roster file at path.
func LoadTeams(path string) (*Teams, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("teams file: %w", err)
	}
	var t Teams
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("teams file: %w", err)
	}
	if err := t.init(); err != nil {
		return nil, err
	}
	return &t, nil
}

// NewTeams builds a validated roster from in-memory values. LoadTeams is
// the production path; this one serves programmatic construction.
func NewTeams(teams []Team, questionSets map[string][]string) (*Teams, error) {
	t := Teams{Teams: teams, QuestionSets: questionSets}
	if err := t.init(); err != nil {
		return nil, err
	}
	return &t, nil
}

// init validates the roster and builds the lookup indexes.
func (t *Teams) init() error {
	t.byMember = make(map[int64]memberRef)
	t.byID = make(map[int]*Team)
	for i := range t.Teams {
		team := &t.Teams[i]
		if team.ID == 0 {
			return fmt.Errorf("teams file: team %q has no id", team.Name)
		}
		if _, dup := t.byID[team.ID]; dup {
			return fmt.Errorf("teams file: duplicate team id %d", team.ID)
		}
		t.byID[team.ID] = team
		for _, m := range team.Members {
			if m.ChatID == 0 {
				return fmt.Errorf("teams file: team %d has a member with no chat_id", team.ID)
			}
			t.byMember[m.ChatID] = memberRef{name: m.Name, teamID: team.ID}
		}
		for _, e := range team.Schedule {
			if _, err := parseWeekday(e.Weekday); err != nil {
				return fmt.Errorf("teams file: team %d: %w", team.ID, err)
			}
			if _, err := time.Parse("15:04", e.At); err != nil {
				return fmt.Errorf("teams file: team %d: bad time %q", team.ID, e.At)
			}
			switch e.Action {
			case ActionQuestions, ActionDigest:
			default:
				return fmt.Errorf("teams file: team %d: unknown action %q", team.ID, e.Action)
			}
			if e.Action == ActionQuestions {
				if _, ok := t.QuestionSets[e.QuestionSet]; !ok {
					return fmt.Errorf("teams file: team %d: unknown question set %q", team.ID, e.QuestionSet)
				}
			}
		}
	}
	return nil
}

// Lookup resolves an employee's display name and team from the roster.
func (t *Teams) Lookup(chatID int64) (name string, teamID int, ok bool) {
	ref, ok := t.byMember[chatID]
	if !ok {
		return "", 0, false
	}
	return ref.name, ref.teamID, true
}

// Team returns the team with the given id, or nil.
func (t *Teams) Team(id int) *Team { return t.byID[id] }

// All returns every configured team.
func (t *Teams) All() []Team { return t.Teams }

// Questions returns the question set named key joined into one message, or
// "" when the set is unknown.
func (t *Teams) Questions(key string) string {
	lines, ok := t.QuestionSets[key]
	if !ok {
		return ""
	}
	return strings.Join(lines, "\n")
}

// parseWeekday maps a lower-case English day name to time.Weekday.
func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// ParsedWeekday returns the entry's weekday. Validation at load time
// guarantees this cannot fail afterwards.
func (e ScheduleEntry) ParsedWeekday() time.Weekday {
	d, _ := parseWeekday(e.Weekday)
	return d
}
