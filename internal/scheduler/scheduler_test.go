package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Schankelqt/meetings-dify-bot/internal/config"
)

type fakeNotifier struct {
	sent map[int64][]string
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, chatID int64, text string) error {
	if f.sent == nil {
		f.sent = make(map[int64][]string)
	}
	f.sent[chatID] = append(f.sent[chatID], text)
	return f.err
}

type fakeDigest struct {
	report string
	err    error
	calls  int
}

func (f *fakeDigest) BuildReport(_ context.Context, _ int) (string, error) {
	f.calls++
	return f.report, f.err
}

func testTeams(t *testing.T) *config.Teams {
	t.Helper()
	teams, err := config.NewTeams(
		[]config.Team{{
			ID:   1,
			Name: "Платформа",
			Tag:  "daily",
			Members: []config.Member{
				{ChatID: 101, Name: "Анна"},
				{ChatID: 102, Name: "Борис"},
			},
			Managers: []int64{900},
			Schedule: []config.ScheduleEntry{
				{Weekday: "wednesday", At: "09:30", Action: config.ActionQuestions, QuestionSet: "daily"},
				{Weekday: "wednesday", At: "18:00", Action: config.ActionDigest},
			},
		}},
		map[string][]string{
			"daily": {"Что делал вчера?", "Что планируешь сегодня?"},
		},
	)
	if err != nil {
		t.Fatalf("NewTeams: %v", err)
	}
	return teams
}

func newTestScheduler(t *testing.T, n Notifier, d DigestBuilder, at time.Time) *Scheduler {
	t.Helper()
	return &Scheduler{
		Teams:    testTeams(t),
		Digest:   d,
		Notifier: n,
		Log:      zerolog.Nop(),
		now:      func() time.Time { return at },
	}
}

// Wednesday 2025-06-04.
func wednesdayAt(hour, min int) time.Time {
	return time.Date(2025, 6, 4, hour, min, 0, 0, time.UTC)
}

func TestRunDue_QuestionsBroadcastToMembers(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(t, n, &fakeDigest{}, wednesdayAt(9, 30))

	s.RunDue(context.Background())

	for _, chatID := range []int64{101, 102} {
		msgs := n.sent[chatID]
		if len(msgs) != 1 {
			t.Fatalf("member %d got %d messages, want 1", chatID, len(msgs))
		}
		if msgs[0] != "Что делал вчера?\nЧто планируешь сегодня?" {
			t.Errorf("questions = %q", msgs[0])
		}
	}
	if len(n.sent[900]) != 0 {
		t.Errorf("manager received questions broadcast")
	}
}

func TestRunDue_DigestGoesToManagers(t *testing.T) {
	n := &fakeNotifier{}
	d := &fakeDigest{report: "📝 Отчёт"}
	s := newTestScheduler(t, n, d, wednesdayAt(18, 0))

	s.RunDue(context.Background())

	if d.calls != 1 {
		t.Fatalf("BuildReport calls = %d, want 1", d.calls)
	}
	if msgs := n.sent[900]; len(msgs) != 1 || msgs[0] != "📝 Отчёт" {
		t.Errorf("manager messages = %v", msgs)
	}
	if len(n.sent[101]) != 0 {
		t.Errorf("member received the digest")
	}
}

func TestRunDue_SlotFiresOncePerDay(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(t, n, &fakeDigest{}, wednesdayAt(9, 30))

	s.RunDue(context.Background())
	s.RunDue(context.Background())

	if len(n.sent[101]) != 1 {
		t.Fatalf("member got %d broadcasts from repeated ticks, want 1", len(n.sent[101]))
	}

	// Next day, the same slot is eligible again.
	s.now = func() time.Time { return wednesdayAt(9, 30).AddDate(0, 0, 7) }
	s.RunDue(context.Background())
	if len(n.sent[101]) != 2 {
		t.Errorf("member got %d broadcasts after a week, want 2", len(n.sent[101]))
	}
}

func TestRunDue_FiredSetStaysBounded(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(t, n, &fakeDigest{report: "r"}, wednesdayAt(9, 30))

	// Both slots fire across many weeks; the memory of executed slots must
	// not accumulate day entries.
	for week := 0; week < 20; week++ {
		s.now = func() time.Time { return wednesdayAt(9, 30).AddDate(0, 0, 7*week) }
		s.RunDue(context.Background())
		s.now = func() time.Time { return wednesdayAt(18, 0).AddDate(0, 0, 7*week) }
		s.RunDue(context.Background())
	}

	if len(n.sent[101]) != 20 {
		t.Fatalf("member got %d broadcasts over 20 weeks, want 20", len(n.sent[101]))
	}
	if len(s.fired) != 2 {
		t.Errorf("fired set holds %d entries, want one per slot (2)", len(s.fired))
	}
}

func TestRunDue_OffSlotDoesNothing(t *testing.T) {
	n := &fakeNotifier{}
	s := newTestScheduler(t, n, &fakeDigest{}, wednesdayAt(9, 31))

	s.RunDue(context.Background())
	if len(n.sent) != 0 {
		t.Errorf("off-slot tick sent %v", n.sent)
	}
}

func TestRunDue_DigestFailureSkipsSend(t *testing.T) {
	n := &fakeNotifier{}
	d := &fakeDigest{err: errors.New("store down")}
	s := newTestScheduler(t, n, d, wednesdayAt(18, 0))

	s.RunDue(context.Background())
	if len(n.sent) != 0 {
		t.Errorf("digest failure still sent %v", n.sent)
	}
}

func TestRunDue_NotifyFailureContinuesBroadcast(t *testing.T) {
	n := &fakeNotifier{err: errors.New("blocked")}
	s := newTestScheduler(t, n, &fakeDigest{}, wednesdayAt(9, 30))

	s.RunDue(context.Background())
	// Both members attempted despite per-recipient failures.
	if len(n.sent[101]) != 1 || len(n.sent[102]) != 1 {
		t.Errorf("sends = %v, want both members attempted", n.sent)
	}
}
