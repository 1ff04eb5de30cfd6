package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Schankelqt/meetings-dify-bot/internal/config"
)

type digestStore struct {
	fakeStore
	byMember map[int64]string
	fetchErr error
}

func (d *digestStore) FetchDay(context.Context, string, []int64) (map[int64]string, error) {
	return d.byMember, d.fetchErr
}

func digestTeams(t *testing.T, tag string) *config.Teams {
	t.Helper()
	teams, err := config.NewTeams([]config.Team{
		{
			ID:   1,
			Name: "Платформа",
			Tag:  tag,
			Members: []config.Member{
				{ChatID: 101, Name: "Анна Иванова"},
				{ChatID: 102, Name: "Борис Сидоров"},
			},
			Managers: []int64{900},
		},
	}, nil)
	if err != nil {
		t.Fatalf("NewTeams: %v", err)
	}
	return teams
}

func newDigestService(t *testing.T, st SummaryStore, tag string) *DigestService {
	t.Helper()
	return &DigestService{
		Store: st,
		Teams: digestTeams(t, tag),
		Log:   zerolog.Nop(),
		now:   func() time.Time { return time.Date(2025, 6, 4, 18, 0, 0, 0, time.UTC) }, // a Wednesday
	}
}

func TestBuildReport_DailyFormat(t *testing.T) {
	st := &digestStore{byMember: map[int64]string{101: "- сделала X"}}
	s := newDigestService(t, st, "daily")

	got, err := s.BuildReport(context.Background(), 1)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}

	want := "📝 Отчёт по команде «Платформа» за 2025-06-04" +
		"\n\n👤 Анна Иванова\n- сделала X" +
		"\n\n👤 Борис Сидоров\n-" +
		"\n\n📊 Отчитались: 1/2"
	if got != want {
		t.Errorf("digest =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildReport_WeeklyDateRange(t *testing.T) {
	s := newDigestService(t, &digestStore{}, "weekly")

	got, err := s.BuildReport(context.Background(), 1)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	// Monday–Friday of the week containing Wednesday 2025-06-04.
	if !strings.Contains(got, "за 02.06.2025 - 06.06.2025") {
		t.Errorf("digest header missing weekly range:\n%s", got)
	}
}

func TestBuildReport_UnknownTeam(t *testing.T) {
	s := newDigestService(t, &digestStore{}, "daily")
	if _, err := s.BuildReport(context.Background(), 99); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("err = %v, want ErrTeamNotFound", err)
	}
}

func TestBuildReport_StoreErrorPropagates(t *testing.T) {
	s := newDigestService(t, &digestStore{fetchErr: errors.New("db locked")}, "daily")
	if _, err := s.BuildReport(context.Background(), 1); err == nil {
		t.Fatalf("want store error")
	}
}

func TestBuildReport_NilStoreRendersPlaceholders(t *testing.T) {
	s := newDigestService(t, nil, "daily")

	got, err := s.BuildReport(context.Background(), 1)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if !strings.Contains(got, "📊 Отчитались: 0/2") {
		t.Errorf("digest without store should show zero responders:\n%s", got)
	}
}
