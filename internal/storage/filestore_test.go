package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Schankelqt/meetings-dify-bot/internal/services"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "answers.json"))
}

func rec(chatID int64, text string) services.SummaryUpsert {
	team := 1
	return services.SummaryUpsert{
		ChatID:         chatID,
		FullName:       "Анна Иванова",
		TeamID:         &team,
		ConversationID: "conv-1",
		Text:           text,
	}
}

func TestFileStore_UpsertOverwritesSameDay(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id1, err := s.Upsert(ctx, "2025-06-01", rec(42, "первый вариант"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	id2, err := s.Upsert(ctx, "2025-06-01", rec(42, "исправленный вариант"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if id1 != id2 {
		t.Errorf("record id changed on same-day overwrite: %q then %q", id1, id2)
	}

	got, err := s.FetchDay(ctx, "2025-06-01", []int64{42})
	if err != nil {
		t.Fatalf("FetchDay: %v", err)
	}
	if got[42] != "исправленный вариант" {
		t.Errorf("stored = %q, want the later write", got[42])
	}
}

func TestFileStore_NewDayNewRecord(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id1, _ := s.Upsert(ctx, "2025-06-01", rec(42, "вчерашний"))
	id2, _ := s.Upsert(ctx, "2025-06-02", rec(42, "сегодняшний"))
	if id1 == id2 {
		t.Errorf("record id reused across days")
	}

	// Yesterday's record is gone: one record per employee, day-scoped reads.
	got, _ := s.FetchDay(ctx, "2025-06-01", []int64{42})
	if len(got) != 0 {
		t.Errorf("stale-day fetch = %v, want empty", got)
	}
	got, _ = s.FetchDay(ctx, "2025-06-02", []int64{42})
	if got[42] != "сегодняшний" {
		t.Errorf("today fetch = %v", got)
	}
}

func TestFileStore_FetchDayOmitsAbsentees(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	s.Upsert(ctx, "2025-06-01", rec(42, "отчёт"))

	got, err := s.FetchDay(ctx, "2025-06-01", []int64{42, 43})
	if err != nil {
		t.Fatalf("FetchDay: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("fetch = %v, want only the reporter", got)
	}
	if _, present := got[43]; present {
		t.Errorf("absentee present in fetch result")
	}
}

func TestFileStore_TrackerTaskIDSurvivesUpserts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.SetTrackerTaskID(ctx, 42, 777); err != nil {
		t.Fatalf("SetTrackerTaskID: %v", err)
	}
	if _, err := s.Upsert(ctx, "2025-06-01", rec(42, "отчёт")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	id, err := s.TrackerTaskID(ctx, 42)
	if err != nil {
		t.Fatalf("TrackerTaskID: %v", err)
	}
	if id != 777 {
		t.Errorf("task id = %d, want 777 preserved across upserts", id)
	}
}

func TestFileStore_UnknownEmployeeHasZeroTaskID(t *testing.T) {
	s := newStore(t)
	id, err := s.TrackerTaskID(context.Background(), 999)
	if err != nil || id != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", id, err)
	}
}

func TestFileStore_MissingFileReadsEmpty(t *testing.T) {
	s := newStore(t)
	got, err := s.FetchDay(context.Background(), "2025-06-01", []int64{42})
	if err != nil {
		t.Fatalf("FetchDay on missing file: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("fetch = %v, want empty", got)
	}
}

func TestFileStore_CorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path)
	if _, err := s.Upsert(context.Background(), "2025-06-01", rec(42, "x")); err == nil {
		t.Fatalf("want error on corrupt state file")
	}
}
