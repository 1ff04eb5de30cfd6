// Package storage provides the file-backed fallback implementation of the
// summary store, for deployments without a relational database. The whole
// state is one JSON document rewritten atomically on every upsert, fine
// for the roster sizes this bot serves, and trivially inspectable.
//
// The fallback is selected by configuration, never mixed with the primary
// DB store.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Schankelqt/meetings-dify-bot/internal/services"
)

// fileRecord is one employee's latest captured summary.
type fileRecord struct {
	RecordID       string `json:"record_id"`
	FullName       string `json:"name,omitempty"`
	TeamID         *int   `json:"team_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Summary        string `json:"summary"`
	Day            string `json:"day"`
	TrackerTaskID  int64  `json:"tracker_task_id,omitempty"`
	UpdatedAt      string `json:"updated_at"`
}

// fileState is the full on-disk document, keyed by chat id (as a decimal
// string, since JSON object keys are strings).
type fileState map[string]fileRecord

// FileStore implements services.SummaryStore on a single JSON file.
// Safe for concurrent use within one process; a mutex serializes the
// read-modify-write cycle. Cross-process writers are not supported.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store persisting to path. The file is created on
// first upsert; a missing file reads as empty state.
func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

// load reads the current document; a missing file is empty state.
func (s *FileStore) load() (fileState, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return fileState{}, nil
	}
	if err != nil {
		return nil, err
	}
	var st fileState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	if st == nil {
		st = fileState{}
	}
	return st, nil
}

// save atomically rewrites the document (temp file + rename).
func (s *FileStore) save(st fileState) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// key renders a chat id as the JSON object key.
func key(chatID int64) string { return strconv.FormatInt(chatID, 10) }

// Upsert keeps one record per employee, overwriting whatever was there;
// day-scoping happens at read time, which preserves the one-per-day
// contract for the only consumer (FetchDay).
func (s *FileStore) Upsert(ctx context.Context, day string, rec services.SummaryUpsert) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return "", err
	}
	k := key(rec.ChatID)
	cur, exists := st[k]
	recordID := cur.RecordID
	if !exists || cur.Day != day {
		// New employee or a new day: a fresh record identity.
		recordID = uuid.NewString()
	}
	st[k] = fileRecord{
		RecordID:       recordID,
		FullName:       rec.FullName,
		TeamID:         rec.TeamID,
		ConversationID: rec.ConversationID,
		Summary:        rec.Text,
		Day:            day,
		TrackerTaskID:  cur.TrackerTaskID,
		UpdatedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.save(st); err != nil {
		return "", err
	}
	return recordID, nil
}

// FetchDay returns the summaries recorded for day across chatIDs. Records
// from other days are stale and omitted.
func (s *FileStore) FetchDay(ctx context.Context, day string, chatIDs []int64) (map[int64]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(chatIDs))
	for _, id := range chatIDs {
		if rec, ok := st[key(id)]; ok && rec.Day == day {
			out[id] = rec.Summary
		}
	}
	return out, nil
}

// TrackerTaskID returns the stored task id for chatID, or 0.
func (s *FileStore) TrackerTaskID(ctx context.Context, chatID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return 0, err
	}
	return st[key(chatID)].TrackerTaskID, nil
}

// SetTrackerTaskID records the task id for chatID, creating a skeleton
// record when the employee has never reported.
func (s *FileStore) SetTrackerTaskID(ctx context.Context, chatID, taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	k := key(chatID)
	rec := st[k]
	rec.TrackerTaskID = taskID
	if rec.RecordID == "" {
		rec.RecordID = uuid.NewString()
	}
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	st[k] = rec
	return s.save(st)
}

var _ services.SummaryStore = (*FileStore)(nil)
