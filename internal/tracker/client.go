// Package tracker implements the outbound client for the Pyrus-style
// task-tracking system. Every employee gets one long-lived task created from
// a form; the task's fields carry the latest roster data and summary, and a
// dated comment is appended for each captured report.
//
// The mirror is strictly best-effort: callers log failures and move on, and
// nothing here ever reaches the employee-facing reply path.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Record is the field set mirrored into the tracker task.
type Record struct {
	ChatID         int64
	FullName       string
	TeamID         *int
	ConversationID string
	LastSummary    string
}

// FieldIDs maps the bot's record fields onto the numeric form-field ids of
// the configured tracker form.
type FieldIDs struct {
	ChatID         int
	FullName       int
	TeamID         int
	ConversationID int
	LastSummary    int
}

// complete reports whether every field has been configured.
func (f FieldIDs) complete() bool {
	return f.ChatID != 0 && f.FullName != 0 && f.TeamID != 0 && f.ConversationID != 0 && f.LastSummary != 0
}

// Client talks to one tracker instance. Safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	formID  int
	fields  FieldIDs
	http    *http.Client
}

// New constructs a Client. timeout bounds every request; zero falls back to
// 30 seconds.
func New(baseURL, token string, formID int, fields FieldIDs, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		formID:  formID,
		fields:  fields,
		http:    &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client is fully configured. An incomplete
// configuration disables the mirror instead of failing mid-turn.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != "" && c.token != "" && c.formID != 0 && c.fields.complete()
}

// formField is one numeric-id/value pair in the tracker's task payloads.
type formField struct {
	ID    int `json:"id"`
	Value any `json:"value"`
}

// formFields flattens rec into the configured form-field ids.
func (c *Client) formFields(rec Record) []formField {
	team := any("")
	if rec.TeamID != nil {
		team = *rec.TeamID
	}
	return []formField{
		{ID: c.fields.ChatID, Value: rec.ChatID},
		{ID: c.fields.FullName, Value: rec.FullName},
		{ID: c.fields.TeamID, Value: team},
		{ID: c.fields.ConversationID, Value: rec.ConversationID},
		{ID: c.fields.LastSummary, Value: rec.LastSummary},
	}
}

// UpsertRecord creates the employee's task when taskID is zero, otherwise
// updates the existing task's fields via a comment. It returns the id of
// the task that now holds the record.
func (c *Client) UpsertRecord(ctx context.Context, taskID int64, rec Record) (int64, error) {
	if !c.Enabled() {
		return 0, fmt.Errorf("tracker: not configured")
	}
	if taskID == 0 {
		return c.createTask(ctx, rec)
	}
	return taskID, c.updateTask(ctx, taskID, rec)
}

// createTask creates a new form task and returns its id.
func (c *Client) createTask(ctx context.Context, rec Record) (int64, error) {
	payload := map[string]any{
		"form_id": c.formID,
		"fields":  c.formFields(rec),
	}
	var out struct {
		Task struct {
			ID int64 `json:"id"`
		} `json:"task"`
	}
	if err := c.post(ctx, "/tasks", payload, &out); err != nil {
		return 0, err
	}
	if out.Task.ID == 0 {
		return 0, fmt.Errorf("tracker: create task: no task id in response")
	}
	return out.Task.ID, nil
}

// updateTask overwrites the task's form fields via a field-only comment.
func (c *Client) updateTask(ctx context.Context, taskID int64, rec Record) error {
	payload := map[string]any{
		"fields": c.formFields(rec),
		"text":   nil,
	}
	return c.post(ctx, fmt.Sprintf("/tasks/%d/comments", taskID), payload, nil)
}

// AppendNote adds a comment with the current UTC date and the given text to
// the task. The date prefix keeps the task's comment feed aligned with the
// store's day-keyed records.
func (c *Client) AppendNote(ctx context.Context, taskID int64, text string) error {
	if !c.Enabled() {
		return fmt.Errorf("tracker: not configured")
	}
	today := time.Now().UTC().Format("2006-01-02")
	payload := map[string]any{
		"text": today + "\n\n" + text,
	}
	return c.post(ctx, fmt.Sprintf("/tasks/%d/comments", taskID), payload, nil)
}

// post issues one JSON POST and optionally decodes the response into out.
func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tracker: %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
