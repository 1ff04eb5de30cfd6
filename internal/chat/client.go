// Package chat implements the outbound client for the Dify-style
// chat-completion backend. The bot relays every inbound employee message to
// the backend as one blocking turn and reads back the assistant's answer
// plus the conversation id the exchange belongs to.
//
// Error semantics:
//   - A 404 from the chat-messages endpoint means the referenced
//     conversation no longer exists on the backend; it is mapped to
//     ErrConversationNotFound so the caller can retry once without a handle.
//   - Timeouts and other non-2xx statuses are returned as ordinary errors;
//     the caller treats them as "backend unavailable".
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrConversationNotFound is the specific "conversation not found" signal
// (as opposed to a generic backend failure). It is recovered automatically
// by retrying the turn once with no conversation handle.
var ErrConversationNotFound = errors.New("conversation not found")

// Reply is the backend's answer to one turn.
type Reply struct {
	// Answer is the assistant's reply text.
	Answer string `json:"answer"`
	// ConversationID identifies the (possibly newly created) conversation
	// this turn belongs to.
	ConversationID string `json:"conversation_id"`
}

// Client talks to one chat-completion backend. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New constructs a Client for the given base URL and API key. timeout bounds
// every request; zero falls back to 60 seconds (blocking chat completions
// are slow).
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// sendTurnRequest is the chat-messages payload.
type sendTurnRequest struct {
	Query          string         `json:"query"`
	ResponseMode   string         `json:"response_mode"`
	User           string         `json:"user"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Inputs         map[string]any `json:"inputs"`
}

// SendTurn relays one employee message as a blocking chat turn. An empty
// conversationID starts a fresh conversation on the backend.
func (c *Client) SendTurn(ctx context.Context, chatID int64, text, conversationID string) (Reply, error) {
	body, err := json.Marshal(sendTurnRequest{
		Query:          text,
		ResponseMode:   "blocking",
		User:           strconv.FormatInt(chatID, 10),
		ConversationID: conversationID,
		Inputs:         map[string]any{},
	})
	if err != nil {
		return Reply{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat-messages", bytes.NewReader(body))
	if err != nil {
		return Reply{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Reply{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// The handle points at a deleted/expired conversation.
		io.Copy(io.Discard, resp.Body)
		return Reply{}, ErrConversationNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Reply{}, fmt.Errorf("chat backend: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out Reply
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Reply{}, fmt.Errorf("chat backend: decode reply: %w", err)
	}
	return out, nil
}

// conversationsResponse is the conversations listing payload.
type conversationsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// FindConversation returns the id of the most recent conversation the
// backend holds for chatID, or "" when there is none.
func (c *Client) FindConversation(ctx context.Context, chatID int64) (string, error) {
	q := url.Values{"user": {strconv.FormatInt(chatID, 10)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/conversations?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("chat backend: list conversations: status %d", resp.StatusCode)
	}
	var out conversationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("chat backend: decode conversations: %w", err)
	}
	if len(out.Data) == 0 {
		return "", nil
	}
	return out.Data[0].ID, nil
}

// DeleteConversations removes every conversation the backend holds for
// chatID and returns how many were deleted. Administrative maintenance, not
// part of the turn flow.
func (c *Client) DeleteConversations(ctx context.Context, chatID int64) (int, error) {
	q := url.Values{"user": {strconv.FormatInt(chatID, 10)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/conversations?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	var out conversationsResponse
	err = json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, conv := range out.Data {
		dreq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/conversations/"+conv.ID, nil)
		if err != nil {
			return deleted, err
		}
		dreq.Header.Set("Authorization", "Bearer "+c.apiKey)
		dresp, err := c.http.Do(dreq)
		if err != nil {
			return deleted, err
		}
		io.Copy(io.Discard, dresp.Body)
		dresp.Body.Close()
		if dresp.StatusCode >= 200 && dresp.StatusCode < 300 {
			deleted++
		}
	}
	return deleted, nil
}
