// Package services – conversation handle cache
//
// The chat backend keeps one long-running conversation per employee per day.
// The cache remembers its id so every turn does not pay a lookup round-trip.
// Entries are valid only for the UTC day they were created: crossing
// midnight invalidates them, and a backend "conversation not found" signal
// drops them explicitly. The cache is process-local; the backend's own
// conversation lookup rebuilds it after a restart.
package services

import (
	"context"
	"sync"
)

// conversationEntry is the per-employee slot. Its mutex serializes resolve
// and adopt operations for one employee so that two concurrent messages
// cannot race two different handles into existence for the same day.
type conversationEntry struct {
	mu  sync.Mutex
	id  string
	day string
}

// ConversationCache maps employee chat ids to their cached conversation
// handle. Safe for concurrent use; locking is per employee, so turns from
// different employees never contend.
type ConversationCache struct {
	mu      sync.Mutex
	entries map[int64]*conversationEntry
}

// NewConversationCache returns an empty cache.
func NewConversationCache() *ConversationCache {
	return &ConversationCache{entries: make(map[int64]*conversationEntry)}
}

// entry returns the slot for chatID, creating it when absent.
func (c *ConversationCache) entry(chatID int64) *conversationEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[chatID]
	if !ok {
		e = &conversationEntry{}
		c.entries[chatID] = e
	}
	return e
}

// Resolve returns the cached conversation id for chatID on day, or, on a
// miss (no entry, or an entry from a previous day), calls lookup to fetch
// one and caches a non-empty result. The employee's slot stays locked for
// the duration of lookup, so concurrent same-employee turns serialize here.
// A lookup failure is not an error for the caller: the turn simply proceeds
// without a handle and adopts whatever the backend returns.
func (c *ConversationCache) Resolve(ctx context.Context, chatID int64, day string, lookup func(context.Context) (string, error)) string {
	e := c.entry(chatID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.day == day && e.id != "" {
		return e.id
	}
	// Day rollover or cold cache: the old handle is dead either way.
	e.id, e.day = "", day

	if lookup == nil {
		return ""
	}
	id, err := lookup(ctx)
	if err != nil || id == "" {
		return ""
	}
	e.id = id
	return id
}

// Adopt stores the handle the backend returned for chatID on day. Empty ids
// are ignored.
func (c *ConversationCache) Adopt(chatID int64, day, id string) {
	if id == "" {
		return
	}
	e := c.entry(chatID)
	e.mu.Lock()
	e.id, e.day = id, day
	e.mu.Unlock()
}

// Invalidate drops the cached handle for chatID, forcing re-resolution on
// the next turn. Used when the backend reports the conversation gone.
func (c *ConversationCache) Invalidate(chatID int64) {
	e := c.entry(chatID)
	e.mu.Lock()
	e.id, e.day = "", ""
	e.mu.Unlock()
}
