package notifications

import (
	"sync"
	"time"

	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
)

const defaultLogCapacity = 100

// Entry is one notification as seen by one user.
type Entry struct {
	ID        string                  `json:"id"`
	Event     enums.NotificationEvent `json:"event"`
	Title     string                  `json:"title"`
	Body      string                  `json:"body"`
	Data      map[string]any          `json:"data,omitempty"`
	Read      bool                    `json:"read"`
	ReadAt    *time.Time              `json:"readAt,omitempty"`
	CreatedAt time.Time               `json:"createdAt"`
}

// Log keeps the most recent entries per user; the oldest fall off past capacity.
type Log struct {
	mu       sync.Mutex
	capacity int
	byUser   map[string][]Entry
	now      func() time.Time
}

func NewLog(capacity int, now func() time.Time) *Log {
	if capacity <= 0 {
		capacity = defaultLogCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Log{capacity: capacity, byUser: map[string][]Entry{}, now: now}
}

// Append records msg for userID.
func (l *Log) Append(userID string, msg Message) Entry {
	entry := Entry{
		ID:        msg.ID,
		Event:     msg.Event,
		Title:     msg.Title,
		Body:      msg.Body,
		Data:      msg.Data,
		CreatedAt: msg.SentAt,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	entries := append(l.byUser[userID], entry)
	if over := len(entries) - l.capacity; over > 0 {
		entries = append([]Entry(nil), entries[over:]...)
	}
	l.byUser[userID] = entries
	return entry
}

// List returns userID's entries newest first. unreadOnly skips read entries.
func (l *Log) List(userID string, unreadOnly bool) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	src := l.byUser[userID]
	out := make([]Entry, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		if unreadOnly && src[i].Read {
			continue
		}
		out = append(out, src[i])
	}
	return out
}

// Unread counts the unread entries of userID.
func (l *Log) Unread(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.byUser[userID] {
		if !e.Read {
			n++
		}
	}
	return n
}

// MarkRead flags one entry of userID as read. Marking twice keeps the first ReadAt.
func (l *Log) MarkRead(userID, id string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.byUser[userID]
	for i := range entries {
		if entries[i].ID != id {
			continue
		}
		if !entries[i].Read {
			at := l.now().UTC()
			entries[i].Read = true
			entries[i].ReadAt = &at
		}
		return entries[i], true
	}
	return Entry{}, false
}

// Cleanup drops entries created before cutoff and returns how many were removed.
func (l *Log) Cleanup(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for userID, entries := range l.byUser {
		kept := entries[:0]
		for _, e := range entries {
			if e.CreatedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(l.byUser, userID)
			continue
		}
		l.byUser[userID] = kept
	}
	return removed
}
