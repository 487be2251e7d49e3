package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
)

const transportPush = "push"

// ErrSubscriptionGone marks a push token the provider no longer accepts.
var ErrSubscriptionGone = errors.New("push subscription is no longer registered")

// Subscription is one device token of a user. A user holds at most one.
type Subscription struct {
	UserID    string     `json:"userId"`
	Token     string     `json:"token"`
	Platform  string     `json:"platform,omitempty"`
	Role      enums.Role `json:"role"`
	HostelID  string     `json:"hostelId,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (s Subscription) principal() Principal {
	return Principal{UserID: s.UserID, Role: s.Role, HostelID: s.HostelID}
}

// Pusher hands one message to a push provider.
type Pusher interface {
	Push(ctx context.Context, sub Subscription, msg Message) error
}

// SubscriptionRegistry keeps the latest push token per user.
type SubscriptionRegistry struct {
	mu     sync.RWMutex
	byUser map[string]Subscription
	now    func() time.Time
}

func NewSubscriptionRegistry(now func() time.Time) *SubscriptionRegistry {
	if now == nil {
		now = time.Now
	}
	return &SubscriptionRegistry{byUser: map[string]Subscription{}, now: now}
}

// Save stores sub, replacing any earlier token of the same user.
func (r *SubscriptionRegistry) Save(sub Subscription) (Subscription, error) {
	sub.UserID = strings.TrimSpace(sub.UserID)
	sub.Token = strings.TrimSpace(sub.Token)
	if sub.UserID == "" || sub.Token == "" {
		return Subscription{}, errors.New("push subscription requires userId and token")
	}
	sub.UpdatedAt = r.now().UTC()

	r.mu.Lock()
	r.byUser[sub.UserID] = sub
	r.mu.Unlock()
	return sub, nil
}

// Remove deletes the user's subscription. A non-empty token must match the stored one.
func (r *SubscriptionRegistry) Remove(userID, token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byUser[userID]
	if !ok {
		return false
	}
	if token != "" && current.Token != token {
		return false
	}
	delete(r.byUser, userID)
	return true
}

// Get returns the subscription of userID.
func (r *SubscriptionRegistry) Get(userID string) (Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.byUser[userID]
	return sub, ok
}

// Matching returns every subscription whose owner belongs to aud.
func (r *SubscriptionRegistry) Matching(aud Audience) []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Subscription{}
	for _, sub := range r.byUser {
		if aud.Matches(sub.principal()) {
			out = append(out, sub)
		}
	}
	return out
}

func (r *SubscriptionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
