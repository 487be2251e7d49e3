package notifications

import (
	"fmt"
	"time"

	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
)

// Event is a domain occurrence that may fan out to several audiences.
type Event struct {
	Type     enums.NotificationEvent `json:"type"`
	HostelID string                  `json:"hostelId,omitempty"`
	ActorID  string                  `json:"actorId,omitempty"`
	Data     map[string]any          `json:"data,omitempty"`
	At       time.Time               `json:"at"`
}

// NewEvent stamps an event of type t.
func NewEvent(t enums.NotificationEvent, hostelID string, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	return Event{Type: t, HostelID: hostelID, Data: data, At: time.Now().UTC()}
}

func (e Event) str(key string) string {
	v, ok := e.Data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Audience selects recipients. Role matches principals with that role and
// HostelID narrows to one hostel; an empty HostelID is a global broadcast.
// A non-empty UserID targets one principal only.
type Audience struct {
	Role     enums.Role `json:"role,omitempty"`
	HostelID string     `json:"hostelId,omitempty"`
	UserID   string     `json:"userId,omitempty"`
}

// Matches reports whether p belongs to the audience.
func (a Audience) Matches(p Principal) bool {
	if a.UserID != "" {
		return p.UserID == a.UserID
	}
	if a.Role != "" && p.Role != a.Role {
		return false
	}
	if a.HostelID != "" && p.HostelID != a.HostelID {
		return false
	}
	return true
}

// Principal identifies a connected or subscribed user.
type Principal struct {
	UserID   string     `json:"userId"`
	Role     enums.Role `json:"role"`
	HostelID string     `json:"hostelId,omitempty"`
}

// Message is one rendered notification for one audience.
type Message struct {
	ID       string                  `json:"id"`
	Event    enums.NotificationEvent `json:"event"`
	Title    string                  `json:"title"`
	Body     string                  `json:"body"`
	Data     map[string]any          `json:"data,omitempty"`
	Audience Audience                `json:"audience"`
	SentAt   time.Time               `json:"sentAt"`
}
