package notifications

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
)

// Rule renders one event kind into titles, bodies and audiences.
type Rule struct {
	Title     string
	Body      func(Event) string
	Audiences func(Event) []Audience
}

func hostelStaff(e Event) []Audience {
	if e.HostelID == "" {
		return nil
	}
	return []Audience{
		{Role: enums.RoleAdmin, HostelID: e.HostelID},
		{Role: enums.RoleReceptionist, HostelID: e.HostelID},
	}
}

func hostelAdmins(e Event) []Audience {
	if e.HostelID == "" {
		return nil
	}
	return []Audience{{Role: enums.RoleAdmin, HostelID: e.HostelID}}
}

func masterAdmins(Event) []Audience {
	return []Audience{{Role: enums.RoleMasterAdmin}}
}

func userByKey(key string) func(Event) []Audience {
	return func(e Event) []Audience {
		if id := e.str(key); id != "" {
			return []Audience{{UserID: id}}
		}
		return nil
	}
}

var rules = map[enums.NotificationEvent]Rule{
	enums.NotificationComplaintCreated: {
		Title: "New Complaint Submitted",
		Body: func(e Event) string {
			return fmt.Sprintf("%s submitted: \"%s\"", fallback(e.str("tenantName"), "A tenant"), e.str("title"))
		},
		Audiences: hostelAdmins,
	},
	enums.NotificationComplaintCommentAdded: {
		Title: "New Comment on Complaint",
		Body: func(e Event) string {
			return fmt.Sprintf("%s commented on complaint #%s", fallback(e.str("authorName"), "Someone"), e.str("complaintId"))
		},
		Audiences: func(e Event) []Audience {
			if role, _ := enums.ParseRole(e.str("authorRole")); role == enums.RoleTenant {
				return hostelAdmins(e)
			}
			return userByKey("tenantUserId")(e)
		},
	},
	enums.NotificationComplaintStatusChanged: {
		Title: "Complaint Status Updated",
		Body: func(e Event) string {
			return fmt.Sprintf("Complaint #%s changed from %s to %s", e.str("complaintId"), e.str("from"), e.str("to"))
		},
		Audiences: userByKey("tenantUserId"),
	},
	enums.NotificationPaymentCreated: {
		Title: "New Payment Recorded",
		Body: func(e Event) string {
			return fmt.Sprintf("Payment of %s recorded for %s", e.str("amount"), fallback(e.str("tenantName"), "a tenant"))
		},
		Audiences: hostelStaff,
	},
	enums.NotificationPaymentApproved: {
		Title: "Payment Approved",
		Body: func(e Event) string {
			return fmt.Sprintf("Your payment of %s has been approved", e.str("amount"))
		},
		Audiences: userByKey("tenantUserId"),
	},
	enums.NotificationHostelRequestCreated: {
		Title: "New Hostel Request",
		Body: func(e Event) string {
			return fmt.Sprintf("%s requested onboarding for %s", fallback(e.str("name"), "Someone"), e.str("hostelName"))
		},
		Audiences: masterAdmins,
	},
	enums.NotificationHostelActivated: {
		Title: "Hostel Activated",
		Body: func(e Event) string {
			return fmt.Sprintf("%s is now active", fallback(e.str("name"), "Your hostel"))
		},
		Audiences: hostelStaff,
	},
	enums.NotificationHostelDeactivated: {
		Title: "Hostel Deactivated",
		Body: func(e Event) string {
			if reason := e.str("reason"); reason != "" {
				return fmt.Sprintf("%s has been deactivated: %s", fallback(e.str("name"), "Your hostel"), reason)
			}
			return fmt.Sprintf("%s has been deactivated", fallback(e.str("name"), "Your hostel"))
		},
		Audiences: hostelStaff,
	},
	enums.NotificationNoticeCreated: {
		Title: "New Notice",
		Body: func(e Event) string {
			return fallback(e.str("title"), "A new notice was posted")
		},
		Audiences: func(e Event) []Audience {
			if e.HostelID == "" {
				return nil
			}
			return []Audience{{Role: enums.RoleTenant, HostelID: e.HostelID}}
		},
	},
	enums.NotificationCheckoutRequestCreated: {
		Title: "New Checkout Request",
		Body: func(e Event) string {
			return fmt.Sprintf("%s requested checkout", fallback(e.str("tenantName"), "A tenant"))
		},
		Audiences: hostelStaff,
	},
	enums.NotificationSupportTicketCreated: {
		Title: "New Support Ticket",
		Body: func(e Event) string {
			return fallback(e.str("subject"), "A support ticket was opened")
		},
		Audiences: masterAdmins,
	},
}

// RuleFor returns the rule registered for t.
func RuleFor(t enums.NotificationEvent) (Rule, bool) {
	r, ok := rules[t]
	return r, ok
}

// Render turns e into one message per audience. Unknown events render nothing.
func Render(e Event, newID func() string) []Message {
	rule, ok := rules[e.Type]
	if !ok {
		return nil
	}
	audiences := rule.Audiences(e)
	out := make([]Message, 0, len(audiences))
	for _, aud := range audiences {
		out = append(out, Message{
			ID:       newID(),
			Event:    e.Type,
			Title:    rule.Title,
			Body:     rule.Body(e),
			Data:     e.Data,
			Audience: aud,
			SentAt:   e.At,
		})
	}
	return out
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
