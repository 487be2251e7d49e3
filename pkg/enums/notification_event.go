package enums

import "fmt"

// NotificationEvent identifies a domain event that fans out to connected principals.
type NotificationEvent string

const (
	NotificationComplaintCreated       NotificationEvent = "complaint.created"
	NotificationComplaintCommentAdded  NotificationEvent = "complaint.comment_added"
	NotificationComplaintStatusChanged NotificationEvent = "complaint.status_changed"
	NotificationPaymentCreated         NotificationEvent = "payment.created"
	NotificationPaymentApproved        NotificationEvent = "payment.approved"
	NotificationHostelRequestCreated   NotificationEvent = "hostel_request.created"
	NotificationHostelActivated        NotificationEvent = "hostel.activated"
	NotificationHostelDeactivated      NotificationEvent = "hostel.deactivated"
	NotificationNoticeCreated          NotificationEvent = "notice.created"
	NotificationCheckoutRequestCreated NotificationEvent = "checkout_request.created"
	NotificationSupportTicketCreated   NotificationEvent = "support_ticket.created"
)

var validNotificationEvents = []NotificationEvent{
	NotificationComplaintCreated,
	NotificationComplaintCommentAdded,
	NotificationComplaintStatusChanged,
	NotificationPaymentCreated,
	NotificationPaymentApproved,
	NotificationHostelRequestCreated,
	NotificationHostelActivated,
	NotificationHostelDeactivated,
	NotificationNoticeCreated,
	NotificationCheckoutRequestCreated,
	NotificationSupportTicketCreated,
}

func (n NotificationEvent) String() string {
	return string(n)
}

// IsValid checks whether the given event is known.
func (n NotificationEvent) IsValid() bool {
	for _, candidate := range validNotificationEvents {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationEvent converts raw strings into NotificationEvent.
func ParseNotificationEvent(value string) (NotificationEvent, error) {
	for _, candidate := range validNotificationEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification event %q", value)
}
