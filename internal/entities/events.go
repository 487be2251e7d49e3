package entities

import (
	"context"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/notifications"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
)

func (s *service) publish(ctx context.Context, p Principal, t enums.NotificationEvent, hostelID string, data map[string]any) {
	if s.publisher == nil {
		return
	}
	event := notifications.NewEvent(t, hostelID, data)
	event.ActorID = p.UserID
	event.At = s.now().UTC()
	s.publisher.Publish(ctx, event)
}

func (s *service) publishCreated(ctx context.Context, p Principal, c enums.Collection, rec docstore.Record) {
	hostelID := rec.HostelID()
	switch c {
	case enums.CollectionComplaints:
		s.publish(ctx, p, enums.NotificationComplaintCreated, hostelID, map[string]any{
			"complaintId": rec.ID(),
			"title":       rec.String("title"),
			"tenantName":  firstNonEmpty(rec.String("tenantName"), p.Name),
		})
	case enums.CollectionPayments:
		s.publish(ctx, p, enums.NotificationPaymentCreated, hostelID, map[string]any{
			"paymentId":  rec.ID(),
			"tenantId":   rec.String("tenantId"),
			"tenantName": rec.String("tenantName"),
			"amount":     rec.String("amount"),
		})
	case enums.CollectionHostelRequests:
		s.publish(ctx, p, enums.NotificationHostelRequestCreated, "", map[string]any{
			"requestId":  rec.ID(),
			"hostelName": rec.String("hostelName"),
			"name":       rec.String("name"),
		})
	case enums.CollectionNotices:
		s.publish(ctx, p, enums.NotificationNoticeCreated, hostelID, map[string]any{
			"noticeId": rec.ID(),
			"title":    rec.String("title"),
		})
	case enums.CollectionCheckoutRequests:
		s.publish(ctx, p, enums.NotificationCheckoutRequestCreated, hostelID, map[string]any{
			"requestId":  rec.ID(),
			"tenantId":   rec.String("tenantId"),
			"tenantName": firstNonEmpty(rec.String("tenantName"), p.Name),
		})
	case enums.CollectionSupportTickets:
		s.publish(ctx, p, enums.NotificationSupportTicketCreated, "", map[string]any{
			"ticketId": rec.ID(),
			"subject":  firstNonEmpty(rec.String("subject"), rec.String("title")),
			"hostelId": hostelID,
		})
	}
}

func (s *service) publishUpdated(ctx context.Context, p Principal, c enums.Collection, before, after docstore.Record) {
	switch c {
	case enums.CollectionPayments:
		if before.String("status") == enums.PaymentStatusApproved.String() ||
			after.String("status") != enums.PaymentStatusApproved.String() {
			return
		}
		s.publish(ctx, p, enums.NotificationPaymentApproved, after.HostelID(), map[string]any{
			"paymentId":    after.ID(),
			"amount":       after.String("amount"),
			"tenantUserId": s.tenantUser(ctx, after),
		})
	case enums.CollectionHostels:
		was, now := before.String("status"), after.String("status")
		if was == now {
			return
		}
		data := map[string]any{"hostelId": after.ID(), "name": after.String("name")}
		switch now {
		case enums.HostelStatusActive.String():
			s.publish(ctx, p, enums.NotificationHostelActivated, after.ID(), data)
		case enums.HostelStatusInactive.String():
			s.publish(ctx, p, enums.NotificationHostelDeactivated, after.ID(), data)
		}
	}
}

// tenantUser resolves the login account of the tenant a payment belongs to.
func (s *service) tenantUser(ctx context.Context, payment docstore.Record) string {
	if id := payment.String("userId"); id != "" {
		return id
	}
	tenantID := payment.String("tenantId")
	if tenantID == "" {
		return ""
	}
	tenant, err := s.repo.Get(ctx, enums.CollectionTenants, tenantID)
	if err != nil {
		return ""
	}
	return tenant.String("userId")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
