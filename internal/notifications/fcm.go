package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/hostelhub-backend/pkg/config"
	"github.com/angelmondragon/hostelhub-backend/pkg/gcp"
	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const clickAction = "FLUTTER_NOTIFICATION_CLICK"

// FCMPusher sends messages through the Firebase Cloud Messaging v1 API.
type FCMPusher struct {
	svc    *fcm.Service
	parent string
}

// NewFCMPusher builds the FCM client from the GCP credentials. Extra options
// are appended after the credential options.
func NewFCMPusher(ctx context.Context, cfg config.GCPConfig, extra ...option.ClientOption) (*FCMPusher, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("gcp project id is required for fcm")
	}
	opts := append(gcp.ClientOptions(cfg), extra...)
	svc, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating fcm service: %w", err)
	}
	return &FCMPusher{svc: svc, parent: "projects/" + projectID}, nil
}

func (p *FCMPusher) Push(ctx context.Context, sub Subscription, msg Message) error {
	data := map[string]string{
		"type":           msg.Event.String(),
		"notificationId": msg.ID,
		"click_action":   clickAction,
	}
	for k, v := range msg.Data {
		if v == nil {
			continue
		}
		data[k] = fmt.Sprint(v)
	}
	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token:        sub.Token,
			Notification: &fcm.Notification{Title: msg.Title, Body: msg.Body},
			Data:         data,
			Android: &fcm.AndroidConfig{
				Priority: "HIGH",
				Notification: &fcm.AndroidNotification{
					Sound:     "default",
					ChannelId: "default",
				},
			},
		},
	}
	if _, err := p.svc.Projects.Messages.Send(p.parent, req).Context(ctx).Do(); err != nil {
		if isGone(err) {
			return fmt.Errorf("%w: %v", ErrSubscriptionGone, err)
		}
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr == nil {
		return false
	}
	if apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone {
		return true
	}
	return strings.Contains(apiErr.Body, "UNREGISTERED") || strings.Contains(apiErr.Message, "UNREGISTERED")
}
