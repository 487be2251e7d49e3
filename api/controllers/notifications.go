package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/hostelhub-backend/api/middleware"
	"github.com/angelmondragon/hostelhub-backend/api/responses"
	"github.com/angelmondragon/hostelhub-backend/api/validators"
	"github.com/angelmondragon/hostelhub-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
)

// NotificationLog is the per-user log read by the notification endpoints.
type NotificationLog interface {
	List(userID string, unreadOnly bool) []notifications.Entry
	Unread(userID string) int
	MarkRead(userID, id string) (notifications.Entry, bool)
}

// SubscriptionStore keeps push tokens.
type SubscriptionStore interface {
	Save(sub notifications.Subscription) (notifications.Subscription, error)
	Remove(userID, token string) bool
}

type notificationList struct {
	Items  []notifications.Entry `json:"items"`
	Unread int                   `json:"unread"`
}

type subscriptionBody struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"omitempty,oneof=android ios web"`
}

type unsubscribeBody struct {
	Token string `json:"token" validate:"max=4096"`
}

// ListNotifications returns the caller's notification log, newest first.
func ListNotifications(log NotificationLog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if log == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications unavailable"))
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := middleware.UserIDFromContext(r.Context())
		items := log.List(userID, unreadOnly)
		if items == nil {
			items = []notifications.Entry{}
		}
		responses.WriteSuccess(w, notificationList{Items: items, Unread: log.Unread(userID)})
	}
}

func MarkNotificationRead(log NotificationLog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if log == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications unavailable"))
			return
		}
		id, err := idParam(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, ok := log.MarkRead(middleware.UserIDFromContext(r.Context()), id)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeNotFound, "notification '%s' not found", id))
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// CreateSubscription registers the caller's push token. Identity comes from
// the access token, never from the body.
func CreateSubscription(store SubscriptionStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "push subscriptions unavailable"))
			return
		}
		var body subscriptionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		caller := middleware.IdentityFromContext(r.Context())
		sub, err := store.Save(notifications.Subscription{
			UserID:   caller.UserID,
			Token:    body.Token,
			Platform: strings.ToLower(body.Platform),
			Role:     caller.Role,
			HostelID: caller.HostelID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subscription"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sub)
	}
}

func DeleteSubscription(store SubscriptionStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "push subscriptions unavailable"))
			return
		}
		var body unsubscribeBody
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !store.Remove(middleware.UserIDFromContext(r.Context()), body.Token) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "push subscription not found"))
			return
		}
		responses.WriteNoContent(w)
	}
}

// NewUpgrader accepts handshakes from the configured origins. A lone "*"
// accepts any origin.
func NewUpgrader(origins []string) *websocket.Upgrader {
	allowed := map[string]struct{}{}
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	_, wildcard := allowed["*"]
	return &websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || wildcard {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// WebSocket upgrades GET /api/ws?token= and attaches the connection to hub.
func WebSocket(hub *notifications.Hub, upgrader *websocket.Upgrader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil || upgrader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "realtime notifications unavailable"))
			return
		}
		caller := middleware.IdentityFromContext(r.Context())
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "websocket upgrade failed")
			return
		}
		ctx := context.WithoutCancel(r.Context())
		client := notifications.NewWebSocketClient(conn, hub, notifications.Principal{
			UserID:   caller.UserID,
			Role:     caller.Role,
			HostelID: caller.HostelID,
		}, logg)
		client.Run(ctx)
	}
}
