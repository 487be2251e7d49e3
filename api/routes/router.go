package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/hostelhub-backend/api/controllers"
	"github.com/angelmondragon/hostelhub-backend/api/middleware"
	"github.com/angelmondragon/hostelhub-backend/internal/auth"
	"github.com/angelmondragon/hostelhub-backend/internal/complaints"
	"github.com/angelmondragon/hostelhub-backend/internal/entities"
	"github.com/angelmondragon/hostelhub-backend/internal/notifications"
	"github.com/angelmondragon/hostelhub-backend/internal/provisioning"
	"github.com/angelmondragon/hostelhub-backend/pkg/config"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/angelmondragon/hostelhub-backend/pkg/metrics"
)

// Dependencies are the services mounted by NewRouter. Optional members may be
// nil; their routes then answer INTERNAL_ERROR.
type Dependencies struct {
	Entities      entities.Service
	Complaints    complaints.Service
	Approvals     provisioning.ApprovalService
	Auth          auth.Service
	Hub           *notifications.Hub
	Log           *notifications.Log
	Subscriptions *notifications.SubscriptionRegistry
	RateStore     middleware.RateLimiterStore
	Pingers       map[string]controllers.Pinger
	HTTPMetrics   *metrics.HTTPMetrics
	Gatherer      prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	rateStore := deps.RateStore
	if rateStore == nil {
		rateStore = middleware.NewMemoryRateStore()
	}
	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/auth/login", controllers.AuthLogin(deps.Auth, logg))

		r.With(middleware.QueryTokenAuth(cfg.JWT, logg)).Get("/ws", controllers.WebSocket(deps.Hub, controllers.NewUpgrader(cfg.App.AllowedOrigins()), logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(logOrNil(deps.Log), logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(logOrNil(deps.Log), logg))
				r.Post("/subscriptions", controllers.CreateSubscription(registryOrNil(deps.Subscriptions), logg))
				r.Delete("/subscriptions", controllers.DeleteSubscription(registryOrNil(deps.Subscriptions), logg))
			})

			r.Get("/payments/summary", controllers.PaymentSummary(deps.Entities, logg))
			r.Post("/complaints/{id}/status", controllers.ComplaintStatus(deps.Complaints, logg))
			r.Post("/complaints/{id}/comments", controllers.ComplaintComment(deps.Complaints, logg))
			r.With(middleware.RequireRoles(logg, enums.RoleMasterAdmin, enums.RoleAdmin)).
				Post("/users/{id}/unlock", controllers.UnlockUser(deps.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, enums.RoleMasterAdmin))
				r.Post("/hostelRequests/{id}/approve", controllers.ApproveHostelRequest(deps.Approvals, logg))
				r.Post("/hostelRequests/{id}/reject", controllers.RejectHostelRequest(deps.Approvals, logg))
			})
		})

		// Generic collection CRUD. Anonymous callers reach the service, which
		// only admits them for hostel request submissions.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Get("/{collection}", controllers.ListRecords(deps.Entities, logg))
			r.Post("/{collection}", controllers.CreateRecord(deps.Entities, logg))
			r.Get("/{collection}/{id}", controllers.GetRecord(deps.Entities, logg))
			r.Put("/{collection}/{id}", controllers.UpdateRecord(deps.Entities, logg))
			r.Patch("/{collection}/{id}", controllers.UpdateRecord(deps.Entities, logg))
			r.Delete("/{collection}/{id}", controllers.DeleteRecord(deps.Entities, logg))
		})
	})

	return r
}

// Typed nil pointers would defeat the nil checks in the controllers.
func logOrNil(l *notifications.Log) controllers.NotificationLog {
	if l == nil {
		return nil
	}
	return l
}

func registryOrNil(r *notifications.SubscriptionRegistry) controllers.SubscriptionStore {
	if r == nil {
		return nil
	}
	return r
}
