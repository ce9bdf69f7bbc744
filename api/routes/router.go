package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smartcanteen/canteen-backend/api/controllers"
	ordercontrollers "github.com/smartcanteen/canteen-backend/api/controllers/orders"
	"github.com/smartcanteen/canteen-backend/api/middleware"
	"github.com/smartcanteen/canteen-backend/internal/auth"
	"github.com/smartcanteen/canteen-backend/pkg/config"
	"github.com/smartcanteen/canteen-backend/pkg/logger"
	"github.com/smartcanteen/canteen-backend/pkg/metrics"
)

// Cache is the Redis surface the HTTP layer needs.
type Cache interface {
	controllers.Pinger
	middleware.IdempotencyStore
	middleware.RateLimiter
}

// Dependencies groups everything NewRouter mounts.
type Dependencies struct {
	DB       controllers.Pinger
	Cache    Cache
	Registry *prometheus.Registry

	Auth          auth.Service
	Users         controllers.ProfileReader
	Catalog       controllers.CatalogService
	Inventory     controllers.InventoryService
	Orders        ordercontrollers.Service
	Payments      controllers.PaymentRecorder
	Notifications controllers.NotificationInbox
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	var httpMetrics *metrics.HTTPMetrics
	if deps.Registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(deps.Registry)
	}

	r.Use(
		middleware.Recoverer(logg),
		chimw.RealIP,
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var (
		store   middleware.IdempotencyStore
		limiter middleware.RateLimiter
	)
	ready := map[string]controllers.Pinger{}
	if deps.DB != nil {
		ready["database"] = deps.DB
	}
	if deps.Cache != nil {
		store, limiter = deps.Cache, deps.Cache
		ready["redis"] = deps.Cache
	}

	loginPolicy := middleware.LoginRateLimitPolicy{
		Window:     cfg.AuthRateLimit.LoginWindow,
		IPLimit:    cfg.AuthRateLimit.LoginIPLimit,
		EmailLimit: cfg.AuthRateLimit.LoginEmailLimit,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})
	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.LoginRateLimit(loginPolicy, limiter, logg)).Post("/auth/login", controllers.AuthLogin(deps.Auth, logg))

		r.Get("/menu", controllers.ListMenu(deps.Catalog, logg))
		r.Get("/menu/{menuItemId}", controllers.GetMenuItem(deps.Catalog, logg))
		r.Get("/tags", controllers.ListTags(deps.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(store, logg))

			r.Get("/me", controllers.Me(deps.Users, logg))

			r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
			r.Post("/orders", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Patch("/orders/{orderId}", ordercontrollers.UpdateStatus(deps.Orders, logg))
			r.Post("/orders/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			r.Get("/orders/{orderId}/payments/latest", ordercontrollers.LatestPayment(deps.Orders, logg))

			r.Get("/notifications", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))

				r.Post("/payments", controllers.RecordPayment(deps.Payments, logg))
				r.Patch("/tags/{tagId}", controllers.UpdateTag(deps.Catalog, logg))
				r.Get("/inventory/{menuItemId}", controllers.GetStock(deps.Inventory, logg))
				r.Put("/inventory/{menuItemId}/restock", controllers.Restock(deps.Inventory, logg))
			})
		})
	})

	return r
}
