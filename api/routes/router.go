package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/backoffice-api/api/controllers"
	"github.com/angelmondragon/backoffice-api/api/middleware"
	"github.com/angelmondragon/backoffice-api/internal/auth"
	"github.com/angelmondragon/backoffice-api/internal/inventory"
	"github.com/angelmondragon/backoffice-api/internal/notifications"
	"github.com/angelmondragon/backoffice-api/internal/orders"
	"github.com/angelmondragon/backoffice-api/internal/payment"
	"github.com/angelmondragon/backoffice-api/internal/reports"
	"github.com/angelmondragon/backoffice-api/internal/users"
	"github.com/angelmondragon/backoffice-api/pkg/auth/session"
	"github.com/angelmondragon/backoffice-api/pkg/config"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
	"github.com/angelmondragon/backoffice-api/pkg/metrics"
)

// Store is the Redis surface used by the HTTP layer: idempotency records
// and rate-limit counters.
type Store interface {
	controllers.Pinger
	middleware.IdempotencyStore
	middleware.RateLimitStore
}

// Dependencies bundles everything the router mounts.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    Store
	Sessions session.AccessSessionChecker
	Metrics  *metrics.HTTPMetrics
	Gatherer http.Handler

	Auth          auth.Service
	Inventory     inventory.Service
	Orders        orders.Service
	Payment       payment.Service
	Reports       reports.Service
	Notifications notifications.Service
	Users         users.Service
}

func NewRouter(d Dependencies) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Metrics(d.Metrics),
	)

	loginPolicy := middleware.AuthRateLimitPolicy{
		Name:       "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		IPLimit:    cfg.AuthRateLimit.LoginIPLimit,
		EmailLimit: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerPolicy := middleware.AuthRateLimitPolicy{
		Name:       "register",
		Window:     cfg.AuthRateLimit.RegisterWindow,
		IPLimit:    cfg.AuthRateLimit.RegisterIPLimit,
		EmailLimit: cfg.AuthRateLimit.RegisterEmailLimit,
	}
	loginLimit := middleware.AuthRateLimit(loginPolicy, d.Redis, logg)
	registerLimit := middleware.AuthRateLimit(registerPolicy, d.Redis, logg)

	deps := map[string]controllers.Pinger{"db": d.DB}
	if d.Redis != nil {
		deps["redis"] = d.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", d.Gatherer)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(registerLimit).Post("/register", controllers.AuthRegister(d.Auth, enums.RoleUser, logg))
			if !cfg.App.IsProd() {
				r.With(registerLimit).Post("/register-admin", controllers.AuthRegister(d.Auth, enums.RoleAdmin, logg))
			}
			r.With(loginLimit).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
			r.With(loginLimit).Post("/forgot-password", controllers.AuthForgotPassword(d.Auth, logg))
			r.Post("/reset-password", controllers.AuthResetPassword(d.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

			admin := middleware.RequireRoles(logg, enums.RoleAdmin)
			user := middleware.RequireRoles(logg, enums.RoleUser)
			anyone := middleware.RequireRoles(logg, enums.RoleAdmin, enums.RoleUser)
			maxBody := cfg.Media.MaxUploadBytes() * 10

			r.Route("/inventory", func(r chi.Router) {
				r.With(anyone).Get("/", controllers.InventoryList(d.Inventory, logg))
				r.With(anyone).Get("/{id}", controllers.InventoryGet(d.Inventory, logg))
				r.With(admin).Post("/", controllers.InventoryCreate(d.Inventory, maxBody, logg))
				r.With(admin).Put("/{id}", controllers.InventoryUpdate(d.Inventory, maxBody, logg))
				r.With(admin).Delete("/{id}", controllers.InventoryDelete(d.Inventory, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(d.Orders, logg))
				r.With(anyone).Get("/{id}", controllers.OrdersGet(d.Orders, logg))
				r.With(anyone).Post("/", controllers.OrdersCreate(d.Orders, logg))
				r.With(user).Put("/{id}", controllers.OrdersReplace(d.Orders, logg))
				r.With(admin).Put("/{id}/status", controllers.OrdersSetStatus(d.Orders, logg))
				r.With(user).Delete("/{id}", controllers.OrdersDelete(d.Orders, logg))
			})

			r.With(anyone, middleware.Idempotency(d.Redis, cfg.Payment.IdempotencyTTL, logg)).
				Post("/payment", controllers.PaymentCheckout(d.Payment, logg))

			r.With(admin).Get("/reports", controllers.ReportsSummary(d.Reports, logg))
			r.With(admin).Get("/notifications/stock-levels", controllers.NotificationsStockLevels(d.Notifications, logg))
			r.With(admin).Get("/users", controllers.UsersList(d.Users, logg))
		})
	})

	return r
}
