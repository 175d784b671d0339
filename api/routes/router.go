package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mercadito-app/mercadito-backend/api/controllers"
	"github.com/mercadito-app/mercadito-backend/api/middleware"
	"github.com/mercadito-app/mercadito-backend/internal/auth"
	"github.com/mercadito-app/mercadito-backend/internal/catalog"
	checkoutsvc "github.com/mercadito-app/mercadito-backend/internal/checkout"
	"github.com/mercadito-app/mercadito-backend/internal/devices"
	"github.com/mercadito-app/mercadito-backend/internal/lists"
	"github.com/mercadito-app/mercadito-backend/internal/scan"
	"github.com/mercadito-app/mercadito-backend/pkg/auth/session"
	"github.com/mercadito-app/mercadito-backend/pkg/config"
	"github.com/mercadito-app/mercadito-backend/pkg/db"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
	"github.com/mercadito-app/mercadito-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	SessionChecker  session.AccessSessionChecker
	AuthService     auth.Service
	CatalogService  catalog.Service
	ListService     lists.Service
	ScanService     scan.Service
	CheckoutService checkoutsvc.Service
	DeviceService   devices.Service
	MetricsRegistry *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Redis, logg))
		r.Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
	})

	// the shelf display authenticates with the shared device token, not a
	// user session
	r.Route("/api/device/v1", func(r chi.Router) {
		r.Use(middleware.DeviceToken(cfg.Device, logg))
		r.Get("/state", controllers.DeviceState(deps.DeviceService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.CatalogService, logg))
			r.Get("/barcode/{barcode}", controllers.ProductByBarcode(deps.CatalogService, logg))
		})

		r.Route("/lists", func(r chi.Router) {
			r.Get("/", controllers.ListIndex(deps.ListService, logg))
			r.Post("/", controllers.ListCreate(deps.ListService, logg))

			r.Route("/{listId}", func(r chi.Router) {
				r.Get("/", controllers.ListDetail(deps.ListService, logg))
				r.Delete("/", controllers.ListDelete(deps.ListService, logg))
				r.Post("/clear", controllers.ListClear(deps.ListService, logg))

				r.Route("/items", func(r chi.Router) {
					r.Post("/", controllers.ItemAdd(deps.ListService, logg))
					r.Put("/{itemId}/quantity", controllers.ItemSetQuantity(deps.ListService, logg))
					r.Post("/{itemId}/toggle", controllers.ItemToggle(deps.ListService, logg))
					r.Delete("/{itemId}", controllers.ItemRemove(deps.ListService, logg))
				})

				r.Post("/scan", controllers.ScanResolve(deps.ScanService, logg))

				r.Get("/total", controllers.CheckoutTotal(deps.ListService, logg))
				r.Post("/checkout", controllers.CheckoutBegin(deps.CheckoutService, logg))
				r.Get("/checkout", controllers.CheckoutStatus(deps.CheckoutService, logg))
				r.Delete("/checkout", controllers.CheckoutCancel(deps.CheckoutService, logg))
			})
		})

		r.Put("/device/active-list", controllers.DeviceSetActiveList(deps.DeviceService, logg))
		r.Delete("/device/active-list", controllers.DeviceUnlink(deps.DeviceService, logg))
	})

	return r
}
