package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldstock/fieldstock-backend/api/controllers"
	"github.com/fieldstock/fieldstock-backend/api/middleware"
	"github.com/fieldstock/fieldstock-backend/internal/approval"
	"github.com/fieldstock/fieldstock-backend/internal/catalog"
	"github.com/fieldstock/fieldstock-backend/internal/stock"
	"github.com/fieldstock/fieldstock-backend/internal/usage"
	"github.com/fieldstock/fieldstock-backend/pkg/config"
	"github.com/fieldstock/fieldstock-backend/pkg/enums"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/redis"
)

// Deps bundles the services and infrastructure handles the router wires up.
type Deps struct {
	Redis    *redis.Client
	DB       controllers.Pinger
	PubSub   controllers.Pinger
	BigQuery controllers.Pinger

	Catalog  catalog.Service
	Stock    stock.Service
	Usage    usage.Service
	Approval approval.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	redisPinger := controllers.NamedPinger{Name: "redis"}
	if deps.Redis != nil {
		redisPinger.Pinger = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.NamedPinger{Name: "db", Pinger: deps.DB},
			redisPinger,
			controllers.NamedPinger{Name: "pubsub", Pinger: deps.PubSub},
			controllers.NamedPinger{Name: "bigquery", Pinger: deps.BigQuery},
		))
	})

	r.Handle("/metrics", promhttp.Handler())

	technician := string(enums.RoleTechnician)
	reviewer := string(enums.RoleReviewer)
	admin := string(enums.RoleAdmin)

	// a nil *redis.Client must reach the middleware as a nil interface
	var idemStore redis.IdempotencyStore
	if deps.Redis != nil {
		idemStore = deps.Redis
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", controllers.CatalogList(deps.Catalog, logg))
			r.Get("/{id}", controllers.CatalogGet(deps.Catalog, logg))
			r.With(middleware.RequireRole(logg, admin)).Post("/", controllers.CatalogCreate(deps.Catalog, logg))
			r.With(middleware.RequireRole(logg, admin)).Put("/{id}", controllers.CatalogUpdate(deps.Catalog, logg))
		})

		r.Route("/holdings", func(r chi.Router) {
			r.Get("/{itemID}", controllers.HoldingGet(deps.Stock, logg))
			r.Get("/{itemID}/events", controllers.HoldingEvents(deps.Stock, logg))
			r.With(middleware.RequireRole(logg, admin)).Post("/{itemID}/restock", controllers.HoldingRestock(deps.Stock, logg))
		})

		r.Route("/usage", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, technician)).Post("/", controllers.UsageCreate(deps.Usage, logg))
			r.Get("/", controllers.UsageList(deps.Usage, logg))
			r.Get("/{id}", controllers.UsageGet(deps.Usage, logg))
		})

		r.Route("/approvals", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, reviewer, admin)).Post("/{usageRecordID}/decision", controllers.ApprovalDecide(deps.Approval, logg))
			r.Get("/{usageRecordID}/decision", controllers.ApprovalGet(deps.Approval, logg))
		})
	})

	return r
}
