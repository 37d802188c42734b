package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/crm-sync/internal/infra/http/handlers"
	"github.com/xavierca1/crm-sync/internal/infra/http/middleware"
)

type Handlers struct {
	User    *handlers.UserHandler
	Sync    *handlers.SyncHandler
	Webhook *handlers.WebhookHandler
	Health  *handlers.HealthHandler
	Debug   *handlers.DebugHandler
	CRM     *handlers.CRMHandler

	AllowedOrigins []string
	SyncRateLimit  int
}

func New(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)

	origins := h.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", h.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.User.Create)
		r.Get("/", h.User.List)
		r.Get("/{id}", h.User.Get)
	})

	limit := h.SyncRateLimit
	if limit <= 0 {
		limit = 10
	}
	r.With(middleware.NewRateLimiter(limit, time.Minute).Middleware).Post("/sync", h.Sync.Handle)
	r.Post("/webhook", h.Webhook.Handle)

	if h.Debug != nil {
		r.Get("/debug/db-info", h.Debug.DBInfo)
	}

	if h.CRM != nil {
		r.Route("/crm", func(r chi.Router) {
			r.Post("/token", h.CRM.Token)
			r.Group(func(r chi.Router) {
				r.Use(middleware.BearerAuth(h.CRM.Store.ValidToken))
				r.Post("/users", h.CRM.CreateUser)
				r.Get("/users/{crmId}", h.CRM.GetUser)
			})
		})
	}

	return r
}
