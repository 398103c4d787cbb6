package router

import (
	"net/http"

	"candlestand-api/internal/handler"
	"candlestand-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Config holds the configuration for creating a router.
type Config struct {
	Logger          *zap.Logger
	CORSOrigins     []string
	Handler         *handler.Handler
	StandHandler    *handler.StandHandler
	AdminHandler    *handler.AdminHandler
	AdminMiddleware func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.NewRecovery(log))
	r.Use(middleware.NewRequestID(log))
	r.Use(middleware.NewLogging(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader, middleware.LoginKeyHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	// Stand firmware endpoints, kept at the root where deployed stands call them
	if cfg.StandHandler != nil {
		r.Get("/test", cfg.StandHandler.Test)
		r.Get("/startup", cfg.StandHandler.Startup)
		r.Get("/alive", cfg.StandHandler.Alive)
		r.Get("/confirm", cfg.StandHandler.Confirm)
	}

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.StandHandler != nil {
			r.Route("/stands/{serial}", func(r chi.Router) {
				r.Get("/", cfg.StandHandler.GetStand)
				r.Post("/payments", cfg.StandHandler.CreatePayment)
			})
		}

		if cfg.AdminHandler != nil {
			r.Group(func(r chi.Router) {
				if cfg.AdminMiddleware != nil {
					r.Use(cfg.AdminMiddleware)
				}
				r.Get("/admin/stats", cfg.AdminHandler.GetStats)
			})
		}
	})

	return r
}
