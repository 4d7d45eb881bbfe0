// internal/routes/routes.go
package routes

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"packshop/internal/config"
	"packshop/internal/handlers"
	"packshop/internal/metrics"
	"packshop/internal/middleware"
	"packshop/internal/repository"
	"packshop/internal/services"
)

// Dependencies are the collaborators the router is built from. Logger,
// Mailer and Registry fall back to no-op or fresh values when nil; Images
// may stay nil, which disables uploads.
type Dependencies struct {
	DB       *sqlx.DB
	Config   *config.Config
	Logger   *zap.Logger
	Mailer   services.EmailSender
	Images   services.ImageStore
	Registry *prometheus.Registry
}

func SetupRoutes(deps Dependencies) *chi.Mux {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	mailer := deps.Mailer
	if mailer == nil {
		mailer = services.NewLogSender(log)
	}
	verbose := !cfg.IsProduction()

	collector := metrics.NewCollector(registry)
	users := repository.NewUserRepository(deps.DB)
	hasher := services.NewBcryptHasher(cfg.BcryptCost)
	issuer := services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)
	accounts := services.NewAccountService(users, hasher, issuer, log)
	resets := services.NewPasswordResetService(services.PasswordResetDeps{
		Users:    users,
		Resets:   repository.NewPasswordResetRepository(deps.DB),
		Hasher:   hasher,
		Mailer:   mailer,
		Composer: &services.ResetEmailComposer{AppName: cfg.AppName, FrontendURL: cfg.FrontendURL},
		TTL:      cfg.PasswordResetTTL,
		Logger:   log,
		Events:   collector,
	})

	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log, collector))
	r.Use(middleware.Recoverer(log))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	health := handlers.NewHealthHandler(deps.DB, cfg.AppName)
	r.Get("/", health.Root)
	r.Get("/health", health.Health)

	RegisterMetricsRoutes(r, registry)
	RegisterSwaggerRoutes(r)

	r.Route("/api", func(r chi.Router) {
		RegisterAuthRoutes(r, handlers.NewAuthHandler(accounts, log, verbose), accounts)
		RegisterPasswordRoutes(r, handlers.NewPasswordHandler(resets, log, verbose), accounts)
		RegisterPackRoutes(r, handlers.NewPackHandler(repository.NewPackRepository(deps.DB), deps.Images, log, verbose), accounts)
	})

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return []string{"http://localhost:3000"}
	}
	return []string{cfg.FrontendURL}
}
