// Package api exposes the data mart over HTTP: token issue, product lookup, headline
// KPIs and the dynamic query endpoint.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"datamart/internal/auth"
	"datamart/internal/kpi"
	"datamart/internal/products"
	"datamart/internal/query"
)

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*auth.Token, error)
	Resolve(ctx context.Context, token string) (*auth.Identity, error)
}

type QueryRunner interface {
	Run(ctx context.Context, req query.Request) ([]query.Row, error)
}

type ProductFinder interface {
	Get(ctx context.Context, code string) (*products.Product, error)
}

type KPIProvider interface {
	General(ctx context.Context) (*kpi.Gerais, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Auth     Authenticator
	Query    QueryRunner
	Products ProductFinder
	KPIs     KPIProvider

	CORSOrigins []string
	LoginLimit  RateLimitConfig
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool
}

type handler struct {
	deps Deps
}

func NewRouter(deps Deps) http.Handler {
	h := &handler{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if deps.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)

	r.Group(func(r chi.Router) {
		if deps.LoginLimit.RequestsPerSecond > 0 {
			r.Use(rateLimiter(deps.LoginLimit))
		}
		r.Post("/token", h.token)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(requireAuth(deps.Auth))
		r.Get("/products/{code}", h.product)
		r.Get("/kpis/gerais", h.kpis)
		r.Post("/query", h.query)
	})

	return r
}
