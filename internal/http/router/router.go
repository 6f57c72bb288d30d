package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/agenthive/auth-service/internal/http/handler"
	"github.com/agenthive/auth-service/internal/http/middleware"
	"github.com/agenthive/auth-service/internal/security"
)

// Dependencies carries everything the router needs to assemble the route
// tree. The caller owns construction and lifecycle of each component.
type Dependencies struct {
	Auth           *handler.AuthHandler
	TokenSigner    *security.TokenSigner
	Classifier     *security.TokenErrorClassifier
	AuthRateLimit  int
	EnableOTelHTTP bool
}

func New(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	authLimiter := middleware.NewRateLimiter(deps.AuthRateLimit, time.Minute)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Use(authLimiter.Middleware())
			auth.Post("/signup", deps.Auth.Signup)
			auth.Post("/signin", deps.Auth.Signin)
		})

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.BearerAuth(deps.TokenSigner, deps.Classifier))
			protected.Get("/me", deps.Auth.Me)
		})
	})

	if deps.EnableOTelHTTP {
		return otelhttp.NewHandler(r, "auth-service.http")
	}
	return r
}
