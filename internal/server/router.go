package server

import (
	"net/http"

	"github.com/merchstats/reportgate/internal/auth"
	"github.com/merchstats/reportgate/internal/config"
	gatemiddleware "github.com/merchstats/reportgate/internal/middleware"
	"github.com/merchstats/reportgate/internal/ratelimit"
	"github.com/merchstats/reportgate/internal/reports"
	"github.com/merchstats/reportgate/internal/services/iam"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions controls the construction of the reporting gateway router.
type RouterOptions struct {
	Reports     *reports.Service
	Verifier    auth.Verifier
	Resolver    *iam.Resolver
	Limiter     *ratelimit.Limiter
	Cfg         *config.Config
	CORSOptions *cors.Options
	Middleware  []func(http.Handler) http.Handler
}

// DefaultCORSOptions returns the CORS policy for the given origins. An empty
// origin list falls back to the development defaults.
func DefaultCORSOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = config.DefaultAllowedOrigins
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"apikey",
			gatemiddleware.SecretHeader,
		},
		AllowCredentials: true,
		MaxAge:           300,
		// Preflight falls through to the OPTIONS short-circuit below so
		// every OPTIONS answers 204 with CORS headers applied.
		OptionsPassthrough: true,
	}
}

// optionsShortCircuit terminates every OPTIONS request with 204 after the
// CORS middleware has applied its headers.
func optionsShortCircuit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, and
// the reporting handlers mounted. The router can be tailored via RouterOptions
// for CLI usage, tests, or other entrypoints.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(gatemiddleware.Recoverer)

	corsCfg := DefaultCORSOptions(nil)
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	} else if opts.Cfg != nil {
		corsCfg = DefaultCORSOptions(opts.Cfg.AllowedOrigins)
	}
	r.Use(cors.Handler(corsCfg))
	r.Use(optionsShortCircuit)

	// The shared secret, when configured, gates every non-preflight
	// request before authentication is attempted.
	secret := ""
	if opts.Cfg != nil {
		secret = opts.Cfg.ReportingSecret
	}
	r.Use(gatemiddleware.InternalSecret(secret))

	// Apply custom middleware passed from the caller.
	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	handlers := NewReportHandlers(opts.Reports)

	r.Route("/reporting", func(r chi.Router) {
		r.Get("/", handlers.HandleSchema)
		r.Get("/status", handlers.HandleStatus)

		r.Group(func(r chi.Router) {
			r.Use(gatemiddleware.Authenticator(opts.Verifier))
			r.Use(gatemiddleware.RequireAdmin(opts.Resolver))
			r.Use(gatemiddleware.RateLimit(opts.Limiter))

			r.Post("/", handlers.HandleGenerate)
			r.Post("/generate", handlers.HandleGenerate)
		})
	})

	r.Get("/health", defaultHealthHandler)

	// Unmatched method/path combinations answer with the JSON contract.
	r.MethodNotAllowed(notFoundHandler)
	r.NotFound(notFoundHandler)

	return r
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	gatemiddleware.WriteError(w, http.StatusNotFound, "not_found")
}
