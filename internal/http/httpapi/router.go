package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"lifelink/internal/auth"
	"lifelink/internal/http/handlers"
	"lifelink/internal/infra"
	"lifelink/internal/middleware"
)

// Options carries the middleware settings of the router.
type Options struct {
	Logger          infra.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	// TrustProxyHeaders lets X-Forwarded-For and X-Real-IP replace the
	// remote address. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)
	r.NotFound(app.NotFound)
	r.MethodNotAllowed(app.MethodNotAllowed)

	limited := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Route("/auth", func(r chi.Router) {
		r.Use(limited)
		r.Post("/register", app.Register)
		r.Post("/login", app.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(app.Auth))
		r.Get("/me", app.Me)
		r.With(middleware.RequireAction(app.Auth, auth.ActionDonate)).Post("/donate", app.Donate)
		r.With(middleware.RequireAction(app.Auth, auth.ActionDispatch)).Post("/dispatch", app.Dispatch)
		r.With(middleware.RequireAction(app.Auth, auth.ActionAudit)).Get("/auditTrail", app.AuditTrail)
		r.With(middleware.RequireAction(app.Auth, auth.ActionAudit)).Get("/audit-trail", app.AuditTrail)
	})

	r.Get("/verifyRecord/{id}", app.VerifyRecord)
	r.Get("/generateQR/{id}", app.GenerateQR)
	r.Get("/public/stats", app.PublicStats)
	r.Get("/statistics", app.Statistics)
	r.Get("/map/dispatches", app.MapDispatches)

	r.With(limited, middleware.I18N(opts.DefaultLocale, opts.CountryLookup)).Post("/feedback", app.SubmitFeedback)

	return r
}
