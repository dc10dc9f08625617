package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// RouterDeps are the cross-cutting dependencies of the router.
type RouterDeps struct {
	Verifier TokenVerifier
	Redis    Pinger
	DB       Pinger // nil when the catalog is file-backed
	Metrics  MetricsCollector
	Log      *slog.Logger
}

// NewRouter builds and returns the Chi router with all routes configured.
// Health and metrics are unauthenticated; everything else requires a verified bearer token.
// Rate limiting is applied globally: 60 requests per minute per IP.
func NewRouter(handlers *Handlers, deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(60, time.Minute))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Get("/api/v1/health", HealthHandlerFunc(deps.DB, deps.Redis, deps.Log))

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(deps.Verifier, deps.Log))

		r.Get("/api/v1/locations", handlers.ListLocations)
		r.Post("/api/v1/locations/vibes/warm", handlers.WarmVibes)
		r.Get("/api/v1/locations/{name}", handlers.GetLocation)
		r.Get("/api/v1/locations/{name}/vibe", handlers.GetVibe)
		r.Get("/api/v1/cities", handlers.ListCities)

		r.Post("/api/v1/chat/messages", handlers.PostMessage)
		r.Get("/api/v1/chat/transcript", handlers.GetTranscript)

		r.Get("/api/v1/state", handlers.GetState)
		r.Put("/api/v1/state/mode", handlers.PutMode)
		r.Put("/api/v1/state/user-location", handlers.PutUserLocation)
		r.Post("/api/v1/state/recommendation/consume", handlers.ConsumeRecommendation)
		r.Delete("/api/v1/state/recommendation", handlers.ClearRecommendation)

		r.Get("/api/v1/profile", handlers.GetProfile)
		r.Post("/api/v1/profile/avatar", handlers.UploadAvatar)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
