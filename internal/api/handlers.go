package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/neexbeast/takeabreak/internal/gemini"
	"github.com/neexbeast/takeabreak/internal/location"
	"github.com/neexbeast/takeabreak/internal/profile"
	"github.com/neexbeast/takeabreak/internal/session"
)

// Deps are the services behind the handlers.
type Deps struct {
	Catalog  *location.Catalog
	Sessions SessionStore
	Chat     ChatService
	Vibes    VibeService
	Avatars  AvatarUploader
}

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	catalog  *location.Catalog
	sessions SessionStore
	chat     ChatService
	vibes    VibeService
	avatars  AvatarUploader
	validate *validator.Validate
	log      *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(deps Deps, log *slog.Logger) *Handlers {
	return &Handlers{
		catalog:  deps.Catalog,
		sessions: deps.Sessions,
		chat:     deps.Chat,
		vibes:    deps.Vibes,
		avatars:  deps.Avatars,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into dst and validates it.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// currentSession returns the caller's session, keyed by user ID.
func (h *Handlers) currentSession(r *http.Request) (*session.Session, profile.User) {
	user, _ := UserFrom(r.Context())
	return h.sessions.Get(user.ID), user
}

type locationDetail struct {
	Location      location.Location `json:"location"`
	DirectionsURL string            `json:"directions_url"`
}

func detail(loc location.Location) locationDetail {
	return locationDetail{Location: loc, DirectionsURL: loc.DirectionsURL()}
}

// lookup resolves the {name} path parameter against the catalog, writing 404 on a miss.
func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (location.Location, bool) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	loc, ok := h.catalog.ByName(name)
	if !ok {
		writeError(w, http.StatusNotFound, "location not found")
	}
	return loc, ok
}

type locationQuery struct {
	Search    string   `validate:"max=200"`
	City      string   `validate:"max=200"`
	MinRating *float64 `validate:"omitempty,gte=0,lte=5"`
}

// ListLocations handles GET /api/v1/locations?q=&city=&min_rating=.
// Groups are included when no single city is selected.
func (h *Handlers) ListLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := locationQuery{Search: q.Get("q"), City: q.Get("city")}

	if raw := q.Get("min_rating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_rating must be a number")
			return
		}
		query.MinRating = &v
	}
	if err := h.validate.Struct(query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := location.Apply(h.catalog.All(), location.Criteria{
		Search:    query.Search,
		City:      query.City,
		MinRating: query.MinRating,
	})
	writeJSON(w, http.StatusOK, result)
}

// GetLocation handles GET /api/v1/locations/{name}.
func (h *Handlers) GetLocation(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, detail(loc))
}

// ListCities handles GET /api/v1/cities.
func (h *Handlers) ListCities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"cities": h.catalog.Cities()})
}

// GetVibe handles GET /api/v1/locations/{name}/vibe.
// ?refresh=true discards the cached vibe first.
func (h *Handlers) GetVibe(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.lookup(w, r)
	if !ok {
		return
	}

	get := h.vibes.Get
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		get = h.vibes.Refresh
	}

	text, err := get(r.Context(), loc)
	if err != nil {
		h.log.Error("vibe failed", "name", loc.Name, "err", err)
		if errors.Is(err, gemini.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "vibe generation unavailable")
			return
		}
		writeError(w, http.StatusBadGateway, "failed to generate vibe")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"name": loc.Name, "vibe": text})
}

// WarmVibes handles POST /api/v1/locations/vibes/warm.
// Individual failures are logged by the vibe service and only lower the ready count.
func (h *Handlers) WarmVibes(w http.ResponseWriter, r *http.Request) {
	records := h.catalog.All()
	ready, err := h.vibes.WarmAll(r.Context(), records)
	if err != nil {
		h.log.Error("vibe warm-up failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to warm vibes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"ready": ready, "total": len(records)})
}

// HealthHandlerFunc returns an http.HandlerFunc that checks redis and, when configured, db connectivity.
func HealthHandlerFunc(db, redis Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "disabled"
		redisStatus := "ok"

		if db != nil {
			dbStatus = "ok"
			if err := db.Ping(ctx); err != nil {
				log.Error("health check: db ping failed", "err", err)
				dbStatus = "error"
				status = http.StatusServiceUnavailable
			}
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", "err", err)
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
