package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/agroclima/internal/meteo"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
	healthTimeout       = 3 * time.Second
)

// Handlers serves the weather routes. cache and repo may be nil, in which case
// caching and the observation log are skipped.
type Handlers struct {
	fetcher WeatherFetcher
	cache   WeatherCache
	repo    ObservationRepo
	metrics *Metrics
	log     *slog.Logger
}

// NewHandlers constructs Handlers. A nil metrics gets a private registry.
func NewHandlers(fetcher WeatherFetcher, cache WeatherCache, repo ObservationRepo, metrics *Metrics, log *slog.Logger) *Handlers {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Handlers{fetcher: fetcher, cache: cache, repo: repo, metrics: metrics, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// cityParam returns the trimmed {city} path segment. chi matches on RawPath when
// the request carries one, so only then is the segment still escaped.
func cityParam(r *http.Request) string {
	city := chi.URLParam(r, "city")
	if r.URL.RawPath != "" {
		if dec, err := url.PathUnescape(city); err == nil {
			city = dec
		}
	}
	return strings.TrimSpace(city)
}

// Refresh fetches city upstream, replaces its cache entry and records an
// observation. Cache and log failures are logged but do not fail the refresh.
func (h *Handlers) Refresh(ctx context.Context, city string) (*meteo.CityWeather, error) {
	start := time.Now()
	cw, err := h.fetcher.Lookup(ctx, city)
	h.metrics.observeUpstream(start)
	if err != nil {
		if errors.Is(err, meteo.ErrCityNotFound) {
			h.metrics.countLookup(OutcomeNotFound)
		} else {
			h.metrics.countLookup(OutcomeError)
		}
		return nil, err
	}
	h.metrics.countLookup(OutcomeFetched)

	if h.cache != nil {
		if err := h.cache.Set(ctx, city, cw); err != nil {
			h.log.Warn("cache set failed", "city", city, "err", err)
		}
	}
	if h.repo != nil {
		if err := h.repo.RecordObservation(ctx, city, *cw); err != nil {
			h.log.Warn("recording observation failed", "city", city, "err", err)
		}
	}
	return cw, nil
}

// writeLookupError maps a Refresh error to 404 or 503.
func (h *Handlers) writeLookupError(w http.ResponseWriter, city string, err error) {
	switch {
	case errors.Is(err, meteo.ErrCityNotFound):
		writeDetail(w, http.StatusNotFound, "City '"+city+"' not found.")
	case errors.Is(err, meteo.ErrLocationUnavailable):
		h.log.Error("geocoding failed", "city", city, "err", err)
		writeDetail(w, http.StatusServiceUnavailable, "Location service unavailable")
	default:
		h.log.Error("weather lookup failed", "city", city, "err", err)
		writeDetail(w, http.StatusServiceUnavailable, "Weather service unavailable")
	}
}

// GetWeather handles GET /weather/{city}: cache hit, otherwise a fresh lookup.
func (h *Handlers) GetWeather(w http.ResponseWriter, r *http.Request) {
	city := cityParam(r)
	if city == "" {
		writeDetail(w, http.StatusBadRequest, "city must not be empty")
		return
	}

	if h.cache != nil {
		cached, err := h.cache.Get(r.Context(), city)
		if err != nil {
			h.log.Warn("cache get failed", "city", city, "err", err)
		}
		if cached != nil {
			h.log.Debug("cache hit", "city", city)
			h.metrics.countLookup(OutcomeCacheHit)
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	cw, err := h.Refresh(r.Context(), city)
	if err != nil {
		h.writeLookupError(w, city, err)
		return
	}
	writeJSON(w, http.StatusOK, cw)
}

// RefreshWeather handles POST /weather/{city}/refresh.
func (h *Handlers) RefreshWeather(w http.ResponseWriter, r *http.Request) {
	city := cityParam(r)
	if city == "" {
		writeDetail(w, http.StatusBadRequest, "city must not be empty")
		return
	}

	if h.cache != nil {
		if err := h.cache.Delete(r.Context(), city); err != nil {
			h.log.Warn("cache delete failed", "city", city, "err", err)
		}
	}

	cw, err := h.Refresh(r.Context(), city)
	if err != nil {
		h.writeLookupError(w, city, err)
		return
	}
	writeJSON(w, http.StatusOK, cw)
}

// History handles GET /weather/{city}/history?limit=N.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	city := cityParam(r)
	if city == "" {
		writeDetail(w, http.StatusBadRequest, "city must not be empty")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeDetail(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	obs, err := h.repo.RecentObservations(r.Context(), city, limit)
	if err != nil {
		h.log.Error("history query failed", "city", city, "err", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

// HealthHandlerFunc pings every named dependency. Any failure reports 503 "degraded".
func HealthHandlerFunc(deps map[string]Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		body := map[string]string{"status": "ok"}
		status := http.StatusOK
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				log.Error("health check failed", "dependency", name, "err", err)
				body[name] = "error"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "ok"
		}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		writeJSON(w, status, body)
	}
}
