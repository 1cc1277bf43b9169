package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/cryptorank/internal/api/handlers"
	"github.com/wonny/cryptorank/pkg/logger"
	"github.com/wonny/cryptorank/pkg/redis"
)

// RouterDeps are the collaborators of the router. Limiter and Gatherer may be nil.
type RouterDeps struct {
	Ranking     *handlers.RankingHandler
	Limiter     *redis.RateLimiter
	MutationCap int // mutations per client per minute
	Gatherer    prometheus.Gatherer
	Logger      *logger.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()
	h := deps.Ranking

	// Health check
	r.HandleFunc("/health", healthCheckHandler(h)).Methods(http.MethodGet)

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	// Read endpoints
	api.HandleFunc("/catalog", h.GetCatalog).Methods(http.MethodGet)
	api.HandleFunc("/ranking", h.GetRanking).Methods(http.MethodGet)
	api.HandleFunc("/pool", h.GetPool).Methods(http.MethodGet)

	// Mutations (each recomputes synchronously)
	api.HandleFunc("/ranking/metrics", h.PutMetrics).Methods(http.MethodPut)
	api.HandleFunc("/ranking/mode", h.PutMode).Methods(http.MethodPut)
	api.HandleFunc("/ranking/top", h.PutTopN).Methods(http.MethodPut)
	api.HandleFunc("/ranking/filters", h.PostFilter).Methods(http.MethodPost)
	api.HandleFunc("/ranking/filters/{index}", h.DeleteFilter).Methods(http.MethodDelete)
	api.HandleFunc("/ranking/directions/{metric}", h.PutDirection).Methods(http.MethodPut)
	api.HandleFunc("/ranking/reset", h.PostReset).Methods(http.MethodPost)

	// Apply middleware
	r.Use(recoveryMiddleware(deps.Logger))
	r.Use(loggingMiddleware(deps.Logger))
	if deps.Limiter != nil && deps.MutationCap > 0 {
		api.Use(rateLimitMiddleware(deps.Limiter, redis.MutationRateLimit(deps.MutationCap), deps.Logger))
	}

	return r
}

// healthCheckHandler returns server health and dataset status
func healthCheckHandler(h *handlers.RankingHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataset := h.Dataset()
		status := "ok"
		if !dataset.Loaded {
			status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  status,
			"service": "cryptorank-api",
			"dataset": dataset,
		})
	}
}

// statusRecorder captures the response code for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware throttles mutations per client address.
// Reads are never limited; limiter errors fail open.
func rateLimitMiddleware(limiter *redis.RateLimiter, limit redis.RateLimitConfig, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, err := limiter.Allow(r.Context(), limit.ForClient(clientAddr(r)))
			if err != nil {
				log.WithError(err).Warn("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "too many mutations, slow down",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
