package mcpserver

import (
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"

	"github.com/Sternrassler/datecontext/pkg/holidays"
	"github.com/Sternrassler/datecontext/pkg/location"
	"github.com/Sternrassler/datecontext/pkg/metrics"
	"github.com/Sternrassler/datecontext/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// APIKeyHeader carries the client API key.
const APIKeyHeader = "X-API-Key"

// HTTPOptions configures the /mcp endpoint.
type HTTPOptions struct {
	// APIKey, when set, must match the X-API-Key header.
	APIKey string

	// RequestsPerMinute limits requests per client IP; 0 disables.
	RequestsPerMinute int
}

// Health is the /health response body.
type Health struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Providers []ratelimit.State `json:"providers,omitempty"`
	Location  *location.Stats   `json:"location_cache,omitempty"`
	Holidays  *holidays.Stats   `json:"holiday_cache,omitempty"`
}

// HealthFunc reports current health.
type HealthFunc func() Health

// Routes returns the HTTP mux serving /mcp, /health, /metrics and a plain
// text banner on /.
func (s *Server) Routes(opts HTTPOptions, health HealthFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", s.Handler(opts))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler(health))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("datecontext - Date Context MCP Server")) //nolint:errcheck
	})
	return mux
}

func healthHandler(health HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body := Health{Status: "ok", Version: Version}
		if health != nil {
			body = health()
			if body.Version == "" {
				body.Version = Version
			}
			if body.Status == "" {
				body.Status = statusFor(body.Providers)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}
}

// statusFor is "degraded" while any provider is throttled.
func statusFor(providers []ratelimit.State) string {
	for _, p := range providers {
		if !p.IsHealthy {
			return "degraded"
		}
	}
	return "ok"
}

func requireAPIKey(key string, next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get(APIKeyHeader)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			logger.Warn().
				Str("remote_ip", clientIP(r)).
				Bool("header_present", provided != "").
				Msg("Rejected request with missing or invalid API key")
			w.Header().Set("WWW-Authenticate", `ApiKey realm="API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func limitClients(requestsPerMinute int, next http.Handler, logger zerolog.Logger) http.Handler {
	limiter := ratelimit.NewClientLimiter(requestsPerMinute)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !limiter.Allow(ip) {
			logger.Warn().Str("remote_ip", ip).Msg("Rate limit exceeded")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
