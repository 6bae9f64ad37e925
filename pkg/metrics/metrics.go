// Package metrics exposes the Prometheus registry used by the date context
// service. Metrics are defined with promauto in their own packages (cache,
// client, ratelimit, datecontext, mcpserver) to avoid circular dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
// All metrics are registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry metrics are served from.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - datecontext_cache_hits_total{cache,layer} (Counter): Cache hits by cache and backend
//   - datecontext_cache_misses_total{cache} (Counter): Cache misses
//   - datecontext_cache_evictions_total{cache} (Counter): Expired entries evicted on access
//   - datecontext_cache_errors_total{operation} (Counter): Backend errors
//
// Upstream Metrics (pkg/client):
//   - datecontext_upstream_requests_total{provider,status} (Counter): Requests by provider and HTTP status
//   - datecontext_upstream_request_duration_seconds{provider} (Histogram): Request duration
//   - datecontext_upstream_errors_total{provider,class} (Counter): Errors by class
//     (client, server, rate_limit, network, decode)
//
// Retry Metrics (pkg/client):
//   - datecontext_retries_total{provider} (Counter): Over-limit retry attempts
//   - datecontext_retry_delay_seconds{provider} (Histogram): Delay before retries
//   - datecontext_retry_exhausted_total{provider} (Counter): Resolutions that exhausted retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - datecontext_rate_limit_waits_total{provider} (Counter): Requests delayed by the local limiter
//   - datecontext_over_limit_signals_total{provider} (Counter): OVER_QUERY_LIMIT responses
//   - datecontext_inbound_rejections_total (Counter): /mcp requests rejected by the per-client limiter
//
// Service Metrics (pkg/datecontext, internal/mcpserver):
//   - datecontext_analyses_total{outcome} (Counter): Analyses by outcome
//   - datecontext_analysis_duration_seconds (Histogram): Analysis duration
//   - datecontext_tool_calls_total{tool,result} (Counter): Tool calls by result
//
// Example Prometheus Queries:
//
//   # Location cache hit rate
//   sum(rate(datecontext_cache_hits_total{cache="location"}[5m])) /
//   (sum(rate(datecontext_cache_hits_total{cache="location"}[5m])) +
//    sum(rate(datecontext_cache_misses_total{cache="location"}[5m])))
//
//   # Geocoding over-limit pressure
//   rate(datecontext_over_limit_signals_total{provider="google_geocode"}[5m])
//
//   # Failed analyses by outcome
//   sum by (outcome) (rate(datecontext_analyses_total{outcome!="success"}[5m]))
//
//   # P95 upstream latency
//   histogram_quantile(0.95, rate(datecontext_upstream_request_duration_seconds_bucket[5m]))
