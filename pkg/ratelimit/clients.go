package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var inboundRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "datecontext_inbound_rejections_total",
	Help: "Total number of inbound tool requests rejected by the per-client limiter",
})

// clientIdleTTL is how long an idle client's bucket is kept.
const clientIdleTTL = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter applies one token bucket per client key (usually the remote
// IP) to inbound requests. A client may spend its whole per-minute allowance
// at once; tokens then refill evenly over the minute.
type ClientLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastSweep time.Time
}

// NewClientLimiter allows requestsPerMinute requests per client.
func NewClientLimiter(requestsPerMinute int) *ClientLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	return &ClientLimiter{
		limit:   rate.Limit(float64(requestsPerMinute) / 60),
		burst:   requestsPerMinute,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

// Allow reports whether client may make a request now.
func (l *ClientLimiter) Allow(client string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	bucket, ok := l.clients[client]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = bucket
	}
	bucket.lastSeen = now

	if !bucket.limiter.AllowN(now, 1) {
		inboundRejectionsTotal.Inc()
		return false
	}
	return true
}

// Len returns the number of tracked clients.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// sweep drops idle clients at most once per clientIdleTTL. Caller holds mu.
func (l *ClientLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < clientIdleTTL {
		return
	}
	l.lastSweep = now
	for key, bucket := range l.clients {
		if now.Sub(bucket.lastSeen) >= clientIdleTTL {
			delete(l.clients, key)
		}
	}
}
