// Package throttle limits how often one client may hit an unauthenticated
// write endpoint, using a token bucket per client IP.
package throttle

import (
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/gicesite/internal/app/system/network"
	"golang.org/x/time/rate"
)

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter hands out one token bucket per key.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*entry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// New allows perMinute events per key on average, with bursts up to burst.
func New(perMinute float64, burst int) *Limiter {
	if perMinute <= 0 {
		perMinute = 3
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		buckets: make(map[string]*entry),
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether key may proceed now, consuming a token if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	e, ok := l.buckets[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// Sweep forgets keys idle for longer than idle and returns how many went.
func (l *Limiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	n := 0
	for k, e := range l.buckets {
		if e.seen.Before(cutoff) {
			delete(l.buckets, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Middleware limits POST requests by client IP. Rejected requests go to
// onLimit, or get a plain 429.
func (l *Limiter) Middleware(onLimit http.Handler) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Too many submissions. Please wait a minute and try again.", http.StatusTooManyRequests)
		})
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && !l.Allow(network.GetClientIP(r)) {
				onLimit.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
