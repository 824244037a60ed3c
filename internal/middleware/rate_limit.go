package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/baharkarakas/chainspend/internal/api/httpx"
)

type tokenBucket struct {
	tokens float64
	last   time.Time
}

// bucketIdleTTL is how long a client may stay silent before its bucket is
// dropped. Any bucket idle for a second is full again, so dropping it loses nothing.
const bucketIdleTTL = time.Minute

// limiter keeps one bucket per client address; rate tokens per second, burst of rate.
// The map holds at most the clients seen within the last bucketIdleTTL.
type limiter struct {
	mu        sync.Mutex
	rate      float64
	buckets   map[string]*tokenBucket
	nowFn     func() time.Time
	lastSweep time.Time
}

func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowFn()
	if now.Sub(l.lastSweep) >= bucketIdleTTL {
		l.sweep(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.rate, last: now}
		l.buckets[key] = b
	}
	b.tokens += now.Sub(b.last).Seconds() * l.rate
	if b.tokens > l.rate {
		b.tokens = l.rate
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *limiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.last) >= bucketIdleTTL {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}

func RateLimit(rps int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := &limiter{rate: float64(rps), buckets: map[string]*tokenBucket{}, nowFn: time.Now}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientKey(r)) {
				httpx.WriteError(w, http.StatusTooManyRequests, "too many requests", nil, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
