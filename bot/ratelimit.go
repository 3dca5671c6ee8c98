package bot

import (
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	limiterUsers = 10000
	limiterIdle  = time.Hour
)

// limiter hands out one token bucket per user. Buckets of idle users expire.
type limiter struct {
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	buckets *expirable.LRU[int64, *rate.Limiter]
}

// newLimiter returns nil when r <= 0, which disables limiting.
func newLimiter(r float64, burst int) *limiter {
	if r <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &limiter{
		rate:    rate.Limit(r),
		burst:   burst,
		buckets: expirable.NewLRU[int64, *rate.Limiter](limiterUsers, nil, limiterIdle),
	}
}

// Allow takes a token from the user's bucket.
func (l *limiter) Allow(user int64) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	b, ok := l.buckets.Get(user)
	if !ok {
		b = rate.NewLimiter(l.rate, l.burst)
		l.buckets.Add(user, b)
	}
	l.mu.Unlock()
	return b.Allow()
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func parseID(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }
