package mw

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter *rate.Limiter
	mu      sync.Mutex
	last    time.Time
}

// RateLimiter throttles requests per client IP with a token bucket.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	limiters sync.Map // map[string]*ipLimiter
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{rps: rate.Limit(rps), burst: burst}
}

func (l *RateLimiter) get(ip string) *ipLimiter {
	if v, ok := l.limiters.Load(ip); ok {
		return v.(*ipLimiter)
	}
	v, _ := l.limiters.LoadOrStore(ip, &ipLimiter{limiter: rate.NewLimiter(l.rps, l.burst)})
	return v.(*ipLimiter)
}

func (l *RateLimiter) Allow(ip string) bool {
	il := l.get(ip)
	il.mu.Lock()
	il.last = time.Now()
	il.mu.Unlock()
	return il.limiter.Allow()
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup drops limiters idle for longer than idle until ctx is done.
func (l *RateLimiter) Cleanup(ctx context.Context, every, idle time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			l.sweep(now, idle)
		}
	}
}

func (l *RateLimiter) sweep(now time.Time, idle time.Duration) {
	l.limiters.Range(func(key, val any) bool {
		il := val.(*ipLimiter)
		il.mu.Lock()
		stale := now.Sub(il.last) > idle
		il.mu.Unlock()
		if stale {
			l.limiters.Delete(key)
		}
		return true
	})
}

// clientIP expects chi's RealIP middleware to have rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
