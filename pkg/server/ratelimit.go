package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 15 * time.Minute
	limiterCleanupEvery = 2 * time.Minute
)

// clientLimiters holds one token bucket per client address and forgets
// clients that have been idle for idleTTL.
type clientLimiters struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	return &clientLimiters{
		entries: make(map[string]*limiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: limiterIdleTTL,
		now:     time.Now,
	}
}

func (c *clientLimiters) get(key string) *rate.Limiter {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(c.rps, c.burst)
	c.entries[key] = &limiterEntry{lim: lim, lastSeen: now}
	return lim
}

func (c *clientLimiters) cleanup() {
	cutoff := c.now().Add(-c.idleTTL)

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, ent := range c.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(c.entries, k)
		}
	}
}

func (c *clientLimiters) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// janitor removes idle clients until ctx is done.
func (c *clientLimiters) janitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.cleanup()
		}
	}
}

// middleware answers 429 with Retry-After: 1 once a client exhausts its bucket.
func (c *clientLimiters) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lim := c.get(clientKey(r))
		if !lim.Allow() {
			writeError(w, ErrorDetail{Message: "too many requests", Type: ErrorTypeRateLimitExceeded})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller by remote host.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
