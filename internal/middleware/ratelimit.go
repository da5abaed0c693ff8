package middleware

import (
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dimitrije/agency-api/internal/config"
	"github.com/dimitrije/agency-api/internal/logging"
	"github.com/m1z23r/drift/pkg/drift"
	"golang.org/x/time/rate"
)

const limiterIdleSweep = 5 * time.Minute

// ipLimiter keeps one token bucket per client address.
type ipLimiter struct {
	limiters  sync.Map // map[string]*rate.Limiter
	rate      rate.Limit
	burst     int
	mu        sync.Mutex
	lastSweep time.Time
}

func (l *ipLimiter) get(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	l.sweep()
	return v.(*rate.Limiter)
}

// sweep drops limiters whose bucket has refilled, i.e. idle clients.
func (l *ipLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.lastSweep) < limiterIdleSweep {
		return
	}
	l.lastSweep = time.Now()
	l.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}

// RateLimit throttles requests per client IP. Rejected requests get 429 with
// a Retry-After header.
func RateLimit(cfg config.RateLimitConfig) drift.HandlerFunc {
	requests := max(cfg.Requests, 1)
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	trusted := parseTrustedProxies(cfg.TrustedProxies)
	l := &ipLimiter{
		rate:      rate.Limit(float64(requests) / window.Seconds()),
		burst:     max(cfg.Burst, 1),
		lastSweep: time.Now(),
	}

	return func(c *drift.Context) {
		key := clientIP(c, trusted)
		limiter := l.get(key)
		if limiter.Allow() {
			c.Next()
			return
		}

		r := limiter.Reserve()
		delay := r.Delay()
		r.Cancel()
		retryAfter := max(int(delay.Seconds()), 1)

		logging.FromContext(c.Request.Context()).Warn("rate limit exceeded",
			"client", key,
			"path", c.Request.URL.Path,
			"retry_after", retryAfter,
		)

		c.Response.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		_ = c.JSON(429, map[string]string{
			"code":    "rate_limited",
			"message": "too many requests, try again later",
		})
		c.Abort()
	}
}

// parseTrustedProxies accepts bare addresses and CIDR ranges. Invalid entries
// are logged and skipped.
func parseTrustedProxies(entries []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy", "entry", e)
			continue
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return prefixes
}

func isTrusted(trusted []netip.Prefix, ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address. Forwarding headers are only read when
// the peer is a trusted proxy; X-Forwarded-For is then walked from the right
// and the first hop that is not itself a trusted proxy wins.
func clientIP(c *drift.Context, trusted []netip.Prefix) string {
	remote, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		remote = c.Request.RemoteAddr
	}
	if !isTrusted(trusted, remote) {
		return remote
	}

	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if i == 0 || !isTrusted(trusted, hop) {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(c.GetHeader("X-Real-IP")); xri != "" {
		return xri
	}
	return remote
}
