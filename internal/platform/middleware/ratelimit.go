package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig tunes the per-IP throttle. Values come from
// RATE_LIMIT_RPS and RATE_LIMIT_BURST in the server config.
type RateLimitConfig struct {
	RPS       float64
	Burst     int
	ClientTTL time.Duration // idle clients are evicted after this
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:       100,
		Burst:     200,
		ClientTTL: 10 * time.Minute,
	}
}

// client is one IP's token balance. Tokens refill continuously at RPS up
// to Burst; each request spends one.
type client struct {
	tokens   float64
	lastSeen time.Time
}

type ipLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	cfg       RateLimitConfig
	lastSweep time.Time
}

func newIPLimiter(cfg RateLimitConfig) *ipLimiter {
	return &ipLimiter{
		clients:   make(map[string]*client),
		cfg:       cfg,
		lastSweep: time.Now(),
	}
}

// take spends a token for ip. When none is available it reports how long
// until the next token accrues.
func (l *ipLimiter) take(ip string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.cfg.ClientTTL {
		l.sweep(now)
	}

	cl, ok := l.clients[ip]
	if !ok {
		cl = &client{tokens: float64(l.cfg.Burst), lastSeen: now}
		l.clients[ip] = cl
	} else {
		cl.tokens += now.Sub(cl.lastSeen).Seconds() * l.cfg.RPS
		if cl.tokens > float64(l.cfg.Burst) {
			cl.tokens = float64(l.cfg.Burst)
		}
		cl.lastSeen = now
	}

	if cl.tokens < 1 {
		if l.cfg.RPS <= 0 {
			return false, time.Second
		}
		wait := time.Duration((1 - cl.tokens) / l.cfg.RPS * float64(time.Second))
		return false, wait
	}
	cl.tokens--
	return true, 0
}

// sweep drops clients idle longer than ClientTTL. Caller holds the lock.
func (l *ipLimiter) sweep(now time.Time) {
	for ip, cl := range l.clients {
		if now.Sub(cl.lastSeen) > l.cfg.ClientTTL {
			delete(l.clients, ip)
		}
	}
	l.lastSweep = now
}

// RateLimit throttles requests per client IP.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.ClientTTL <= 0 {
		cfg.ClientTTL = DefaultRateLimitConfig().ClientTTL
	}
	limiter := newIPLimiter(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, wait := limiter.take(c.RealIP(), time.Now())

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.FormatFloat(cfg.RPS, 'f', 0, 64))
			if !ok {
				retryAfter := int(wait/time.Second) + 1
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
			}
			return next(c)
		}
	}
}
