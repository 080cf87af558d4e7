package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mirrorbay/davserver/pkg/conf"
	"golang.org/x/time/rate"
)

// Throttler applies a global concurrency cap and a per-client request
// rate limit. Rejected requests carry X-RateLimit headers; passed requests
// carry them only when a per-client rate limit is configured.
type Throttler struct {
	mu sync.Mutex

	maxConcurrent int
	inFlight      int

	maxRPS int
	window time.Duration
	// clients maps client key to its limiter state.
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottler builds a throttler from config. A zero MaxConcurrent or
// MaxRPS disables that limit.
func NewThrottler(cfg *conf.Throttle) *Throttler {
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	return &Throttler{
		maxConcurrent: cfg.MaxConcurrent,
		maxRPS:        cfg.MaxRPS,
		window:        window,
		clients:       make(map[string]*clientLimiter),
	}
}

// clientKey derives the rate-limit key: the first X-Forwarded-For entry,
// then X-Real-IP, then the transport remote address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// acquire takes one concurrency slot, reporting whether the cap allows it.
func (t *Throttler) acquire() bool {
	if t.maxConcurrent <= 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight >= t.maxConcurrent {
		return false
	}
	t.inFlight++
	return true
}

func (t *Throttler) release() {
	if t.maxConcurrent <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight > 0 {
		t.inFlight--
	}
}

// limiterFor returns the rate limiter of one client, creating it on first
// sight. The limiter replenishes the full budget over one window.
func (t *Throttler) limiterFor(key string) *clientLimiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	cl, ok := t.clients[key]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(t.maxRPS)/t.window.Seconds()), t.maxRPS),
		}
		t.clients[key] = cl
	}
	cl.lastSeen = time.Now()
	return cl
}

// Evict drops rate-limit entries idle for more than two windows. Wired to
// the background crontab.
func (t *Throttler) Evict() {
	t.mu.Lock()
	defer t.mu.Unlock()
	deadline := time.Now().Add(-2 * t.window)
	for key, cl := range t.clients {
		if cl.lastSeen.Before(deadline) {
			delete(t.clients, key)
		}
	}
}

// Handler is the gin middleware enforcing both limits.
func (t *Throttler) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()

		if !t.acquire() {
			header.Set("Retry-After", "1")
			header.Set("X-RateLimit-Limit", strconv.Itoa(t.maxRPS))
			header.Set("X-RateLimit-Remaining", "0")
			c.String(http.StatusTooManyRequests, "Too many concurrent requests")
			c.Abort()
			return
		}
		defer t.release()

		if t.maxRPS > 0 {
			cl := t.limiterFor(clientKey(c.Request))
			if !cl.limiter.Allow() {
				header.Set("Retry-After", strconv.Itoa(int(t.window.Seconds())))
				header.Set("X-RateLimit-Limit", strconv.Itoa(t.maxRPS))
				header.Set("X-RateLimit-Remaining", "0")
				header.Set("X-RateLimit-Reset",
					strconv.FormatInt(time.Now().Add(t.window).Unix(), 10))
				c.String(http.StatusTooManyRequests, "Rate limit exceeded")
				c.Abort()
				return
			}

			header.Set("X-RateLimit-Limit", strconv.Itoa(t.maxRPS))
			remaining := int(cl.limiter.Tokens())
			if remaining < 0 {
				remaining = 0
			}
			header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		c.Next()
	}
}
