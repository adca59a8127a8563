package middleware

import (
	"net/http"
	"sync"
	"time"

	"vestipos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Sliding-window limiter keyed by client IP. The login limiter and the
// general API limiter share the mechanics but keep separate maps so a
// burst of catalog reads never eats into the login allowance.

type ventana struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

type limiterMap struct {
	mu      sync.Mutex
	entries map[string]*ventana
}

func newLimiterMap() *limiterMap {
	return &limiterMap{entries: make(map[string]*ventana)}
}

// allow registers one hit for key and reports whether it stays under limit.
// The returned time is the end of the current window.
func (m *limiterMap) allow(key string, limit int, window time.Duration) (bool, time.Time) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &ventana{}
		m.entries[key] = entry
	}
	m.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	if now.After(entry.windowEnd) {
		entry.count = 0
		entry.windowEnd = now.Add(window)
	}
	entry.count++
	return entry.count <= limit, entry.windowEnd
}

func (m *limiterMap) purge(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	purged := 0
	for key, entry := range m.entries {
		entry.mu.Lock()
		if now.After(entry.windowEnd) {
			delete(m.entries, key)
			purged++
		}
		entry.mu.Unlock()
	}
	return purged
}

var (
	loginLimiter = newLimiterMap()
	apiLimiter   = newLimiterMap()
)

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, _ := loginLimiter.allow(c.ClientIP(), 20, time.Minute)
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiados intentos de login. Intente en 1 minuto."))
			return
		}
		c.Next()
	}
}

// RateLimiter returns the general-purpose API limiter.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, windowEnd := apiLimiter.allow(c.ClientIP(), limit, window)
		if !ok {
			c.Header("Retry-After", windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

// Periodically removes expired entries from both maps so IPs that never
// return do not accumulate forever.

const purgeInterval = 5 * time.Minute

func init() {
	go purgeExpiredEntries()
}

func purgeExpiredEntries() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		purgedLogin := loginLimiter.purge(now)
		purgedAPI := apiLimiter.purge(now)
		if purgedLogin > 0 || purgedAPI > 0 {
			log.Debug().
				Int("login_entries_purged", purgedLogin).
				Int("api_entries_purged", purgedAPI).
				Msg("rate limiter maps purged")
		}
	}
}
