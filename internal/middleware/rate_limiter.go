package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// slidingWindow is a per-IP sliding-window counter shared by the login and
// general API limiters.
type slidingWindow struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
}

type windowEntry struct {
	count     int
	windowEnd time.Time
}

func newSlidingWindow() *slidingWindow {
	return &slidingWindow{entries: make(map[string]*windowEntry)}
}

// hit records a request for ip and reports whether it exceeds limit. It
// returns the window end so callers can fill Retry-After.
func (w *slidingWindow) hit(ip string, limit int, window time.Duration) (bool, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	entry, ok := w.entries[ip]
	if !ok || now.After(entry.windowEnd) {
		entry = &windowEntry{windowEnd: now.Add(window)}
		w.entries[ip] = entry
	}
	entry.count++
	return entry.count > limit, entry.windowEnd
}

func (w *slidingWindow) purge(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	purged := 0
	for ip, entry := range w.entries {
		if now.After(entry.windowEnd) {
			delete(w.entries, ip)
			purged++
		}
	}
	return purged
}

var (
	loginWindow = newSlidingWindow()
	apiWindow   = newSlidingWindow()
)

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		if exceeded, _ := loginWindow.hit(c.ClientIP(), 20, time.Minute); exceeded {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiados intentos de login. Intente en 1 minuto."))
			return
		}
		c.Next()
	}
}

// RateLimiter returns a general-purpose sliding-window rate limiter.
// Default: 200 requests per minute per IP — adjust limit / window as needed.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if exceeded, windowEnd := apiWindow.hit(c.ClientIP(), limit, window); exceeded {
			c.Header("Retry-After", windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

// ── Purge goroutine ───────────────────────────────────────────────────────────
// Periodically removes expired entries from both rate limiter maps to prevent
// memory leaks from accumulating IPs that never return.

const purgeInterval = 5 * time.Minute

func init() {
	go purgeExpiredEntries()
}

func purgeExpiredEntries() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		purgedLogin := loginWindow.purge(now)
		purgedAPI := apiWindow.purge(now)

		if purgedLogin > 0 || purgedAPI > 0 {
			log.Debug().
				Int("login_entries_purged", purgedLogin).
				Int("api_entries_purged", purgedAPI).
				Msg("rate limiter maps purged")
		}
	}
}
