package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sparkslk/sparks-backend/pkg/clientip"
)

// Message history rate limit: per-IP, 30 req/min burst 20. Prevents 429 from
// rapid conversation switching while blocking scrape abuse.

const (
	messageHistoryRPS        = 0.5 // 30/min
	messageHistoryBurst      = 20
	messageHistoryCleanupMin = 5 * time.Minute
	messageHistoryLimiterTTL = 30 * time.Minute
)

type messageLimiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

var (
	messageHistoryEntries   = make(map[string]*messageLimiterEntry)
	messageHistoryEntriesMu sync.Mutex
	messageHistoryCleanup   bool
)

func getMessageHistoryLimiter(ip string) *rate.Limiter {
	messageHistoryEntriesMu.Lock()
	defer messageHistoryEntriesMu.Unlock()
	startMessageHistoryCleanupOnce()

	e, ok := messageHistoryEntries[ip]
	if !ok {
		e = &messageLimiterEntry{
			limiter: rate.NewLimiter(rate.Limit(messageHistoryRPS), messageHistoryBurst),
			lastUse: time.Now(),
		}
		messageHistoryEntries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func startMessageHistoryCleanupOnce() {
	if messageHistoryCleanup {
		return
	}
	messageHistoryCleanup = true
	go func() {
		ticker := time.NewTicker(messageHistoryCleanupMin)
		defer ticker.Stop()
		for range ticker.C {
			messageHistoryEntriesMu.Lock()
			now := time.Now()
			for k, e := range messageHistoryEntries {
				if now.Sub(e.lastUse) > messageHistoryLimiterTTL {
					delete(messageHistoryEntries, k)
				}
			}
			messageHistoryEntriesMu.Unlock()
		}
	}()
}

// MessageHistoryRateLimit applies rate limiting only to GET message history
// under /api/conversations. Returns 429 with headers when exceeded.
func MessageHistoryRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.HasPrefix(r.URL.Path, "/api/conversations") {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientip.RealClientIP(r)
		limiter := getMessageHistoryLimiter(ip)

		if !limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(messageHistoryBurst))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Too many message history requests. Please slow down."}`))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(messageHistoryBurst))
		next.ServeHTTP(w, r)
	})
}
