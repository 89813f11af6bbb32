package middleware

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RateLimiter is a fixed-window counter keyed on the caller identity. Every
// engine mutation carries an X-Account header, so authenticated traffic is
// limited per account; anonymous reads fall back to the client IP.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	counters    map[string]int
	mu          sync.Mutex
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		counters:    make(map[string]int),
	}
}

func (rl *RateLimiter) callerKey(c *fiber.Ctx) string {
	if account := c.Get("X-Account"); account != "" {
		return "account:" + account
	}
	ip := c.Get("X-Forwarded-For")
	if ip == "" {
		ip = c.Get("X-Real-IP")
	}
	if ip == "" {
		ip = c.IP()
	}
	return "ip:" + ip
}

func (rl *RateLimiter) windowKey(caller string, now time.Time) string {
	windowNumber := now.Unix() / int64(rl.window.Seconds())
	return fmt.Sprintf("%s_%d", caller, windowNumber)
}

func (rl *RateLimiter) Allow(caller string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	key := rl.windowKey(caller, now)

	count, exists := rl.counters[key]
	if !exists {
		// edge case: remove old windows when starting new window
		rl.dropStaleWindows(caller, key)
		rl.counters[key] = 1
		return true
	}

	if count >= rl.maxRequests {
		return false
	}

	rl.counters[key] = count + 1
	return true
}

func (rl *RateLimiter) dropStaleWindows(caller, currentKey string) {
	prefix := caller + "_"
	for key := range rl.counters {
		if key != currentKey && strings.HasPrefix(key, prefix) {
			delete(rl.counters, key)
		}
	}
}

func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := rl.callerKey(c)

		if !rl.Allow(caller) {
			log.Warn().
				Str("caller", caller).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("max_requests", rl.maxRequests).
				Msg("Rate limit exceeded")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please try again later.",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.maxRequests))
		c.Set("X-RateLimit-Window", rl.window.String())

		return c.Next()
	}
}
