package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("Expected request %d allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("Expected request over the limit rejected")
	}

	// another client has its own window
	if !rl.Allow("10.0.0.2") {
		t.Error("Expected a different client allowed")
	}
}

func TestRateLimiterMiddlewareReturns429(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		statuses = append(statuses, resp.StatusCode)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("Expected the first two requests to pass, got: %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got: %d", statuses[2])
	}
}

// TestRateLimiterKeyedOnAccount drives two accounts through one IP: each
// account gets its own window, and an exhausted account stays blocked even
// when its IP changes.
func TestRateLimiterKeyedOnAccount(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	send := func(account, ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if account != "" {
			req.Header.Set("X-Account", account)
		}
		req.Header.Set("X-Forwarded-For", ip)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		return resp.StatusCode
	}

	if got := send("alice", "10.0.0.1"); got != http.StatusOK {
		t.Errorf("Expected alice's first request to pass, got: %d", got)
	}
	if got := send("bob", "10.0.0.1"); got != http.StatusOK {
		t.Errorf("Expected bob allowed from the same IP, got: %d", got)
	}
	if got := send("alice", "10.0.0.2"); got != http.StatusTooManyRequests {
		t.Errorf("Expected alice blocked regardless of IP, got: %d", got)
	}
}

func TestMaintenanceModeReturns503(t *testing.T) {
	sa := NewServiceAvailability(0, true)

	app := fiber.New()
	app.Use(sa.Middleware())
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/v1/markets", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/markets", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got: %d", resp.StatusCode)
	}

	// edge case: health check stays reachable during maintenance
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 on /health, got: %d", resp.StatusCode)
	}
}

func TestMaintenanceModeToggle(t *testing.T) {
	sa := NewServiceAvailability(0, false)
	if sa.IsMaintenanceMode() {
		t.Error("Expected maintenance mode off")
	}
	sa.SetMaintenanceMode(true)
	if !sa.IsMaintenanceMode() {
		t.Error("Expected maintenance mode on")
	}
}
