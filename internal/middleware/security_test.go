package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestSecurityHeadersOnAbortedRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(""))
	r.Use(func(c *gin.Context) { c.AbortWithStatus(http.StatusTeapot) })
	r.GET("/x", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Fatalf("expected aborting middleware to win, got %d", w.Code)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected default origin *, got %q", got)
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Preflight())
	reached := false
	r.NoRoute(func(c *gin.Context) { reached = true; c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodOptions, "/whatever", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for OPTIONS, got %d", w.Code)
	}
	if reached {
		t.Fatalf("preflight should not reach the route handler")
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty preflight body, got %q", w.Body.String())
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.001, 1)
	defer rl.Stop()
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("10.0.0.1:1000"); code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", code)
	}
	if code := send("10.0.0.1:1001"); code != http.StatusTooManyRequests {
		t.Fatalf("second request from same IP expected 429, got %d", code)
	}
	if code := send("10.0.0.2:1000"); code != http.StatusOK {
		t.Fatalf("other client expected 200, got %d", code)
	}
}

func TestRateLimiterSweepDropsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Stop()
	rl.Stop()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }
	rl.allow("10.0.0.1")
	rl.now = func() time.Time { return base.Add(4 * time.Minute) }
	rl.allow("10.0.0.2")

	rl.now = func() time.Time { return base.Add(6 * time.Minute) }
	rl.sweep()

	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Fatalf("expected idle visitor to be swept")
	}
	if _, ok := rl.visitors["10.0.0.2"]; !ok {
		t.Fatalf("expected recent visitor to be kept")
	}
}

func TestRateLimiterExemptRoutesAndPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.001, 1).Exempt("/live")
	defer rl.Stop()
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(method, path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w.Code
	}

	if code := send(http.MethodGet, "/x"); code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", code)
	}
	if code := send(http.MethodGet, "/x"); code != http.StatusTooManyRequests {
		t.Fatalf("bucket should be empty, got %d", code)
	}
	for i := 0; i < 5; i++ {
		if code := send(http.MethodGet, "/live"); code != http.StatusOK {
			t.Fatalf("exempt route call %d expected 200, got %d", i, code)
		}
		if code := send(http.MethodOptions, "/x"); code != http.StatusOK {
			t.Fatalf("OPTIONS call %d expected 200, got %d", i, code)
		}
	}
	if n := len(rl.visitors); n != 1 {
		t.Fatalf("exempt requests should not create visitors, have %d", n)
	}
}
