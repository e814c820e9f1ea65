package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tejasgodse/chatpdf/internal/infra/config"
)

func TestRateLimitMiddlewareDisabledAllowsAllRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rateLimitMiddleware(config.RateLimitConfig{Enabled: false}, testLogger()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 with rate limiting disabled, got %d on request %d", rec.Code, i)
		}
	}
}

func TestRateLimitMiddlewareBlocksBeyondBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(errorHandlingMiddleware(testLogger()), rateLimitMiddleware(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 1}, testLogger()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	first := httptest.NewRecorder()
	router.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d: %s", second.Code, second.Body.String())
	}
}

func TestRateLimitMiddlewareTracksSeparateIPsIndependently(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(errorHandlingMiddleware(testLogger()), rateLimitMiddleware(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 1}, testLogger()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, ip := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected distinct ip %s to get its own burst allowance, got %d", ip, rec.Code)
		}
	}
}
