package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptmaker-backend/shared/utils/ratelimit"
)

type failingCounter struct{}

func (failingCounter) Get(context.Context, string) (int64, time.Duration, error) {
	return 0, 0, errors.New("connection refused")
}

func (failingCounter) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func newLimitedRouter(limiter *ratelimit.Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(limiter))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	router.GET("/api/prompts", ok)
	router.POST("/api/prompts", ok)
	return router
}

func send(router *gin.Engine, method, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/prompts", nil)
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_ThirdPostIsRejected(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryCounter(), ratelimit.Config{
		Max:    2,
		Window: 60 * time.Second,
	})
	router := newLimitedRouter(limiter)

	first := send(router, http.MethodPost, "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, first.Header().Get("X-RateLimit-Reset"))

	second := send(router, http.MethodPost, "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := send(router, http.MethodPost, "")
	require.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "60", third.Header().Get("Retry-After"))
	assert.Equal(t, "0", third.Header().Get("X-RateLimit-Remaining"))
	assert.JSONEq(t, `{"error":"Too many requests, please try again later."}`, third.Body.String())
}

func TestRateLimit_RemainingDecreases(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryCounter(), ratelimit.Config{Max: 5, Window: time.Minute})
	router := newLimitedRouter(limiter)

	for _, want := range []string{"4", "3", "2", "1", "0"} {
		w := send(router, http.MethodPost, "203.0.113.9")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, w.Header().Get("X-RateLimit-Remaining"))
	}
	assert.Equal(t, http.StatusTooManyRequests, send(router, http.MethodPost, "203.0.113.9").Code)
}

func TestRateLimit_GetBypassesLimiter(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryCounter(), ratelimit.Config{Max: 1, Window: time.Minute})
	router := newLimitedRouter(limiter)

	for i := 0; i < 5; i++ {
		w := send(router, http.MethodGet, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}

	assert.Equal(t, http.StatusOK, send(router, http.MethodPost, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(router, http.MethodPost, "").Code)
}

func TestRateLimit_ClientsAreIndependent(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryCounter(), ratelimit.Config{Max: 1, Window: time.Minute})
	router := newLimitedRouter(limiter)

	assert.Equal(t, http.StatusOK, send(router, http.MethodPost, "198.51.100.1").Code)
	assert.Equal(t, http.StatusOK, send(router, http.MethodPost, "198.51.100.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(router, http.MethodPost, "198.51.100.1, 10.0.0.1").Code)
}

func TestRateLimit_FailOpenPassesWithoutHeaders(t *testing.T) {
	limiter := ratelimit.NewLimiter(failingCounter{}, ratelimit.Config{Max: 1, Window: time.Minute, Policy: ratelimit.FailOpen})
	router := newLimitedRouter(limiter)

	for i := 0; i < 3; i++ {
		w := send(router, http.MethodPost, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
		assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_FailClosedReturns503(t *testing.T) {
	limiter := ratelimit.NewLimiter(failingCounter{}, ratelimit.Config{Max: 1, Window: time.Minute, Policy: ratelimit.FailClosed})
	router := newLimitedRouter(limiter)

	w := send(router, http.MethodPost, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestClientKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", "127.0.0.1"},
		{"single", "203.0.113.7", "203.0.113.7"},
		{"chain takes first", "203.0.113.7, 10.0.0.2, 10.0.0.3", "203.0.113.7"},
		{"blank first entry", " , 10.0.0.2", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("X-Forwarded-For", tt.header)
			}
			assert.Equal(t, tt.want, ClientKey(c))
		})
	}
}
