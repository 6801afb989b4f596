package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/tenderscope/config"
)

func TestBucketsArePerCaller(t *testing.T) {
	b := newBuckets(config.RateLimitConfig{RequestsPerSecond: 0.5, Burst: 1})
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }

	assert.True(t, b.allow("user:alice"))
	assert.False(t, b.allow("user:alice"))
	assert.True(t, b.allow("key:machine"))

	clock = clock.Add(2 * time.Second)
	assert.True(t, b.allow("user:alice"))
	assert.Equal(t, "2", b.retryAfter())
}

func TestIdleBucketsAreSwept(t *testing.T) {
	b := newBuckets(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }

	b.allow("user:alice")
	b.allow("ip:10.0.0.1")
	require.Equal(t, 2, b.len())

	clock = clock.Add(30 * time.Minute)
	b.allow("user:alice")
	assert.Equal(t, 2, b.len())

	clock = clock.Add(bucketIdle + time.Minute)
	b.allow("key:machine")
	assert.Equal(t, 1, b.len())
}

func TestRateLimitChargesIdentityBeforeIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := newBuckets(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if u := c.GetHeader("X-User"); u != "" {
			c.Set(IdentityKey, "user:"+u)
		}
	}, rateLimit(b))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if user != "" {
			req.Header.Set("X-User", user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("alice").Code)
	assert.Equal(t, http.StatusOK, do("bob").Code)
	assert.Equal(t, http.StatusOK, do("").Code)

	w := do("alice")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1000", w.Header().Get("Retry-After"))
}
