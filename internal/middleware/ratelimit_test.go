package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func runLimiter(limiter *rateLimiter, path, ip string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", path, nil)
	c.Request.RemoteAddr = ip + ":1234"
	limiter.handle(c)
	return c
}

func TestRateLimiterHandle_BlocksWithinWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := &fakeClock{now: time.Now()}
	limiter := newRateLimiter(10*time.Second, 10, clock.Now)

	require.False(t, runLimiter(limiter, "/api/v1/ballot/otp", "10.0.0.1").IsAborted())
	require.True(t, runLimiter(limiter, "/api/v1/ballot/otp", "10.0.0.1").IsAborted())

	// other clients and other routes have their own budget
	require.False(t, runLimiter(limiter, "/api/v1/ballot/otp", "10.0.0.2").IsAborted())
	require.False(t, runLimiter(limiter, "/api/v1/ballot/otp/verify", "10.0.0.1").IsAborted())

	clock.now = clock.now.Add(11 * time.Second)
	require.False(t, runLimiter(limiter, "/api/v1/ballot/otp", "10.0.0.1").IsAborted())
}

func TestRateLimiterHandle_ZeroWindowDisables(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := &rateLimiter{now: time.Now}
	require.False(t, runLimiter(limiter, "/x", "10.0.0.1").IsAborted())
	require.False(t, runLimiter(limiter, "/x", "10.0.0.1").IsAborted())
}

func TestRateLimiter_BoundsTrackedKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := newRateLimiter(time.Minute, 2, time.Now)
	runLimiter(limiter, "/x", "10.0.0.1")
	runLimiter(limiter, "/x", "10.0.0.2")
	runLimiter(limiter, "/x", "10.0.0.3")
	require.Equal(t, 2, limiter.last.Len())

	// the oldest client was evicted and starts fresh
	require.False(t, runLimiter(limiter, "/x", "10.0.0.1").IsAborted())
}
