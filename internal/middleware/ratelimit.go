package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/votegate/internal/pkg/errcode"
	"github.com/xxxsen/votegate/internal/pkg/response"
)

type rateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	last   *expirable.LRU[string, time.Time]
	now    func() time.Time
}

// RateLimit lets one request per client ip and route through every window.
// At most maxKeys clients are tracked; the least recent ones are forgotten first.
func RateLimit(window time.Duration, maxKeys int) gin.HandlerFunc {
	return newRateLimiter(window, maxKeys, time.Now).handle
}

func newRateLimiter(window time.Duration, maxKeys int, now func() time.Time) *rateLimiter {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &rateLimiter{
		window: window,
		last:   expirable.NewLRU[string, time.Time](maxKeys, nil, window),
		now:    now,
	}
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.window <= 0 {
		c.Next()
		return
	}
	ip := c.ClientIP()
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	key := strings.Join([]string{ip, path}, "|")

	now := l.now()
	l.mu.Lock()
	last, exists := l.last.Get(key)
	if exists && now.Sub(last) < l.window {
		l.mu.Unlock()
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("ip", ip),
			zap.String("path", path),
		)
		response.Abort(c, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
		return
	}
	l.last.Add(key, now)
	l.mu.Unlock()
	c.Next()
}
