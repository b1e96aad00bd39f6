package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/file2crashes/pkg/configs"
)

const (
	limiterIdle     = 10 * time.Minute
	limiterSweepMin = 1024 // 少于该数量时不清理
)

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet 按键维护令牌桶，长时间未访问的键在下一次取用时被清理.
type limiterSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	entries   map[string]*keyedLimiter
	lastSweep time.Time
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) > limiterSweepMin && now.Sub(s.lastSweep) > limiterIdle {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > limiterIdle {
				delete(s.entries, k)
			}
		}

		s.lastSweep = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &keyedLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}

	e.lastSeen = now

	return e.limiter
}

// RateLimitMiddleware 返回一个基于配置的限流中间件.
// Key 支持 global、ip 和 header:Name，请求头缺失时按客户端 IP 限流.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	burst := max(cfg.Burst, 1)
	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))

	if keyMode == "global" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				abortTooMany(c)
				return
			}

			c.Next()
		}
	}

	set := &limiterSet{
		limit:   rate.Limit(cfg.RPS),
		burst:   burst,
		entries: map[string]*keyedLimiter{},
	}

	header, byHeader := strings.CutPrefix(keyMode, "header:")

	return func(c *gin.Context) {
		key := ""
		if byHeader {
			key = c.GetHeader(header)
		}

		if key == "" {
			key = c.ClientIP()
		}

		if key == "" {
			key = "unknown"
		}

		if !set.get(key, time.Now()).Allow() {
			abortTooMany(c)
			return
		}

		c.Next()
	}
}

func abortTooMany(c *gin.Context) {
	c.Header("Retry-After", "1")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
}
