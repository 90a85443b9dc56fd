package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/gachadraw/pkg/cache/lru"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"golang.org/x/time/rate"
)

// RateLimitConfig 请求限流配置，按用户（已认证）或 IP 分桶
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxKeys           int           `mapstructure:"max_keys"`
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
}

// DefaultRateLimitConfig 默认配置
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 5,
		Burst:             10,
		MaxKeys:           100000,
		KeyTTL:            10 * time.Minute,
	}
}

// RateLimiter 基于令牌桶的分桶限流器
type RateLimiter struct {
	cfg      *RateLimitConfig
	limiters *lru.Cache[string, *rate.Limiter]
	logger   logger.Logger
}

// NewRateLimiter 创建限流器
func NewRateLimiter(cfg *RateLimitConfig, l logger.Logger) *RateLimiter {
	return &RateLimiter{
		cfg:      cfg,
		limiters: lru.New[string, *rate.Limiter](&lru.Config{MaxSize: cfg.MaxKeys, TTL: cfg.KeyTTL}),
		logger:   l,
	}
}

// Allow 消耗 key 对应桶中的一个令牌
func (rl *RateLimiter) Allow(key string) bool {
	lim := rl.limiters.GetOrCreate(key, func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)
	})
	return lim.Allow()
}

// RateLimit 限流中间件，超限返回 429；需挂在 Auth 之后才能按用户分桶
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.cfg.Enabled {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if uid, ok := UserID(c); ok {
			key = "user:" + strconv.FormatInt(uid, 10)
		}

		if !rl.Allow(key) {
			rl.logger.WarnContext(c.Request.Context(), "rate limit exceeded", "key", key, "path", c.Request.URL.Path)
			c.Header("Retry-After", "1")
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
