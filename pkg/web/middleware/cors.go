package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string      `mapstructure:"allow_origins"`
	MaxAge       time.Duration `mapstructure:"max_age"`
}

// DefaultCORSConfig 默认允许所有来源
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{MaxAge: 12 * time.Hour}
}

// CORS 跨域中间件，AllowOrigins 为空时允许所有来源
func CORS(cfg *CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        cfg.MaxAge,
	}
	if len(cfg.AllowOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowOrigins
		c.AllowCredentials = true
	}
	return cors.New(c)
}
