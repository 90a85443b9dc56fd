package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/security"
)

// userIDKey gin.Context 中存放用户 ID 的 key
const userIDKey = "auth.user_id"

// AuthConfig 认证配置
type AuthConfig struct {
	JWTManager *security.JWTManager
	// OnError 认证失败时调用，需自行 Abort
	OnError func(*gin.Context, error)
}

// Auth 校验 Bearer 令牌，通过后把用户 ID 写入 gin.Context 与 request context
func Auth(cfg *AuthConfig) gin.HandlerFunc {
	header := cfg.JWTManager.Config().HeaderName
	return func(c *gin.Context) {
		raw := c.GetHeader(header)
		if raw == "" {
			cfg.OnError(c, security.ErrTokenMissing)
			return
		}

		claims, err := cfg.JWTManager.ValidateToken(raw)
		if err != nil {
			cfg.OnError(c, err)
			return
		}

		c.Set(userIDKey, claims.UserID)
		ctx := security.WithClaims(c.Request.Context(), claims)
		c.Request = c.Request.WithContext(logger.WithUserID(ctx, claims.UserID))
		c.Next()
	}
}

// UserID 读取已认证的用户 ID
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
