package middleware

import (
	"errors"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/gachadraw/pkg/logger"
	"github.com/lk2023060901/gachadraw/pkg/sentry"
)

// Recovery 捕获 panic，记录日志并上报 Sentry，返回 500 {errorCode: 0}
func Recovery(l logger.Logger, reporter sentry.Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ctx := c.Request.Context()

			if isBrokenPipe(r) {
				l.WarnContext(ctx, "http broken pipe", "error", r, "path", c.Request.URL.Path)
				c.Abort()
				return
			}

			l.ErrorContext(ctx, "http recovery from panic", "panic", r, "path", c.Request.URL.Path)
			if reporter != nil {
				reporter.CapturePanic(ctx, r, map[string]string{"route": c.FullPath()})
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"errorCode": 0})
		}()
		c.Next()
	}
}

func isBrokenPipe(r any) bool {
	err, ok := r.(error)
	if !ok {
		return false
	}
	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne.Err, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
