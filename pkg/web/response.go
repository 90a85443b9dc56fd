package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody 错误响应体
type ErrorBody struct {
	ErrorCode int `json:"errorCode"`
}

// OK 200 响应，data 原样序列化
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Fail 返回错误码并中断后续 handler
func Fail(c *gin.Context, status, code int) {
	c.AbortWithStatusJSON(status, ErrorBody{ErrorCode: code})
}
