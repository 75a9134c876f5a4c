package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	resp "user-directory/internal/response"
)

// MaxBodyBytes 限制请求体大小；超限的读取在绑定时报错，这里统一成 413
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			abort(c, resp.CodeTooLarge, "request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// IsBodyTooLarge 绑定错误是否由 MaxBodyBytes 触发
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
