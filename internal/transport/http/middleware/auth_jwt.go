package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"user-directory/internal/core/auth"
	resp "user-directory/internal/response"
)

// 上下文键
const (
	KeyClaims = "claims"
	KeyUserID = "userId"
	KeyRole   = "role"
)

func AuthJWT(j *auth.JWTer, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			abort(c, resp.CodeUnauthorized, "missing token")
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			abort(c, resp.CodeUnauthorized, "invalid token")
			return
		}
		if requireRole != "" && claims.Role != requireRole {
			abort(c, resp.CodeForbidden, "forbidden")
			return
		}
		c.Set(KeyClaims, claims)
		c.Set(KeyUserID, claims.UserID())
		c.Set(KeyRole, claims.Role)
		c.Next()
	}
}

// ClaimsFrom 取出 AuthJWT 写入的 claims
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(KeyClaims)
	if !ok {
		return nil, false
	}
	cl, ok := v.(*auth.Claims)
	return cl, ok
}

func abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, resp.Error(code, msg))
}
