package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-directory/internal/core/auth"
	mdw "user-directory/internal/transport/http/middleware"
)

func NewAdminEngine(l *zap.Logger, jwter *auth.JWTer, opt Options) *gin.Engine {
	r := newEngine(l, opt)

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, auth.RoleAdmin))
	MountAllAdmin(admin)

	return r
}
