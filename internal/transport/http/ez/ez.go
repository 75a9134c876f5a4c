// Package ez 非 CRUD 接口的一行注册：绑定入参、鉴权策略、调用 handler、把信封或错误写回。
package ez

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"user-directory/internal/core/auth"
	resp "user-directory/internal/response"
	mdw "user-directory/internal/transport/http/middleware"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// 动作定义：I 入参；出参统一是响应信封
type Action[I any] struct {
	Method string   // "GET" | "POST" | "PATCH" | "PUT" | "DELETE"
	Path   string   // 例："/users/:id"、"/users/:id/ban"
	Binder Binder   // 绑定方式
	Auth   bool     // 是否要求登录（检查 AuthJWT 写入的 claims）
	Roles  []string // 限定角色（可选）
	// SelfParam 非空时：路径参数等于当前用户 ID 或 admin 才放行
	SelfParam string
	Handler   func(c *gin.Context, in *I) (resp.Envelope, error)
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any](e EZ, a Action[I]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth || len(a.Roles) > 0 || a.SelfParam != "" {
			if env, ok := authorize(c, a.Roles, a.SelfParam); !ok {
				Write(c, env)
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			_ = c.Error(bindErr)
			if mdw.IsBodyTooLarge(bindErr) {
				Write(c, resp.Error(resp.CodeTooLarge, ""))
				return
			}
			Write(c, resp.Error(resp.CodeBadRequest, "", bindErr.Error()))
			return
		}

		// 3) 执行 + 统一错误映射
		env, err := a.Handler(c, &in)
		if err != nil {
			Fail(c, err)
			return
		}
		Write(c, env)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// Write 状态码取自信封本身
func Write(c *gin.Context, env resp.Envelope) {
	c.JSON(env.StatusCode, env)
}

// Fail 把错误翻译成信封写回；超时单独处理
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, context.DeadlineExceeded) {
		Write(c, resp.Error(resp.CodeTimeout, ""))
		return
	}
	Write(c, resp.FromError(err))
}

func authorize(c *gin.Context, roles []string, selfParam string) (resp.Envelope, bool) {
	claims, ok := mdw.ClaimsFrom(c)
	if !ok || claims.UserID() == "" {
		return resp.Error(resp.CodeUnauthorized, ""), false
	}
	uid, role := claims.UserID(), claims.Role
	if len(roles) > 0 && !slices.Contains(roles, role) {
		return resp.Error(resp.CodeForbidden, ""), false
	}
	if selfParam != "" && role != auth.RoleAdmin && c.Param(selfParam) != uid {
		return resp.Error(resp.CodeForbidden, "only the user or an admin can do this"), false
	}
	return resp.Envelope{}, true
}
