package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"user-directory/internal/apperr"
	"user-directory/internal/core/auth"
	"user-directory/internal/domain"
	"user-directory/internal/feature/user"
	resp "user-directory/internal/response"
	"user-directory/internal/service"
	httpez "user-directory/internal/transport/http/ez"
	mdw "user-directory/internal/transport/http/middleware"
)

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

type findQuery struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	IsSubstr bool   `form:"issubstr"`
}

type idsBody struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,required"`
}

// MountAPI 用户端 /api/v1，分组已挂 AuthJWT
func (h *UserHandler) MountAPI(g *gin.RouterGroup) {
	ez := httpez.New(g)

	httpez.RegisterAction(ez, httpez.Action[struct{}]{
		Method: http.MethodGet,
		Path:   "/users/profile",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Envelope, error) {
			return h.svc.Get(c.Request.Context(), domain.ByID(c.GetString(mdw.KeyUserID)))
		},
	})

	// issubstr 且未给 email 时按用户名子串搜索，否则精确查询
	httpez.RegisterAction(ez, httpez.Action[findQuery]{
		Method: http.MethodGet,
		Path:   "/users/find",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *findQuery) (resp.Envelope, error) {
			if in.IsSubstr && in.Email == "" {
				return h.svc.GetBySubstring(c.Request.Context(), in.Username, "")
			}
			return h.svc.Get(c.Request.Context(), domain.Criteria{Username: in.Username, Email: in.Email})
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Envelope, error) {
			return h.svc.Get(c.Request.Context(), domain.ByID(c.Param("id")))
		},
	})

	httpez.RegisterAction(ez, httpez.Action[idsBody]{
		Method: http.MethodPost,
		Path:   "/users/validate",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *idsBody) (resp.Envelope, error) {
			return h.svc.ValidateUsersExist(c.Request.Context(), in.IDs)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[user.PostDTO]{
		Method:    http.MethodPost,
		Path:      "/users/:id",
		Binder:    httpez.BindJSON,
		SelfParam: "id",
		Handler: func(c *gin.Context, in *user.PostDTO) (resp.Envelope, error) {
			if in.ID != c.Param("id") {
				return resp.Envelope{}, idMismatch(c.Param("id"), in.ID)
			}
			return h.svc.AddUser(c.Request.Context(), c.GetString(mdw.KeyUserID), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[user.PatchDTO]{
		Method:    http.MethodPatch,
		Path:      "/users/:id",
		Binder:    httpez.BindJSON,
		SelfParam: "id",
		Handler: func(c *gin.Context, in *user.PatchDTO) (resp.Envelope, error) {
			return h.svc.UpdateUser(c.Request.Context(), c.Param("id"), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}]{
		Method:    http.MethodDelete,
		Path:      "/users/:id",
		Binder:    httpez.BindNone,
		SelfParam: "id",
		Handler: func(c *gin.Context, _ *struct{}) (resp.Envelope, error) {
			return h.svc.SoftDeleteUser(c.Request.Context(), c.Param("id"))
		},
	})
}

// MountAdmin 管理端 /admin/v1，分组已要求 admin 角色
func (h *UserHandler) MountAdmin(g *gin.RouterGroup) {
	ez := httpez.New(g)
	admin := []string{auth.RoleAdmin}

	httpez.RegisterAction(ez, httpez.Action[struct{}]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindNone,
		Roles:  admin,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Envelope, error) {
			return h.svc.GetAll(c.Request.Context())
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}]{
		Method: http.MethodGet,
		Path:   "/users/count",
		Binder: httpez.BindNone,
		Roles:  admin,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Envelope, error) {
			return h.svc.Count(c.Request.Context())
		},
	})

	httpez.RegisterAction(ez, httpez.Action[[]user.PostDTO]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: httpez.BindJSON,
		Roles:  admin,
		Handler: func(c *gin.Context, in *[]user.PostDTO) (resp.Envelope, error) {
			return h.svc.AddUsers(c.Request.Context(), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[[]user.AdminPatchDTO]{
		Method: http.MethodPatch,
		Path:   "/users",
		Binder: httpez.BindJSON,
		Roles:  admin,
		Handler: func(c *gin.Context, in *[]user.AdminPatchDTO) (resp.Envelope, error) {
			return h.svc.UpdateUsers(c.Request.Context(), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[idsBody]{
		Method: http.MethodDelete,
		Path:   "/users",
		Binder: httpez.BindJSON,
		Roles:  admin,
		Handler: func(c *gin.Context, in *idsBody) (resp.Envelope, error) {
			return h.svc.DeleteUsers(c.Request.Context(), in.IDs)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Roles:  admin,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Envelope, error) {
			return h.svc.DeleteUser(c.Request.Context(), c.Param("id"))
		},
	})

	httpez.RegisterAction(ez, httpez.Action[idsBody]{
		Method: http.MethodPost,
		Path:   "/users/ban",
		Binder: httpez.BindJSON,
		Roles:  admin,
		Handler: func(c *gin.Context, in *idsBody) (resp.Envelope, error) {
			return h.svc.SoftDeleteUsers(c.Request.Context(), in.IDs)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}]{
		Method: http.MethodPost,
		Path:   "/users/:id/ban",
		Binder: httpez.BindNone,
		Roles:  admin,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Envelope, error) {
			return h.svc.SoftDeleteUser(c.Request.Context(), c.Param("id"))
		},
	})
}

func idMismatch(pathID, bodyID string) error {
	return apperr.InvalidInput("path id and body id differ",
		apperr.Detail{Field: "id", Value: bodyID, Reason: "must equal " + pathID})
}
