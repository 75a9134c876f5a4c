package router

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gin-gonic/gin"
)

// APIModule 模块可选择实现其中一个或两个接口
type APIModule interface{ MountAPI(*gin.RouterGroup) }
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

const defaultPriority = 100

var (
	mu        sync.RWMutex
	apiMods   []APIModule
	adminMods []AdminModule
)

// Register 统一注册入口：根据类型断言分发到 API/Admin 列表；两个接口都没实现属于装配错误
func Register(mod any) {
	mu.Lock()
	defer mu.Unlock()
	api, isAPI := mod.(APIModule)
	admin, isAdmin := mod.(AdminModule)
	if !isAPI && !isAdmin {
		panic(fmt.Sprintf("router: %T mounts neither API nor admin routes", mod))
	}
	if isAPI {
		apiMods = append(apiMods, api)
	}
	if isAdmin {
		adminMods = append(adminMods, admin)
	}
}

// MountAllAPI 在 /api/v1 上挂载所有已注册的 API 模块
func MountAllAPI(api *gin.RouterGroup) {
	for _, m := range sorted(&apiMods) {
		m.MountAPI(api)
	}
}

// MountAllAdmin 在 /admin/v1 上挂载所有已注册的 Admin 模块
func MountAllAdmin(admin *gin.RouterGroup) {
	for _, m := range sorted(&adminMods) {
		m.MountAdmin(admin)
	}
}

func sorted[M any](mods *[]M) []M {
	mu.RLock()
	out := slices.Clone(*mods)
	mu.RUnlock()
	slices.SortStableFunc(out, func(a, b M) int { return priorityOf(a) - priorityOf(b) })
	return out
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return defaultPriority
}
