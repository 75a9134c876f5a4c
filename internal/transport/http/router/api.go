package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"user-directory/internal/core/auth"
	"user-directory/internal/core/server"
	mdw "user-directory/internal/transport/http/middleware"
)

// Options 两个引擎共用的保护参数；零值取默认
type Options struct {
	RequestTimeout time.Duration
	RPS            float64
	Burst          int
	PerIPRPS       float64
	MaxInFlight    int64
	MaxBodyBytes   int64
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.RPS <= 0 {
		o.RPS, o.Burst = 200, 400
	}
	if o.Burst <= 0 {
		o.Burst = int(o.RPS * 2)
	}
	if o.PerIPRPS <= 0 {
		o.PerIPRPS = 50
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = 300
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 16 << 20
	}
	return o
}

func newEngine(l *zap.Logger, opt Options) *gin.Engine {
	opt = opt.withDefaults()
	r := server.NewRouter(l)

	r.Use(
		mdw.RequestID(),
		mdw.Metrics(),
		mdw.AccessLog(l),
		mdw.RateLimit(rate.Limit(opt.RPS), opt.Burst),
		mdw.RateLimitPerIP(rate.Limit(opt.PerIPRPS), int(opt.PerIPRPS*2)+1, 10*time.Minute),
		mdw.ConcurrencyLimit(opt.MaxInFlight),
		mdw.MaxBodyBytes(opt.MaxBodyBytes),
		mdw.Timeout(opt.RequestTimeout),
	)

	// 健康检查 + 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func NewAPIEngine(l *zap.Logger, jwter *auth.JWTer, opt Options) *gin.Engine {
	r := newEngine(l, opt)

	// 前缀；用户端全部需要登录
	api := r.Group("/api/v1")
	api.Use(mdw.AuthJWT(jwter, ""))
	MountAllAPI(api)

	return r
}
