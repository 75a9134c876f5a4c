// Package app 两个入口共用的装配：配置 → 日志 → DB → 仓储（可选缓存）→ 服务 → 路由注册。
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"user-directory/internal/core/auth"
	"user-directory/internal/core/cache"
	"user-directory/internal/core/config"
	"user-directory/internal/core/database"
	"user-directory/internal/core/logger"
	"user-directory/internal/domain"
	"user-directory/internal/repo"
	"user-directory/internal/service"
	"user-directory/internal/transport/http/handler"
	"user-directory/internal/transport/http/router"
)

type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	JWT   *auth.JWTer
	Users *service.UserService

	closers []func()
}

// New 装配全部依赖；失败时已打开的资源会被释放
func New(configPath string) (a *App, err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	a = &App{Cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	log, cleanup := newLogger(cfg)
	a.Log = log
	a.closers = append(a.closers, cleanup, logger.RedirectStdLog(log, zapcore.InfoLevel))
	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(log, zapcore.ErrorLevel)

	a.DB, err = database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		SlowThresholdMs:    cfg.DB.SlowThresholdMs,
		Logger:             log,
	})
	if err != nil {
		return a, fmt.Errorf("open db: %w", err)
	}
	if sqlDB, e := a.DB.DB(); e == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err = repo.AutoMigrate(a.DB); err != nil {
			return a, fmt.Errorf("automigrate: %w", err)
		}
		log.Info("automigrate done")
	}

	var users domain.UserRepository = repo.NewUserRepo(a.DB)
	if cfg.Cache.Enable {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err = c.Ping(ctx)
		cancel()
		if err != nil {
			_ = c.Close()
			return a, err
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		users = repo.NewCachedUserRepo(users, c, time.Duration(cfg.Cache.TTLSec)*time.Second, log)
		log.Info("user cache enabled", zap.String("redis", cfg.Redis.Addr))
	}

	a.JWT = &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}
	a.Users = service.NewUserService(users, log)
	router.Register(handler.NewUserHandler(a.Users))
	return a, nil
}

func (a *App) RouterOptions() router.Options {
	return router.Options{RequestTimeout: time.Duration(a.Cfg.App.HTTP.RequestTimeout) * time.Second}
}

// Close 逆序释放
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newLogger(cfg *config.Config) (*zap.Logger, func()) {
	if !cfg.Log.Rotate.Enable {
		return logger.New(cfg.Log.Level, cfg.Log.JSON)
	}
	r := cfg.Log.Rotate
	return logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate{
		Filename:   r.Filename,
		MaxSizeMB:  r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAgeDays: r.MaxAgeDays,
		Compress:   r.Compress,
	})
}
