package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/SlpAus/versus-arena-backend/api"
	"github.com/SlpAus/versus-arena-backend/internal/platform/config"
	"github.com/SlpAus/versus-arena-backend/internal/platform/database"
	"github.com/SlpAus/versus-arena-backend/internal/platform/health"
	"github.com/SlpAus/versus-arena-backend/internal/platform/logger"
	"github.com/SlpAus/versus-arena-backend/internal/platform/shutdown"
	"github.com/SlpAus/versus-arena-backend/internal/platform/startup"
	"github.com/SlpAus/versus-arena-backend/pkg/lifecycle"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "服务启动失败: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. 配置和日志
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	gin.SetMode(cfg.Server.Mode)

	// 2. 数据库和可选的Redis
	db, err := database.InitDB(cfg.Database, zl)
	if err != nil {
		return err
	}
	rdb, err := database.InitRedis(context.Background(), cfg.Database.Redis, zl)
	if err != nil {
		return err
	}

	// 3. 迁移并构建抽样器
	sampler, err := startup.InitializeApplication(context.Background(), db, zl)
	if err != nil {
		return fmt.Errorf("应用初始化失败: %w", err)
	}

	app, err := api.NewApp(cfg, db, rdb, sampler, zl)
	if err != nil {
		return err
	}

	// 4. 后台服务
	gracefulMgr := lifecycle.NewManager(zl.Named("graceful"))
	forcefulMgr := lifecycle.NewManager(zl.Named("forceful"))
	coordinator := shutdown.NewCoordinator(gracefulMgr, forcefulMgr, zl)

	if rdb != nil {
		// Redis中可能残留上一次运行的统计，先清空
		if err := app.StatsCache.Purge(context.Background()); err != nil {
			zl.Warn("清空统计缓存失败", zap.Error(err))
		}
		checker := health.NewChecker(rdb, 0, app.StatsCache.Purge, zl.Named("health"))
		checker.PerformCheck(context.Background())

		gracefulHandle, err := gracefulMgr.NewServiceHandle("redis-health")
		if err != nil {
			return err
		}
		forcefulHandle, err := forcefulMgr.NewServiceHandle("redis-health")
		if err != nil {
			return err
		}
		go checker.Run(gracefulHandle, forcefulHandle)
		coordinator.OnFinalize("redis", rdb.Close)
	}

	janitor, err := gracefulMgr.NewServiceHandle("rate-limit-janitor")
	if err != nil {
		return err
	}
	go app.Limiter.RunJanitor(janitor)

	coordinator.OnFinalize("database", func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	// 5. HTTP服务
	router := api.NewRouter(cfg.Server, zl)
	api.SetupRoutes(router, app)
	server := &http.Server{Addr: cfg.Server.Address, Handler: router}

	go func() {
		zl.Info("服务器已准备就绪", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("HTTP服务器异常退出", zap.Error(err))
		}
	}()

	coordinator.ListenForSignalsAndShutdown(server)
	return nil
}
