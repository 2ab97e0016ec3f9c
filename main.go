package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TIANLI0/CompositeKit/config"
	"github.com/TIANLI0/CompositeKit/handler"
	"github.com/TIANLI0/CompositeKit/middleware"
	"github.com/TIANLI0/CompositeKit/service"
	"github.com/TIANLI0/CompositeKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	// 加载配置
	cfg, err := config.New()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting CompositeKit server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	// 初始化Redis，连接失败时禁用缓存
	var cache handler.ResultCache
	if cfg.Redis.Enabled {
		redisService := service.NewRedisService(&cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisService.Ping(ctx)
		cancel()
		if err != nil {
			utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
			_ = redisService.Close()
		} else {
			utils.Logger.Info("redis connected successfully")
			cache = redisService
			defer redisService.Close()
		}
	}

	compositeService, err := service.NewCompositeService(&cfg.Compositor)
	if err != nil {
		utils.Logger.Fatal("failed to create compositor", zap.Error(err))
	}

	compositeHandler := handler.NewCompositeHandler(cfg, compositeService, cache)

	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	// 健康检查和版本信息
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": Version,
			"cache":   cache != nil,
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
			"resamplers": service.ResamplerNames(),
		})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/composite", compositeHandler.Composite)
		api.POST("/composite/validate", compositeHandler.Validate)
		api.GET("/composite/:key", compositeHandler.GetByKey)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	killed := make(chan os.Signal, 1)
	signal.Notify(killed, os.Interrupt, syscall.SIGTERM)
	sig := <-killed
	utils.Logger.Info("received signal to shutdown", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Error("failed to shutdown server", zap.Error(err))
	}
	utils.Logger.Info("server has shut down")
}
