package api

import (
	"classhub/internal/config"
	"classhub/internal/logger"
	"classhub/internal/metrics"
	"classhub/internal/middleware"
	"classhub/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRouter 设置并返回 Gin 路由、Worker 服务器与周期任务调度器
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *worker.Server, *worker.Scheduler) {
	router := gin.New()

	container := BuildContainer(db, cfg)
	handlers := BuildHandlers(container)

	// 全局中间件
	router.Use(middleware.RequestIDMiddleware())
	router.Use(Recovery())
	router.Use(RequestLogger())
	router.Use(CORS())
	router.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(nil)))

	// Prometheus 指标收集中间件
	router.Use(metrics.PrometheusMiddleware())

	// 公开端点（不需要认证）
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(db))

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 业务路由
	RegisterRoutes(router, container, handlers)

	// Worker 与周期任务调度器
	workerServer := worker.NewServer(cfg.Redis, container.CleanupService, logger.Get())
	scheduler, err := worker.NewScheduler(cfg.Redis, logger.Get())
	if err != nil {
		logger.Fatal("初始化周期任务调度器失败", zap.Error(err))
	}

	return router, workerServer, scheduler
}
