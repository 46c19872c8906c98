package api

import (
	"time"

	"classhub/internal/auth"
	"classhub/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, container *AppContainer, handlers *Handlers) {
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware(container.JWTService))
	registerAPIRoutes(api, handlers)
}

// registerAPIRoutes 注册需要认证的 API 路由
func registerAPIRoutes(apiGroup *gin.RouterGroup, h *Handlers) {
	// 学生
	studentsGroup := apiGroup.Group("/students")
	{
		studentsGroup.POST("", h.Students.Create)
		studentsGroup.GET("", h.Students.List)
		studentsGroup.GET("/:id", h.Students.Get)
		studentsGroup.PUT("/:id", h.Students.Update)
		studentsGroup.DELETE("/:id", h.Students.Delete)
	}

	// 班级
	classesGroup := apiGroup.Group("/classes")
	{
		classesGroup.POST("", h.Classes.Create)
		classesGroup.GET("", h.Classes.List)
		classesGroup.DELETE("/:id", h.Classes.Delete)
	}

	// 考勤
	attendanceGroup := apiGroup.Group("/attendance")
	{
		attendanceGroup.POST("", h.Classes.RecordAttendance)
		attendanceGroup.GET("", h.Classes.ListAttendance)
		attendanceGroup.DELETE("/:id", h.Classes.DeleteAttendance)
	}

	// 任务
	tasksGroup := apiGroup.Group("/tasks")
	{
		tasksGroup.POST("", h.Tasks.Create)
		tasksGroup.GET("", h.Tasks.List)
		tasksGroup.GET("/:id", h.Tasks.Get)
		tasksGroup.PUT("/:id", h.Tasks.Update)
		tasksGroup.DELETE("/:id", h.Tasks.Delete)
		tasksGroup.POST("/bulk-delete", h.Tasks.DeleteBulk)
	}

	// 回收站
	trashGroup := apiGroup.Group("/trash")
	{
		trashGroup.GET("", h.Trash.ListAll)
		trashGroup.GET("/:entity", h.Trash.ListByEntity)
		trashGroup.POST("/:entity/restore/:id", h.Trash.Restore)
		trashGroup.POST("/:entity/restore-bulk", h.Trash.RestoreBulk)
		trashGroup.DELETE("/:entity/:id", h.Trash.PermanentDelete)
	}

	// 操作历史与撤销
	historyGroup := apiGroup.Group("/history")
	{
		historyGroup.GET("", h.History.List)
		historyGroup.DELETE("", h.History.Clear)
		historyGroup.POST("/:id/undo", h.History.Undo)
		historyGroup.GET("/:id/undoable", h.History.Undoable)
	}

	// 排行榜与搜索
	apiGroup.GET("/leaderboard", h.Leaderboard.Get)
	apiGroup.GET("/search", h.Search.Search)

	// 维护，敏感接口单独限流
	adminLimiter := middleware.NewRateLimiter(&middleware.RateLimiterConfig{
		RequestsPerSecond: 1,
		RequestsPerMinute: 10,
		BurstSize:         2,
		CleanupInterval:   5 * time.Minute,
	})
	apiGroup.POST("/admin/cleanup", middleware.RateLimitByEndpoint(adminLimiter), h.Maintenance.TriggerCleanup)
}
