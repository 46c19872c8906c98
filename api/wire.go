package api

import (
	"context"
	"fmt"
	"os"
	"strings"

	"classhub/api/handlers/classes"
	historyHandlers "classhub/api/handlers/history"
	"classhub/api/handlers/leaderboard"
	"classhub/api/handlers/maintenance"
	searchHandlers "classhub/api/handlers/search"
	"classhub/api/handlers/students"
	taskHandlers "classhub/api/handlers/tasks"
	trashHandlers "classhub/api/handlers/trash"

	"classhub/internal/auth"
	"classhub/internal/cleanup"
	"classhub/internal/config"
	"classhub/internal/gamify"
	"classhub/internal/infra/queue"
	"classhub/internal/logger"
	"classhub/internal/school"
	searchSvc "classhub/internal/search"
	"classhub/internal/softdelete"
	"classhub/internal/undo"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AppContainer 应用服务容器，集中持有各层服务实例
type AppContainer struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	QueueClient queue.Client

	JWTService     *auth.JWTService
	TrashService   *softdelete.Service
	UndoService    *undo.Service
	CleanupService *cleanup.Service
	SchoolService  *school.Service
	GamifyService  *gamify.Service
	SearchService  *searchSvc.Service
}

// Handlers HTTP 处理器集合
type Handlers struct {
	Students    *students.StudentHandler
	Tasks       *taskHandlers.TaskHandler
	Classes     *classes.ClassHandler
	Trash       *trashHandlers.TrashHandler
	History     *historyHandlers.HistoryHandler
	Leaderboard *leaderboard.LeaderboardHandler
	Search      *searchHandlers.SearchHandler
	Maintenance *maintenance.MaintenanceHandler
}

// BuildContainer 构建服务容器
func BuildContainer(db *gorm.DB, cfg *config.Config) *AppContainer {
	log := logger.Get()

	// 统一归一化 Redis 配置
	redisCfg := normalizeRedisConfig(cfg.Redis)
	cfg.Redis = redisCfg

	// 队列客户端
	queueClient := queue.NewClient(redisCfg)

	// Redis 客户端（清理时间戳存储）
	redisClient := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", redisCfg.Host, redisCfg.Port),
		Password:     redisCfg.Password,
		DB:           redisCfg.DB,
		PoolSize:     redisCfg.PoolSize,
		MinIdleConns: redisCfg.MinIdleConns,
	})
	var stampStore cleanup.StampStore
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("Redis 不可用，清理时间戳退回内存实现", zap.Error(err))
		redisClient = nil
		stampStore = cleanup.NewMemoryStampStore()
	} else {
		stampStore = cleanup.NewRedisStampStore(redisClient)
	}

	// 认证服务
	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		jwtSecret = strings.TrimSpace(os.Getenv("JWT_SECRET_KEY"))
	}
	if jwtSecret == "" {
		// 生产模式必须显式配置密钥，防止使用弱默认值
		if strings.EqualFold(cfg.Server.Mode, "release") {
			log.Fatal("JWT 密钥未配置，生产环境禁止使用默认密钥")
		}
		jwtSecret = "default_jwt_secret_key_change_in_production"
		log.Warn("JWT 密钥未配置，已回退为开发默认值")
	}
	issuer := cfg.Auth.Issuer
	if issuer == "" {
		issuer = "ClassHub"
	}
	jwtService := auth.NewJWTService(jwtSecret, issuer, 0)

	// 核心服务
	registry := school.NewTrashRegistry()
	trashService := softdelete.NewService(db, registry, cfg.Retention.TrashRetention(), log)
	workingSet := undo.NewWorkingSet(cfg.Retention.CacheSize(), cfg.Retention.UndoCacheAge())
	undoService := undo.NewService(db, trashService, workingSet,
		cfg.Retention.UndoTimeout(), cfg.Retention.HistoryHorizon(), log)
	cleanupService := cleanup.NewService(trashService, undoService, stampStore,
		cfg.Retention.CleanupInterval(), log)
	schoolService := school.NewService(db, trashService, undoService, log)
	gamifyService := gamify.NewService(db, log)
	searchService := searchSvc.NewService(db, log)

	return &AppContainer{
		Config:         cfg,
		DB:             db,
		RedisClient:    redisClient,
		QueueClient:    queueClient,
		JWTService:     jwtService,
		TrashService:   trashService,
		UndoService:    undoService,
		CleanupService: cleanupService,
		SchoolService:  schoolService,
		GamifyService:  gamifyService,
		SearchService:  searchService,
	}
}

// BuildHandlers 构建 HTTP 处理器集合
func BuildHandlers(c *AppContainer) *Handlers {
	return &Handlers{
		Students:    students.NewStudentHandler(c.SchoolService),
		Tasks:       taskHandlers.NewTaskHandler(c.SchoolService),
		Classes:     classes.NewClassHandler(c.SchoolService),
		Trash:       trashHandlers.NewTrashHandler(c.TrashService),
		History:     historyHandlers.NewHistoryHandler(c.UndoService),
		Leaderboard: leaderboard.NewLeaderboardHandler(c.GamifyService),
		Search:      searchHandlers.NewSearchHandler(c.SearchService),
		Maintenance: maintenance.NewMaintenanceHandler(c.QueueClient),
	}
}
