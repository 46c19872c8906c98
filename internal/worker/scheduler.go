package worker

import (
	"encoding/json"
	"fmt"

	"classhub/internal/config"
	"classhub/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Scheduler 周期任务调度器
// 每小时投递一次清理任务；是否真正执行由清理服务的节流判断决定。
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *zap.Logger
}

// NewScheduler 创建调度器并注册周期任务
func NewScheduler(cfg config.RedisConfig, logger *zap.Logger) (*Scheduler, error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		&asynq.SchedulerOpts{
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if err != nil {
					logger.Error("周期任务投递失败", zap.Error(err))
				}
			},
		},
	)

	payload, err := json.Marshal(tasks.CleanupPayload{})
	if err != nil {
		return nil, fmt.Errorf("序列化清理任务载荷失败: %w", err)
	}
	_, err = scheduler.Register("@every 1h",
		asynq.NewTask(tasks.TypeCleanupRun, payload),
		asynq.Queue("maintenance"),
	)
	if err != nil {
		return nil, fmt.Errorf("注册清理周期任务失败: %w", err)
	}

	return &Scheduler{scheduler: scheduler, logger: logger}, nil
}

// Start 非阻塞启动调度器
func (s *Scheduler) Start() error {
	s.logger.Info("周期任务调度器启动中...")
	return s.scheduler.Start()
}

// Shutdown 停止调度器
func (s *Scheduler) Shutdown() {
	s.logger.Info("周期任务调度器停止中...")
	s.scheduler.Shutdown()
}
