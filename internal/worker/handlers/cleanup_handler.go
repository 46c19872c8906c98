package handlers

import (
	"context"
	"encoding/json"

	"classhub/internal/cleanup"
	"classhub/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// CleanupHandler 定期清理任务处理器
type CleanupHandler struct {
	service *cleanup.Service
	logger  *zap.Logger
}

// NewCleanupHandler 创建清理任务处理器
func NewCleanupHandler(service *cleanup.Service, logger *zap.Logger) *CleanupHandler {
	return &CleanupHandler{service: service, logger: logger}
}

// HandleCleanupRun 执行一次清理
// 清理失败只记日志不返回错误，失败的部分留待下个周期重试。
func (h *CleanupHandler) HandleCleanupRun(ctx context.Context, t *asynq.Task) error {
	var payload tasks.CleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			h.logger.Warn("解析清理任务载荷失败，按默认载荷处理", zap.Error(err))
		}
	}

	var result *cleanup.Result
	if payload.Force {
		result = h.service.Run(ctx)
	} else {
		result = h.service.RunIfNeeded(ctx)
	}

	if !result.Ran {
		h.logger.Debug("距上次清理不足最小间隔，跳过本轮")
		return nil
	}
	if result.TrashError != nil {
		h.logger.Error("回收站清理部分失败", zap.Error(result.TrashError))
	}
	if result.LedgerError != nil {
		h.logger.Error("撤销日志清理失败", zap.Error(result.LedgerError))
	}
	return nil
}
