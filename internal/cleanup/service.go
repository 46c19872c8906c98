package cleanup

import (
	"context"
	"errors"
	"time"

	"classhub/internal/metrics"
	"classhub/internal/softdelete"
	"classhub/internal/undo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultInterval 相邻两次清理之间的最小间隔
const DefaultInterval = 24 * time.Hour

// Result 一次清理的执行结果
type Result struct {
	Ran            bool                             `json:"ran"`
	DeletedCounts  map[softdelete.EntityKind]int64  `json:"deletedCounts,omitempty"`
	Failures       map[softdelete.EntityKind]string `json:"failures,omitempty"`
	DeletedActions int64                            `json:"deletedActions"`
	TrashError     error                            `json:"-"`
	LedgerError    error                            `json:"-"`
}

// Success 回收站与撤销日志两侧是否均清理成功
func (r *Result) Success() bool {
	return r.TrashError == nil && r.LedgerError == nil
}

// Service 定期清理服务
// 清除超过保留期的回收站记录与过期撤销日志。
// 通过时间戳存储做节流：距上次尝试不足最小间隔时跳过执行。
type Service struct {
	trash    *softdelete.Service
	undoer   *undo.Service
	stamps   StampStore
	interval time.Duration
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService 创建清理服务，非正间隔取默认值
func NewService(trash *softdelete.Service, undoer *undo.Service, stamps StampStore, interval time.Duration, logger *zap.Logger) *Service {
	if stamps == nil {
		stamps = NewMemoryStampStore()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		trash:    trash,
		undoer:   undoer,
		stamps:   stamps,
		interval: interval,
		logger:   logger,
		tracer:   otel.Tracer("classhub/internal/cleanup"),
		now:      time.Now,
	}
}

// SetClock 注入时钟，仅测试使用
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ShouldRun 距上次清理尝试是否已超过最小间隔
// 时间戳读取失败时视为需要执行，宁可多清理一次也不积压。
func (s *Service) ShouldRun(ctx context.Context) bool {
	last, err := s.stamps.Last(ctx)
	if err != nil {
		s.logger.Warn("读取清理时间戳失败，按需要清理处理", zap.Error(err))
		return true
	}
	if last.IsZero() {
		return true
	}
	return s.now().Sub(last) >= s.interval
}

// Run 无条件执行一次清理
// 先记录本次尝试时间，随后清理回收站与撤销日志。
// 任一侧失败不影响另一侧执行，失败留待下个周期重试。
func (s *Service) Run(ctx context.Context) *Result {
	ctx, span := s.tracer.Start(ctx, "CleanupService.Run")
	defer span.End()

	now := s.now()
	if err := s.stamps.Mark(ctx, now); err != nil {
		s.logger.Warn("写入清理时间戳失败", zap.Error(err))
	}

	result := &Result{Ran: true}

	report := s.trash.CleanupExpired(ctx)
	result.DeletedCounts = report.DeletedCounts
	result.Failures = report.Failures
	if msg := report.FirstError(); msg != "" {
		result.TrashError = errors.New(msg)
	}

	deleted, err := s.undoer.CleanupExpiredActions(ctx)
	result.DeletedActions = deleted
	result.LedgerError = err

	status := "ok"
	if !result.Success() {
		status = "error"
	}
	metrics.CleanupRunsTotal.WithLabelValues(status).Inc()
	span.SetAttributes(
		attribute.Int64("deleted_actions", result.DeletedActions),
		attribute.String("status", status),
	)

	s.logger.Info("清理执行完成",
		zap.Any("deletedCounts", result.DeletedCounts),
		zap.Int64("deletedActions", result.DeletedActions),
		zap.String("status", status))
	return result
}

// RunIfNeeded 在满足节流条件时执行清理，否则返回未执行的结果
func (s *Service) RunIfNeeded(ctx context.Context) *Result {
	if !s.ShouldRun(ctx) {
		return &Result{Ran: false}
	}
	return s.Run(ctx)
}
