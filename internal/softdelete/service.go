package softdelete

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"classhub/internal/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultRetention 回收站默认保留时长（30 天）
const DefaultRetention = 30 * 24 * time.Hour

// ErrUnknownEntity 实体类型未注册
var ErrUnknownEntity = errors.New("未知的实体类型")

// Service 回收站服务
// 负责对已注册实体类型做软删除标记、恢复、枚举与过期清除。
// 不记录撤销日志，也不反向依赖撤销模块。
type Service struct {
	db        *gorm.DB
	registry  *Registry
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewService 创建回收站服务
// retention <= 0 时使用 DefaultRetention
func NewService(db *gorm.DB, registry *Registry, retention time.Duration, logger *zap.Logger) *Service {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:        db,
		registry:  registry,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock 注入时钟（测试用）
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Registry 返回服务使用的实体注册表
func (s *Service) Registry() *Registry {
	return s.registry
}

// DeleteResult 软删除结果
type DeleteResult struct {
	DeletedAt time.Time `json:"deletedAt"`
	Affected  int64     `json:"affected"`
}

// SoftDelete 将一条记录标记为已删除
// 重复删除已在回收站的记录会刷新 deleted_at，效果上延长保留窗口
func (s *Service) SoftDelete(ctx context.Context, kind EntityKind, ownerID, id string) (*DeleteResult, error) {
	entity, ok := s.registry.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, kind)
	}

	deletedAt := s.now()
	result := s.db.WithContext(ctx).
		Model(entity.Model()).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(map[string]any{
			"deleted_at": deletedAt,
			"deleted_by": ownerID,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("软删除失败 (%s/%s): %w", kind, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("记录不存在 (%s/%s): %w", kind, id, gorm.ErrRecordNotFound)
	}

	return &DeleteResult{DeletedAt: deletedAt, Affected: result.RowsAffected}, nil
}

// SoftDeleteBulk 批量软删除，同一批次共享同一个 deleted_at
// 整批写入要么成功要么失败，不做部分成功上报
func (s *Service) SoftDeleteBulk(ctx context.Context, kind EntityKind, ownerID string, ids []string) (*DeleteResult, error) {
	entity, ok := s.registry.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, kind)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("批量软删除的 ID 列表不能为空")
	}

	deletedAt := s.now()
	result := s.db.WithContext(ctx).
		Model(entity.Model()).
		Where("id IN ? AND user_id = ?", ids, ownerID).
		Updates(map[string]any{
			"deleted_at": deletedAt,
			"deleted_by": ownerID,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("批量软删除失败 (%s): %w", kind, result.Error)
	}

	return &DeleteResult{DeletedAt: deletedAt, Affected: result.RowsAffected}, nil
}

// Restore 恢复一条已删除记录，记录已是活动状态时为空操作
func (s *Service) Restore(ctx context.Context, kind EntityKind, ownerID, id string) error {
	return s.RestoreBulk(ctx, kind, ownerID, []string{id})
}

// RestoreBulk 批量恢复
func (s *Service) RestoreBulk(ctx context.Context, kind EntityKind, ownerID string, ids []string) error {
	entity, ok := s.registry.Get(kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, kind)
	}
	if len(ids) == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).
		Model(entity.Model()).
		Where("id IN ? AND user_id = ?", ids, ownerID).
		Updates(map[string]any{
			"deleted_at": nil,
			"deleted_by": "",
		})
	if result.Error != nil {
		return fmt.Errorf("恢复记录失败 (%s): %w", kind, result.Error)
	}
	return nil
}

// PermanentDelete 彻底删除一条记录，不可恢复
// 依赖检查与二次确认由调用方负责
func (s *Service) PermanentDelete(ctx context.Context, kind EntityKind, ownerID, id string) error {
	entity, ok := s.registry.Get(kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, kind)
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(entity.Model())
	if result.Error != nil {
		return fmt.Errorf("彻底删除失败 (%s/%s): %w", kind, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("记录不存在 (%s/%s): %w", kind, id, gorm.ErrRecordNotFound)
	}
	return nil
}

// GetDeletedItems 列出某实体类型下某用户的回收站条目，最近删除的在前
// daysRemaining 在读取时计算，不落库
func (s *Service) GetDeletedItems(ctx context.Context, kind EntityKind, ownerID string) ([]TrashItem, error) {
	entity, ok := s.registry.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, kind)
	}

	items, err := entity.ListDeleted(ctx, s.db, ownerID)
	if err != nil {
		return nil, fmt.Errorf("查询回收站失败 (%s): %w", kind, err)
	}

	now := s.now()
	for i := range items {
		items[i].DaysRemaining = s.daysRemaining(items[i].DeletedAt, now)
	}
	return items, nil
}

// GetAllDeletedItems 汇总全部实体类型的回收站条目，按 deleted_at 降序
func (s *Service) GetAllDeletedItems(ctx context.Context, ownerID string) ([]TrashItem, error) {
	var all []TrashItem
	for _, kind := range s.registry.Kinds() {
		items, err := s.GetDeletedItems(ctx, kind, ownerID)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].DeletedAt.After(all[j].DeletedAt)
	})
	return all, nil
}

// CleanupReport 过期清除统计
type CleanupReport struct {
	DeletedCounts map[EntityKind]int64  `json:"deletedCounts"`
	Failures      map[EntityKind]string `json:"failures,omitempty"`
}

// FirstError 返回首个失败实体的错误消息，没有失败时为空串
func (r *CleanupReport) FirstError() string {
	for _, kind := range sortedKinds(r.Failures) {
		return r.Failures[kind]
	}
	return ""
}

// CleanupExpired 清除保留窗口已过期的记录
// 后台维护任务而非事务：单个实体类型失败只记日志并跳过，
// 失败类型计数为 0，其余类型继续清理
func (s *Service) CleanupExpired(ctx context.Context) *CleanupReport {
	report := &CleanupReport{
		DeletedCounts: make(map[EntityKind]int64),
	}
	cutoff := s.now().Add(-s.retention)

	for _, kind := range s.registry.Kinds() {
		entity, _ := s.registry.Get(kind)
		result := s.db.WithContext(ctx).
			Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
			Delete(entity.Model())
		if result.Error != nil {
			s.logger.Warn("回收站过期清除失败",
				zap.String("entity", string(kind)),
				zap.Error(result.Error),
			)
			report.DeletedCounts[kind] = 0
			if report.Failures == nil {
				report.Failures = make(map[EntityKind]string)
			}
			report.Failures[kind] = result.Error.Error()
			continue
		}

		report.DeletedCounts[kind] = result.RowsAffected
		if result.RowsAffected > 0 {
			metrics.TrashPurgedTotal.WithLabelValues(string(kind)).Add(float64(result.RowsAffected))
			s.logger.Info("回收站过期清除完成",
				zap.String("entity", string(kind)),
				zap.Int64("deleted", result.RowsAffected),
			)
		}
	}

	return report
}

// daysRemaining 计算保留窗口剩余天数，最小为 0
func (s *Service) daysRemaining(deletedAt, now time.Time) int {
	retentionDays := int(s.retention / (24 * time.Hour))
	elapsedDays := int(now.Sub(deletedAt) / (24 * time.Hour))
	// 删除时间在未来（如时钟回拨）时按 0 天计，剩余天数封顶为完整保留期
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	remaining := retentionDays - elapsedDays
	if remaining < 0 {
		return 0
	}
	return remaining
}

func sortedKinds(m map[EntityKind]string) []EntityKind {
	kinds := make([]EntityKind, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
