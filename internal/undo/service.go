package undo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"classhub/internal/metrics"
	"classhub/internal/softdelete"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// DefaultUndoTimeout 默认撤销窗口
	DefaultUndoTimeout = 10 * time.Second
	// DefaultHistoryHorizon 持久日志保留期限
	DefaultHistoryHorizon = 7 * 24 * time.Hour
)

var (
	// ErrActionNotFound 撤销记录不存在
	ErrActionNotFound = errors.New("撤销记录不存在")
	// ErrAlreadyUndone 操作已撤销，撤销仅能执行一次
	ErrAlreadyUndone = errors.New("该操作已撤销，无法再次撤销")
	// ErrUndoExpired 撤销窗口已过期
	ErrUndoExpired = errors.New("撤销窗口已过期")
)

// Service 撤销日志服务
// 记录可逆操作并在时间窗口内执行撤销。
// 每次记录同时写入持久表与内存工作集；持久写失败降级为仅内存，不阻断业务。
type Service struct {
	db             *gorm.DB
	trash          *softdelete.Service
	registry       *softdelete.Registry
	cache          *WorkingSet
	defaultTimeout time.Duration
	historyHorizon time.Duration
	logger         *zap.Logger
	tracer         trace.Tracer
	now            func() time.Time
}

// NewService 创建撤销日志服务，非正的窗口与保留参数取默认值
func NewService(db *gorm.DB, trash *softdelete.Service, cache *WorkingSet, defaultTimeout, historyHorizon time.Duration, logger *zap.Logger) *Service {
	if cache == nil {
		cache = NewWorkingSet(0, 0)
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultUndoTimeout
	}
	if historyHorizon <= 0 {
		historyHorizon = DefaultHistoryHorizon
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:             db,
		trash:          trash,
		registry:       trash.Registry(),
		cache:          cache,
		defaultTimeout: defaultTimeout,
		historyHorizon: historyHorizon,
		logger:         logger,
		tracer:         otel.Tracer("classhub/internal/undo"),
		now:            time.Now,
	}
}

// SetClock 注入时钟，仅测试使用；同时覆盖内存工作集的时钟
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.cache.SetClock(now)
}

// Cache 返回内存工作集
func (s *Service) Cache() *WorkingSet { return s.cache }

// RecordParams 记录操作的参数
// Timeout 为 nil 时使用默认撤销窗口；显式零值窗口立即过期。
type RecordParams struct {
	OwnerID       string
	ActionType    ActionType
	Entity        softdelete.EntityKind
	EntityIDs     []string
	PreviousState []json.RawMessage
	Description   string
	Timeout       *time.Duration
}

// RecordAction 记录一次可逆操作
func (s *Service) RecordAction(ctx context.Context, p RecordParams) (*Action, error) {
	if p.OwnerID == "" {
		return nil, errors.New("用户 ID 不能为空")
	}
	if !p.ActionType.Valid() {
		return nil, fmt.Errorf("不支持的操作类型: %s", p.ActionType)
	}
	if _, ok := s.registry.Get(p.Entity); !ok {
		return nil, fmt.Errorf("%w: %s", softdelete.ErrUnknownEntity, p.Entity)
	}
	if len(p.EntityIDs) == 0 {
		return nil, errors.New("受影响 ID 列表不能为空")
	}
	if p.ActionType == ActionUpdate && len(p.PreviousState) != len(p.EntityIDs) {
		return nil, errors.New("更新操作的历史快照数量必须与 ID 数量一致")
	}

	now := s.now()
	timeout := s.defaultTimeout
	if p.Timeout != nil {
		timeout = *p.Timeout
	}

	idsJSON, err := json.Marshal(p.EntityIDs)
	if err != nil {
		return nil, fmt.Errorf("序列化受影响 ID 列表失败: %w", err)
	}
	var prevJSON datatypes.JSON
	if len(p.PreviousState) > 0 {
		b, err := json.Marshal(p.PreviousState)
		if err != nil {
			return nil, fmt.Errorf("序列化历史快照失败: %w", err)
		}
		prevJSON = b
	}
	desc := p.Description
	if desc == "" {
		desc = describe(p.ActionType, p.Entity, len(p.EntityIDs))
	}

	action := &Action{
		ID:            uuid.New().String(),
		UserID:        p.OwnerID,
		ActionType:    p.ActionType,
		EntityType:    p.Entity,
		AffectedIDs:   idsJSON,
		PreviousState: prevJSON,
		Description:   desc,
		CreatedAt:     now,
		ExpiresAt:     now.Add(timeout),
		CanUndo:       true,
	}

	// 持久写失败只降级记日志，撤销在窗口内仍可依赖内存副本完成
	if err := s.db.WithContext(ctx).Create(action).Error; err != nil {
		s.logger.Warn("撤销日志持久化失败，仅保留内存副本",
			zap.String("actionId", action.ID),
			zap.String("userId", p.OwnerID),
			zap.Error(err))
	}
	s.cache.Put(action.clone())

	metrics.ActionsRecordedTotal.WithLabelValues(string(p.ActionType), string(p.Entity)).Inc()
	return action, nil
}

// Undo 撤销指定操作
// 优先查内存工作集，未命中时回退持久表。撤销仅能执行一次；
// 窗口边界取排他判断，恰好等于过期时刻仍允许撤销。
// 仅允许撤销属于 ownerID 的操作，他人的记录按不存在处理。
func (s *Service) Undo(ctx context.Context, ownerID, actionID string) error {
	ctx, span := s.tracer.Start(ctx, "UndoService.Undo")
	defer span.End()
	span.SetAttributes(attribute.String("action_id", actionID))

	if err := s.undo(ctx, ownerID, actionID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *Service) undo(ctx context.Context, ownerID, actionID string) error {
	action, fromCache := s.cache.Get(actionID)
	if fromCache && action.UserID != ownerID {
		return fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
	}
	if !fromCache {
		var row Action
		err := s.db.WithContext(ctx).First(&row, "id = ? AND user_id = ?", actionID, ownerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
		}
		if err != nil {
			return fmt.Errorf("查询撤销记录失败: %w", err)
		}
		action = &row
	}

	if action.Undone() {
		return ErrAlreadyUndone
	}
	if s.now().After(action.ExpiresAt) {
		return ErrUndoExpired
	}

	ids, err := action.EntityIDs()
	if err != nil {
		return err
	}

	switch action.ActionType {
	case ActionDelete:
		err = s.trash.Restore(ctx, action.EntityType, action.UserID, ids[0])
	case ActionBulkDelete:
		err = s.trash.RestoreBulk(ctx, action.EntityType, action.UserID, ids)
	case ActionUpdate:
		err = s.restoreSnapshots(ctx, action, ids)
	case ActionCreate:
		_, err = s.trash.SoftDeleteBulk(ctx, action.EntityType, action.UserID, ids)
	default:
		err = fmt.Errorf("不支持的操作类型: %s", action.ActionType)
	}
	if err != nil {
		// 回滚动作失败时不消耗撤销机会，保持可重试
		return fmt.Errorf("撤销执行失败: %w", err)
	}

	s.cache.MarkUndone(actionID)
	if err := s.db.WithContext(ctx).Model(&Action{}).Where("id = ?", actionID).Update("can_undo", false).Error; err != nil {
		s.logger.Warn("撤销标记持久化失败", zap.String("actionId", actionID), zap.Error(err))
	}

	metrics.ActionsUndoneTotal.WithLabelValues(string(action.ActionType), string(action.EntityType)).Inc()
	s.logger.Info("撤销完成",
		zap.String("actionId", actionID),
		zap.String("actionType", string(action.ActionType)),
		zap.String("entity", string(action.EntityType)),
		zap.Int("affected", len(ids)))
	return nil
}

// restoreSnapshots 将更新前的快照逐条写回
func (s *Service) restoreSnapshots(ctx context.Context, action *Action, ids []string) error {
	snaps, err := action.Snapshots()
	if err != nil {
		return err
	}
	if len(snaps) != len(ids) {
		return fmt.Errorf("历史快照数量与 ID 数量不一致: %d != %d", len(snaps), len(ids))
	}
	entity, ok := s.registry.Get(action.EntityType)
	if !ok {
		return fmt.Errorf("%w: %s", softdelete.ErrUnknownEntity, action.EntityType)
	}
	for i, id := range ids {
		if err := entity.WriteSnapshot(ctx, s.db, action.UserID, id, snaps[i]); err != nil {
			return fmt.Errorf("写回快照失败 (%s): %w", id, err)
		}
	}
	return nil
}

// HistoryQuery 历史查询条件，零值字段不参与过滤
type HistoryQuery struct {
	ActionType ActionType
	Entity     softdelete.EntityKind
	From       *time.Time
	To         *time.Time
	Keyword    string
	Limit      int
	Offset     int
}

// GetActionHistory 查询用户的操作历史，按创建时间倒序
func (s *Service) GetActionHistory(ctx context.Context, ownerID string, q HistoryQuery) ([]HistoryItem, int64, error) {
	query := s.db.WithContext(ctx).Model(&Action{}).Where("user_id = ?", ownerID)
	if q.ActionType != "" {
		query = query.Where("action_type = ?", q.ActionType)
	}
	if q.Entity != "" {
		query = query.Where("entity_type = ?", q.Entity)
	}
	if q.From != nil {
		query = query.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("created_at <= ?", *q.To)
	}
	if q.Keyword != "" {
		query = query.Where("description LIKE ?", "%"+q.Keyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计操作历史失败: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var rows []Action
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("查询操作历史失败: %w", err)
	}

	now := s.now()
	items := make([]HistoryItem, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		ids, err := row.EntityIDs()
		if err != nil {
			s.logger.Warn("历史条目 ID 列表损坏", zap.String("actionId", row.ID), zap.Error(err))
		}
		items = append(items, HistoryItem{
			ID:          row.ID,
			ActionType:  row.ActionType,
			Entity:      row.EntityType,
			EntityIDs:   ids,
			Description: row.Description,
			CreatedAt:   row.CreatedAt,
			ExpiresAt:   row.ExpiresAt,
			CanUndo:     row.CanUndo && !now.After(row.ExpiresAt),
		})
	}
	return items, total, nil
}

// ClearHistory 清空用户的全部操作历史，持久与内存一并移除
func (s *Service) ClearHistory(ctx context.Context, ownerID string) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", ownerID).Delete(&Action{}).Error; err != nil {
		return fmt.Errorf("清空操作历史失败: %w", err)
	}
	s.cache.RemoveOwner(ownerID)
	return nil
}

// CleanupExpiredActions 删除超过保留期限的持久日志，返回删除条数
func (s *Service) CleanupExpiredActions(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.historyHorizon)
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Action{})
	if res.Error != nil {
		return 0, fmt.Errorf("清理过期撤销日志失败: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		metrics.LedgerPurgedTotal.Add(float64(res.RowsAffected))
		s.logger.Info("清理过期撤销日志", zap.Int64("deleted", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// CanUndo 指定操作当前是否可撤销，仅查内存工作集
// 他人的操作一律返回不可撤销
func (s *Service) CanUndo(ownerID, actionID string) bool {
	a, ok := s.cache.Get(actionID)
	if !ok || a.UserID != ownerID || !a.CanUndo {
		return false
	}
	return !s.now().After(a.ExpiresAt)
}

// UndoTimeRemaining 撤销窗口剩余时长，不可撤销时返回零
func (s *Service) UndoTimeRemaining(ownerID, actionID string) time.Duration {
	a, ok := s.cache.Get(actionID)
	if !ok || a.UserID != ownerID || !a.CanUndo {
		return 0
	}
	rem := a.ExpiresAt.Sub(s.now())
	if rem < 0 {
		return 0
	}
	return rem
}
