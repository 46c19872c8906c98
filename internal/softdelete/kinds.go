package softdelete

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// EntityKind 可回收实体类型标签
// 封闭集合，新增类型属于 schema 变更而非运行时概念
type EntityKind string

const (
	KindStudents   EntityKind = "students"
	KindClasses    EntityKind = "classes"
	KindAttendance EntityKind = "attendance"
	KindTasks      EntityKind = "tasks"
)

// TrashItem 回收站条目
// Data 持有按实体类型区分的具体模型，序列化时保留各自的强类型字段
type TrashItem struct {
	ID            string     `json:"id"`
	Entity        EntityKind `json:"entity"`
	DeletedAt     time.Time  `json:"deletedAt"`
	DaysRemaining int        `json:"daysRemaining"`
	Data          any        `json:"data"`
}

// Entity 一种可回收实体的接入描述
// Model 提供 GORM 模型实例用于定位表；ListDeleted 与 WriteSnapshot
// 由实体所属的业务包注册，回收站服务对具体字段保持不可知
type Entity struct {
	Kind EntityKind

	// Model 返回新的模型实例
	Model func() any

	// ListDeleted 列出某用户已软删除的记录，按 deleted_at 降序
	ListDeleted func(ctx context.Context, db *gorm.DB, ownerID string) ([]TrashItem, error)

	// WriteSnapshot 将历史快照整体写回记录（撤销 update 时使用）
	WriteSnapshot func(ctx context.Context, db *gorm.DB, ownerID, id string, raw json.RawMessage) error
}

// Registry 实体类型注册表
// 显式构造并注入服务，替代模块级单例，便于测试隔离
type Registry struct {
	order    []EntityKind
	entities map[EntityKind]Entity
}

// NewRegistry 创建注册表，遍历顺序与注册顺序一致
func NewRegistry(entities ...Entity) *Registry {
	r := &Registry{
		entities: make(map[EntityKind]Entity, len(entities)),
	}
	for _, e := range entities {
		if _, ok := r.entities[e.Kind]; ok {
			continue
		}
		r.order = append(r.order, e.Kind)
		r.entities[e.Kind] = e
	}
	return r
}

// Get 按类型查找实体描述
func (r *Registry) Get(kind EntityKind) (Entity, bool) {
	e, ok := r.entities[kind]
	return e, ok
}

// Kinds 返回全部已注册的实体类型
func (r *Registry) Kinds() []EntityKind {
	kinds := make([]EntityKind, len(r.order))
	copy(kinds, r.order)
	return kinds
}
