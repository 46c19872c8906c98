package school

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"classhub/internal/common"
	"classhub/internal/softdelete"

	"gorm.io/gorm"
)

// trashRecord 可回收模型的公共行为
type trashRecord interface {
	RecordID() string
	DeletedTime() *time.Time
}

// NewTrashRegistry 注册全部业务实体到回收站
// 实体集合是封闭的，新增实体类型需要同步的 schema 变更
func NewTrashRegistry() *softdelete.Registry {
	return softdelete.NewRegistry(
		entityFor[Student](softdelete.KindStudents),
		entityFor[Class](softdelete.KindClasses),
		entityFor[AttendanceRecord](softdelete.KindAttendance),
		entityFor[Task](softdelete.KindTasks),
	)
}

// entityFor 为模型 T 构造回收站接入描述
func entityFor[T any, PT interface {
	trashRecord
	*T
}](kind softdelete.EntityKind) softdelete.Entity {
	return softdelete.Entity{
		Kind: kind,
		Model: func() any {
			return PT(new(T))
		},
		ListDeleted: func(ctx context.Context, db *gorm.DB, ownerID string) ([]softdelete.TrashItem, error) {
			var rows []T
			err := db.WithContext(ctx).
				Scopes(common.ByOwner(ownerID), common.OnlyDeleted()).
				Order("deleted_at DESC").
				Find(&rows).Error
			if err != nil {
				return nil, err
			}

			items := make([]softdelete.TrashItem, 0, len(rows))
			for i := range rows {
				rec := PT(&rows[i])
				deletedAt := rec.DeletedTime()
				if deletedAt == nil {
					continue
				}
				items = append(items, softdelete.TrashItem{
					ID:        rec.RecordID(),
					Entity:    kind,
					DeletedAt: *deletedAt,
					Data:      rec,
				})
			}
			return items, nil
		},
		WriteSnapshot: func(ctx context.Context, db *gorm.DB, ownerID, id string, raw json.RawMessage) error {
			var m T
			if err := json.Unmarshal(raw, &m); err != nil {
				return fmt.Errorf("解析历史快照失败 (%s/%s): %w", kind, id, err)
			}
			rec := PT(&m)
			if rec.RecordID() != id {
				return fmt.Errorf("快照与记录不匹配 (%s): 快照 ID %s", id, rec.RecordID())
			}
			// 快照整体覆盖当前记录，不做并发冲突检测（后写覆盖）
			return db.WithContext(ctx).Save(rec).Error
		},
	}
}
