package undo

import (
	"encoding/json"
	"fmt"
	"time"

	"classhub/internal/softdelete"

	"gorm.io/datatypes"
)

// ActionType 可撤销操作类型
type ActionType string

const (
	ActionCreate     ActionType = "create"
	ActionUpdate     ActionType = "update"
	ActionDelete     ActionType = "delete"
	ActionBulkDelete ActionType = "bulk_delete"
)

// Valid 判断操作类型是否合法
func (t ActionType) Valid() bool {
	switch t {
	case ActionCreate, ActionUpdate, ActionDelete, ActionBulkDelete:
		return true
	}
	return false
}

// Action 撤销日志条目
// 持久表 undo_actions 的行结构，同时作为内存工作集的条目。
// CanUndo 持久化为 can_undo 列；"已撤销" 即 CanUndo 取反。
type Action struct {
	ID            string                `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string                `gorm:"size:64;not null;index:idx_undo_user" json:"userId"`
	ActionType    ActionType            `gorm:"size:20;not null;index:idx_undo_type" json:"actionType"`
	EntityType    softdelete.EntityKind `gorm:"size:20;not null;index:idx_undo_entity" json:"entity"`
	AffectedIDs   datatypes.JSON        `gorm:"not null" json:"entityIds"`
	PreviousState datatypes.JSON        `json:"previousState,omitempty"`
	Description   string                `gorm:"size:255" json:"description"`
	CreatedAt     time.Time             `gorm:"not null;index:idx_undo_created" json:"createdAt"`
	ExpiresAt     time.Time             `gorm:"not null" json:"expiresAt"`
	CanUndo       bool                  `gorm:"not null;default:true" json:"canUndo"`
}

// TableName 指定表名
func (Action) TableName() string { return "undo_actions" }

// Undone 该操作是否已被撤销
func (a *Action) Undone() bool { return !a.CanUndo }

// EntityIDs 解析受影响记录的 ID 列表
func (a *Action) EntityIDs() ([]string, error) {
	var ids []string
	if err := json.Unmarshal(a.AffectedIDs, &ids); err != nil {
		return nil, fmt.Errorf("解析受影响 ID 列表失败: %w", err)
	}
	return ids, nil
}

// Snapshots 解析操作前的记录快照，每个受影响 ID 对应一份
func (a *Action) Snapshots() ([]json.RawMessage, error) {
	if len(a.PreviousState) == 0 {
		return nil, nil
	}
	var snaps []json.RawMessage
	if err := json.Unmarshal(a.PreviousState, &snaps); err != nil {
		return nil, fmt.Errorf("解析历史快照失败: %w", err)
	}
	return snaps, nil
}

// clone 复制条目，内存工作集持有独立副本
func (a *Action) clone() *Action {
	cp := *a
	cp.AffectedIDs = append(datatypes.JSON(nil), a.AffectedIDs...)
	cp.PreviousState = append(datatypes.JSON(nil), a.PreviousState...)
	return &cp
}

// HistoryItem 历史列表条目
// CanUndo 在读取时根据持久标记与过期时间实时计算
type HistoryItem struct {
	ID          string                `json:"id"`
	ActionType  ActionType            `json:"actionType"`
	Entity      softdelete.EntityKind `json:"entity"`
	EntityIDs   []string              `json:"entityIds"`
	Description string                `json:"description"`
	CreatedAt   time.Time             `json:"createdAt"`
	ExpiresAt   time.Time             `json:"expiresAt"`
	CanUndo     bool                  `json:"canUndo"`
}

// 操作描述用语
var (
	actionVerbs = map[ActionType]string{
		ActionCreate:     "新建",
		ActionUpdate:     "更新",
		ActionDelete:     "删除",
		ActionBulkDelete: "批量删除",
	}

	entityLabels = map[softdelete.EntityKind]string{
		softdelete.KindStudents:   "学生",
		softdelete.KindClasses:    "班级",
		softdelete.KindAttendance: "考勤",
		softdelete.KindTasks:      "任务",
	}
)

// describe 根据操作类型、实体类型与数量生成可读描述
func describe(actionType ActionType, entity softdelete.EntityKind, count int) string {
	verb, ok := actionVerbs[actionType]
	if !ok {
		verb = string(actionType)
	}
	label, ok := entityLabels[entity]
	if !ok {
		label = string(entity)
	}
	return fmt.Sprintf("%s了 %d 条%s记录", verb, count, label)
}
