package common

import "time"

// SoftDeleteModel 软删除基础模型
// 提供统一的软删除字段和方法，嵌入到支持回收站的模型中。
// 字段类型使用 *time.Time 而非 gorm.DeletedAt，软删除的标记、
// 恢复与过滤全部由回收站服务显式控制，不依赖 GORM 的隐式行为。
type SoftDeleteModel struct {
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
	DeletedBy string     `json:"deletedBy,omitempty" gorm:"size:100"`
}

// IsDeleted 检查记录是否已被软删除
func (m *SoftDeleteModel) IsDeleted() bool {
	return m.DeletedAt != nil
}

// DeletedTime 返回删除时间戳，未删除时为 nil
func (m *SoftDeleteModel) DeletedTime() *time.Time {
	return m.DeletedAt
}

// MarkDeleted 设置软删除标记
// 重复删除会刷新 DeletedAt，效果上延长保留窗口（沿用既有行为）
func (m *SoftDeleteModel) MarkDeleted(at time.Time, operatorID string) {
	m.DeletedAt = &at
	m.DeletedBy = operatorID
}

// Restore 清除软删除标记
func (m *SoftDeleteModel) Restore() {
	m.DeletedAt = nil
	m.DeletedBy = ""
}

// TimestampModel 时间戳基础模型
type TimestampModel struct {
	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// OwnedModel 归属模型
// 所有业务记录按 user_id（教师账号）隔离
type OwnedModel struct {
	UserID string `json:"userId" gorm:"size:64;not null;index"`
}
