package school

import (
	"time"

	"classhub/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 考勤状态
const (
	AttendanceStatusPresent = "present" // 出勤
	AttendanceStatusLate    = "late"    // 迟到
	AttendanceStatusExcused = "excused" // 请假
	AttendanceStatusAbsent  = "absent"  // 缺勤
)

// 任务状态
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Student 学生档案
type Student struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`
	common.OwnedModel
	FullName      string `gorm:"size:120;not null" json:"fullName"`
	StudentNumber string `gorm:"size:40" json:"studentNumber"`
	Gender        string `gorm:"size:10" json:"gender"`
	ClassID       string `gorm:"size:36;index" json:"classId"`
	Notes         string `gorm:"type:text" json:"notes"`
	common.TimestampModel
	common.SoftDeleteModel
}

// RecordID 返回主键
func (s *Student) RecordID() string { return s.ID }

// BeforeCreate GORM 钩子：创建前生成 ID
func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// Class 班级
type Class struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`
	common.OwnedModel
	Name         string `gorm:"size:120;not null" json:"name"`
	Grade        string `gorm:"size:20" json:"grade"`
	Subject      string `gorm:"size:60" json:"subject"`
	AcademicYear string `gorm:"size:20" json:"academicYear"`
	common.TimestampModel
	common.SoftDeleteModel
}

// RecordID 返回主键
func (c *Class) RecordID() string { return c.ID }

// BeforeCreate GORM 钩子：创建前生成 ID
func (c *Class) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Class) TableName() string { return "classes" }

// AttendanceRecord 单条考勤记录
type AttendanceRecord struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`
	common.OwnedModel
	StudentID string    `gorm:"size:36;not null;index" json:"studentId"`
	ClassID   string    `gorm:"size:36;index" json:"classId"`
	Date      time.Time `gorm:"not null;index" json:"date"`
	Status    string    `gorm:"size:16;not null" json:"status"`
	Note      string    `gorm:"size:255" json:"note"`
	common.TimestampModel
	common.SoftDeleteModel
}

// RecordID 返回主键
func (a *AttendanceRecord) RecordID() string { return a.ID }

// BeforeCreate GORM 钩子：创建前生成 ID
func (a *AttendanceRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance" }

// Task 教师待办任务
type Task struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`
	common.OwnedModel
	Title       string     `gorm:"size:200;not null" json:"title"`
	Subject     string     `gorm:"size:60" json:"subject"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"size:16;not null;default:pending" json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	common.TimestampModel
	common.SoftDeleteModel
}

// RecordID 返回主键
func (t *Task) RecordID() string { return t.ID }

// BeforeCreate GORM 钩子：创建前生成 ID
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Task) TableName() string { return "tasks" }

// Models 返回需要自动迁移的全部业务模型
func Models() []any {
	return []any{&Student{}, &Class{}, &AttendanceRecord{}, &Task{}}
}
