package school

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"classhub/internal/common"
	"classhub/internal/softdelete"
	"classhub/internal/undo"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 校务服务
// 学生、班级、考勤与任务的增删改查，写操作同步记录撤销日志。
type Service struct {
	db     *gorm.DB
	trash  *softdelete.Service
	undoer *undo.Service
	logger *zap.Logger
	now    func() time.Time
}

// NewService 创建校务服务
func NewService(db *gorm.DB, trash *softdelete.Service, undoer *undo.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, trash: trash, undoer: undoer, logger: logger, now: time.Now}
}

// SetClock 注入时钟，仅测试使用
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// StudentInput 学生创建与更新的字段
type StudentInput struct {
	FullName      string `json:"fullName" binding:"required"`
	StudentNumber string `json:"studentNumber"`
	Gender        string `json:"gender"`
	ClassID       string `json:"classId"`
	Notes         string `json:"notes"`
}

// ClassInput 班级创建的字段
type ClassInput struct {
	Name         string `json:"name" binding:"required"`
	Grade        string `json:"grade"`
	Subject      string `json:"subject"`
	AcademicYear string `json:"academicYear"`
}

// AttendanceInput 考勤记录的字段
type AttendanceInput struct {
	StudentID string    `json:"studentId" binding:"required"`
	ClassID   string    `json:"classId"`
	Date      time.Time `json:"date" binding:"required"`
	Status    string    `json:"status" binding:"required"`
	Note      string    `json:"note"`
}

// TaskInput 任务创建与更新的字段
type TaskInput struct {
	Title       string     `json:"title" binding:"required"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
}

// record 写撤销日志，失败降级为日志告警，不阻断业务返回
func (s *Service) record(ctx context.Context, p undo.RecordParams) *undo.Action {
	action, err := s.undoer.RecordAction(ctx, p)
	if err != nil {
		s.logger.Warn("记录撤销日志失败",
			zap.String("userId", p.OwnerID),
			zap.String("actionType", string(p.ActionType)),
			zap.String("entity", string(p.Entity)),
			zap.Error(err))
		return nil
	}
	return action
}

// ---- 学生 ----

// CreateStudent 新建学生
func (s *Service) CreateStudent(ctx context.Context, ownerID string, in StudentInput) (*Student, *undo.Action, error) {
	st := &Student{
		OwnedModel:    common.OwnedModel{UserID: ownerID},
		FullName:      in.FullName,
		StudentNumber: in.StudentNumber,
		Gender:        in.Gender,
		ClassID:       in.ClassID,
		Notes:         in.Notes,
	}
	if err := s.db.WithContext(ctx).Create(st).Error; err != nil {
		return nil, nil, fmt.Errorf("创建学生失败: %w", err)
	}
	action := s.record(ctx, undo.RecordParams{
		OwnerID:    ownerID,
		ActionType: undo.ActionCreate,
		Entity:     softdelete.KindStudents,
		EntityIDs:  []string{st.ID},
	})
	return st, action, nil
}

// GetStudent 查询单个学生
func (s *Service) GetStudent(ctx context.Context, ownerID, id string) (*Student, error) {
	var st Student
	err := s.db.WithContext(ctx).
		Scopes(common.ByOwner(ownerID), common.NotDeleted()).
		First(&st, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("学生不存在: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("查询学生失败: %w", err)
	}
	return &st, nil
}

// UpdateStudent 更新学生，先留存更新前快照再覆盖写入
func (s *Service) UpdateStudent(ctx context.Context, ownerID, id string, in StudentInput) (*Student, *undo.Action, error) {
	st, err := s.GetStudent(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	snapshot, err := json.Marshal(st)
	if err != nil {
		return nil, nil, fmt.Errorf("留存学生快照失败: %w", err)
	}

	st.FullName = in.FullName
	st.StudentNumber = in.StudentNumber
	st.Gender = in.Gender
	st.ClassID = in.ClassID
	st.Notes = in.Notes
	if err := s.db.WithContext(ctx).Save(st).Error; err != nil {
		return nil, nil, fmt.Errorf("更新学生失败: %w", err)
	}

	action := s.record(ctx, undo.RecordParams{
		OwnerID:       ownerID,
		ActionType:    undo.ActionUpdate,
		Entity:        softdelete.KindStudents,
		EntityIDs:     []string{st.ID},
		PreviousState: []json.RawMessage{snapshot},
	})
	return st, action, nil
}

// DeleteStudent 软删除学生并记录可撤销操作
func (s *Service) DeleteStudent(ctx context.Context, ownerID, id string) (*undo.Action, error) {
	if _, err := s.trash.SoftDelete(ctx, softdelete.KindStudents, ownerID, id); err != nil {
		return nil, err
	}
	action := s.record(ctx, undo.RecordParams{
		OwnerID:    ownerID,
		ActionType: undo.ActionDelete,
		Entity:     softdelete.KindStudents,
		EntityIDs:  []string{id},
	})
	return action, nil
}

// ListStudents 分页查询学生，可按班级过滤
func (s *Service) ListStudents(ctx context.Context, ownerID, classID string, page common.PaginationRequest) ([]Student, int64, error) {
	query := s.db.WithContext(ctx).Model(&Student{}).
		Scopes(common.ByOwner(ownerID), common.NotDeleted())
	if classID != "" {
		query = query.Where("class_id = ?", classID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计学生失败: %w", err)
	}

	var students []Student
	err := query.Order("full_name ASC").
		Limit(page.GetPageSize()).Offset(page.GetOffset()).
		Find(&students).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询学生列表失败: %w", err)
	}
	return students, total, nil
}

// ---- 班级 ----

// CreateClass 新建班级
func (s *Service) CreateClass(ctx context.Context, ownerID string, in ClassInput) (*Class, *undo.Action, error) {
	cls := &Class{
		OwnedModel:   common.OwnedModel{UserID: ownerID},
		Name:         in.Name,
		Grade:        in.Grade,
		Subject:      in.Subject,
		AcademicYear: in.AcademicYear,
	}
	if err := s.db.WithContext(ctx).Create(cls).Error; err != nil {
		return nil, nil, fmt.Errorf("创建班级失败: %w", err)
	}
	action := s.record(ctx, undo.RecordParams{
		OwnerID:    ownerID,
		ActionType: undo.ActionCreate,
		Entity:     softdelete.KindClasses,
		EntityIDs:  []string{cls.ID},
	})
	return cls, action, nil
}

// DeleteClass 软删除班级
func (s *Service) DeleteClass(ctx context.Context, ownerID, id string) (*undo.Action, error) {
	if _, err := s.trash.SoftDelete(ctx, softdelete.KindClasses, ownerID, id); err != nil {
		return nil, err
	}
	action := s.record(ctx, undo.RecordParams{
		OwnerID:    ownerID,
		ActionType: undo.ActionDelete,
		Entity:     softdelete.KindClasses,
		EntityIDs:  []string{id},
	})
	return action, nil
}

// ListClasses 查询全部班级
func (s *Service) ListClasses(ctx context.Context, ownerID string) ([]Class, error) {
	var classes []Class
	err := s.db.WithContext(ctx).
		Scopes(common.ByOwner(ownerID), common.NotDeleted()).
		Order("name ASC").Find(&classes).Error
	if err != nil {
		return nil, fmt.Errorf("查询班级列表失败: %w", err)
	}
	return classes, nil
}

// ---- 考勤 ----

// RecordAttendance 新增一条考勤记录
func (s *Service) RecordAttendance(ctx context.Context, ownerID string, in AttendanceInput) (*AttendanceRecord, *undo.Action, error) {
	switch in.Status {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusExcused, AttendanceStatusAbsent:
	default:
		return nil, nil, fmt.Errorf("不支持的考勤状态: %s", in.Status)
	}
	rec := &AttendanceRecord{
		OwnedModel: common.OwnedModel{UserID: ownerID},
		StudentID:  in.StudentID,
		ClassID:    in.ClassID,
		Date:       in.Date,
		Status:     in.Status,
		Note:       in.Note,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, nil, fmt.Errorf("创建考勤记录失败: %w", err)
	}
	action := s.record(ctx, undo.RecordParams{
		OwnerID:    ownerID,
		ActionType: undo.ActionCreate,
		Entity:     softdelete.KindAttendance,
		EntityIDs:  []string{rec.ID},
	})
	return rec, action, nil
}

// DeleteAttendance 软删除考勤记录
func (s *Service) DeleteAttendance(ctx context.Context, ownerID, id string) (*undo.Action, error) {
	if _, err := s.trash.SoftDelete(ctx, softdelete.KindAttendance, ownerID, id); err != nil {
		return nil, err
	}
	action := s.record(ctx, undo.RecordParams{
		OwnerID:    ownerID,
		ActionType: undo.ActionDelete,
		Entity:     softdelete.KindAttendance,
		EntityIDs:  []string{id},
	})
	return action, nil
}

// ListAttendance 查询考勤记录，可按学生与日期范围过滤
func (s *Service) ListAttendance(ctx context.Context, ownerID, studentID string, rng common.DateRange) ([]AttendanceRecord, error) {
	query := s.db.WithContext(ctx).Model(&AttendanceRecord{}).
		Scopes(common.ByOwner(ownerID), common.NotDeleted())
	if studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if rng.StartDate != nil {
		query = query.Where("date >= ?", *rng.StartDate)
	}
	if rng.EndDate != nil {
		query = query.Where("date <= ?", *rng.EndDate)
	}

	var records []AttendanceRecord
	if err := query.Order("date DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询考勤记录失败: %w", err)
	}
	return records, nil
}

// ---- 任务 ----

// CreateTask 新建任务
func (s *Service) CreateTask(ctx context.Context, ownerID string, in TaskInput) (*Task, *undo.Action, error) {
	status := in.Status
	if status == "" {
		status = TaskStatusPending
	}
	task := &Task{
		OwnedModel:  common.OwnedModel{UserID: ownerID},
		Title:       in.Title,
		Subject:     in.Subject,
		Description: in.Description,
		Status:      status,
		DueDate:     in.DueDate,
	}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, nil, fmt.Errorf("创建任务失败: %w", err)
	}
	action := s.record(ctx, undo.RecordParams{
		OwnerID:    ownerID,
		ActionType: undo.ActionCreate,
		Entity:     softdelete.KindTasks,
		EntityIDs:  []string{task.ID},
	})
	return task, action, nil
}

// GetTask 查询单个任务
func (s *Service) GetTask(ctx context.Context, ownerID, id string) (*Task, error) {
	var task Task
	err := s.db.WithContext(ctx).
		Scopes(common.ByOwner(ownerID), common.NotDeleted()).
		First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("任务不存在: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("查询任务失败: %w", err)
	}
	return &task, nil
}

// UpdateTask 更新任务，先留存更新前快照再覆盖写入
func (s *Service) UpdateTask(ctx context.Context, ownerID, id string, in TaskInput) (*Task, *undo.Action, error) {
	task, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	snapshot, err := json.Marshal(task)
	if err != nil {
		return nil, nil, fmt.Errorf("留存任务快照失败: %w", err)
	}

	task.Title = in.Title
	task.Subject = in.Subject
	task.Description = in.Description
	task.DueDate = in.DueDate
	if in.Status != "" && in.Status != task.Status {
		task.Status = in.Status
		if in.Status == TaskStatusCompleted {
			now := s.now()
			task.CompletedAt = &now
		} else {
			task.CompletedAt = nil
		}
	}
	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, nil, fmt.Errorf("更新任务失败: %w", err)
	}

	action := s.record(ctx, undo.RecordParams{
		OwnerID:       ownerID,
		ActionType:    undo.ActionUpdate,
		Entity:        softdelete.KindTasks,
		EntityIDs:     []string{task.ID},
		PreviousState: []json.RawMessage{snapshot},
	})
	return task, action, nil
}

// DeleteTask 软删除单个任务
func (s *Service) DeleteTask(ctx context.Context, ownerID, id string) (*undo.Action, error) {
	if _, err := s.trash.SoftDelete(ctx, softdelete.KindTasks, ownerID, id); err != nil {
		return nil, err
	}
	action := s.record(ctx, undo.RecordParams{
		OwnerID:    ownerID,
		ActionType: undo.ActionDelete,
		Entity:     softdelete.KindTasks,
		EntityIDs:  []string{id},
	})
	return action, nil
}

// DeleteTasksBulk 批量软删除任务，作为一条可撤销操作记录
func (s *Service) DeleteTasksBulk(ctx context.Context, ownerID string, ids []string) (int64, *undo.Action, error) {
	res, err := s.trash.SoftDeleteBulk(ctx, softdelete.KindTasks, ownerID, ids)
	if err != nil {
		return 0, nil, err
	}
	action := s.record(ctx, undo.RecordParams{
		OwnerID:    ownerID,
		ActionType: undo.ActionBulkDelete,
		Entity:     softdelete.KindTasks,
		EntityIDs:  ids,
	})
	return res.Affected, action, nil
}

// ListTasks 分页查询任务，可按状态过滤
func (s *Service) ListTasks(ctx context.Context, ownerID, status string, page common.PaginationRequest) ([]Task, int64, error) {
	query := s.db.WithContext(ctx).Model(&Task{}).
		Scopes(common.ByOwner(ownerID), common.NotDeleted())
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计任务失败: %w", err)
	}

	var tasks []Task
	err := query.Order("created_at DESC").
		Limit(page.GetPageSize()).Offset(page.GetOffset()).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询任务列表失败: %w", err)
	}
	return tasks, total, nil
}
