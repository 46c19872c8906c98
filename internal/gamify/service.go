package gamify

import (
	"context"
	"fmt"
	"sort"

	"classhub/internal/common"
	"classhub/internal/school"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 出勤积分规则
const (
	PointsPresent = 10
	PointsLate    = 5
	PointsExcused = 2
	PointsAbsent  = 0
)

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Points      int    `json:"points"`
	Present     int    `json:"present"`
	Late        int    `json:"late"`
	Excused     int    `json:"excused"`
	Absent      int    `json:"absent"`
}

// Service 出勤积分服务
// 根据考勤记录计算学生积分并生成排行榜。
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService 创建出勤积分服务
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// pointsFor 单条考勤记录的积分
func pointsFor(status string) int {
	switch status {
	case school.AttendanceStatusPresent:
		return PointsPresent
	case school.AttendanceStatusLate:
		return PointsLate
	case school.AttendanceStatusExcused:
		return PointsExcused
	default:
		return PointsAbsent
	}
}

// Leaderboard 生成排行榜
// 按积分降序排列，积分相同时按姓名升序；同分共享名次。
// 可按班级与日期范围过滤，limit 非正时不限制条数。
func (s *Service) Leaderboard(ctx context.Context, ownerID, classID string, rng common.DateRange, limit int) ([]LeaderboardEntry, error) {
	studentQuery := s.db.WithContext(ctx).Model(&school.Student{}).
		Scopes(common.ByOwner(ownerID), common.NotDeleted())
	if classID != "" {
		studentQuery = studentQuery.Where("class_id = ?", classID)
	}
	var students []school.Student
	if err := studentQuery.Find(&students).Error; err != nil {
		return nil, fmt.Errorf("查询学生失败: %w", err)
	}
	if len(students) == 0 {
		return []LeaderboardEntry{}, nil
	}

	byStudent := make(map[string]*LeaderboardEntry, len(students))
	ids := make([]string, 0, len(students))
	for i := range students {
		st := &students[i]
		byStudent[st.ID] = &LeaderboardEntry{StudentID: st.ID, StudentName: st.FullName}
		ids = append(ids, st.ID)
	}

	recordQuery := s.db.WithContext(ctx).Model(&school.AttendanceRecord{}).
		Scopes(common.ByOwner(ownerID), common.NotDeleted()).
		Where("student_id IN ?", ids)
	if rng.StartDate != nil {
		recordQuery = recordQuery.Where("date >= ?", *rng.StartDate)
	}
	if rng.EndDate != nil {
		recordQuery = recordQuery.Where("date <= ?", *rng.EndDate)
	}
	var records []school.AttendanceRecord
	if err := recordQuery.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询考勤记录失败: %w", err)
	}

	for i := range records {
		rec := &records[i]
		entry, ok := byStudent[rec.StudentID]
		if !ok {
			continue
		}
		entry.Points += pointsFor(rec.Status)
		switch rec.Status {
		case school.AttendanceStatusPresent:
			entry.Present++
		case school.AttendanceStatusLate:
			entry.Late++
		case school.AttendanceStatusExcused:
			entry.Excused++
		case school.AttendanceStatusAbsent:
			entry.Absent++
		}
	}

	entries := make([]LeaderboardEntry, 0, len(byStudent))
	for _, e := range byStudent {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].StudentName < entries[j].StudentName
	})

	for i := range entries {
		if i > 0 && entries[i].Points == entries[i-1].Points {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
