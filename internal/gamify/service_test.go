package gamify

import (
	"context"
	"testing"
	"time"

	"classhub/internal/common"
	"classhub/internal/school"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupGamifyTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(school.Models()...))
	return db
}

func seedStudent(t *testing.T, db *gorm.DB, owner, name, classID string) string {
	t.Helper()
	st := &school.Student{
		OwnedModel: common.OwnedModel{UserID: owner},
		FullName:   name,
		ClassID:    classID,
	}
	require.NoError(t, db.Create(st).Error)
	return st.ID
}

func seedAttendance(t *testing.T, db *gorm.DB, owner, studentID, status string, date time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&school.AttendanceRecord{
		OwnedModel: common.OwnedModel{UserID: owner},
		StudentID:  studentID,
		Date:       date,
		Status:     status,
	}).Error)
}

func TestLeaderboardScoring(t *testing.T) {
	ctx := context.Background()
	db := setupGamifyTestDB(t)
	svc := NewService(db, nil)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	a := seedStudent(t, db, "t1", "安一", "")
	b := seedStudent(t, db, "t1", "白二", "")

	// 安一：出勤 + 迟到 = 15 分
	seedAttendance(t, db, "t1", a, school.AttendanceStatusPresent, day)
	seedAttendance(t, db, "t1", a, school.AttendanceStatusLate, day.AddDate(0, 0, 1))
	// 白二：出勤 + 请假 + 缺勤 = 12 分
	seedAttendance(t, db, "t1", b, school.AttendanceStatusPresent, day)
	seedAttendance(t, db, "t1", b, school.AttendanceStatusExcused, day.AddDate(0, 0, 1))
	seedAttendance(t, db, "t1", b, school.AttendanceStatusAbsent, day.AddDate(0, 0, 2))

	entries, err := svc.Leaderboard(ctx, "t1", "", common.DateRange{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, "安一", entries[0].StudentName)
	require.Equal(t, 15, entries[0].Points)
	require.Equal(t, 1, entries[0].Present)
	require.Equal(t, 1, entries[0].Late)

	require.Equal(t, 2, entries[1].Rank)
	require.Equal(t, 12, entries[1].Points)
	require.Equal(t, 1, entries[1].Excused)
	require.Equal(t, 1, entries[1].Absent)
}

func TestLeaderboardTiesShareRank(t *testing.T) {
	ctx := context.Background()
	db := setupGamifyTestDB(t)
	svc := NewService(db, nil)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	a := seedStudent(t, db, "t1", "丙三", "")
	b := seedStudent(t, db, "t1", "甲一", "")
	c := seedStudent(t, db, "t1", "乙二", "")

	seedAttendance(t, db, "t1", a, school.AttendanceStatusPresent, day)
	seedAttendance(t, db, "t1", b, school.AttendanceStatusPresent, day)
	seedAttendance(t, db, "t1", c, school.AttendanceStatusLate, day)

	entries, err := svc.Leaderboard(ctx, "t1", "", common.DateRange{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// 同分共享名次，姓名升序决定先后；下一名次顺延
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, 1, entries[1].Rank)
	require.Equal(t, "丙三", entries[0].StudentName)
	require.Equal(t, "甲一", entries[1].StudentName)
	require.Equal(t, 3, entries[2].Rank)
	require.Equal(t, "乙二", entries[2].StudentName)
}

func TestLeaderboardFilters(t *testing.T) {
	ctx := context.Background()
	db := setupGamifyTestDB(t)
	svc := NewService(db, nil)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	a := seedStudent(t, db, "t1", "班内学生", "cls-1")
	b := seedStudent(t, db, "t1", "班外学生", "cls-2")
	seedAttendance(t, db, "t1", a, school.AttendanceStatusPresent, day)
	seedAttendance(t, db, "t1", a, school.AttendanceStatusPresent, day.AddDate(0, 0, -10))
	seedAttendance(t, db, "t1", b, school.AttendanceStatusPresent, day)

	// 班级过滤
	entries, err := svc.Leaderboard(ctx, "t1", "cls-1", common.DateRange{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "班内学生", entries[0].StudentName)
	require.Equal(t, 20, entries[0].Points)

	// 日期范围只计入窗口内的考勤
	from := day.AddDate(0, 0, -1)
	entries, err = svc.Leaderboard(ctx, "t1", "cls-1", common.DateRange{StartDate: &from}, 0)
	require.NoError(t, err)
	require.Equal(t, 10, entries[0].Points)

	// 其他用户的数据互不可见
	entries, err = svc.Leaderboard(ctx, "t2", "", common.DateRange{}, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestLeaderboardLimitAndDeletedExcluded(t *testing.T) {
	ctx := context.Background()
	db := setupGamifyTestDB(t)
	svc := NewService(db, nil)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	for _, name := range []string{"学生一", "学生二", "学生三"} {
		id := seedStudent(t, db, "t1", name, "")
		seedAttendance(t, db, "t1", id, school.AttendanceStatusPresent, day)
	}
	gone := seedStudent(t, db, "t1", "转走学生", "")
	seedAttendance(t, db, "t1", gone, school.AttendanceStatusPresent, day)
	require.NoError(t, db.Model(&school.Student{}).Where("id = ?", gone).
		Update("deleted_at", day).Error)

	entries, err := svc.Leaderboard(ctx, "t1", "", common.DateRange{}, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.NotEqual(t, "转走学生", e.StudentName)
	}
}
