package softdelete

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"classhub/internal/common"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	kindNotes EntityKind = "notes"
	kindMemos EntityKind = "memos"
	kindBroke EntityKind = "broken"
)

type note struct {
	ID string `gorm:"primaryKey"`
	common.OwnedModel
	Title string
	common.TimestampModel
	common.SoftDeleteModel
}

func (note) TableName() string { return "notes" }

type memo struct {
	ID string `gorm:"primaryKey"`
	common.OwnedModel
	Body string
	common.TimestampModel
	common.SoftDeleteModel
}

func (memo) TableName() string { return "memos" }

// missing 指向一张不存在的表，用于模拟单类型清理失败
type missing struct {
	ID string `gorm:"primaryKey"`
}

func (missing) TableName() string { return "missing_table" }

func noteEntity() Entity {
	return Entity{
		Kind:  kindNotes,
		Model: func() any { return &note{} },
		ListDeleted: func(ctx context.Context, db *gorm.DB, ownerID string) ([]TrashItem, error) {
			var rows []note
			err := db.WithContext(ctx).
				Scopes(common.ByOwner(ownerID), common.OnlyDeleted()).
				Order("deleted_at DESC").
				Find(&rows).Error
			if err != nil {
				return nil, err
			}
			items := make([]TrashItem, 0, len(rows))
			for i := range rows {
				items = append(items, TrashItem{
					ID:        rows[i].ID,
					Entity:    kindNotes,
					DeletedAt: *rows[i].DeletedAt,
					Data:      &rows[i],
				})
			}
			return items, nil
		},
		WriteSnapshot: func(ctx context.Context, db *gorm.DB, ownerID, id string, raw json.RawMessage) error {
			var rec note
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			return db.WithContext(ctx).Save(&rec).Error
		},
	}
}

func memoEntity() Entity {
	return Entity{
		Kind:  kindMemos,
		Model: func() any { return &memo{} },
		ListDeleted: func(ctx context.Context, db *gorm.DB, ownerID string) ([]TrashItem, error) {
			var rows []memo
			err := db.WithContext(ctx).
				Scopes(common.ByOwner(ownerID), common.OnlyDeleted()).
				Order("deleted_at DESC").
				Find(&rows).Error
			if err != nil {
				return nil, err
			}
			items := make([]TrashItem, 0, len(rows))
			for i := range rows {
				items = append(items, TrashItem{
					ID:        rows[i].ID,
					Entity:    kindMemos,
					DeletedAt: *rows[i].DeletedAt,
					Data:      &rows[i],
				})
			}
			return items, nil
		},
	}
}

func brokenEntity() Entity {
	return Entity{
		Kind:  kindBroke,
		Model: func() any { return &missing{} },
	}
}

func setupTrashTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&note{}, &memo{}))
	return db
}

func createNote(t *testing.T, db *gorm.DB, id, owner, title string) {
	t.Helper()
	require.NoError(t, db.Create(&note{
		ID:         id,
		OwnedModel: common.OwnedModel{UserID: owner},
		Title:      title,
	}).Error)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	db := setupTrashTestDB(t)
	svc := NewService(db, NewRegistry(noteEntity()), 0, nil)

	createNote(t, db, "n1", "u1", "备课提纲")

	res, err := svc.SoftDelete(ctx, kindNotes, "u1", "n1")
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Affected)

	// 活动查询不应再看到该记录
	var count int64
	require.NoError(t, db.Model(&note{}).Scopes(common.NotDeleted()).Count(&count).Error)
	require.EqualValues(t, 0, count)

	// 新删除的记录剩余保留天数为整个窗口
	items, err := svc.GetDeletedItems(ctx, kindNotes, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "n1", items[0].ID)
	require.Equal(t, 30, items[0].DaysRemaining)

	require.NoError(t, svc.Restore(ctx, kindNotes, "u1", "n1"))

	items, err = svc.GetDeletedItems(ctx, kindNotes, "u1")
	require.NoError(t, err)
	require.Empty(t, items)

	var restored note
	require.NoError(t, db.First(&restored, "id = ?", "n1").Error)
	require.Nil(t, restored.DeletedAt)
	require.Empty(t, restored.DeletedBy)
}

func TestSoftDeleteMissingRecord(t *testing.T) {
	ctx := context.Background()
	db := setupTrashTestDB(t)
	svc := NewService(db, NewRegistry(noteEntity()), 0, nil)

	_, err := svc.SoftDelete(ctx, kindNotes, "u1", "nope")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSoftDeleteUnknownEntity(t *testing.T) {
	ctx := context.Background()
	db := setupTrashTestDB(t)
	svc := NewService(db, NewRegistry(noteEntity()), 0, nil)

	_, err := svc.SoftDelete(ctx, "widgets", "u1", "n1")
	require.ErrorIs(t, err, ErrUnknownEntity)
}

func TestSoftDeleteOwnerScope(t *testing.T) {
	ctx := context.Background()
	db := setupTrashTestDB(t)
	svc := NewService(db, NewRegistry(noteEntity()), 0, nil)

	createNote(t, db, "n1", "u1", "他人的记录")

	_, err := svc.SoftDelete(ctx, kindNotes, "u2", "n1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSoftDeleteBulkSharedTimestamp(t *testing.T) {
	ctx := context.Background()
	db := setupTrashTestDB(t)
	svc := NewService(db, NewRegistry(noteEntity()), 0, nil)

	frozen := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return frozen })

	for i := 1; i <= 3; i++ {
		createNote(t, db, fmt.Sprintf("n%d", i), "u1", "批量删除")
	}

	res, err := svc.SoftDeleteBulk(ctx, kindNotes, "u1", []string{"n1", "n2", "n3"})
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Affected)
	require.True(t, res.DeletedAt.Equal(frozen))

	var rows []note
	require.NoError(t, db.Scopes(common.OnlyDeleted()).Find(&rows).Error)
	require.Len(t, rows, 3)
	for _, r := range rows {
		require.True(t, r.DeletedAt.Equal(frozen))
	}
}

func TestRedeleteRefreshesWindow(t *testing.T) {
	ctx := context.Background()
	db := setupTrashTestDB(t)
	svc := NewService(db, NewRegistry(noteEntity()), 0, nil)

	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return t0 })

	createNote(t, db, "n1", "u1", "反复删除")
	_, err := svc.SoftDelete(ctx, kindNotes, "u1", "n1")
	require.NoError(t, err)

	// 10 天后再次删除，保留窗口重新计满
	t1 := t0.AddDate(0, 0, 10)
	svc.SetClock(func() time.Time { return t1 })
	_, err = svc.SoftDelete(ctx, kindNotes, "u1", "n1")
	require.NoError(t, err)

	items, err := svc.GetDeletedItems(ctx, kindNotes, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 30, items[0].DaysRemaining)
}

func TestDaysRemainingClampsAtZero(t *testing.T) {
	ctx := context.Background()
	db := setupTrashTestDB(t)
	svc := NewService(db, NewRegistry(noteEntity()), 0, nil)

	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return t0 })

	createNote(t, db, "n1", "u1", "过期条目")
	_, err := svc.SoftDelete(ctx, kindNotes, "u1", "n1")
	require.NoError(t, err)

	// 35 天后查看，剩余天数不应为负
	svc.SetClock(func() time.Time { return t0.AddDate(0, 0, 35) })
	items, err := svc.GetDeletedItems(ctx, kindNotes, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 0, items[0].DaysRemaining)
}

func TestDaysRemainingCapsForFutureDeletion(t *testing.T) {
	ctx := context.Background()
	db := setupTrashTestDB(t)
	svc := NewService(db, NewRegistry(noteEntity()), 0, nil)

	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return t0 })

	createNote(t, db, "n1", "u1", "未来时间条目")
	_, err := svc.SoftDelete(ctx, kindNotes, "u1", "n1")
	require.NoError(t, err)

	// 时钟回拨后删除时间落在未来，剩余天数封顶为完整保留期而非超额
	svc.SetClock(func() time.Time { return t0.AddDate(0, 0, -5) })
	items, err := svc.GetDeletedItems(ctx, kindNotes, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 30, items[0].DaysRemaining)
}

func TestGetAllDeletedItemsSortedAcrossKinds(t *testing.T) {
	ctx := context.Background()
	db := setupTrashTestDB(t)
	svc := NewService(db, NewRegistry(noteEntity(), memoEntity()), 0, nil)

	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	createNote(t, db, "n1", "u1", "先删的笔记")
	require.NoError(t, db.Create(&memo{
		ID:         "m1",
		OwnedModel: common.OwnedModel{UserID: "u1"},
		Body:       "后删的备忘",
	}).Error)

	svc.SetClock(func() time.Time { return t0 })
	_, err := svc.SoftDelete(ctx, kindNotes, "u1", "n1")
	require.NoError(t, err)

	svc.SetClock(func() time.Time { return t0.Add(time.Hour) })
	_, err = svc.SoftDelete(ctx, kindMemos, "u1", "m1")
	require.NoError(t, err)

	all, err := svc.GetAllDeletedItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "m1", all[0].ID)
	require.Equal(t, "n1", all[1].ID)
}

func TestCleanupExpiredRemovesOnlyOldRecords(t *testing.T) {
	ctx := context.Background()
	db := setupTrashTestDB(t)
	svc := NewService(db, NewRegistry(noteEntity()), 0, nil)

	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	createNote(t, db, "old", "u1", "早已删除")
	createNote(t, db, "fresh", "u1", "刚刚删除")

	svc.SetClock(func() time.Time { return t0.AddDate(0, 0, -31) })
	_, err := svc.SoftDelete(ctx, kindNotes, "u1", "old")
	require.NoError(t, err)

	svc.SetClock(func() time.Time { return t0.AddDate(0, 0, -1) })
	_, err = svc.SoftDelete(ctx, kindNotes, "u1", "fresh")
	require.NoError(t, err)

	svc.SetClock(func() time.Time { return t0 })
	report := svc.CleanupExpired(ctx)
	require.Empty(t, report.Failures)
	require.EqualValues(t, 1, report.DeletedCounts[kindNotes])

	// 过期记录被物理删除，窗口内的仍在回收站
	var total int64
	require.NoError(t, db.Model(&note{}).Count(&total).Error)
	require.EqualValues(t, 1, total)

	items, err := svc.GetDeletedItems(ctx, kindNotes, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "fresh", items[0].ID)
}

func TestCleanupExpiredToleratesPerKindFailure(t *testing.T) {
	ctx := context.Background()
	db := setupTrashTestDB(t)
	svc := NewService(db, NewRegistry(brokenEntity(), noteEntity()), 0, nil)

	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return t0.AddDate(0, 0, -31) })

	createNote(t, db, "old", "u1", "待清除")
	_, err := svc.SoftDelete(ctx, kindNotes, "u1", "old")
	require.NoError(t, err)

	svc.SetClock(func() time.Time { return t0 })
	report := svc.CleanupExpired(ctx)

	// 坏掉的类型计数为 0 并记录失败，正常类型不受影响继续清理
	require.EqualValues(t, 0, report.DeletedCounts[kindBroke])
	require.Contains(t, report.Failures, kindBroke)
	require.NotEmpty(t, report.FirstError())
	require.EqualValues(t, 1, report.DeletedCounts[kindNotes])
}

func TestPermanentDelete(t *testing.T) {
	ctx := context.Background()
	db := setupTrashTestDB(t)
	svc := NewService(db, NewRegistry(noteEntity()), 0, nil)

	createNote(t, db, "n1", "u1", "彻底删除")
	_, err := svc.SoftDelete(ctx, kindNotes, "u1", "n1")
	require.NoError(t, err)

	require.NoError(t, svc.PermanentDelete(ctx, kindNotes, "u1", "n1"))

	var total int64
	require.NoError(t, db.Model(&note{}).Count(&total).Error)
	require.EqualValues(t, 0, total)

	// 再次删除同一条应报记录不存在
	err = svc.PermanentDelete(ctx, kindNotes, "u1", "n1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
