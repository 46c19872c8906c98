package trash

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"classhub/internal/auth"
	"classhub/internal/common"
	"classhub/internal/school"
	"classhub/internal/softdelete"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testAuthMiddleware 测试用认证中间件，直接注入用户上下文
func testAuthMiddleware(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(auth.UserContextKey), &auth.UserContext{UserID: userID})
		c.Next()
	}
}

func setupTrashRouter(t *testing.T) (*gin.Engine, *gorm.DB, *softdelete.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(school.Models()...))

	service := softdelete.NewService(db, school.NewTrashRegistry(), 0, nil)
	handler := NewTrashHandler(service)

	router := gin.New()
	group := router.Group("/api", testAuthMiddleware("t1"))
	group.GET("/trash", handler.ListAll)
	group.GET("/trash/:entity", handler.ListByEntity)
	group.POST("/trash/:entity/restore/:id", handler.Restore)
	group.POST("/trash/:entity/restore-bulk", handler.RestoreBulk)
	group.DELETE("/trash/:entity/:id", handler.PermanentDelete)
	return router, db, service
}

func seedDeletedStudent(t *testing.T, db *gorm.DB, owner, name string, deletedAt time.Time) string {
	t.Helper()
	st := &school.Student{
		OwnedModel: common.OwnedModel{UserID: owner},
		FullName:   name,
		SoftDeleteModel: common.SoftDeleteModel{
			DeletedAt: &deletedAt,
			DeletedBy: owner,
		},
	}
	require.NoError(t, db.Create(st).Error)
	return st.ID
}

func TestTrashHandler_ListAll(t *testing.T) {
	router, db, _ := setupTrashRouter(t)

	t.Run("HTTP_返回回收站条目", func(t *testing.T) {
		seedDeletedStudent(t, db, "t1", "回收站学生", time.Now())

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/trash", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "回收站学生")
		assert.Contains(t, w.Body.String(), "daysRemaining")
	})
}

func TestTrashHandler_ListByEntity(t *testing.T) {
	router, db, _ := setupTrashRouter(t)

	t.Run("HTTP_未知实体类型返回400", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/trash/widgets", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("HTTP_按实体类型过滤", func(t *testing.T) {
		seedDeletedStudent(t, db, "t1", "按类型查询", time.Now())

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/trash/students", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "按类型查询")
	})
}

func TestTrashHandler_Restore(t *testing.T) {
	router, db, _ := setupTrashRouter(t)

	t.Run("HTTP_还原后记录回到活动状态", func(t *testing.T) {
		id := seedDeletedStudent(t, db, "t1", "待还原学生", time.Now())

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/trash/students/restore/"+id, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var st school.Student
		require.NoError(t, db.First(&st, "id = ?", id).Error)
		assert.Nil(t, st.DeletedAt)
	})

	t.Run("HTTP_未知实体类型返回400", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/trash/widgets/restore/x", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTrashHandler_RestoreBulk(t *testing.T) {
	router, db, _ := setupTrashRouter(t)

	t.Run("HTTP_批量还原多条记录", func(t *testing.T) {
		id1 := seedDeletedStudent(t, db, "t1", "批量还原甲", time.Now())
		id2 := seedDeletedStudent(t, db, "t1", "批量还原乙", time.Now())

		body := strings.NewReader(`{"ids":["` + id1 + `","` + id2 + `"]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/trash/students/restore-bulk", body)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var count int64
		require.NoError(t, db.Model(&school.Student{}).
			Where("id IN ? AND deleted_at IS NULL", []string{id1, id2}).
			Count(&count).Error)
		assert.EqualValues(t, 2, count)
	})

	t.Run("HTTP_空ID列表返回400", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/trash/students/restore-bulk", strings.NewReader(`{"ids":[]}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTrashHandler_PermanentDelete(t *testing.T) {
	router, db, _ := setupTrashRouter(t)

	t.Run("HTTP_彻底删除后记录不存在", func(t *testing.T) {
		id := seedDeletedStudent(t, db, "t1", "待清除学生", time.Now())

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/api/trash/students/"+id, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		err := db.First(&school.Student{}, "id = ?", id).Error
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("HTTP_记录不存在返回404", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/api/trash/students/missing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTrashHandler_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(school.Models()...))
	handler := NewTrashHandler(softdelete.NewService(db, school.NewTrashRegistry(), 0, nil))

	// 无认证中间件时直接 401
	router := gin.New()
	router.GET("/api/trash", handler.ListAll)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/trash", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
