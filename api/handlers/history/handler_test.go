package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classhub/internal/auth"
	"classhub/internal/common"
	"classhub/internal/school"
	"classhub/internal/softdelete"
	"classhub/internal/undo"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testAuthMiddleware(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(auth.UserContextKey), &auth.UserContext{UserID: userID})
		c.Next()
	}
}

type historyTestEnv struct {
	router *gin.Engine
	db     *gorm.DB
	trash  *softdelete.Service
	undoer *undo.Service
}

func setupHistoryRouter(t *testing.T) *historyTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	models := append(school.Models(), &undo.Action{})
	require.NoError(t, db.AutoMigrate(models...))

	trash := softdelete.NewService(db, school.NewTrashRegistry(), 0, nil)
	undoer := undo.NewService(db, trash, nil, 0, 0, nil)
	handler := NewHistoryHandler(undoer)

	router := gin.New()
	group := router.Group("/api", testAuthMiddleware("t1"))
	group.GET("/history", handler.List)
	group.DELETE("/history", handler.Clear)
	group.POST("/history/:id/undo", handler.Undo)
	group.GET("/history/:id/undoable", handler.Undoable)
	return &historyTestEnv{router: router, db: db, trash: trash, undoer: undoer}
}

func (e *historyTestEnv) freeze(t *testing.T, at time.Time) {
	t.Helper()
	e.trash.SetClock(func() time.Time { return at })
	e.undoer.SetClock(func() time.Time { return at })
}

// deleteStudent 建一个学生并软删除，返回可撤销的操作记录
func (e *historyTestEnv) deleteStudent(t *testing.T, name string) *undo.Action {
	t.Helper()
	ctx := context.Background()
	st := &school.Student{
		OwnedModel: common.OwnedModel{UserID: "t1"},
		FullName:   name,
	}
	require.NoError(t, e.db.Create(st).Error)
	_, err := e.trash.SoftDelete(ctx, softdelete.KindStudents, "t1", st.ID)
	require.NoError(t, err)

	action, err := e.undoer.RecordAction(ctx, undo.RecordParams{
		OwnerID:    "t1",
		ActionType: undo.ActionDelete,
		Entity:     softdelete.KindStudents,
		EntityIDs:  []string{st.ID},
	})
	require.NoError(t, err)
	return action
}

func TestHistoryHandler_List(t *testing.T) {
	env := setupHistoryRouter(t)
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	env.freeze(t, t0)

	env.deleteStudent(t, "历史条目一")
	env.freeze(t, t0.Add(time.Minute))
	env.deleteStudent(t, "历史条目二")

	t.Run("HTTP_返回倒序历史与总数", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/history", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success bool `json:"success"`
			Data    struct {
				Items []undo.HistoryItem `json:"items"`
				Total int64              `json:"total"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.EqualValues(t, 2, resp.Data.Total)
		assert.Len(t, resp.Data.Items, 2)
	})

	t.Run("HTTP_按操作类型过滤", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/history?action_type=bulk_delete", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":0`)
	})

	t.Run("HTTP_非法分页参数返回400", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/history?limit=-1", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHistoryHandler_Undo(t *testing.T) {
	env := setupHistoryRouter(t)
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	env.freeze(t, t0)

	action := env.deleteStudent(t, "待撤销学生")

	t.Run("HTTP_窗口内撤销成功", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/history/"+action.ID+"/undo", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var st school.Student
		require.NoError(t, env.db.First(&st, "full_name = ?", "待撤销学生").Error)
		assert.Nil(t, st.DeletedAt)
	})

	t.Run("HTTP_重复撤销返回409", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/history/"+action.ID+"/undo", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("HTTP_过期撤销返回410", func(t *testing.T) {
		expired := env.deleteStudent(t, "过期撤销学生")
		env.freeze(t, t0.Add(time.Hour))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/history/"+expired.ID+"/undo", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusGone, w.Code)
	})

	t.Run("HTTP_不存在的操作返回404", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/history/missing/undo", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("HTTP_他人的操作返回404且不被撤销", func(t *testing.T) {
		env.freeze(t, t0)
		action := env.deleteStudent(t, "越权撤销学生")

		other := gin.New()
		group := other.Group("/api", testAuthMiddleware("t2"))
		group.POST("/history/:id/undo", NewHistoryHandler(env.undoer).Undo)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/history/"+action.ID+"/undo", nil)
		other.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)

		var st school.Student
		require.NoError(t, env.db.First(&st, "full_name = ?", "越权撤销学生").Error)
		assert.NotNil(t, st.DeletedAt)
	})
}

func TestHistoryHandler_Undoable(t *testing.T) {
	env := setupHistoryRouter(t)
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	env.freeze(t, t0)

	action := env.deleteStudent(t, "可撤销查询学生")

	t.Run("HTTP_窗口内返回剩余时长", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/history/"+action.ID+"/undoable", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				CanUndo     bool  `json:"canUndo"`
				RemainingMs int64 `json:"remainingMs"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Data.CanUndo)
		assert.EqualValues(t, 10000, resp.Data.RemainingMs)
	})

	t.Run("HTTP_窗口过后不可撤销", func(t *testing.T) {
		env.freeze(t, t0.Add(time.Minute))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/history/"+action.ID+"/undoable", nil)
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"canUndo":false`)
	})
}

func TestHistoryHandler_Clear(t *testing.T) {
	env := setupHistoryRouter(t)
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	env.freeze(t, t0)

	env.deleteStudent(t, "待清空学生")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/api/history", nil)
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/history", nil)
	env.router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"total":0`)
}
