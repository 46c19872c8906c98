package history

import (
	"errors"
	"net/http"
	"time"

	response "classhub/api/handlers/common"
	"classhub/internal/auth"
	"classhub/internal/softdelete"
	"classhub/internal/undo"

	"github.com/gin-gonic/gin"
)

// HistoryHandler 操作历史与撤销处理器
type HistoryHandler struct {
	service *undo.Service
}

// NewHistoryHandler 创建操作历史处理器
func NewHistoryHandler(service *undo.Service) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// listQuery 历史查询参数
type listQuery struct {
	ActionType string     `form:"action_type"`
	Entity     string     `form:"entity"`
	StartDate  *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate    *time.Time `form:"end_date" time_format:"2006-01-02"`
	Keyword    string     `form:"keyword"`
	Limit      int        `form:"limit" binding:"omitempty,min=1"`
	Offset     int        `form:"offset" binding:"omitempty,min=0"`
}

// List 查询操作历史，按时间倒序
// @Summary 查询操作历史
// @Tags History
// @Security BearerAuth
// @Produce json
// @Param action_type query string false "操作类型过滤"
// @Param entity query string false "实体类型过滤"
// @Param start_date query string false "开始日期 (2006-01-02)"
// @Param end_date query string false "结束日期 (2006-01-02)"
// @Param keyword query string false "描述关键字"
// @Param limit query int false "条数上限"
// @Param offset query int false "偏移量"
// @Success 200 {object} response.APIResponse
// @Router /api/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "查询参数错误: " + err.Error()})
		return
	}

	items, total, err := h.service.GetActionHistory(c.Request.Context(), userCtx.UserID, undo.HistoryQuery{
		ActionType: undo.ActionType(q.ActionType),
		Entity:     softdelete.EntityKind(q.Entity),
		From:       q.StartDate,
		To:         q.EndDate,
		Keyword:    q.Keyword,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data:    gin.H{"items": items, "total": total},
	})
}

// Undo 撤销指定操作
// @Summary 撤销指定操作
// @Tags History
// @Security BearerAuth
// @Produce json
// @Param id path string true "操作 ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 410 {object} response.ErrorResponse
// @Router /api/history/{id}/undo [post]
func (h *HistoryHandler) Undo(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	err := h.service.Undo(c.Request.Context(), userCtx.UserID, c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, undo.ErrActionNotFound):
			status = http.StatusNotFound
		case errors.Is(err, undo.ErrAlreadyUndone):
			status = http.StatusConflict
		case errors.Is(err, undo.ErrUndoExpired):
			status = http.StatusGone
		}
		c.JSON(status, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "操作已撤销"})
}

// Undoable 查询指定操作当前是否可撤销及剩余窗口
// @Summary 查询操作是否可撤销
// @Tags History
// @Security BearerAuth
// @Produce json
// @Param id path string true "操作 ID"
// @Success 200 {object} response.APIResponse
// @Router /api/history/{id}/undoable [get]
func (h *HistoryHandler) Undoable(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	id := c.Param("id")
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data: gin.H{
			"canUndo":     h.service.CanUndo(userCtx.UserID, id),
			"remainingMs": h.service.UndoTimeRemaining(userCtx.UserID, id).Milliseconds(),
		},
	})
}

// Clear 清空操作历史
// @Summary 清空操作历史
// @Tags History
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /api/history [delete]
func (h *HistoryHandler) Clear(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	if err := h.service.ClearHistory(c.Request.Context(), userCtx.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "操作历史已清空"})
}
