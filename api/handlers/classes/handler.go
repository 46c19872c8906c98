package classes

import (
	"net/http"

	response "classhub/api/handlers/common"
	"classhub/internal/auth"
	"classhub/internal/common"
	"classhub/internal/school"
	"classhub/internal/undo"

	"github.com/gin-gonic/gin"
)

// ClassHandler 班级与考勤处理器
type ClassHandler struct {
	service *school.Service
}

// NewClassHandler 创建班级与考勤处理器
func NewClassHandler(service *school.Service) *ClassHandler {
	return &ClassHandler{service: service}
}

func undoMeta(action *undo.Action) *response.UndoMeta {
	if action == nil {
		return nil
	}
	return &response.UndoMeta{ActionID: action.ID, ExpiresAt: action.ExpiresAt}
}

// Create 新建班级
// @Summary 新建班级
// @Tags Classes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body school.ClassInput true "班级信息"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	var req school.ClassInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	cls, action, err := h.service.CreateClass(c.Request.Context(), userCtx.UserID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data:    gin.H{"class": cls, "undo": undoMeta(action)},
	})
}

// List 查询全部班级
// @Summary 查询全部班级
// @Tags Classes
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /api/classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	classList, err := h.service.ListClasses(c.Request.Context(), userCtx.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: classList})
}

// Delete 删除班级（入回收站，可撤销）
// @Summary 删除班级
// @Tags Classes
// @Security BearerAuth
// @Produce json
// @Param id path string true "班级 ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	action, err := h.service.DeleteClass(c.Request.Context(), userCtx.UserID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Message: "班级已移入回收站",
		Data:    gin.H{"undo": undoMeta(action)},
	})
}

// RecordAttendance 新增考勤记录
// @Summary 新增考勤记录
// @Tags Attendance
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body school.AttendanceInput true "考勤信息"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/attendance [post]
func (h *ClassHandler) RecordAttendance(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	var req school.AttendanceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	rec, action, err := h.service.RecordAttendance(c.Request.Context(), userCtx.UserID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data:    gin.H{"record": rec, "undo": undoMeta(action)},
	})
}

// ListAttendance 查询考勤记录
// @Summary 查询考勤记录
// @Tags Attendance
// @Security BearerAuth
// @Produce json
// @Param student_id query string false "学生过滤"
// @Param start_date query string false "开始日期 (2006-01-02)"
// @Param end_date query string false "结束日期 (2006-01-02)"
// @Success 200 {object} response.APIResponse
// @Router /api/attendance [get]
func (h *ClassHandler) ListAttendance(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	var rng common.DateRange
	if err := c.ShouldBindQuery(&rng); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "日期参数错误: " + err.Error()})
		return
	}

	records, err := h.service.ListAttendance(c.Request.Context(), userCtx.UserID, c.Query("student_id"), rng)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: records})
}

// DeleteAttendance 删除考勤记录（入回收站，可撤销）
// @Summary 删除考勤记录
// @Tags Attendance
// @Security BearerAuth
// @Produce json
// @Param id path string true "考勤记录 ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/attendance/{id} [delete]
func (h *ClassHandler) DeleteAttendance(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	action, err := h.service.DeleteAttendance(c.Request.Context(), userCtx.UserID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Message: "考勤记录已移入回收站",
		Data:    gin.H{"undo": undoMeta(action)},
	})
}
