package tasks

import (
	"net/http"

	response "classhub/api/handlers/common"
	"classhub/internal/auth"
	"classhub/internal/common"
	"classhub/internal/school"
	"classhub/internal/undo"

	"github.com/gin-gonic/gin"
)

// TaskHandler 任务管理处理器
type TaskHandler struct {
	service *school.Service
}

// NewTaskHandler 创建任务管理处理器
func NewTaskHandler(service *school.Service) *TaskHandler {
	return &TaskHandler{service: service}
}

func undoMeta(action *undo.Action) *response.UndoMeta {
	if action == nil {
		return nil
	}
	return &response.UndoMeta{ActionID: action.ID, ExpiresAt: action.ExpiresAt}
}

// taskPayload 任务响应载荷
type taskPayload struct {
	Task *school.Task       `json:"task"`
	Undo *response.UndoMeta `json:"undo,omitempty"`
}

// Create 新建任务
// @Summary 新建任务
// @Tags Tasks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body school.TaskInput true "任务信息"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	var req school.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	task, action, err := h.service.CreateTask(c.Request.Context(), userCtx.UserID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data:    taskPayload{Task: task, Undo: undoMeta(action)},
	})
}

// Get 查询单个任务
// @Summary 查询单个任务
// @Tags Tasks
// @Security BearerAuth
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), userCtx.UserID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: taskPayload{Task: task}})
}

// List 分页查询任务
// @Summary 分页查询任务
// @Tags Tasks
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Param status query string false "状态过滤"
// @Success 200 {object} response.APIResponse
// @Router /api/tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	var page common.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "分页参数错误: " + err.Error()})
		return
	}

	taskList, total, err := h.service.ListTasks(c.Request.Context(), userCtx.UserID, c.Query("status"), page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data: response.ListResponse{
			Items:      taskList,
			Pagination: response.NewPaginationMeta(page.GetPage(), page.GetPageSize(), total),
		},
	})
}

// Update 更新任务
// @Summary 更新任务
// @Tags Tasks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "任务 ID"
// @Param request body school.TaskInput true "任务信息"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	var req school.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	task, action, err := h.service.UpdateTask(c.Request.Context(), userCtx.UserID, c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data:    taskPayload{Task: task, Undo: undoMeta(action)},
	})
}

// Delete 删除单个任务（入回收站，可撤销）
// @Summary 删除单个任务
// @Tags Tasks
// @Security BearerAuth
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	action, err := h.service.DeleteTask(c.Request.Context(), userCtx.UserID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Message: "任务已移入回收站",
		Data:    gin.H{"undo": undoMeta(action)},
	})
}

// DeleteBulk 批量删除任务，作为一条可撤销操作
// @Summary 批量删除任务
// @Tags Tasks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body common.IDsRequest true "任务 ID 列表"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/tasks/bulk-delete [post]
func (h *TaskHandler) DeleteBulk(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	var req common.IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	affected, action, err := h.service.DeleteTasksBulk(c.Request.Context(), userCtx.UserID, req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Message: "任务已批量移入回收站",
		Data:    gin.H{"affected": affected, "undo": undoMeta(action)},
	})
}
