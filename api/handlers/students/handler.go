package students

import (
	"net/http"

	response "classhub/api/handlers/common"
	"classhub/internal/auth"
	"classhub/internal/common"
	"classhub/internal/school"
	"classhub/internal/undo"

	"github.com/gin-gonic/gin"
)

// StudentHandler 学生管理处理器
type StudentHandler struct {
	service *school.Service
}

// NewStudentHandler 创建学生管理处理器
func NewStudentHandler(service *school.Service) *StudentHandler {
	return &StudentHandler{service: service}
}

// undoMeta 从撤销记录构造响应附带的撤销信息
func undoMeta(action *undo.Action) *response.UndoMeta {
	if action == nil {
		return nil
	}
	return &response.UndoMeta{ActionID: action.ID, ExpiresAt: action.ExpiresAt}
}

// studentPayload 学生响应载荷
type studentPayload struct {
	Student *school.Student    `json:"student"`
	Undo    *response.UndoMeta `json:"undo,omitempty"`
}

// Create 新建学生
// @Summary 新建学生
// @Tags Students
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body school.StudentInput true "学生信息"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	var req school.StudentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	student, action, err := h.service.CreateStudent(c.Request.Context(), userCtx.UserID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data:    studentPayload{Student: student, Undo: undoMeta(action)},
	})
}

// Get 查询单个学生
// @Summary 查询单个学生
// @Tags Students
// @Security BearerAuth
// @Produce json
// @Param id path string true "学生 ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	student, err := h.service.GetStudent(c.Request.Context(), userCtx.UserID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: student})
}

// List 分页查询学生
// @Summary 分页查询学生
// @Tags Students
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Param class_id query string false "班级过滤"
// @Success 200 {object} response.APIResponse
// @Router /api/students [get]
func (h *StudentHandler) List(c *gin.Context) {
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

	students, total, err := h.service.ListStudents(c.Request.Context(), userCtx.UserID, c.Query("class_id"), page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data: response.ListResponse{
			Items:      students,
			Pagination: response.NewPaginationMeta(page.GetPage(), page.GetPageSize(), total),
		},
	})
}

// Update 更新学生
// @Summary 更新学生
// @Tags Students
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "学生 ID"
// @Param request body school.StudentInput true "学生信息"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	var req school.StudentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	student, action, err := h.service.UpdateStudent(c.Request.Context(), userCtx.UserID, c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data:    studentPayload{Student: student, Undo: undoMeta(action)},
	})
}

// Delete 删除学生（入回收站，可撤销）
// @Summary 删除学生
// @Tags Students
// @Security BearerAuth
// @Produce json
// @Param id path string true "学生 ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	action, err := h.service.DeleteStudent(c.Request.Context(), userCtx.UserID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Message: "学生已移入回收站",
		Data:    gin.H{"undo": undoMeta(action)},
	})
}
