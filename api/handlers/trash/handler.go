package trash

import (
	"errors"
	"net/http"

	response "classhub/api/handlers/common"
	"classhub/internal/auth"
	"classhub/internal/softdelete"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TrashHandler 回收站处理器
type TrashHandler struct {
	service *softdelete.Service
}

// NewTrashHandler 创建回收站处理器
func NewTrashHandler(service *softdelete.Service) *TrashHandler {
	return &TrashHandler{service: service}
}

// ListAll 查询回收站全部内容，跨实体按删除时间倒序
// @Summary 查询回收站全部内容
// @Tags Trash
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /api/trash [get]
func (h *TrashHandler) ListAll(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	items, err := h.service.GetAllDeletedItems(c.Request.Context(), userCtx.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: items})
}

// ListByEntity 查询指定实体类型的回收站内容
// @Summary 查询指定实体的回收站内容
// @Tags Trash
// @Security BearerAuth
// @Produce json
// @Param entity path string true "实体类型 (students/classes/attendance/tasks)"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/trash/{entity} [get]
func (h *TrashHandler) ListByEntity(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	kind := softdelete.EntityKind(c.Param("entity"))
	items, err := h.service.GetDeletedItems(c.Request.Context(), kind, userCtx.UserID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, softdelete.ErrUnknownEntity) {
			status = http.StatusBadRequest
		}
		c.JSON(status, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: items})
}

// Restore 从回收站还原记录
// @Summary 从回收站还原记录
// @Tags Trash
// @Security BearerAuth
// @Produce json
// @Param entity path string true "实体类型"
// @Param id path string true "记录 ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/trash/{entity}/restore/{id} [post]
func (h *TrashHandler) Restore(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	kind := softdelete.EntityKind(c.Param("entity"))
	err := h.service.Restore(c.Request.Context(), kind, userCtx.UserID, c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, softdelete.ErrUnknownEntity):
			status = http.StatusBadRequest
		case errors.Is(err, gorm.ErrRecordNotFound):
			status = http.StatusNotFound
		}
		c.JSON(status, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "记录已还原"})
}

type restoreBulkRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// RestoreBulk 批量还原回收站中的记录
// @Summary 批量还原记录
// @Tags Trash
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param entity path string true "实体类型"
// @Param request body restoreBulkRequest true "待还原的记录 ID 列表"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/trash/{entity}/restore-bulk [post]
func (h *TrashHandler) RestoreBulk(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	var req restoreBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数无效: " + err.Error()})
		return
	}

	kind := softdelete.EntityKind(c.Param("entity"))
	err := h.service.RestoreBulk(c.Request.Context(), kind, userCtx.UserID, req.IDs)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, softdelete.ErrUnknownEntity):
			status = http.StatusBadRequest
		case errors.Is(err, gorm.ErrRecordNotFound):
			status = http.StatusNotFound
		}
		c.JSON(status, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "记录已批量还原"})
}

// PermanentDelete 彻底删除回收站中的记录，不可恢复
// @Summary 彻底删除记录
// @Tags Trash
// @Security BearerAuth
// @Produce json
// @Param entity path string true "实体类型"
// @Param id path string true "记录 ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/trash/{entity}/{id} [delete]
func (h *TrashHandler) PermanentDelete(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	kind := softdelete.EntityKind(c.Param("entity"))
	err := h.service.PermanentDelete(c.Request.Context(), kind, userCtx.UserID, c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, softdelete.ErrUnknownEntity):
			status = http.StatusBadRequest
		case errors.Is(err, gorm.ErrRecordNotFound):
			status = http.StatusNotFound
		}
		c.JSON(status, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "记录已彻底删除"})
}
