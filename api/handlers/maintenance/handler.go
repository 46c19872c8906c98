package maintenance

import (
	"net/http"

	response "classhub/api/handlers/common"
	"classhub/internal/auth"
	"classhub/internal/infra/queue"

	"github.com/gin-gonic/gin"
)

// MaintenanceHandler 维护任务处理器
type MaintenanceHandler struct {
	queueClient queue.Client
}

// NewMaintenanceHandler 创建维护任务处理器
func NewMaintenanceHandler(queueClient queue.Client) *MaintenanceHandler {
	return &MaintenanceHandler{queueClient: queueClient}
}

// triggerCleanupRequest 手动触发清理的参数
type triggerCleanupRequest struct {
	Force bool `json:"force"`
}

// TriggerCleanup 手动投递一次清理任务
// @Summary 手动触发清理
// @Tags Maintenance
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body triggerCleanupRequest false "是否跳过节流"
// @Success 202 {object} response.APIResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/admin/cleanup [post]
func (h *MaintenanceHandler) TriggerCleanup(c *gin.Context) {
	if _, ok := auth.GetUserContext(c); !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	var req triggerCleanupRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.queueClient.EnqueueCleanupRun(req.Force); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "投递清理任务失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, response.APIResponse{Success: true, Message: "清理任务已投递"})
}
