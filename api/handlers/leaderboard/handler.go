package leaderboard

import (
	"net/http"
	"strconv"

	response "classhub/api/handlers/common"
	"classhub/internal/auth"
	"classhub/internal/common"
	"classhub/internal/gamify"

	"github.com/gin-gonic/gin"
)

// LeaderboardHandler 出勤积分排行榜处理器
type LeaderboardHandler struct {
	service *gamify.Service
}

// NewLeaderboardHandler 创建排行榜处理器
func NewLeaderboardHandler(service *gamify.Service) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// Get 查询出勤积分排行榜
// @Summary 查询出勤积分排行榜
// @Tags Leaderboard
// @Security BearerAuth
// @Produce json
// @Param class_id query string false "班级过滤"
// @Param start_date query string false "开始日期 (2006-01-02)"
// @Param end_date query string false "结束日期 (2006-01-02)"
// @Param limit query int false "条数上限"
// @Success 200 {object} response.APIResponse
// @Router /api/leaderboard [get]
func (h *LeaderboardHandler) Get(c *gin.Context) {
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
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.service.Leaderboard(c.Request.Context(), userCtx.UserID, c.Query("class_id"), rng, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: entries})
}
