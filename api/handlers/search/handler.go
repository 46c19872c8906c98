package search

import (
	"net/http"
	"strconv"

	response "classhub/api/handlers/common"
	"classhub/internal/auth"
	searchSvc "classhub/internal/search"

	"github.com/gin-gonic/gin"
)

// SearchHandler 全局搜索处理器
type SearchHandler struct {
	service *searchSvc.Service
}

// NewSearchHandler 创建搜索处理器
func NewSearchHandler(service *searchSvc.Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search 跨实体搜索
// @Summary 跨实体搜索
// @Tags Search
// @Security BearerAuth
// @Produce json
// @Param q query string true "查询词"
// @Param limit query int false "条数上限"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Success: false, Message: "未认证"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "查询词不能为空"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	results, err := h.service.Search(c.Request.Context(), userCtx.UserID, query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: results})
}
