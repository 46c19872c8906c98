package common

import "time"

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `json:"page" form:"page" binding:"omitempty,min=1"`           // 页码，从1开始
	PageSize int `json:"page_size" form:"page_size" binding:"omitempty,min=1"` // 每页数量
}

// DefaultPagination 返回默认分页参数
func DefaultPagination() PaginationRequest {
	return PaginationRequest{
		Page:     1,
		PageSize: 20,
	}
}

// GetPage 获取页码，提供默认值
func (p PaginationRequest) GetPage() int {
	if p.Page < 1 {
		return 1
	}
	return p.Page
}

// GetOffset 计算数据库查询的偏移量
func (p PaginationRequest) GetOffset() int {
	if p.Page < 1 {
		p.Page = 1
	}
	return (p.Page - 1) * p.GetPageSize()
}

// GetPageSize 获取每页数量，提供默认值
func (p PaginationRequest) GetPageSize() int {
	if p.PageSize < 1 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// DateRange 日期范围，未设置的一端不参与过滤
type DateRange struct {
	StartDate *time.Time `json:"start_date" form:"start_date" time_format:"2006-01-02"` // 开始日期（含）
	EndDate   *time.Time `json:"end_date" form:"end_date" time_format:"2006-01-02"`     // 结束日期（含）
}

// IDsRequest 批量ID请求
type IDsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"` // 资源ID列表
}
