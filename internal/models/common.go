package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NewPagination normalises page inputs and computes metadata.
func NewPagination(page, pageSize, total int) *Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}

// Offset returns the SQL offset for the page.
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}
