package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ClampLimit bounds a caller-supplied page size.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// Offset converts page/perPage into a SQL offset.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// SortColumn returns column when it appears in allowed, otherwise fallback.
// Sort columns are interpolated into SQL and must never come raw from input.
func SortColumn(column, fallback string, allowed map[string]string) string {
	if mapped, ok := allowed[column]; ok {
		return mapped
	}
	return fallback
}

// SortDirection normalises a sort direction to ASC or DESC.
func SortDirection(dir string) string {
	if dir == "desc" || dir == "DESC" {
		return "DESC"
	}
	return "ASC"
}
