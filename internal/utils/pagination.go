package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stellar-tasks/internal/constants"
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse represents the pagination metadata in API responses
type PaginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// GetPaginationParams extracts and validates pagination parameters from the
// request. It returns nil when the caller asked for neither page nor limit,
// meaning every match is returned.
func GetPaginationParams(c *gin.Context) *PaginationParams {
	pageQuery, hasPage := c.GetQuery("page")
	limitQuery, hasLimit := c.GetQuery("limit")
	if !hasPage && !hasLimit {
		return nil
	}

	page, _ := strconv.Atoi(pageQuery)
	limit, _ := strconv.Atoi(limitQuery)

	if page < constants.MinPageSize {
		page = constants.MinPageSize
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	offset := (page - 1) * limit

	return &PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: offset,
	}
}
