package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/usazehan/healthcare-admin-dashboard/services"
)

type PaginationParams struct {
	Limit  int
	Before *time.Time
}

type CursorResponse struct {
	Data       interface{} `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

// ParsePagination reads limit and before. A malformed limit falls back to the
// default; a malformed cursor is an ErrInvalidInput.
func ParsePagination(c *gin.Context) (PaginationParams, error) {
	p := PaginationParams{Limit: services.DefaultEventLimit}

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			p.Limit = l
		}
	}
	p.Limit = services.ClampLimit(p.Limit)

	if beforeStr := c.Query("before"); beforeStr != "" {
		t, err := time.Parse(time.RFC3339Nano, beforeStr)
		if err != nil {
			return p, fmt.Errorf("%w: before must be an RFC3339 timestamp", services.ErrInvalidInput)
		}
		t = t.UTC()
		p.Before = &t
	}

	return p, nil
}
