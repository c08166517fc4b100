package utils

import "github.com/gofiber/fiber/v2"

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Pagination is a page/limit window over a listing.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads the page and limit query params. Limit is clamped to 1..100.
func ParsePagination(c *fiber.Ctx) Pagination {
	return NewPagination(c.QueryInt("page", 1), c.QueryInt("limit", defaultLimit))
}

// NewPagination normalizes a page and limit pair.
func NewPagination(page, limit int) Pagination {
	switch {
	case limit <= 0:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}
	if page < 1 {
		page = 1
	}
	return Pagination{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// Meta describes the window for a response envelope.
func (p Pagination) Meta(total int64) fiber.Map {
	pages := (total + int64(p.Limit) - 1) / int64(p.Limit)
	return fiber.Map{
		"current_page":   p.Page,
		"items_per_page": p.Limit,
		"total_items":    total,
		"total_pages":    pages,
	}
}
