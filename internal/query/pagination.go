package query

import (
	"math"
	"strconv"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func clampSize(size int) int {
	if size < 1 {
		return DefaultLimit
	}
	if size > MaxLimit {
		return MaxLimit
	}
	return size
}

// MaxPage is the last page accepted for the page size; its offset always
// fits in an int.
func MaxPage(size int) int {
	return math.MaxInt / clampSize(size)
}

// Calculate turns a 1-based page and a page size into offset and limit.
// Pages past MaxPage are clamped to it.
func Calculate(page, size int) (offset, limit int) {
	size = clampSize(size)
	if page < 1 {
		page = 1
	}
	if page > MaxPage(size) {
		page = MaxPage(size)
	}
	return (page - 1) * size, size
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

func NewMeta(page, limit int, total int64) Meta {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasPrev:    page > 1,
		HasNext:    page < pages,
	}
}
