package core

import (
	"sort"
	"strings"

	"campuscore/pkg/domain"
)

// SortDirection selects ascending or descending order.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Default page window applied when the caller leaves page/size unset.
const (
	DefaultPage = 0
	DefaultSize = 20
)

// PageRequest describes a pagination window over an entity collection.
// A zero Size means DefaultSize; an empty SortBy means primary key ascending.
type PageRequest struct {
	Page      int
	Size      int
	SortBy    string
	Direction SortDirection
}

// Page is the pagination response envelope.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// comparator orders two values of T by one field: negative when a sorts
// before b, zero on ties.
type comparator[T any] func(a, b T) int

// listPage windows items according to req. Ordering is total: the requested
// field first, then id ascending, so successive pages over an unchanged
// snapshot never skip or repeat rows. Descending order is the exact reverse
// of ascending, ties included. A page index past the end yields empty
// content with correct totals.
func listPage[T any](entity domain.EntityType, items []T, req PageRequest, fields map[string]comparator[T], id func(T) int64) (Page[T], error) {
	if req.Page < 0 {
		return Page[T]{}, domain.NewValidation("page", "page index must not be negative")
	}
	size := req.Size
	if size == 0 {
		size = DefaultSize
	}
	if size < 1 {
		return Page[T]{}, domain.NewValidation("size", "page size must be at least 1")
	}
	direction := req.Direction
	if direction == "" {
		direction = SortAsc
	}
	if direction != SortAsc && direction != SortDesc {
		return Page[T]{}, domain.NewValidation("direction", "direction must be asc or desc")
	}

	cmp := func(a, b T) int { return compareInt64(id(a), id(b)) }
	if req.SortBy != "" {
		field, ok := fields[req.SortBy]
		if !ok {
			return Page[T]{}, &domain.InvalidSortFieldError{Entity: entity, Field: req.SortBy}
		}
		cmp = func(a, b T) int {
			if c := field(a, b); c != 0 {
				return c
			}
			return compareInt64(id(a), id(b))
		}
	}
	ordered := make([]T, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		if direction == SortDesc {
			return cmp(ordered[i], ordered[j]) > 0
		}
		return cmp(ordered[i], ordered[j]) < 0
	})

	total := int64(len(ordered))
	totalPages := int((total + int64(size) - 1) / int64(size))
	// Multiply only for in-range pages so a huge page index cannot
	// overflow into a negative offset.
	start := len(ordered)
	if req.Page < totalPages {
		start = req.Page * size
	}
	end := start + size
	if end > len(ordered) {
		end = len(ordered)
	}
	return Page[T]{
		Content:       ordered[start:end],
		Page:          req.Page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
	}, nil
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareInt32(a, b int32) int { return compareInt64(int64(a), int64(b)) }

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareString(a, b string) int { return strings.Compare(a, b) }

// comparePtr orders nil before any value, then compares pointees.
func comparePtr[T any](a, b *T, cmp func(T, T) int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp(*a, *b)
}
