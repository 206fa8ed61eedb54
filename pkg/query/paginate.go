package query

import (
	"sort"
)

const (
	DefaultPageSize = 10

	// MaxPageSize is the largest page the HTTP API hands out.
	MaxPageSize = 100
)

// Predicate decides whether an item is kept.
type Predicate[T any] func(T) bool

// Page is one slice of a filtered result.
type Page[T any] struct {
	Items       []T `json:"items"`
	TotalCount  int `json:"total_count"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
}

// Filter returns the items matching every predicate, keeping their order.
// The input slice is not modified.
func Filter[T any](items []T, keep ...Predicate[T]) []T {
	out := make([]T, 0, len(items))
next:
	for _, it := range items {
		for _, p := range keep {
			if p != nil && !p(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

// Sort returns a stably sorted copy of items. cmp follows the usual
// negative / zero / positive contract.
func Sort[T any](items []T, cmp func(a, b T) int) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return cmp(out[i], out[j]) < 0
	})
	return out
}

// Paginate cuts out the 1-based pageNumber of pageSize items. Out of range
// pages are empty, not an error. A non-positive pageSize means
// DefaultPageSize.
func Paginate[T any](items []T, pageSize, pageNumber int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageNumber <= 0 {
		pageNumber = 1
	}

	total := len(items)
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}

	page := Page[T]{
		Items:       []T{},
		TotalCount:  total,
		TotalPages:  pages,
		CurrentPage: pageNumber,
		PageSize:    pageSize,
	}
	if pageNumber > pages {
		return page
	}

	start := pageSize * (pageNumber - 1)
	end := total
	if total-start > pageSize {
		end = start + pageSize
	}
	page.Items = append(page.Items, items[start:end]...)
	return page
}
