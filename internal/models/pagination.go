package models

import "math"

// Page is a page-number window over an ordered result set.
type Page struct {
	Number int
	Size   int
}

// MaxPageNumber is the highest page whose offset fits in a 32-bit OFFSET.
func MaxPageNumber(size int) int {
	if size < 1 {
		size = 1
	}
	return math.MaxInt32/size + 1
}

// Offset is the number of rows skipped before the window.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (min(p.Number, MaxPageNumber(p.Size)) - 1) * p.Size
}

// PageResult is the envelope returned by every paginated endpoint.
type PageResult[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Next     *int  `json:"next"`
	Previous *int  `json:"previous"`
	Results  []T   `json:"results"`
}

// NewPageResult builds the envelope and its neighbour links.
func NewPageResult[T any](items []T, total int64, page Page) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	res := PageResult[T]{
		Count:    total,
		Page:     page.Number,
		PageSize: page.Size,
		Results:  items,
	}
	if page.Number > 1 {
		prev := page.Number - 1
		res.Previous = &prev
	}
	if int64(page.Offset()+len(items)) < total {
		next := page.Number + 1
		res.Next = &next
	}
	return res
}

// MapPage converts the results of a page while keeping its envelope.
func MapPage[T, U any](in PageResult[T], fn func(T) U) PageResult[U] {
	out := make([]U, len(in.Results))
	for i, item := range in.Results {
		out[i] = fn(item)
	}
	return PageResult[U]{
		Count:    in.Count,
		Page:     in.Page,
		PageSize: in.PageSize,
		Next:     in.Next,
		Previous: in.Previous,
		Results:  out,
	}
}
