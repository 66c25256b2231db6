// Package pagination slices ordered collections into numbered pages.
package pagination

import (
	"context"
	"math"
	"net/url"
	"strconv"

	"github.com/samber/lo"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// Query is an ordered, already filtered collection. Callers must order it
// deterministically or page contents will drift between requests.
type Query[T any] interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// CountingQuery is a Query that can return one slice together with the size
// of the whole collection from a single read, so both describe the same
// snapshot.
type CountingQuery[T any] interface {
	Query[T]
	SliceWithCount(ctx context.Context, offset, limit int) ([]T, int, error)
}

type Page[T any] struct {
	Items    []T `json:"items"`
	Count    int `json:"count"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Params reads page and page_size from query values. Missing, non-numeric or
// non-positive values fall back to the defaults. page_size has no upper cap.
func Params(values url.Values, defaultPageSize int) (page, pageSize int) {
	return intParam(values, "page", DefaultPage), intParam(values, "page_size", defaultPageSize)
}

func intParam(values url.Values, key string, fallback int) int {
	n, err := strconv.Atoi(values.Get(key))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Paginate returns the requested page of q. Count is the size of the whole
// collection; a page past the end has no items.
func Paginate[T any](ctx context.Context, q Query[T], page, pageSize int) (Page[T], error) {
	page = max(page, 1)
	pageSize = max(pageSize, 1)
	if cq, ok := q.(CountingQuery[T]); ok {
		return paginateCounted(ctx, cq, page, pageSize)
	}

	total, err := q.Count(ctx)
	if err != nil {
		return Page[T]{}, err
	}

	items := []T{}
	// Compare page indexes before multiplying so a huge page_size cannot
	// overflow the offset.
	if total > 0 && page-1 <= (total-1)/pageSize {
		items, err = q.Slice(ctx, (page-1)*pageSize, pageSize)
		if err != nil {
			return Page[T]{}, err
		}
		if items == nil {
			items = []T{}
		}
	}

	return Page[T]{
		Items:    items,
		Count:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// paginateCounted reads items and total together. The total only comes from a
// separate Count when the page is empty, since an empty read carries no count.
func paginateCounted[T any](ctx context.Context, q CountingQuery[T], page, pageSize int) (Page[T], error) {
	items := []T{}
	total := 0
	fetched := false
	if page-1 <= math.MaxInt/pageSize {
		got, n, err := q.SliceWithCount(ctx, (page-1)*pageSize, pageSize)
		if err != nil {
			return Page[T]{}, err
		}
		if len(got) > 0 {
			items, total, fetched = got, n, true
		}
	}
	if !fetched {
		n, err := q.Count(ctx)
		if err != nil {
			return Page[T]{}, err
		}
		total = n
	}
	return Page[T]{
		Items:    items,
		Count:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

type sliceQuery[T any] []T

// FromSlice wraps an ordered in-memory slice as a Query.
func FromSlice[T any](items []T) Query[T] {
	return sliceQuery[T](items)
}

func (s sliceQuery[T]) Count(context.Context) (int, error) {
	return len(s), nil
}

func (s sliceQuery[T]) Slice(_ context.Context, offset, limit int) ([]T, error) {
	if offset < 0 || offset >= len(s) || limit < 1 {
		return []T{}, nil
	}
	return lo.Subset([]T(s), offset, uint(limit)), nil
}
