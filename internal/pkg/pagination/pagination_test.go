package pagination

import (
	"context"
	"errors"
	"math"
	"net/url"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams(t *testing.T) {
	tests := map[string]struct {
		query        string
		wantPage     int
		wantPageSize int
	}{
		"absent":          {query: "", wantPage: 1, wantPageSize: 10},
		"explicit":        {query: "page=3&page_size=7", wantPage: 3, wantPageSize: 7},
		"zero":            {query: "page=0&page_size=0", wantPage: 1, wantPageSize: 10},
		"negative":        {query: "page=-2&page_size=-5", wantPage: 1, wantPageSize: 10},
		"non numeric":     {query: "page=abc&page_size=xyz", wantPage: 1, wantPageSize: 10},
		"large page size": {query: "page_size=100000", wantPage: 1, wantPageSize: 100000},
		"empty values":    {query: "page=&page_size=", wantPage: 1, wantPageSize: 10},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			page, pageSize := Params(values, 10)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPageSize, pageSize)
		})
	}
}

func TestPaginate_PageSizes(t *testing.T) {
	ctx := context.Background()
	for _, n := range []int{0, 1, 5, 12, 20} {
		for _, size := range []int{1, 3, 5, 10} {
			items := lo.Range(n)
			q := FromSlice(items)
			pages := (n + size - 1) / size
			seen := 0
			for p := 1; p <= pages; p++ {
				got, err := Paginate(ctx, q, p, size)
				require.NoError(t, err)
				assert.Equal(t, n, got.Count)
				want := size
				if p == pages && n%size != 0 {
					want = n % size
				}
				assert.Len(t, got.Items, want, "n=%d size=%d page=%d", n, size, p)
				assert.Equal(t, seen, got.Items[0])
				seen += len(got.Items)
			}
			assert.Equal(t, n, seen)
		}
	}
}

func TestPaginate_OutOfRange(t *testing.T) {
	got, err := Paginate(context.Background(), FromSlice([]string{"a", "b", "c"}), 5, 2)
	require.NoError(t, err)
	assert.NotNil(t, got.Items)
	assert.Empty(t, got.Items)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, 5, got.Page)
	assert.Equal(t, 2, got.PageSize)
}

func TestPaginate_Floors(t *testing.T) {
	got, err := Paginate(context.Background(), FromSlice([]int{1, 2, 3}), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 1, got.PageSize)
	assert.Equal(t, []int{1}, got.Items)
}

func TestPaginate_Empty(t *testing.T) {
	got, err := Paginate(context.Background(), FromSlice[int](nil), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Count)
	assert.Equal(t, []int{}, got.Items)
}

type failingQuery struct{ err error }

func (f failingQuery) Count(context.Context) (int, error) { return 0, f.err }
func (f failingQuery) Slice(context.Context, int, int) ([]int, error) {
	return nil, f.err
}

func TestPaginate_CountError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Paginate[int](context.Background(), failingQuery{err: boom}, 1, 10)
	assert.ErrorIs(t, err, boom)
}

func TestPaginate_OffsetOverflow(t *testing.T) {
	huge := math.MaxInt/2 + 2
	tests := map[string]struct {
		page      int
		pageSize  int
		wantItems []string
	}{
		"past end":          {page: 3, pageSize: huge, wantItems: []string{}},
		"second page":       {page: 2, pageSize: huge, wantItems: []string{}},
		"first page":        {page: 1, pageSize: huge, wantItems: []string{"a", "b", "c"}},
		"max page":          {page: math.MaxInt, pageSize: 2, wantItems: []string{}},
		"max page max size": {page: math.MaxInt, pageSize: math.MaxInt, wantItems: []string{}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			for _, q := range []Query[string]{
				FromSlice([]string{"a", "b", "c"}),
				&countingQuery{items: []string{"a", "b", "c"}},
			} {
				got, err := Paginate(context.Background(), q, tt.page, tt.pageSize)
				require.NoError(t, err)
				assert.Equal(t, tt.wantItems, got.Items)
				assert.Equal(t, 3, got.Count)
			}
		})
	}
}

func TestSliceQuery_NegativeOffset(t *testing.T) {
	got, err := FromSlice([]int{1, 2, 3}).Slice(context.Background(), -2, 2)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// countingQuery reports a different total from SliceWithCount than from
// Count so tests can tell which one a page used.
type countingQuery struct {
	items        []string
	sliceCalls   int
	countCalls   int
	lastOffset   int
	extraInSlice int
}

func (q *countingQuery) Count(context.Context) (int, error) {
	q.countCalls++
	return len(q.items), nil
}

func (q *countingQuery) Slice(ctx context.Context, offset, limit int) ([]string, error) {
	items, _, err := q.SliceWithCount(ctx, offset, limit)
	return items, err
}

func (q *countingQuery) SliceWithCount(ctx context.Context, offset, limit int) ([]string, int, error) {
	q.sliceCalls++
	q.lastOffset = offset
	items, err := FromSlice(q.items).Slice(ctx, offset, limit)
	return items, len(q.items) + q.extraInSlice, err
}

func TestPaginate_CountingQuery(t *testing.T) {
	ctx := context.Background()
	q := &countingQuery{items: []string{"a", "b", "c", "d", "e"}, extraInSlice: 1}

	got, err := Paginate[string](ctx, q, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, got.Items)
	assert.Equal(t, 6, got.Count, "total comes from the same read as the items")
	assert.Equal(t, 2, q.lastOffset)
	assert.Equal(t, 1, q.sliceCalls)
	assert.Zero(t, q.countCalls)

	got, err = Paginate[string](ctx, q, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Equal(t, 5, got.Count, "empty page falls back to Count")
	assert.Equal(t, 1, q.countCalls)
}

func TestPaginate_CountingQueryOverflowSkipsRead(t *testing.T) {
	q := &countingQuery{items: []string{"a"}}
	got, err := Paginate[string](context.Background(), q, 3, math.MaxInt/2+2)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Equal(t, 1, got.Count)
	assert.Zero(t, q.sliceCalls)
}
