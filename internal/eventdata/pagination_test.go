package eventdata_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"proplens/internal/eventdata"
)

func makeItems(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("item-%03d", i)
	}
	return items
}

func TestPaginateSliceFullAndPartialPages(t *testing.T) {
	items := makeItems(57)

	page1 := eventdata.PaginateSlice(items, eventdata.PageParams{Page: 1, Limit: 25})
	assert.Len(t, page1.Data, 25)
	assert.Equal(t, "item-000", page1.Data[0])
	assert.Equal(t, eventdata.Pagination{Page: 1, Limit: 25, Total: 57, Pages: 3}, page1.Pagination)

	page3 := eventdata.PaginateSlice(items, eventdata.PageParams{Page: 3, Limit: 25})
	assert.Len(t, page3.Data, 7)
	assert.Equal(t, "item-050", page3.Data[0])
	assert.Equal(t, 57, page3.Pagination.Total)
}

func TestPaginateSlicePastTheEndPage(t *testing.T) {
	items := makeItems(57)

	page4 := eventdata.PaginateSlice(items, eventdata.PageParams{Page: 4, Limit: 25})
	assert.Empty(t, page4.Data)
	assert.NotNil(t, page4.Data)
	assert.Equal(t, 57, page4.Pagination.Total)
	assert.Equal(t, 3, page4.Pagination.Pages)
}

func TestPaginateSliceEmptyInput(t *testing.T) {
	result := eventdata.PaginateSlice([]string{}, eventdata.PageParams{Page: 1, Limit: 25})
	assert.Empty(t, result.Data)
	assert.Equal(t, 0, result.Pagination.Total)
	assert.Equal(t, 0, result.Pagination.Pages)
}

func TestPaginateSliceNormalizesParams(t *testing.T) {
	items := makeItems(10)

	// Zero values fall back to the defaults.
	result := eventdata.PaginateSlice(items, eventdata.PageParams{})
	assert.Equal(t, 1, result.Pagination.Page)
	assert.Equal(t, eventdata.DefaultPageLimit, result.Pagination.Limit)
	assert.Len(t, result.Data, 10)

	// Limits above the cap are clamped.
	result = eventdata.PaginateSlice(items, eventdata.PageParams{Page: 1, Limit: 5000})
	assert.Equal(t, eventdata.MaxPageLimit, result.Pagination.Limit)
}

func TestPaginateSliceExactMultiple(t *testing.T) {
	items := makeItems(50)
	result := eventdata.PaginateSlice(items, eventdata.PageParams{Page: 2, Limit: 25})
	assert.Len(t, result.Data, 25)
	assert.Equal(t, 2, result.Pagination.Pages)
}
