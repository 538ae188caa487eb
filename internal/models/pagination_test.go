package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_Offset(t *testing.T) {
	tests := []struct {
		page Page
		want int
	}{
		{Page{Number: 1, Size: 20}, 0},
		{Page{Number: 3, Size: 20}, 40},
		{Page{Number: 0, Size: 20}, 0},
		{Page{Number: -7, Size: 20}, 0},
		{Page{Number: math.MaxInt, Size: 10}, (MaxPageNumber(10) - 1) * 10},
		{Page{Number: math.MaxInt, Size: 100}, (MaxPageNumber(100) - 1) * 100},
	}
	for _, tt := range tests {
		got := tt.page.Offset()
		assert.Equal(t, tt.want, got, "%+v", tt.page)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, math.MaxInt32)
	}
}

func TestMaxPageNumber(t *testing.T) {
	assert.Equal(t, math.MaxInt32+1, MaxPageNumber(1))
	assert.Equal(t, MaxPageNumber(1), MaxPageNumber(0))
	assert.Equal(t, math.MaxInt32/25+1, MaxPageNumber(25))
}

func TestNewPageResult_Links(t *testing.T) {
	res := NewPageResult([]int{1, 2}, 5, Page{Number: 2, Size: 2})
	require.NotNil(t, res.Previous)
	require.NotNil(t, res.Next)
	assert.Equal(t, 1, *res.Previous)
	assert.Equal(t, 3, *res.Next)

	last := NewPageResult([]int{5}, 5, Page{Number: 3, Size: 2})
	assert.Nil(t, last.Next)

	empty := NewPageResult[int](nil, 0, Page{Number: 1, Size: 2})
	assert.Nil(t, empty.Previous)
	assert.Nil(t, empty.Next)
	assert.NotNil(t, empty.Results)
}
