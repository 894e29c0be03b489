package paging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource []int

func (s sliceSource) Count(ctx context.Context) (int, error) { return len(s), nil }

func (s sliceSource) Slice(ctx context.Context, offset, limit int) ([]int, error) {
	if offset >= len(s) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s) {
		end = len(s)
	}
	return s[offset:end], nil
}

type failingSource struct{}

func (failingSource) Count(ctx context.Context) (int, error) { return 0, errors.New("db down") }

func (failingSource) Slice(ctx context.Context, offset, limit int) ([]int, error) {
	return nil, nil
}

func items(n int) sliceSource {
	s := make(sliceSource, n)
	for i := range s {
		s[i] = i
	}
	return s
}

func TestResolveNumber(t *testing.T) {
	cases := []struct {
		raw      string
		numPages int
		want     int
	}{
		{"", 3, 1},
		{"abc", 3, 1},
		{"1", 3, 1},
		{"2", 3, 2},
		{" 3 ", 3, 3},
		{"2.0", 3, 1},
		{"+2", 3, 2},
		{"2.5", 3, 1},
		{"4", 3, 3},
		{"0", 3, 3},
		{"-1", 3, 3},
		{"99999999999999999999", 3, 3},
		{"-99999999999999999999", 3, 3},
		{"1e400", 3, 1},
		{"1", 1, 1},
		{"2", 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveNumber(tc.raw, tc.numPages))
		})
	}
}

func TestGetPage_ElevenItems(t *testing.T) {
	ctx := context.Background()
	src := items(11)

	first, err := GetPage[int](ctx, src, 10, "")
	require.NoError(t, err)
	assert.Len(t, first.Items, 10)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, 2, first.NumPages)
	assert.Equal(t, 11, first.Count)
	assert.True(t, first.HasNext())
	assert.False(t, first.HasPrevious())
	assert.Equal(t, 1, first.StartIndex())
	assert.Equal(t, 10, first.EndIndex())

	second, err := GetPage[int](ctx, src, 10, "2")
	require.NoError(t, err)
	assert.Equal(t, []int{10}, second.Items)
	assert.False(t, second.HasNext())
	assert.True(t, second.HasPrevious())
	assert.Equal(t, 1, second.PreviousNumber())
	assert.Equal(t, 11, second.StartIndex())
	assert.Equal(t, 11, second.EndIndex())
	assert.Equal(t, []int{1, 2}, second.PageRange())

	outOfRange, err := GetPage[int](ctx, src, 10, "100")
	require.NoError(t, err)
	assert.Equal(t, 2, outOfRange.Number)
	assert.Len(t, outOfRange.Items, 1)

	garbage, err := GetPage[int](ctx, src, 10, "page")
	require.NoError(t, err)
	assert.Equal(t, 1, garbage.Number)
}

func TestGetPage_Empty(t *testing.T) {
	page, err := GetPage[int](context.Background(), items(0), 10, "5")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 1, page.NumPages)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.StartIndex())
	assert.False(t, page.HasOtherPages())
}

func TestGetPage_Errors(t *testing.T) {
	_, err := GetPage[int](context.Background(), failingSource{}, 10, "1")
	assert.ErrorContains(t, err, "db down")

	_, err = GetPage[int](context.Background(), items(3), 0, "1")
	assert.Error(t, err)
}
