package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_PushEvictsFromFront(t *testing.T) {
	b := NewBuffer[int](3)
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []int{3, 4, 5}, b.Items())

	first, ok := b.First()
	require.True(t, ok)
	assert.Equal(t, 3, first)

	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, 5, last)
}

func TestBuffer_HoldsMinOfPushesAndCap(t *testing.T) {
	for _, tc := range []struct {
		cap    int
		pushes int
		want   int
	}{
		{30, 5, 5},
		{30, 30, 30},
		{30, 45, 30},
		{10, 11, 10},
		{8, 0, 0},
		{1, 3, 1},
	} {
		b := NewBuffer[int](tc.cap)
		for i := 0; i < tc.pushes; i++ {
			b.Push(i)
		}
		assert.Equalf(t, tc.want, b.Len(), "cap=%d pushes=%d", tc.cap, tc.pushes)
	}
}

func TestBuffer_PushPreservesInsertionOrder(t *testing.T) {
	b := NewBuffer[int](4)
	for i := 0; i < 9; i++ {
		b.Push(i)
	}
	assert.Equal(t, []int{5, 6, 7, 8}, b.Items())
}

func TestBuffer_PushFrontNewestFirst(t *testing.T) {
	b := NewBuffer[string](3)
	b.PushFront("a")
	b.PushFront("b")
	b.PushFront("c")
	assert.Equal(t, []string{"c", "b", "a"}, b.Items())

	// overflow drops the oldest (the back)
	b.PushFront("d")
	assert.Equal(t, []string{"d", "c", "b"}, b.Items())

	newest, ok := b.First()
	require.True(t, ok)
	assert.Equal(t, "d", newest)
}

func TestBuffer_ItemsIsACopy(t *testing.T) {
	b := NewBuffer[int](2)
	b.Push(1)
	b.Push(2)
	items := b.Items()
	items[0] = 99
	assert.Equal(t, []int{1, 2}, b.Items())
}

func TestBuffer_EmptyAccessors(t *testing.T) {
	b := NewBuffer[int](2)
	_, ok := b.First()
	assert.False(t, ok)
	_, ok = b.Last()
	assert.False(t, ok)
	assert.Empty(t, b.Items())
}
