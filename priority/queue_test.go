package priority_test

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/davidvella/chemio/priority"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minQueue() *priority.Queue[string, int] {
	return priority.NewQueue[string, int](func(a, b int) bool { return a < b })
}

func TestQueueOperations(t *testing.T) {
	type op func(q *priority.Queue[string, int])
	set := func(k string, v int) op { return func(q *priority.Queue[string, int]) { q.Set(k, v) } }
	remove := func(k string) op { return func(q *priority.Queue[string, int]) { q.Remove(k) } }
	pop := func(q *priority.Queue[string, int]) { q.Pop() }

	tests := []struct {
		name     string
		ops      []op
		wantLen  int
		wantHead int
	}{
		{name: "min order", ops: []op{set("a", 5), set("b", 3), set("c", 7)}, wantLen: 3, wantHead: 3},
		{name: "lower existing key", ops: []op{set("a", 5), set("b", 4), set("a", 2)}, wantLen: 2, wantHead: 2},
		{name: "raise existing key", ops: []op{set("a", 1), set("b", 4), set("a", 9)}, wantLen: 2, wantHead: 4},
		{name: "remove head", ops: []op{set("a", 5), set("b", 3), set("c", 7), remove("b")}, wantLen: 2, wantHead: 5},
		{name: "remove inner", ops: []op{set("a", 1), set("b", 8), set("c", 3), set("d", 9), set("e", 4), remove("b")}, wantLen: 4, wantHead: 1},
		{name: "pops", ops: []op{set("a", 5), set("b", 3), set("c", 7), pop, pop}, wantLen: 1, wantHead: 7},
		{name: "remove absent", ops: []op{set("a", 5), remove("z")}, wantLen: 1, wantHead: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := minQueue()
			for _, o := range tt.ops {
				o(q)
			}

			assert.Equal(t, tt.wantLen, q.Len())
			_, head, ok := q.Peek()
			require.True(t, ok)
			assert.Equal(t, tt.wantHead, head)
		})
	}
}

func TestQueueEmpty(t *testing.T) {
	q := minQueue()

	_, _, ok := q.Pop()
	assert.False(t, ok)
	_, _, ok = q.Peek()
	assert.False(t, ok)
	_, ok = q.Get("a")
	assert.False(t, ok)
	assert.False(t, q.Remove("a"))
}

func TestQueueGetContains(t *testing.T) {
	q := minQueue()
	q.Set("a", 5)

	v, ok := q.Get("a")
	require.True(t, ok)
	assert.Equal(t, 5, v)
	assert.True(t, q.Contains("a"))
	assert.False(t, q.Contains("b"))
}

func TestQueueRandomOrder(t *testing.T) {
	q := priority.NewQueue[int, int](func(a, b int) bool { return a < b })
	r := rand.New(rand.NewSource(1))

	want := make(map[int]int)
	for range 500 {
		k, v := r.Intn(200), r.Intn(1000)
		q.Set(k, v)
		want[k] = v
		if r.Intn(4) == 0 {
			del := r.Intn(200)
			q.Remove(del)
			delete(want, del)
		}
	}

	var got []int
	for k, v := range q.Drain() {
		assert.Equal(t, want[k], v)
		got = append(got, v)
	}
	assert.Len(t, got, len(want))
	assert.True(t, slices.IsSorted(got))
	assert.Equal(t, 0, q.Len())
}

func TestPopWhileStops(t *testing.T) {
	q := priority.NewQueue[int64, int64](func(a, b int64) bool { return a < b })
	for _, idx := range []int64{4, 0, 1, 3} {
		q.Set(idx, idx)
	}

	next := int64(0)
	for idx := range q.PopWhile(func(k, _ int64) bool { return k == next }) {
		assert.Equal(t, next, idx)
		next++
	}
	assert.Equal(t, int64(2), next)
	assert.Equal(t, 2, q.Len())
}

func BenchmarkQueue(b *testing.B) {
	b.ReportAllocs()

	for _, size := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("Set_%d", size), func(b *testing.B) {
			q := priority.NewQueue[int, int](func(a, b int) bool { return a < b })
			for i := range size / 2 {
				q.Set(i, rand.Intn(10000))
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				q.Set(i%size, rand.Intn(10000))
			}
		})

		b.Run(fmt.Sprintf("Reorder_%d", size), func(b *testing.B) {
			q := priority.NewQueue[int64, int64](func(a, b int64) bool { return a < b })
			order := rand.Perm(size)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				next := int64(0)
				for _, idx := range order {
					q.Set(int64(idx), int64(idx))
					for range q.PopWhile(func(k, _ int64) bool { return k == next }) {
						next++
					}
				}
			}
		})
	}
}
