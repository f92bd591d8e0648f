package priority

import "iter"

type node[K comparable, V any] struct {
	key   K
	value V
	pos   int
}

// Queue is a keyed binary heap. Each key occurs at most once; setting an
// existing key updates its value and restores the heap order.
type Queue[K comparable, V any] struct {
	heap  []*node[K, V]
	byKey map[K]*node[K, V]
	less  func(a, b V) bool
}

// NewQueue returns an empty queue ordered by less, which reports whether a
// must leave the queue before b.
func NewQueue[K comparable, V any](less func(a, b V) bool) *Queue[K, V] {
	return &Queue[K, V]{
		byKey: make(map[K]*node[K, V]),
		less:  less,
	}
}

// Len returns the number of queued keys.
func (q *Queue[K, V]) Len() int {
	return len(q.heap)
}

// Get returns the value queued under key.
func (q *Queue[K, V]) Get(key K) (V, bool) {
	n, ok := q.byKey[key]
	if !ok {
		var zero V
		return zero, false
	}
	return n.value, true
}

// Contains reports whether key is queued.
func (q *Queue[K, V]) Contains(key K) bool {
	_, ok := q.byKey[key]
	return ok
}

// Set queues value under key, replacing any previous value.
func (q *Queue[K, V]) Set(key K, value V) {
	if n, ok := q.byKey[key]; ok {
		n.value = value
		q.fix(n.pos)
		return
	}

	n := &node[K, V]{key: key, value: value, pos: len(q.heap)}
	q.heap = append(q.heap, n)
	q.byKey[key] = n
	q.siftUp(n.pos)
}

// Remove drops key from the queue. It reports whether key was queued.
func (q *Queue[K, V]) Remove(key K) bool {
	n, ok := q.byKey[key]
	if !ok {
		return false
	}

	i, last := n.pos, len(q.heap)-1
	if i != last {
		q.swap(i, last)
	}
	q.heap[last] = nil
	q.heap = q.heap[:last]
	delete(q.byKey, key)

	if i < last {
		q.fix(i)
	}
	return true
}

// Peek returns the head of the queue without removing it.
func (q *Queue[K, V]) Peek() (K, V, bool) {
	if len(q.heap) == 0 {
		var (
			zk K
			zv V
		)
		return zk, zv, false
	}
	n := q.heap[0]
	return n.key, n.value, true
}

// Pop removes and returns the head of the queue.
func (q *Queue[K, V]) Pop() (K, V, bool) {
	k, v, ok := q.Peek()
	if ok {
		q.Remove(k)
	}
	return k, v, ok
}

// PopWhile pops entries in order for as long as accept returns true for the
// head of the queue.
func (q *Queue[K, V]) PopWhile(accept func(key K, value V) bool) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for {
			k, v, ok := q.Peek()
			if !ok || !accept(k, v) {
				return
			}
			q.Remove(k)
			if !yield(k, v) {
				return
			}
		}
	}
}

// Drain pops every entry in order.
func (q *Queue[K, V]) Drain() iter.Seq2[K, V] {
	return q.PopWhile(func(K, V) bool { return true })
}

func (q *Queue[K, V]) fix(i int) {
	if !q.siftUp(i) {
		q.siftDown(i)
	}
}

func (q *Queue[K, V]) swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.heap[i].pos = i
	q.heap[j].pos = j
}

func (q *Queue[K, V]) before(i, j int) bool {
	return q.less(q.heap[i].value, q.heap[j].value)
}

// siftUp reports whether the node at i moved.
func (q *Queue[K, V]) siftUp(i int) bool {
	moved := false
	for i > 0 {
		parent := (i - 1) / 2
		if !q.before(i, parent) {
			break
		}
		q.swap(i, parent)
		i = parent
		moved = true
	}
	return moved
}

func (q *Queue[K, V]) siftDown(i int) {
	n := len(q.heap)
	for {
		first := i
		if l := 2*i + 1; l < n && q.before(l, first) {
			first = l
		}
		if r := 2*i + 2; r < n && q.before(r, first) {
			first = r
		}
		if first == i {
			return
		}
		q.swap(i, first)
		i = first
	}
}
