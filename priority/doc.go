// Package priority implements a keyed priority queue: a binary heap paired
// with a key index, so values can be looked up, replaced and removed by key
// in addition to popping the head.
//
// The scanner uses it as a reorder buffer. Records completed out of order
// are queued under their record index and released once every earlier index
// has been written:
//
//	pending := priority.NewQueue[int64, int64](func(a, b int64) bool { return a < b })
//	pending.Set(idx, idx)
//	for idx := range pending.PopWhile(func(k, _ int64) bool { return k == next }) {
//	    write(idx)
//	    next++
//	}
//
// The ordering function reports whether a leaves the queue before b. Set,
// Remove and Pop are O(log n); Get, Contains and Peek are O(1).
package priority
