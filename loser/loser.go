package loser

import (
	"iter"
)

// Tree merges sorted sequences into one sorted sequence. Equal elements are
// yielded in the order of the sequences passed to New.
type Tree[E any] struct {
	nodes     []node[E]
	sequences []iter.Seq[E]
	less      func(E, E) bool
}

type node[E any] struct {
	index int              // loser for internal nodes, winner for node 0
	value E                // current head of a leaf
	done  bool             // leaf sequence exhausted
	next  func() (E, bool) // leaf nodes only
}

// New returns a tree merging sequences ordered by less.
func New[E any](sequences []iter.Seq[E], less func(E, E) bool) *Tree[E] {
	return &Tree[E]{
		nodes:     make([]node[E], len(sequences)*2),
		sequences: sequences,
		less:      less,
	}
}

// beats reports whether leaf a wins against leaf b.
func (t *Tree[E]) beats(a, b int) bool {
	na, nb := &t.nodes[a], &t.nodes[b]
	switch {
	case na.done:
		return false
	case nb.done:
		return true
	case t.less(na.value, nb.value):
		return true
	case t.less(nb.value, na.value):
		return false
	}
	return a < b
}

func (t *Tree[E]) moveNext(leaf int) {
	n := &t.nodes[leaf]
	if v, ok := n.next(); ok {
		n.value = v
		return
	}
	var zero E
	n.value = zero
	n.done = true
}

// All yields the merged elements. A tree is iterated once.
func (t *Tree[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		m := len(t.sequences)
		if m == 0 {
			return
		}
		for i, s := range t.sequences {
			next, stop := iter.Pull(s)
			defer stop()
			t.nodes[m+i].index = m + i
			t.nodes[m+i].next = next
			t.moveNext(m + i)
		}
		t.nodes[0].index = t.playGame(1)

		for {
			w := t.nodes[0].index
			if t.nodes[w].done || !yield(t.nodes[w].value) {
				return
			}
			t.moveNext(w)
			t.replayGames(w)
		}
	}
}

// playGame returns the winning leaf below pos and records the loser at
// internal nodes.
func (t *Tree[E]) playGame(pos int) int {
	if pos >= len(t.nodes)/2 {
		return pos
	}
	left := t.playGame(pos * 2)
	right := t.playGame(pos*2 + 1)
	if t.beats(left, right) {
		t.nodes[pos].index = right
		return left
	}
	t.nodes[pos].index = left
	return right
}

// replayGames walks from the winning leaf to the root after its value
// changed.
func (t *Tree[E]) replayGames(leaf int) {
	winner := leaf
	for n := parent(leaf); n != 0; n = parent(n) {
		if t.beats(t.nodes[n].index, winner) {
			t.nodes[n].index, winner = winner, t.nodes[n].index
		}
	}
	t.nodes[0].index = winner
}

func parent(i int) int { return i >> 1 }
