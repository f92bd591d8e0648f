// Package loser implements a tournament tree (a loser tree) merging several
// sorted sequences. It follows Bryan Boreham's go-loser
// (https://github.com/bboreham/go-loser).
//
// Leaves occupy positions M..2M-1 of the node array, internal nodes 1..M-1
// hold the loser of the game played below them and node 0 holds the
// overall winner. Advancing the winner replays only the games on its path
// to the root, so each merged element costs O(log M) comparisons.
//
// Exhausted sequences lose every game, so no sentinel maximum value is
// needed. Ties go to the sequence passed first, which makes the merge
// stable:
//
//	tree := loser.New([]iter.Seq[string]{
//	    slices.Values([]string{"CCO", "c1ccccc1"}),
//	    slices.Values([]string{"CC", "O"}),
//	}, func(a, b string) bool { return a < b })
//
//	for v := range tree.All() {
//	    fmt.Println(v) // CC, CCO, O, c1ccccc1
//	}
package loser
