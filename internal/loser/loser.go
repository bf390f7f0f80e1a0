// Package loser merges multiple sorted sequences with a tournament (loser)
// tree, after Bryan Boreham's go-loser (https://github.com/bboreham/go-loser).
// Each internal node remembers the loser of the contest between its
// subtrees and node 0 holds the overall winner, so advancing the merge
// costs O(log k) comparisons for k sequences.
package loser

import "iter"

// Sequence is one sorted input to the merge.
type Sequence[E any] interface {
	All() iter.Seq[E]
}

// Tree merges the given sequences. maxVal must compare greater than every
// real element; it marks exhausted sequences.
type Tree[E any] struct {
	maxVal    E
	nodes     []node[E]
	sequences []Sequence[E]
	less      func(E, E) bool
}

type node[E any] struct {
	// Loser of the contest at this node, except node 0 where it is the
	// winner.
	index int
	value E
	next  func() (E, bool) // leaf nodes only
}

// New builds a tree over sequences ordered by less. The tree is single-use:
// All may be iterated once.
func New[E any](sequences []Sequence[E], maxVal E, less func(E, E) bool) *Tree[E] {
	return &Tree[E]{
		maxVal:    maxVal,
		nodes:     make([]node[E], len(sequences)*2),
		sequences: sequences,
		less:      less,
	}
}

// All yields the merged elements in order.
func (t *Tree[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		if len(t.nodes) == 0 {
			return
		}
		k := len(t.sequences)
		for i, s := range t.sequences {
			next, stop := iter.Pull(s.All())
			t.nodes[i+k].next = next
			defer stop()
			t.advance(i + k)
		}
		winner := t.playGame(1)
		t.nodes[0].index = winner
		t.nodes[0].value = t.nodes[winner].value

		for t.nodes[t.nodes[0].index].index != -1 && yield(t.nodes[0].value) {
			t.advance(t.nodes[0].index)
			t.replay(t.nodes[0].index)
		}
	}
}

// advance pulls the next element for the leaf at index, substituting maxVal
// once its sequence is exhausted.
func (t *Tree[E]) advance(index int) {
	n := &t.nodes[index]
	if v, ok := n.next(); ok {
		n.value = v
		return
	}
	n.value = t.maxVal
	n.index = -1
}

// playGame finds the winner under pos, recording losers in internal nodes.
func (t *Tree[E]) playGame(pos int) int {
	if pos >= len(t.nodes)/2 {
		return pos
	}
	left := t.playGame(pos * 2)
	right := t.playGame(pos*2 + 1)
	loser, winner := left, right
	if t.less(t.nodes[left].value, t.nodes[right].value) {
		loser, winner = right, left
	}
	t.nodes[pos].index = loser
	t.nodes[pos].value = t.nodes[loser].value
	return winner
}

// replay re-runs the contests from leaf pos up to the root after that leaf
// advanced.
func (t *Tree[E]) replay(pos int) {
	value := t.nodes[pos].value
	for n := pos / 2; n != 0; n /= 2 {
		if t.less(t.nodes[n].value, value) {
			t.nodes[n].index, pos = pos, t.nodes[n].index
			t.nodes[n].value, value = value, t.nodes[n].value
		}
	}
	t.nodes[0].index = pos
	t.nodes[0].value = value
}
