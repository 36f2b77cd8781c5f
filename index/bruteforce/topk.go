package bruteforce

import (
	"container/heap"
	"sort"
)

// Candidate is a scored neighbor.
type Candidate struct {
	ID    string
	Score float64
}

// Better reports whether a ranks ahead of b: higher score first, then lower
// id. The order is total, so rankings never depend on input order.
func Better(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// candidates implements heap.Interface with the worst candidate on top.
type candidates []Candidate

func (h candidates) Len() int           { return len(h) }
func (h candidates) Less(i, j int) bool { return Better(h[j], h[i]) }
func (h candidates) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidates) Push(x interface{}) {
	*h = append(*h, x.(Candidate))
}

func (h *candidates) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopK keeps the k best candidates seen so far.
type TopK struct {
	k int
	h candidates
}

// NewTopK returns a selector for k candidates.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{k: k, h: make(candidates, 0, k)}
}

// Len returns the number of retained candidates.
func (t *TopK) Len() int { return len(t.h) }

// Push offers a candidate.
func (t *TopK) Push(c Candidate) {
	if t.k == 0 {
		return
	}
	if len(t.h) < t.k {
		heap.Push(&t.h, c)
		return
	}
	if Better(c, t.h[0]) {
		t.h[0] = c
		heap.Fix(&t.h, 0)
	}
}

// Sorted returns the retained candidates best first. The selector can keep
// receiving candidates afterwards.
func (t *TopK) Sorted() []Candidate {
	out := make([]Candidate, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(a, b int) bool { return Better(out[a], out[b]) })
	return out
}
