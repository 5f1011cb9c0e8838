package suggest

import "container/heap"

type hit struct {
	id    int
	score uint32
}

// worse orders hits by ascending score, then descending id.
func worse(a, b hit) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.id > b.id
}

// topK keeps the k best hits seen so far. Its root is the worst kept hit.
type topK struct {
	k    int
	hits []hit
}

var _ heap.Interface = (*topK)(nil)

func newTopK(k int) *topK {
	return &topK{k: k, hits: make([]hit, 0, min(k, 1024))}
}

func (t *topK) Len() int           { return len(t.hits) }
func (t *topK) Less(i, j int) bool { return worse(t.hits[i], t.hits[j]) }
func (t *topK) Swap(i, j int)      { t.hits[i], t.hits[j] = t.hits[j], t.hits[i] }
func (t *topK) Push(x any)         { t.hits = append(t.hits, x.(hit)) }

func (t *topK) Pop() any {
	n := len(t.hits)
	h := t.hits[n-1]
	t.hits = t.hits[:n-1]
	return h
}

// offer considers a candidate.
func (t *topK) offer(id int, score uint32) {
	h := hit{id: id, score: score}
	if len(t.hits) < t.k {
		heap.Push(t, h)
		return
	}
	if t.k == 0 || !worse(t.hits[0], h) {
		return
	}
	t.hits[0] = h
	heap.Fix(t, 0)
}

// drain empties the heap, best hit first.
func (t *topK) drain() []hit {
	out := make([]hit, len(t.hits))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(t).(hit)
	}
	return out
}
