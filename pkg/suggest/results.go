package suggest

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// Timings breaks a query down by stage.
type Timings struct {
	Parse      time.Duration
	Dictionary time.Duration
	Search     time.Duration
	Reporting  time.Duration
}

// Total sums every stage.
func (t Timings) Total() time.Duration {
	return t.Parse + t.Dictionary + t.Search + t.Reporting
}

// Add accumulates o into t.
func (t *Timings) Add(o Timings) {
	t.Parse += o.Parse
	t.Dictionary += o.Dictionary
	t.Search += o.Search
	t.Reporting += o.Reporting
}

// Completion is one ranked result.
type Completion struct {
	ID    int
	Score uint32
	// Terms holds the term ids in original order.
	Terms []uint32
}

// Extractor turns term ids back into text.
type Extractor interface {
	Extract(id uint32) (string, bool)
}

// Results is the ranked answer to one query: best score first, ties by
// lower completion id. Terms are decoded on access, so walking the
// results again yields the same completions.
type Results struct {
	fwd     ForwardIndex
	hits    []hit
	Timings Timings
}

func emptyResults(fwd ForwardIndex, t Timings) *Results {
	return &Results{fwd: fwd, Timings: t}
}

// Len returns the number of completions.
func (r *Results) Len() int { return len(r.hits) }

// IDs returns the completion ids in rank order.
func (r *Results) IDs() []int {
	ids := make([]int, len(r.hits))
	for i, h := range r.hits {
		ids[i] = h.id
	}
	return ids
}

// Scores returns the scores in rank order.
func (r *Results) Scores() []uint32 {
	scores := make([]uint32, len(r.hits))
	for i, h := range r.hits {
		scores[i] = h.score
	}
	return scores
}

// At decodes the i-th completion.
func (r *Results) At(i int) (Completion, error) {
	h := r.hits[i]
	it, err := r.fwd.PermutingIterator(h.id)
	if err != nil {
		return Completion{}, err
	}
	terms, err := it.Collect(make([]uint32, 0, it.Size()))
	if err != nil {
		return Completion{}, err
	}
	return Completion{ID: h.id, Score: h.score, Terms: terms}, nil
}

// All iterates over the completions in rank order, stopping at the first error.
func (r *Results) All() iter.Seq2[Completion, error] {
	return func(yield func(Completion, error) bool) {
		for i := range r.hits {
			c, err := r.At(i)
			if !yield(c, err) || err != nil {
				return
			}
		}
	}
}

// Texts renders every completion by joining its terms with sep.
func (r *Results) Texts(x Extractor, sep string) ([]string, error) {
	out := make([]string, 0, len(r.hits))
	words := make([]string, 0, MaxNumTermsPerQuery)
	for c, err := range r.All() {
		if err != nil {
			return nil, err
		}
		words = words[:0]
		for _, id := range c.Terms {
			w, ok := x.Extract(id)
			if !ok {
				return nil, fmt.Errorf("completion %d: no text for term %d", c.ID, id)
			}
			words = append(words, w)
		}
		out = append(out, strings.Join(words, sep))
	}
	return out, nil
}
