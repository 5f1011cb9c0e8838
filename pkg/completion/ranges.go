// Package completion maps term-id prefixes to ranges of completion ids and
// holds the per-completion data used for ranking.
package completion

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/bastiangx/typeahead/pkg/codec"
)

// ErrNotSorted is returned when completions are not in lexicographic term-id order.
var ErrNotSorted = errors.New("completions not sorted")

// Source gives original-order access to the terms of each completion.
type Source interface {
	NumDocs() int
	Terms(id int, dst []uint32) ([]uint32, error)
}

// Ranges answers prefix lookups over completions sorted lexicographically by
// their term-id sequence. A sequence that is a prefix of another sorts first.
type Ranges struct {
	src Source
}

// NewRanges checks that src is sorted and wraps it.
func NewRanges(src Source) (*Ranges, error) {
	var prev, cur []uint32
	for id := range src.NumDocs() {
		var err error
		cur, err = src.Terms(id, cur[:0])
		if err != nil {
			return nil, fmt.Errorf("completion %d: %w", id, err)
		}
		if id > 0 && slices.Compare(prev, cur) > 0 {
			return nil, fmt.Errorf("%w: completion %d %v before %d %v", ErrNotSorted, id-1, prev, id, cur)
		}
		prev, cur = cur, prev
	}
	return &Ranges{src: src}, nil
}

// Size returns the number of completions.
func (r *Ranges) Size() int { return r.src.NumDocs() }

// LocatePrefix returns the completion ids whose terms start with prefix
// followed by a term id in suffix. suffix must already be shifted to ids.
func (r *Ranges) LocatePrefix(prefix []uint32, suffix codec.Range) (codec.Range, error) {
	if suffix.Empty() {
		return codec.Range{}, nil
	}
	key := make([]uint32, len(prefix)+1)
	copy(key, prefix)

	key[len(prefix)] = uint32(suffix.Begin)
	lo, err := r.lowerBound(key, 0)
	if err != nil {
		return codec.Range{}, err
	}
	key[len(prefix)] = uint32(suffix.End)
	hi, err := r.lowerBound(key, lo)
	if err != nil {
		return codec.Range{}, err
	}
	return codec.Range{Begin: uint64(lo), End: uint64(hi)}, nil
}

// lowerBound returns the first id in [from, size) whose terms compare >= key.
func (r *Ranges) lowerBound(key []uint32, from int) (int, error) {
	var (
		buf []uint32
		err error
	)
	n := r.src.NumDocs()
	i := from + sort.Search(n-from, func(i int) bool {
		if err != nil {
			return true
		}
		buf, err = r.src.Terms(from+i, buf[:0])
		return slices.Compare(buf, key) >= 0
	})
	return i, err
}
