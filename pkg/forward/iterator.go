package forward

import (
	"fmt"

	"github.com/bastiangx/typeahead/pkg/codec"
)

// PermutingIterator yields a completion's term ids in original order. The
// i-th value is the sorted id at rank perm[i].
type PermutingIterator struct {
	sorted codec.SortedList
	perm   codec.Sequence
	pos    int
	err    error
}

// Size returns the number of terms.
func (p *PermutingIterator) Size() int { return p.sorted.Size() }

// Next returns the next term id, or false once exhausted or on error.
func (p *PermutingIterator) Next() (uint32, bool) {
	if p.err != nil || p.pos >= p.perm.Size() {
		return 0, false
	}
	rank := p.perm.Access(p.pos)
	if rank >= uint64(p.sorted.Size()) {
		p.err = fmt.Errorf("%w: rank %d at position %d of %d", ErrCorrupt, rank, p.pos, p.sorted.Size())
		return 0, false
	}
	p.pos++
	return uint32(p.sorted.Access(int(rank))), true
}

// Err returns the first corruption seen by Next.
func (p *PermutingIterator) Err() error { return p.err }

// Reset rewinds the cursor.
func (p *PermutingIterator) Reset() {
	p.pos = 0
	p.err = nil
}

// Collect appends the remaining ids to dst.
func (p *PermutingIterator) Collect(dst []uint32) ([]uint32, error) {
	for {
		id, ok := p.Next()
		if !ok {
			return dst, p.err
		}
		dst = append(dst, id)
	}
}
