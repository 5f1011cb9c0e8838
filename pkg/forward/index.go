package forward

import (
	"fmt"
	"math/bits"

	"github.com/bastiangx/typeahead/pkg/bitvec"
	"github.com/bastiangx/typeahead/pkg/codec"
)

// Index is the immutable forward index. Each completion owns two regions of
// the shared bit buffer: a 32-bit term count followed by the sorted term ids
// (padded to a byte), then the permutation back to original order.
type Index struct {
	numTerms uint64
	sorted   codec.SortedSetCodec
	perm     codec.PermutationCodec
	kind     codec.Kind
	pointers codec.Pointers
	data     *bitvec.Vector
}

// NumTerms returns the size of the term vocabulary.
func (x *Index) NumTerms() uint64 { return x.numTerms }

// NumDocs returns the number of completions.
func (x *Index) NumDocs() int { return x.pointers.Size() / 2 }

// SortedKind reports the codec used for the sorted term lists.
func (x *Index) SortedKind() codec.Kind { return x.sorted.Kind() }

// PointersKind reports the encoding of the offset table.
func (x *Index) PointersKind() codec.Kind { return x.kind }

// Bytes returns the serialized size of the index.
func (x *Index) Bytes() int {
	return 8 + x.pointers.Bytes() + x.data.Bytes()
}

// regionEnd returns where the region starting at pointer i ends.
func (x *Index) regionEnd(i int) uint64 {
	if i+1 < x.pointers.Size() {
		return x.pointers.Access(i + 1)
	}
	return x.data.Len()
}

func (x *Index) header(id int) (uint64, int, error) {
	if id < 0 || id >= x.NumDocs() {
		return 0, 0, fmt.Errorf("%w: %d of %d", ErrInvalidCompletionID, id, x.NumDocs())
	}
	begin := x.pointers.Access(2 * id)
	end := x.pointers.Access(2*id + 1)
	if end < begin+32 || end > x.data.Len() {
		return 0, 0, fmt.Errorf("%w: completion %d spans [%d,%d)", ErrCorrupt, id, begin, end)
	}
	n := x.data.Get(begin, 32)
	if n == 0 || n >= MaxNumTermsPerQuery {
		return 0, 0, fmt.Errorf("%w: completion %d has %d terms", ErrCorrupt, id, n)
	}
	return begin + 32, int(n), nil
}

// Iterator returns a cursor over the sorted term ids of completion id.
func (x *Index) Iterator(id int) (codec.SortedList, error) {
	offset, n, err := x.header(id)
	if err != nil {
		return nil, err
	}
	return x.sorted.Open(x.data, offset, x.numTerms+1, n), nil
}

// Intersects reports whether completion id holds some term id in r.
func (x *Index) Intersects(id int, r codec.Range) (bool, error) {
	it, err := x.Iterator(id)
	if err != nil {
		return false, err
	}
	return it.Intersects(r), nil
}

// PermutingIterator returns a cursor yielding the terms of completion id in
// their original order.
func (x *Index) PermutingIterator(id int) (*PermutingIterator, error) {
	sorted, err := x.Iterator(id)
	if err != nil {
		return nil, err
	}
	n := sorted.Size()
	width := uint64(bits.Len64(uint64(n)))
	begin := x.pointers.Access(2*id + 1)
	end := x.regionEnd(2*id + 1)
	if end < begin || (end-begin)%width != 0 || (end-begin)/width != uint64(n) {
		return nil, fmt.Errorf("%w: completion %d has %d sorted ids and %d permutation bits",
			ErrPermutationMismatch, id, n, end-begin)
	}
	return &PermutingIterator{
		sorted: sorted,
		perm:   x.perm.Open(x.data, begin, uint64(n)+1, n),
	}, nil
}

// Terms appends the original-order term ids of completion id to dst.
func (x *Index) Terms(id int, dst []uint32) ([]uint32, error) {
	it, err := x.PermutingIterator(id)
	if err != nil {
		return dst, err
	}
	return it.Collect(dst)
}

// Visit walks the term count, the offset table and the bit buffer in that order.
func (x *Index) Visit(v bitvec.Visitor) error {
	if err := v.VisitUint64(&x.numTerms); err != nil {
		return fmt.Errorf("num terms: %w", err)
	}
	if err := x.pointers.Visit(v); err != nil {
		return fmt.Errorf("pointers: %w", err)
	}
	if err := x.data.Visit(v); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	return nil
}

// Load reads an index through v in the order written by Visit. The sorted
// codec and pointer encoding must match those used to build it.
func Load(v bitvec.Visitor, opts ...Option) (*Index, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	pointers, err := codec.EmptyPointers(o.pointers)
	if err != nil {
		return nil, err
	}
	x := &Index{
		sorted:   o.sorted,
		perm:     o.perm,
		kind:     o.pointers,
		pointers: pointers,
		data:     new(bitvec.Vector),
	}
	if err := x.Visit(v); err != nil {
		return nil, fmt.Errorf("load forward index: %w", err)
	}
	if err := x.Validate(); err != nil {
		return nil, err
	}
	return x, nil
}

// Validate checks the structural invariants of every record.
func (x *Index) Validate() error {
	size := x.pointers.Size()
	if size%2 != 0 {
		return fmt.Errorf("%w: odd pointer count %d", ErrCorrupt, size)
	}
	var prev uint64
	for i := range size {
		p := x.pointers.Access(i)
		if p < prev {
			return fmt.Errorf("%w: pointer %d decreases (%d after %d)", ErrCorrupt, i, p, prev)
		}
		if p > x.data.Len() {
			return fmt.Errorf("%w: pointer %d past end of data", ErrCorrupt, i)
		}
		if i%2 == 1 && p%8 != 0 {
			return fmt.Errorf("%w: region %d not byte aligned at bit %d", ErrCorrupt, i/2, p)
		}
		prev = p
	}
	if size > 0 && x.pointers.Access(0) != 0 {
		return fmt.Errorf("%w: first record starts at bit %d", ErrCorrupt, x.pointers.Access(0))
	}
	for id := range x.NumDocs() {
		if _, err := x.PermutingIterator(id); err != nil {
			return err
		}
	}
	return nil
}
