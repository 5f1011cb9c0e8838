package codec

import (
	"sort"

	"github.com/bastiangx/typeahead/pkg/bitvec"
)

// Compact stores each value in ceil(log2 U) bits and searches by bisection.
type Compact struct{}

func (Compact) Kind() Kind { return KindCompact }

func (Compact) Encode(b *bitvec.Builder, values []uint64, universe uint64) error {
	if err := checkSorted(values, universe); err != nil {
		return err
	}
	width := widthFor(universe)
	for _, v := range values {
		b.Append(v, width)
	}
	return nil
}

func (Compact) Open(v *bitvec.Vector, offset, universe uint64, n int) SortedList {
	return &compactList{packed: packed{vec: v, offset: offset, width: widthFor(universe), n: n}}
}

type compactList struct {
	packed
}

func (c *compactList) NextGEQ(x uint64) (int, uint64, bool) {
	rank := sort.Search(c.n, func(i int) bool { return c.Access(i) >= x })
	if rank == c.n {
		return c.n, 0, false
	}
	return rank, c.Access(rank), true
}

func (c *compactList) Intersects(r Range) bool { return intersects(c, r) }

func (c *compactList) IntersectsWithPrefix(ids []uint32) bool { return intersectsWithPrefix(c, ids) }

// packed is a run of n fixed-width fields.
type packed struct {
	vec    *bitvec.Vector
	offset uint64
	width  uint
	n      int
}

func (p *packed) Size() int { return p.n }

func (p *packed) Access(i int) uint64 {
	return p.vec.Get(p.offset+uint64(i)*uint64(p.width), p.width)
}
