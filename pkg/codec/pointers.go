package codec

import (
	"fmt"

	"github.com/bastiangx/typeahead/pkg/bitvec"
)

// Pointers is a random access table of non-decreasing offsets.
type Pointers interface {
	Access(i int) uint64
	Size() int
	Bytes() int
	Visit(v bitvec.Visitor) error
}

// NewPointers builds the offset table of the given kind.
func NewPointers(kind Kind, offsets []uint64) (Pointers, error) {
	switch kind {
	case KindCompact:
		return newCompactPointers(offsets)
	case KindEliasFano:
		return newEFPointers(offsets)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// EmptyPointers returns a zero table of the given kind, ready to be filled by Visit.
func EmptyPointers(kind Kind) (Pointers, error) {
	switch kind {
	case KindCompact:
		return &CompactPointers{}, nil
	case KindEliasFano:
		return &EliasFanoPointers{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

func upperBound(offsets []uint64) (uint64, error) {
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return 0, fmt.Errorf("%w: offset %d after %d at %d", ErrUnsorted, offsets[i], offsets[i-1], i)
		}
	}
	if len(offsets) == 0 {
		return 1, nil
	}
	return offsets[len(offsets)-1] + 1, nil
}

// CompactPointers packs every offset in the width of the largest one.
type CompactPointers struct {
	n     uint64
	width uint64
	vec   *bitvec.Vector
	list  packed
}

func newCompactPointers(offsets []uint64) (*CompactPointers, error) {
	universe, err := upperBound(offsets)
	if err != nil {
		return nil, err
	}
	width := widthFor(universe)
	b := bitvec.NewBuilder()
	for _, o := range offsets {
		b.Append(o, width)
	}
	p := &CompactPointers{n: uint64(len(offsets)), width: uint64(width), vec: b.Build()}
	p.open()
	return p, nil
}

func (p *CompactPointers) open() {
	p.list = packed{vec: p.vec, width: uint(p.width), n: int(p.n)}
}

func (p *CompactPointers) Access(i int) uint64 { return p.list.Access(i) }

func (p *CompactPointers) Size() int { return int(p.n) }

func (p *CompactPointers) Bytes() int { return 16 + p.vec.Bytes() }

func (p *CompactPointers) Visit(v bitvec.Visitor) error {
	if p.vec == nil {
		p.vec = &bitvec.Vector{}
	}
	if err := v.VisitUint64(&p.n); err != nil {
		return err
	}
	if err := v.VisitUint64(&p.width); err != nil {
		return err
	}
	if p.width > 64 {
		return fmt.Errorf("%w: pointer width %d", ErrValueOutOfUniverse, p.width)
	}
	if err := p.vec.Visit(v); err != nil {
		return err
	}
	if p.n*p.width > p.vec.Len() {
		return fmt.Errorf("%w: %d pointers of %d bits in %d bits", bitvec.ErrOutOfRange, p.n, p.width, p.vec.Len())
	}
	p.open()
	return nil
}

// EliasFanoPointers stores the offsets as one Elias-Fano sequence.
type EliasFanoPointers struct {
	n        uint64
	universe uint64
	vec      *bitvec.Vector
	list     *efList
}

func newEFPointers(offsets []uint64) (*EliasFanoPointers, error) {
	universe, err := upperBound(offsets)
	if err != nil {
		return nil, err
	}
	b := bitvec.NewBuilder()
	if err := (EliasFano{}).Encode(b, offsets, universe); err != nil {
		return nil, err
	}
	p := &EliasFanoPointers{n: uint64(len(offsets)), universe: universe, vec: b.Build()}
	p.open()
	return p, nil
}

func (p *EliasFanoPointers) open() {
	p.list = newEFList(p.vec, 0, p.universe, int(p.n))
	p.list.buildSamples()
}

func (p *EliasFanoPointers) Access(i int) uint64 { return p.list.Access(i) }

func (p *EliasFanoPointers) Size() int { return int(p.n) }

func (p *EliasFanoPointers) Bytes() int { return 16 + p.vec.Bytes() }

func (p *EliasFanoPointers) Visit(v bitvec.Visitor) error {
	if p.vec == nil {
		p.vec = &bitvec.Vector{}
	}
	if err := v.VisitUint64(&p.n); err != nil {
		return err
	}
	if err := v.VisitUint64(&p.universe); err != nil {
		return err
	}
	if p.n > 0 && p.universe == 0 {
		return fmt.Errorf("%w: empty universe for %d pointers", ErrValueOutOfUniverse, p.n)
	}
	if err := p.vec.Visit(v); err != nil {
		return err
	}
	l := efLowBits(p.universe, int(p.n))
	if p.n*uint64(l)+efUpperLen(p.universe, int(p.n), l) > p.vec.Len() {
		return fmt.Errorf("%w: elias-fano pointers truncated", bitvec.ErrOutOfRange)
	}
	p.open()
	return nil
}
