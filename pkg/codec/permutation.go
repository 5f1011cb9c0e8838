package codec

import (
	"fmt"

	"github.com/bastiangx/typeahead/pkg/bitvec"
)

// PermutationCodec encodes unstructured index arrays.
type PermutationCodec interface {
	Encode(b *bitvec.Builder, values []uint64, universe uint64) error
	Open(v *bitvec.Vector, offset, universe uint64, n int) Sequence
}

// Sequence is a random access cursor over n values.
type Sequence interface {
	Size() int
	Access(i int) uint64
}

// Packed writes every value in ceil(log2 universe) bits, unpadded.
type Packed struct{}

func (Packed) Encode(b *bitvec.Builder, values []uint64, universe uint64) error {
	width := widthFor(universe)
	for i, v := range values {
		if v >= universe {
			return fmt.Errorf("%w: value %d at %d, universe %d", ErrValueOutOfUniverse, v, i, universe)
		}
		b.Append(v, width)
	}
	return nil
}

func (Packed) Open(v *bitvec.Vector, offset, universe uint64, n int) Sequence {
	return &packed{vec: v, offset: offset, width: widthFor(universe), n: n}
}
