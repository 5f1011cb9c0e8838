// Package bitvec provides the bit buffer every succinct structure is written into.
//
// A Builder appends fixed-width fields left to right, packing them LSB-first into
// 64-bit words. Build freezes the bits into a Vector, which only supports reads and
// can be shared by any number of goroutines.
package bitvec

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is reported when a read crosses the end of the buffer.
var ErrOutOfRange = errors.New("bit range out of bounds")

// Visitor walks the raw fields of a structure. Saving visitors read through the
// pointers, loading visitors write through them. The order of calls is the format.
type Visitor interface {
	VisitUint64(v *uint64) error
	VisitWords(w *[]uint64) error
}

// Builder is an append-only bit sequence.
type Builder struct {
	words []uint64
	size  uint64
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Append writes the low width bits of value. width must be in [0, 64].
func (b *Builder) Append(value uint64, width uint) {
	if width == 0 {
		return
	}
	if width > 64 {
		panic(fmt.Sprintf("bitvec: width %d exceeds 64", width))
	}
	if width < 64 {
		value &= (uint64(1) << width) - 1
	}
	pos := b.size % 64
	if pos == 0 {
		b.words = append(b.words, value)
	} else {
		b.words[len(b.words)-1] |= value << pos
		if pos+uint64(width) > 64 {
			b.words = append(b.words, value>>(64-pos))
		}
	}
	b.size += uint64(width)
}

// Pad appends zero bits until Len is a multiple of alignment.
func (b *Builder) Pad(alignment uint) {
	if alignment == 0 {
		return
	}
	if mod := b.size % uint64(alignment); mod != 0 {
		b.Append(0, alignment-uint(mod))
	}
}

// Len returns the number of bits written so far.
func (b *Builder) Len() uint64 {
	return b.size
}

// Build freezes the written bits into a Vector and resets the builder.
func (b *Builder) Build() *Vector {
	v := &Vector{words: b.words, size: b.size}
	*b = Builder{}
	return v
}

// Vector is an immutable bit sequence.
type Vector struct {
	words []uint64
	size  uint64
}

// Len returns the number of bits in the vector.
func (v *Vector) Len() uint64 {
	return v.size
}

// Bytes reports the in-memory footprint, size header included.
func (v *Vector) Bytes() int {
	return 8 + len(v.words)*8
}

// Get reads width bits starting at offset. Reading past Len is a caller bug and
// panics with an error wrapping ErrOutOfRange; use Read for a checked access.
func (v *Vector) Get(offset uint64, width uint) uint64 {
	if width == 0 {
		return 0
	}
	if width > 64 || offset+uint64(width) > v.size {
		panic(fmt.Errorf("%w: read %d bits at %d, length %d", ErrOutOfRange, width, offset, v.size))
	}
	idx := offset / 64
	shift := offset % 64
	val := v.words[idx] >> shift
	if shift+uint64(width) > 64 {
		val |= v.words[idx+1] << (64 - shift)
	}
	if width < 64 {
		val &= (uint64(1) << width) - 1
	}
	return val
}

// Read is the checked form of Get.
func (v *Vector) Read(offset uint64, width uint) (uint64, error) {
	if width > 64 || offset+uint64(width) > v.size {
		return 0, fmt.Errorf("%w: read %d bits at %d, length %d", ErrOutOfRange, width, offset, v.size)
	}
	return v.Get(offset, width), nil
}

// Visit exposes the size and the backing words, in that order.
func (v *Vector) Visit(visitor Visitor) error {
	if err := visitor.VisitUint64(&v.size); err != nil {
		return fmt.Errorf("bit vector size: %w", err)
	}
	if err := visitor.VisitWords(&v.words); err != nil {
		return fmt.Errorf("bit vector words: %w", err)
	}
	if want := (v.size + 63) / 64; uint64(len(v.words)) != want {
		return fmt.Errorf("%w: %d words for %d bits", ErrOutOfRange, len(v.words), v.size)
	}
	return nil
}
