// Package codec holds the succinct encodings stored inside a bitvec buffer: the
// sorted-set codecs used for forward lists, the fixed-width permutation codec, and
// the monotone offset tables that point into the buffer.
//
// Every encoding is written through a bitvec.Builder and read back by a cursor that
// holds the shared vector plus a bit offset. Cursors are cheap values and never
// mutate the vector, so any number of them may be open concurrently.
package codec

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/bastiangx/typeahead/pkg/bitvec"
)

var (
	// ErrValueOutOfUniverse is returned when a value is not below the declared universe.
	ErrValueOutOfUniverse = errors.New("value out of universe")
	// ErrUnsorted is returned when a sequence that must be non-decreasing is not.
	ErrUnsorted = errors.New("sequence is not sorted")
	// ErrUnknownKind is returned for codec names that are not registered.
	ErrUnknownKind = errors.New("unknown codec kind")
)

// Range is the half-open interval [Begin, End).
type Range struct {
	Begin uint64
	End   uint64
}

// Empty reports whether the range holds no value.
func (r Range) Empty() bool {
	return r.Begin >= r.End
}

// Contains reports whether x lies in the range.
func (r Range) Contains(x uint64) bool {
	return x >= r.Begin && x < r.End
}

// Len returns the number of values in the range.
func (r Range) Len() uint64 {
	if r.Empty() {
		return 0
	}
	return r.End - r.Begin
}

// Shift returns the range moved by delta.
func (r Range) Shift(delta uint64) Range {
	return Range{Begin: r.Begin + delta, End: r.End + delta}
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Begin, r.End)
}

// Kind selects one member of a codec family. It is fixed when an index is built
// and persisted with it.
type Kind uint8

const (
	KindEliasFano Kind = iota + 1
	KindCompact
)

func (k Kind) String() string {
	switch k {
	case KindEliasFano:
		return "ef"
	case KindCompact:
		return "compact"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a config name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ef", "elias-fano", "eliasfano":
		return KindEliasFano, nil
	case "compact", "plain":
		return KindCompact, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// SortedSetCodec encodes non-decreasing sequences and opens cursors over them.
type SortedSetCodec interface {
	Kind() Kind
	// Encode writes values, which must be non-decreasing and below universe.
	Encode(b *bitvec.Builder, values []uint64, universe uint64) error
	// Open returns a cursor over n values encoded at offset.
	Open(v *bitvec.Vector, offset, universe uint64, n int) SortedList
}

// SortedList is a read cursor over an encoded non-decreasing sequence.
type SortedList interface {
	Size() int
	Access(rank int) uint64
	// NextGEQ returns the first element >= x with its rank.
	NextGEQ(x uint64) (rank int, value uint64, ok bool)
	// Intersects reports whether some element lies in r.
	Intersects(r Range) bool
	// IntersectsWithPrefix reports whether every id is an element.
	IntersectsWithPrefix(ids []uint32) bool
}

// SortedCodec returns the sorted-set codec for kind.
func SortedCodec(kind Kind) (SortedSetCodec, error) {
	switch kind {
	case KindEliasFano:
		return EliasFano{}, nil
	case KindCompact:
		return Compact{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

func checkSorted(values []uint64, universe uint64) error {
	for i, v := range values {
		if v >= universe {
			return fmt.Errorf("%w: value %d at %d, universe %d", ErrValueOutOfUniverse, v, i, universe)
		}
		if i > 0 && v < values[i-1] {
			return fmt.Errorf("%w: %d after %d at %d", ErrUnsorted, v, values[i-1], i)
		}
	}
	return nil
}

func intersects(l SortedList, r Range) bool {
	if r.Empty() {
		return false
	}
	_, v, ok := l.NextGEQ(r.Begin)
	return ok && v < r.End
}

func intersectsWithPrefix(l SortedList, ids []uint32) bool {
	for _, id := range ids {
		if !l.Intersects(Range{Begin: uint64(id), End: uint64(id) + 1}) {
			return false
		}
	}
	return true
}

// widthFor returns the number of bits needed to store any value below universe.
func widthFor(universe uint64) uint {
	if universe <= 1 {
		return 0
	}
	return uint(bits.Len64(universe - 1))
}
