package codec

import (
	"math/bits"

	"github.com/bastiangx/typeahead/pkg/bitvec"
)

// EliasFano splits each value into l low bits, stored packed, and a high part
// stored in unary over n + (U-1)>>l + 1 bits. Lower bits come first, upper bits
// follow immediately.
type EliasFano struct{}

func (EliasFano) Kind() Kind { return KindEliasFano }

func efLowBits(universe uint64, n int) uint {
	if n == 0 || universe <= uint64(n) {
		return 0
	}
	return uint(bits.Len64(universe/uint64(n)) - 1)
}

func efUpperLen(universe uint64, n int, l uint) uint64 {
	if n == 0 {
		return 0
	}
	return uint64(n) + ((universe - 1) >> l) + 1
}

func appendZeros(b *bitvec.Builder, count uint64) {
	for count >= 64 {
		b.Append(0, 64)
		count -= 64
	}
	b.Append(0, uint(count))
}

func (EliasFano) Encode(b *bitvec.Builder, values []uint64, universe uint64) error {
	if err := checkSorted(values, universe); err != nil {
		return err
	}
	n := len(values)
	if n == 0 {
		return nil
	}
	l := efLowBits(universe, n)
	for _, v := range values {
		b.Append(v, l)
	}
	var cur uint64
	for i, v := range values {
		pos := (v >> l) + uint64(i)
		appendZeros(b, pos-cur)
		b.Append(1, 1)
		cur = pos + 1
	}
	appendZeros(b, efUpperLen(universe, n, l)-cur)
	return nil
}

func (EliasFano) Open(v *bitvec.Vector, offset, universe uint64, n int) SortedList {
	return newEFList(v, offset, universe, n)
}

func newEFList(v *bitvec.Vector, offset, universe uint64, n int) *efList {
	l := efLowBits(universe, n)
	return &efList{
		vec:      v,
		lowerOff: offset,
		upperOff: offset + uint64(n)*uint64(l),
		upperLen: efUpperLen(universe, n, l),
		universe: universe,
		l:        l,
		n:        n,
	}
}

type efList struct {
	vec      *bitvec.Vector
	lowerOff uint64
	upperOff uint64
	upperLen uint64
	universe uint64
	l        uint
	n        int

	// ones[j] and zeros[j] hold the upper-bits position of the
	// (j*selectSample)-th one and zero. Empty for short lists.
	ones  []uint64
	zeros []uint64
}

// selectSample is the spacing of the select samples.
const selectSample = 256

// buildSamples records one select position every selectSample ones and
// zeros, so select starts its scan at most selectSample bits of one kind
// before the target.
func (e *efList) buildSamples() {
	e.ones = make([]uint64, 0, uint64(e.n)/selectSample+1)
	e.zeros = make([]uint64, 0, (e.upperLen-uint64(e.n))/selectSample+1)
	var ones, zeros uint64
	for pos := uint64(0); pos < e.upperLen; {
		w, width := e.word(pos)
		z := ^w
		if width < 64 {
			z &= (uint64(1) << width) - 1
		}
		c1, c0 := uint64(bits.OnesCount64(w)), uint64(bits.OnesCount64(z))
		for next := uint64(len(e.ones)) * selectSample; next < ones+c1; next += selectSample {
			e.ones = append(e.ones, pos+selectInWord(w, next-ones))
		}
		for next := uint64(len(e.zeros)) * selectSample; next < zeros+c0; next += selectSample {
			e.zeros = append(e.zeros, pos+selectInWord(z, next-zeros))
		}
		ones += c1
		zeros += c0
		pos += width
	}
}

func (e *efList) Size() int { return e.n }

func (e *efList) lower(rank int) uint64 {
	return e.vec.Get(e.lowerOff+uint64(rank)*uint64(e.l), e.l)
}

func (e *efList) Access(rank int) uint64 {
	pos := e.select1(uint64(rank))
	return (pos-uint64(rank))<<e.l | e.lower(rank)
}

func (e *efList) word(pos uint64) (uint64, uint64) {
	width := min(64, e.upperLen-pos)
	return e.vec.Get(e.upperOff+pos, uint(width)), width
}

// select1 returns the position of the k-th one in the upper bits.
func (e *efList) select1(k uint64) uint64 {
	var pos uint64
	if j := k / selectSample; j < uint64(len(e.ones)) {
		pos, k = e.ones[j], k-j*selectSample
	}
	for pos < e.upperLen {
		w, width := e.word(pos)
		if c := uint64(bits.OnesCount64(w)); k >= c {
			k -= c
			pos += width
			continue
		}
		return pos + selectInWord(w, k)
	}
	return e.upperLen
}

// select0 returns the position of the k-th zero in the upper bits.
func (e *efList) select0(k uint64) uint64 {
	var pos uint64
	if j := k / selectSample; j < uint64(len(e.zeros)) {
		pos, k = e.zeros[j], k-j*selectSample
	}
	for pos < e.upperLen {
		w, width := e.word(pos)
		zeros := ^w
		if width < 64 {
			zeros &= (uint64(1) << width) - 1
		}
		if c := uint64(bits.OnesCount64(zeros)); k >= c {
			k -= c
			pos += width
			continue
		}
		return pos + selectInWord(zeros, k)
	}
	return e.upperLen
}

func selectInWord(w, k uint64) uint64 {
	for ; k > 0; k-- {
		w &= w - 1
	}
	return uint64(bits.TrailingZeros64(w))
}

// NextGEQ jumps to the bucket of x with select0 and scans forward from there.
func (e *efList) NextGEQ(x uint64) (int, uint64, bool) {
	if e.n == 0 || x >= e.universe {
		return e.n, 0, false
	}
	var pos, rank uint64
	if h := x >> e.l; h > 0 {
		pos = e.select0(h-1) + 1
		rank = pos - h
	}
	for rank < uint64(e.n) && pos < e.upperLen {
		w, width := e.word(pos)
		for w != 0 {
			p := pos + uint64(bits.TrailingZeros64(w))
			val := (p-rank)<<e.l | e.lower(int(rank))
			if val >= x {
				return int(rank), val, true
			}
			rank++
			if rank == uint64(e.n) {
				return e.n, 0, false
			}
			w &= w - 1
		}
		pos += width
	}
	return e.n, 0, false
}

func (e *efList) Intersects(r Range) bool { return intersects(e, r) }

func (e *efList) IntersectsWithPrefix(ids []uint32) bool { return intersectsWithPrefix(e, ids) }
