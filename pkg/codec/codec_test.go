package codec

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/bastiangx/typeahead/pkg/bitvec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomSorted(rng *rand.Rand, n int, universe uint64) []uint64 {
	values := make([]uint64, n)
	for i := range values {
		values[i] = rng.Uint64N(universe)
	}
	slices.Sort(values)
	return values
}

func bruteIntersects(values []uint64, r Range) bool {
	for _, v := range values {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

func sortedCodecs() []SortedSetCodec {
	return []SortedSetCodec{EliasFano{}, Compact{}}
}

func TestSortedCodecs(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	universes := []uint64{1, 2, 17, 64, 1000, 1 << 20}
	for _, c := range sortedCodecs() {
		t.Run(c.Kind().String(), func(t *testing.T) {
			for _, universe := range universes {
				for _, n := range []int{1, 2, 5, 31, 63} {
					values := randomSorted(rng, n, universe)

					b := bitvec.NewBuilder()
					b.Append(0x5, 3) // the list does not start at bit zero
					require.NoError(t, c.Encode(b, values, universe))
					b.Append(0x3, 2)
					vec := b.Build()

					list := c.Open(vec, 3, universe, n)
					require.Equal(t, n, list.Size())
					for i, want := range values {
						require.Equal(t, want, list.Access(i), "u=%d n=%d rank=%d", universe, n, i)
					}

					for trial := 0; trial < 50; trial++ {
						begin := rng.Uint64N(universe + 2)
						end := begin + rng.Uint64N(universe/4+2)
						r := Range{Begin: begin, End: end}
						assert.Equal(t, bruteIntersects(values, r), list.Intersects(r), "u=%d values=%v range=%s", universe, values, r)

						rank, got, ok := list.NextGEQ(begin)
						idx, found := slices.BinarySearch(values, begin)
						if idx < len(values) {
							require.True(t, ok)
							assert.Equal(t, values[idx], got)
							assert.Equal(t, idx, rank)
						} else {
							assert.False(t, ok, "found=%v", found)
						}
					}
				}
			}
		})
	}
}

func TestSortedCodecsWithDuplicates(t *testing.T) {
	values := []uint64{3, 3, 3, 9, 9, 40}
	for _, c := range sortedCodecs() {
		t.Run(c.Kind().String(), func(t *testing.T) {
			b := bitvec.NewBuilder()
			require.NoError(t, c.Encode(b, values, 41))
			list := c.Open(b.Build(), 0, 41, len(values))

			for i, v := range values {
				assert.Equal(t, v, list.Access(i))
			}
			rank, v, ok := list.NextGEQ(4)
			require.True(t, ok)
			assert.Equal(t, 3, rank)
			assert.Equal(t, uint64(9), v)

			assert.True(t, list.IntersectsWithPrefix([]uint32{3, 9, 40}))
			assert.False(t, list.IntersectsWithPrefix([]uint32{3, 4}))
			assert.True(t, list.IntersectsWithPrefix(nil))
			assert.False(t, list.Intersects(Range{Begin: 10, End: 10}))
			assert.False(t, list.Intersects(Range{Begin: 41, End: 100}))
		})
	}
}

func TestSortedCodecsRejectBadInput(t *testing.T) {
	for _, c := range sortedCodecs() {
		t.Run(c.Kind().String(), func(t *testing.T) {
			err := c.Encode(bitvec.NewBuilder(), []uint64{4, 2}, 10)
			require.ErrorIs(t, err, ErrUnsorted)

			err = c.Encode(bitvec.NewBuilder(), []uint64{1, 10}, 10)
			require.ErrorIs(t, err, ErrValueOutOfUniverse)
		})
	}
}

func TestPacked(t *testing.T) {
	perm := []uint64{3, 0, 2, 1, 4}
	universe := uint64(len(perm) + 1)

	b := bitvec.NewBuilder()
	require.NoError(t, Packed{}.Encode(b, perm, universe))
	assert.Equal(t, uint64(len(perm)*3), b.Len(), "ceil(log2(6)) bits per entry")

	seq := Packed{}.Open(b.Build(), 0, universe, len(perm))
	require.Equal(t, len(perm), seq.Size())
	for i, want := range perm {
		assert.Equal(t, want, seq.Access(i))
	}

	err := Packed{}.Encode(bitvec.NewBuilder(), []uint64{0, 6}, universe)
	require.ErrorIs(t, err, ErrValueOutOfUniverse)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		err  bool
	}{
		{"ef", KindEliasFano, false},
		{"Elias-Fano", KindEliasFano, false},
		{" compact ", KindCompact, false},
		{"zstd", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.err {
				require.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRange(t *testing.T) {
	r := Range{Begin: 2, End: 5}
	assert.Equal(t, uint64(3), r.Len())
	assert.True(t, r.Contains(2))
	assert.False(t, r.Contains(5))
	assert.Equal(t, Range{Begin: 3, End: 6}, r.Shift(1))
	assert.True(t, Range{Begin: 4, End: 4}.Empty())
	assert.Zero(t, Range{Begin: 5, End: 1}.Len())
	assert.Equal(t, "[2,5)", r.String())
}

func TestEliasFanoSampledSelect(t *testing.T) {
	rng := rand.New(rand.NewPCG(12, 34))
	for _, universe := range []uint64{3000, 1 << 24} {
		values := randomSorted(rng, 5000, universe)
		b := bitvec.NewBuilder()
		require.NoError(t, EliasFano{}.Encode(b, values, universe))
		vec := b.Build()

		plain := newEFList(vec, 0, universe, len(values))
		sampled := newEFList(vec, 0, universe, len(values))
		sampled.buildSamples()
		require.NotEmpty(t, sampled.ones)
		require.NotEmpty(t, sampled.zeros)

		for i, want := range values {
			require.Equal(t, want, sampled.Access(i), "u=%d rank=%d", universe, i)
		}
		for range 2000 {
			x := rng.Uint64N(universe + 1)
			r1, v1, ok1 := plain.NextGEQ(x)
			r2, v2, ok2 := sampled.NextGEQ(x)
			require.Equal(t, []any{r1, v1, ok1}, []any{r2, v2, ok2}, "u=%d x=%d", universe, x)
		}
	}
}
