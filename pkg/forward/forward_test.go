package forward

import (
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tape struct {
	scalars []uint64
	words   [][]uint64
}

func (t *tape) VisitUint64(v *uint64) error {
	t.scalars = append(t.scalars, *v)
	return nil
}

func (t *tape) VisitWords(w *[]uint64) error {
	t.words = append(t.words, slices.Clone(*w))
	return nil
}

func (t *tape) replay() *tape {
	return &tape{scalars: slices.Clone(t.scalars), words: slices.Clone(t.words)}
}

type player struct{ *tape }

func (p player) VisitUint64(v *uint64) error {
	if len(p.scalars) == 0 {
		return io.ErrUnexpectedEOF
	}
	*v, p.scalars = p.scalars[0], p.scalars[1:]
	return nil
}

func (p player) VisitWords(w *[]uint64) error {
	if len(p.words) == 0 {
		return io.ErrUnexpectedEOF
	}
	*w, p.words = p.words[0], p.words[1:]
	return nil
}

func randomCompletions(rng *rand.Rand, count int, numTerms uint64) [][]uint32 {
	docs := make([][]uint32, count)
	for i := range docs {
		n := 1 + rng.IntN(12)
		if rng.IntN(20) == 0 {
			n = MaxNumTermsPerQuery - 1
		}
		docs[i] = make([]uint32, n)
		for j := range docs[i] {
			docs[i][j] = uint32(rng.Uint64N(numTerms + 1))
		}
	}
	return docs
}

func build(t *testing.T, numTerms uint64, docs [][]uint32, opts ...Option) *Index {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	b := NewBuilder(numTerms, opts...)
	for _, d := range docs {
		require.NoError(t, b.Add(d))
	}
	x, err := b.Build()
	require.NoError(t, err)
	return x
}

var variants = []struct {
	name     string
	sorted   codec.SortedSetCodec
	pointers codec.Kind
}{
	{"ef/ef", codec.EliasFano{}, codec.KindEliasFano},
	{"ef/compact", codec.EliasFano{}, codec.KindCompact},
	{"compact/ef", codec.Compact{}, codec.KindEliasFano},
	{"compact/compact", codec.Compact{}, codec.KindCompact},
}

func TestRoundTrip(t *testing.T) {
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(1, 2))
			const numTerms = 300
			docs := randomCompletions(rng, 400, numTerms)
			x := build(t, numTerms, docs, WithSortedCodec(v.sorted), WithPointers(v.pointers))

			require.Equal(t, len(docs), x.NumDocs())
			assert.Equal(t, uint64(numTerms), x.NumTerms())
			assert.Equal(t, v.sorted.Kind(), x.SortedKind())
			assert.Equal(t, v.pointers, x.PointersKind())
			require.NoError(t, x.Validate())

			for id, doc := range docs {
				it, err := x.Iterator(id)
				require.NoError(t, err)
				require.Equal(t, len(doc), it.Size())

				want := slices.Clone(doc)
				slices.Sort(want)
				got := make([]uint32, it.Size())
				for r := range got {
					got[r] = uint32(it.Access(r))
				}
				require.Equal(t, want, got, "sorted ids of %d", id)

				terms, err := x.Terms(id, nil)
				require.NoError(t, err)
				require.Equal(t, doc, terms, "original order of %d", id)
			}
		})
	}
}

func TestPermutingIteratorReset(t *testing.T) {
	x := build(t, 10, [][]uint32{{7, 3, 3, 9, 1}})
	it, err := x.PermutingIterator(0)
	require.NoError(t, err)
	assert.Equal(t, 5, it.Size())

	first, err := it.Collect(nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{7, 3, 3, 9, 1}, first)

	_, ok := it.Next()
	assert.False(t, ok)

	it.Reset()
	again, err := it.Collect(nil)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestIntersectsBruteForce(t *testing.T) {
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(5, 6))
			const numTerms = 60
			docs := randomCompletions(rng, 80, numTerms)
			x := build(t, numTerms, docs, WithSortedCodec(v.sorted), WithPointers(v.pointers))

			for id, doc := range docs {
				for range 40 {
					lo := rng.Uint64N(numTerms + 2)
					hi := lo + rng.Uint64N(8)
					r := codec.Range{Begin: lo, End: hi}
					want := slices.ContainsFunc(doc, func(term uint32) bool { return r.Contains(uint64(term)) })
					got, err := x.Intersects(id, r)
					require.NoError(t, err)
					require.Equal(t, want, got, "completion %d range %s", id, r)
				}
			}
		})
	}
}

func TestOffsetsMonotoneAndAligned(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	docs := randomCompletions(rng, 250, 1000)
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			x := build(t, 1000, docs, WithSortedCodec(v.sorted), WithPointers(v.pointers))
			require.Equal(t, 2*len(docs), x.pointers.Size())
			var prev uint64
			for i := range x.pointers.Size() {
				p := x.pointers.Access(i)
				require.GreaterOrEqual(t, p, prev, "pointer %d", i)
				if i%2 == 1 {
					require.Zero(t, p%8, "region 1 of completion %d ends at bit %d", i/2, p)
				}
				prev = p
			}
		})
	}
}

func TestBuilderConsumedByBuild(t *testing.T) {
	b := NewBuilder(20, WithLogger(logger.Discard()))
	require.NoError(t, b.Add([]uint32{1, 2}))
	require.NoError(t, b.Add([]uint32{3}))
	assert.Equal(t, 2, b.Len())

	x, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, x.NumDocs())

	assert.Equal(t, 0, b.Len())
	empty, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 0, empty.NumDocs())
	assert.Equal(t, uint64(20), empty.NumTerms())

	require.NoError(t, b.Add([]uint32{4}))
	again, err := b.Build()
	require.NoError(t, err)
	terms, err := again.Terms(0, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{4}, terms)

	// the first index is unaffected by later builds
	terms, err = x.Terms(1, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3}, terms)
}

func TestInvalidCompletionID(t *testing.T) {
	x := build(t, 5, [][]uint32{{1}, {2, 3}})
	for _, id := range []int{-1, 2, 100} {
		_, err := x.Iterator(id)
		assert.ErrorIs(t, err, ErrInvalidCompletionID, "id %d", id)
		_, err = x.Intersects(id, codec.Range{Begin: 0, End: 5})
		assert.ErrorIs(t, err, ErrInvalidCompletionID)
		_, err = x.PermutingIterator(id)
		assert.ErrorIs(t, err, ErrInvalidCompletionID)
	}
}

func TestAddRejects(t *testing.T) {
	tests := []struct {
		name  string
		terms []uint32
		want  error
	}{
		{"empty", nil, ErrInvalidLength},
		{"too many", make([]uint32, MaxNumTermsPerQuery), ErrInvalidLength},
		{"out of universe", []uint32{3, 11}, codec.ErrValueOutOfUniverse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(10, WithLogger(logger.Discard()))
			require.NoError(t, b.Add([]uint32{1}))
			require.ErrorIs(t, b.Add(tt.terms), tt.want)
			// sticky
			require.ErrorIs(t, b.Add([]uint32{2}), tt.want)
			_, err := b.Build()
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAcceptsLongestCompletion(t *testing.T) {
	terms := make([]uint32, MaxNumTermsPerQuery-1)
	for i := range terms {
		terms[i] = uint32(len(terms) - i)
	}
	x := build(t, 100, [][]uint32{terms})
	got, err := x.Terms(0, nil)
	require.NoError(t, err)
	assert.Equal(t, terms, got)
}

func TestReadFrom(t *testing.T) {
	input := "3 4 0 2\n1 7\n2 5 5\n"

	t.Run("all", func(t *testing.T) {
		b := NewBuilder(8, WithLogger(logger.Discard()))
		require.NoError(t, b.ReadFrom(strings.NewReader(input), -1))
		x, err := b.Build()
		require.NoError(t, err)
		require.Equal(t, 3, x.NumDocs())
		want := [][]uint32{{4, 0, 2}, {7}, {5, 5}}
		for id, w := range want {
			got, err := x.Terms(id, nil)
			require.NoError(t, err)
			assert.Equal(t, w, got)
		}
	})

	t.Run("count", func(t *testing.T) {
		b := NewBuilder(8, WithLogger(logger.Discard()))
		require.NoError(t, b.ReadFrom(strings.NewReader(input), 2))
		assert.Equal(t, 2, b.Len())
	})

	t.Run("short", func(t *testing.T) {
		b := NewBuilder(8, WithLogger(logger.Discard()))
		err := b.ReadFrom(strings.NewReader(input), 4)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("truncated line", func(t *testing.T) {
		b := NewBuilder(8, WithLogger(logger.Discard()))
		err := b.ReadFrom(strings.NewReader("3 1 2"), -1)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("bad term count", func(t *testing.T) {
		for _, in := range []string{"0\n1 2\n", "4000000000 1 2 3\n", "64 1\n"} {
			b := NewBuilder(8, WithLogger(logger.Discard()))
			err := b.ReadFrom(strings.NewReader(in), -1)
			assert.ErrorIs(t, err, ErrInvalidLength, "%q", in)
			assert.NotErrorIs(t, err, io.ErrUnexpectedEOF, "%q", in)
			assert.Zero(t, b.Len())
		}
	})

	t.Run("garbage", func(t *testing.T) {
		b := NewBuilder(8, WithLogger(logger.Discard()))
		assert.Error(t, b.ReadFrom(strings.NewReader("2 1 x\n"), -1))
	})
}

func TestVisitLoad(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 2))
	docs := randomCompletions(rng, 120, 500)
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			x := build(t, 500, docs, WithSortedCodec(v.sorted), WithPointers(v.pointers))
			rec := &tape{}
			require.NoError(t, x.Visit(rec))
			assert.Equal(t, uint64(500), rec.scalars[0])

			y, err := Load(player{rec.replay()}, WithSortedCodec(v.sorted), WithPointers(v.pointers))
			require.NoError(t, err)
			require.Equal(t, x.NumDocs(), y.NumDocs())
			assert.Equal(t, x.Bytes(), y.Bytes())
			for id, doc := range docs {
				got, err := y.Terms(id, nil)
				require.NoError(t, err)
				require.Equal(t, doc, got)
			}
		})
	}
}

func TestLoadDetectsCorruption(t *testing.T) {
	x := build(t, 20, [][]uint32{{5, 2, 9}, {1}})
	rec := &tape{}
	require.NoError(t, x.Visit(rec))

	tests := []struct {
		header uint64
		want   error
	}{
		{2, ErrPermutationMismatch},
		{0, ErrCorrupt},
		{MaxNumTermsPerQuery, ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.header), func(t *testing.T) {
			bad := rec.replay()
			data := slices.Clone(bad.words[len(bad.words)-1])
			data[0] = data[0]&^0xffffffff | tt.header
			bad.words[len(bad.words)-1] = data

			_, err := Load(player{bad})
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("truncated", func(t *testing.T) {
		short := rec.replay()
		short.words = short.words[:len(short.words)-1]
		_, err := Load(player{short})
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}
