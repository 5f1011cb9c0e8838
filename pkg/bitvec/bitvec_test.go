package bitvec

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type field struct {
	value uint64
	width uint
}

func TestAppendGet(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	b := NewBuilder()

	var fields []field
	var offsets []uint64
	for i := 0; i < 2000; i++ {
		width := uint(rng.IntN(65))
		value := rng.Uint64()
		if width < 64 {
			value &= (uint64(1) << width) - 1
		}
		offsets = append(offsets, b.Len())
		fields = append(fields, field{value, width})
		b.Append(value, width)
	}

	v := b.Build()
	for i, f := range fields {
		assert.Equal(t, f.value, v.Get(offsets[i], f.width), "field %d width %d", i, f.width)
	}
	assert.Zero(t, b.Len(), "builder must be reset after Build")
}

func TestAppendMasksHighBits(t *testing.T) {
	b := NewBuilder()
	b.Append(0xFF, 4)
	b.Append(0x0, 4)
	v := b.Build()

	assert.Equal(t, uint64(0xF), v.Get(0, 4))
	assert.Equal(t, uint64(0), v.Get(4, 4))
}

func TestPad(t *testing.T) {
	tests := []struct {
		name    string
		written uint
		want    uint64
	}{
		{"aligned", 16, 16},
		{"one over", 17, 24},
		{"empty", 0, 0},
		{"seven", 7, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			b.Append(1, tt.written)
			b.Pad(8)
			assert.Equal(t, tt.want, b.Len())
		})
	}
}

func TestOutOfRange(t *testing.T) {
	b := NewBuilder()
	b.Append(5, 10)
	v := b.Build()

	_, err := v.Read(4, 7)
	require.ErrorIs(t, err, ErrOutOfRange)

	val, err := v.Read(0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), val)

	assert.Panics(t, func() { v.Get(8, 8) })
}

type recorder struct {
	scalars []uint64
	words   [][]uint64
}

func (r *recorder) VisitUint64(v *uint64) error {
	r.scalars = append(r.scalars, *v)
	return nil
}

func (r *recorder) VisitWords(w *[]uint64) error {
	r.words = append(r.words, *w)
	return nil
}

type replayer struct {
	scalars []uint64
	words   [][]uint64
}

func (r *replayer) VisitUint64(v *uint64) error {
	*v, r.scalars = r.scalars[0], r.scalars[1:]
	return nil
}

func (r *replayer) VisitWords(w *[]uint64) error {
	*w, r.words = r.words[0], r.words[1:]
	return nil
}

func TestVisitRoundTrip(t *testing.T) {
	b := NewBuilder()
	for i := uint64(0); i < 100; i++ {
		b.Append(i, 13)
	}
	v := b.Build()

	rec := &recorder{}
	require.NoError(t, v.Visit(rec))

	var loaded Vector
	require.NoError(t, loaded.Visit(&replayer{scalars: rec.scalars, words: rec.words}))
	require.Equal(t, v.Len(), loaded.Len())
	for i := uint64(0); i < 100; i++ {
		assert.Equal(t, i, loaded.Get(i*13, 13))
	}
}

func TestVisitRejectsShortWords(t *testing.T) {
	var v Vector
	err := v.Visit(&replayer{scalars: []uint64{200}, words: [][]uint64{{1}}})
	require.ErrorIs(t, err, ErrOutOfRange)
}
