package dictionary

import (
	"strings"
	"testing"

	"github.com/bastiangx/typeahead/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vocabulary = []string{"jersey", "new", "newark", "newton", "york"}

func TestLocate(t *testing.T) {
	d, err := New(vocabulary)
	require.NoError(t, err)
	assert.Equal(t, 5, d.Size())

	for i, term := range vocabulary {
		id, err := d.Locate(term)
		require.NoError(t, err)
		assert.Equal(t, uint32(i+1), id)

		got, ok := d.Extract(id)
		require.True(t, ok)
		assert.Equal(t, term, got)
	}

	_, err = d.Locate("ne")
	assert.ErrorIs(t, err, ErrUnknownTerm)
	_, err = d.Locate("boston")
	assert.ErrorIs(t, err, ErrUnknownTerm)

	_, ok := d.Extract(0)
	assert.False(t, ok)
	_, ok = d.Extract(6)
	assert.False(t, ok)
}

func TestLocatePrefix(t *testing.T) {
	d, err := New(vocabulary)
	require.NoError(t, err)

	tests := []struct {
		prefix string
		want   codec.Range
	}{
		{"", codec.Range{Begin: 0, End: 5}},
		{"n", codec.Range{Begin: 1, End: 4}},
		{"new", codec.Range{Begin: 1, End: 4}},
		{"newa", codec.Range{Begin: 2, End: 3}},
		{"newark", codec.Range{Begin: 2, End: 3}},
		{"newarks", codec.Range{}},
		{"y", codec.Range{Begin: 4, End: 5}},
		{"a", codec.Range{}},
		{"z", codec.Range{}},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got := d.LocatePrefix(tt.prefix)
			if tt.want.Empty() {
				assert.True(t, got.Empty(), "got %s", got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocatePrefixBruteForce(t *testing.T) {
	terms := []string{"a", "ab", "abc", "abd", "ac", "b", "ba", "bab", "bb", "c"}
	d, err := New(terms)
	require.NoError(t, err)
	for _, p := range []string{"a", "ab", "abc", "b", "ba", "bb", "c", "ca", "d", "aa"} {
		var want codec.Range
		first := true
		for i, term := range terms {
			if strings.HasPrefix(term, p) {
				if first {
					want.Begin = uint64(i)
					first = false
				}
				want.End = uint64(i + 1)
			}
		}
		got := d.LocatePrefix(p)
		assert.Equal(t, want.Len(), got.Len(), "prefix %q", p)
		if !want.Empty() {
			assert.Equal(t, want, got, "prefix %q", p)
		}
	}
}

func TestNewRejectsUnsorted(t *testing.T) {
	_, err := New([]string{"b", "a"})
	assert.ErrorIs(t, err, ErrNotSorted)
	_, err = New([]string{"a", "a"})
	assert.ErrorIs(t, err, ErrNotSorted)
	_, err = New([]string{""})
	assert.Error(t, err)
}

func TestReadFrom(t *testing.T) {
	d, err := ReadFrom(strings.NewReader("jersey\nnew\n\nyork\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"jersey", "new", "york"}, d.Terms())
	id, err := d.Locate("york")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), id)
}
