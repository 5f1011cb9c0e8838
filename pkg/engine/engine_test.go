package engine

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/pkg/codec"
	"github.com/bastiangx/typeahead/pkg/collection"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var words = []string{
	"a", "an", "and", "bar", "bark", "barn", "new", "newark", "news", "of",
	"the", "to", "town", "toy", "york", "yorker",
}

// randomCollection writes a sorted collection and returns its basename and texts.
func randomCollection(t *testing.T, seed uint64, count int) (string, []string) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	seen := make(map[string]bool)
	var docs [][]string
	for len(docs) < count {
		doc := make([]string, 1+rng.IntN(4))
		for i := range doc {
			doc[i] = words[rng.IntN(len(words))]
		}
		key := strings.Join(doc, " ")
		if !seen[key] {
			seen[key] = true
			docs = append(docs, doc)
		}
	}
	slices.SortFunc(docs, func(a, b []string) int { return slices.Compare(a, b) })

	var buf bytes.Buffer
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = strings.Join(d, " ")
		fmt.Fprintf(&buf, "%d %s\n", rng.IntN(1000), texts[i])
	}
	basename := filepath.Join(t.TempDir(), "collection")
	require.NoError(t, os.WriteFile(basename, buf.Bytes(), 0o644))
	return basename, texts
}

func build(t *testing.T, basename string, sorted, pointers codec.Kind) *Engine {
	t.Helper()
	e, err := Build(basename, Options{SortedCodec: sorted, Pointers: pointers, Logger: logger.Discard()})
	require.NoError(t, err)
	return e
}

// TestLocatePrefixAgainstStrings checks the completion ranges against a scan
// over the raw collection strings.
func TestLocatePrefixAgainstStrings(t *testing.T) {
	basename, texts := randomCollection(t, 1, 800)
	e := build(t, basename, codec.KindEliasFano, codec.KindEliasFano)
	rng := rand.New(rand.NewPCG(2, 2))

	for range 1000 {
		text := texts[rng.IntN(len(texts))]
		query := strings.TrimRight(text[:1+rng.IntN(len(text))], " ")

		first, last := -1, -1
		for i, s := range texts {
			if strings.HasPrefix(s, query) {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		require.GreaterOrEqual(t, first, 0)
		want := codec.Range{Begin: uint64(first), End: uint64(last + 1)}

		terms := strings.Split(query, " ")
		prefix := make([]uint32, 0, len(terms)-1)
		for _, w := range terms[:len(terms)-1] {
			id, err := e.dict.Locate(w)
			require.NoError(t, err)
			prefix = append(prefix, id)
		}
		suffix := e.dict.LocatePrefix(terms[len(terms)-1]).Shift(1)
		got, err := e.ranges.LocatePrefix(prefix, suffix)
		require.NoError(t, err)
		require.Equal(t, want, got, "query %q", query)
	}
}

func TestPrefixSearchMatchesStrings(t *testing.T) {
	basename, texts := randomCollection(t, 3, 300)
	e := build(t, basename, codec.KindCompact, codec.KindCompact)
	s := e.Searcher(suggest.WithLogger(logger.Discard()))

	res, err := s.PrefixTopK("new yo", len(texts))
	require.NoError(t, err)
	got, err := res.Texts(e.Dictionary(), e.Separator())
	require.NoError(t, err)

	var want []string
	for _, text := range texts {
		if strings.HasPrefix(text, "new yo") {
			want = append(want, text)
		}
	}
	assert.ElementsMatch(t, want, got)
}

func TestSaveLoad(t *testing.T) {
	basename, texts := randomCollection(t, 5, 400)
	for _, kinds := range [][2]codec.Kind{
		{codec.KindEliasFano, codec.KindEliasFano},
		{codec.KindCompact, codec.KindEliasFano},
		{codec.KindEliasFano, codec.KindCompact},
	} {
		t.Run(kinds[0].String()+"/"+kinds[1].String(), func(t *testing.T) {
			e := build(t, basename, kinds[0], kinds[1])

			path := filepath.Join(t.TempDir(), "index.tacx")
			require.NoError(t, e.SaveFile(path))
			back, err := LoadFile(path)
			require.NoError(t, err)

			assert.Equal(t, e.Stats(), back.Stats())
			assert.Equal(t, e.Separator(), back.Separator())

			a := e.Searcher(suggest.WithLogger(logger.Discard()))
			b := back.Searcher(suggest.WithLogger(logger.Discard()))
			rng := rand.New(rand.NewPCG(6, 6))
			for range 100 {
				text := texts[rng.IntN(len(texts))]
				q := strings.TrimRight(text[:1+rng.IntN(len(text))], " ")
				for _, mode := range []suggest.Mode{suggest.Prefix, suggest.Conjunctive} {
					req := suggest.Request{Query: q, K: 10, Mode: mode}
					want, err := a.Search(t.Context(), req)
					require.NoError(t, err)
					got, err := b.Search(t.Context(), req)
					require.NoError(t, err)
					require.Equal(t, want.IDs(), got.IDs(), "%s %q", mode, q)
					require.Equal(t, want.Scores(), got.Scores())
				}
			}
		})
	}
}

func TestLoadRejectsDamage(t *testing.T) {
	basename, _ := randomCollection(t, 9, 50)
	e := build(t, basename, codec.KindEliasFano, codec.KindEliasFano)
	var buf bytes.Buffer
	require.NoError(t, e.Save(&buf))
	good := buf.Bytes()

	tests := []struct {
		name   string
		damage func([]byte) []byte
		want   error
	}{
		{"magic", func(b []byte) []byte { b[0] = 'X'; return b }, ErrBadMagic},
		{"short", func(b []byte) []byte { return b[:5] }, ErrBadMagic},
		{"version", func(b []byte) []byte { b[4] = 99; return b }, ErrVersion},
		{"payload", func(b []byte) []byte { b[len(b)/2] ^= 0xff; return b }, ErrChecksum},
		{"trailer", func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b }, ErrChecksum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(bytes.NewReader(tt.damage(bytes.Clone(good))))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	back, err := Load(bytes.NewReader(good))
	require.NoError(t, err)
	assert.Equal(t, e.Stats().NumCompletions, back.Stats().NumCompletions)
}

func TestBuildPreparesOnce(t *testing.T) {
	basename, texts := randomCollection(t, 11, 60)
	e := build(t, basename, codec.KindEliasFano, codec.KindEliasFano)
	for _, suffix := range []string{collection.DictSuffix, collection.ForwardSuffix, collection.StatsSuffix} {
		_, err := os.Stat(basename + suffix)
		require.NoError(t, err, suffix)
	}
	stats := e.Stats()
	assert.Equal(t, len(texts), stats.NumCompletions)
	assert.Positive(t, stats.TotalBytes())

	again := build(t, basename, codec.KindEliasFano, codec.KindEliasFano)
	assert.Equal(t, stats, again.Stats())
}

func TestBuildMissingCollection(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "none"), Options{Logger: logger.Discard()})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
