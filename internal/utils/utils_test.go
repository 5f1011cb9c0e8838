package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		text, sep string
		want      []string
	}{
		{"new york", " ", []string{"new", "york"}},
		{"  new   york ", " ", []string{"new", "york"}},
		{"a,b,,c", ",", []string{"a", "b", "c"}},
		{"tab\tsep", "", []string{"tab", "sep"}},
		{"", " ", []string{}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.text, tt.sep)
		assert.Equal(t, len(tt.want), len(got), "%q", tt.text)
		if len(tt.want) > 0 {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestFormatWithCommas(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
	}
	for n, want := range tests {
		assert.Equal(t, want, FormatWithCommas(n))
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KiB", FormatBytes(1536))
	assert.Equal(t, "2.0 MiB", FormatBytes(2<<20))
	assert.Equal(t, "-", BitsPer(10, 0))
	assert.Equal(t, "16.00", BitsPer(4, 2))
}

func TestTOMLRecovery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.toml")
	require.NoError(t, os.WriteFile(path, []byte("[query]\ndefault_k = 7\nmode = \"prefix\"\nratio = 2\n"), 0o644))

	data, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)
	section, ok := ExtractSection(data, "query")
	require.True(t, ok)

	k, ok := ExtractInt64(section, "default_k")
	assert.True(t, ok)
	assert.Equal(t, 7, k)
	mode, ok := ExtractString(section, "mode")
	assert.True(t, ok)
	assert.Equal(t, "prefix", mode)
	ratio, ok := ExtractFloat(section, "ratio")
	assert.True(t, ok)
	assert.Equal(t, 2.0, ratio)
	_, ok = ExtractBool(section, "mode")
	assert.False(t, ok)
}

func TestSaveTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.toml")
	type doc struct {
		Name string `toml:"name"`
	}
	require.NoError(t, SaveTOMLFile(doc{Name: "x"}, path))
	assert.True(t, FileExists(path))

	var back doc
	require.NoError(t, LoadTOMLFile(path, &back))
	assert.Equal(t, "x", back.Name)
}

func TestPathResolverFind(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "idx.bin")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	pr := NewPathResolver("typeahead")
	got, err := pr.Find(file)
	require.NoError(t, err)
	assert.Equal(t, file, got)

	_, err = pr.Find(filepath.Join(dir, "missing.bin"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
