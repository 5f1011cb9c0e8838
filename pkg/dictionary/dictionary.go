// Package dictionary maps terms to dense ids and back.
package dictionary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bastiangx/typeahead/pkg/codec"
	"github.com/tchap/go-patricia/v2/patricia"
)

var (
	// ErrUnknownTerm is returned by Locate for terms outside the vocabulary.
	ErrUnknownTerm = errors.New("unknown term")
	// ErrNotSorted is returned when building from terms that are not strictly increasing.
	ErrNotSorted = errors.New("terms not sorted")
)

// Dictionary holds a lexicographically sorted vocabulary. Term i of the
// sorted list has id i+1; id 0 is reserved as the terminator.
type Dictionary struct {
	terms []string
	trie  *patricia.Trie
}

// New builds a dictionary from strictly increasing terms.
func New(terms []string) (*Dictionary, error) {
	d := &Dictionary{
		terms: terms,
		trie:  patricia.NewTrie(),
	}
	for i, term := range terms {
		if term == "" {
			return nil, fmt.Errorf("empty term at %d", i)
		}
		if i > 0 && terms[i-1] >= term {
			return nil, fmt.Errorf("%w: %q after %q", ErrNotSorted, term, terms[i-1])
		}
		d.trie.Insert(patricia.Prefix(term), uint32(i+1))
	}
	return d, nil
}

// ReadFrom builds a dictionary from one term per line.
func ReadFrom(r io.Reader) (*Dictionary, error) {
	var terms []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		terms = append(terms, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return New(terms)
}

// Size returns the number of terms.
func (d *Dictionary) Size() int { return len(d.terms) }

// Terms returns the sorted vocabulary. The slice must not be modified.
func (d *Dictionary) Terms() []string { return d.terms }

// Locate returns the id of term.
func (d *Dictionary) Locate(term string) (uint32, error) {
	item := d.trie.Get(patricia.Prefix(term))
	if item == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTerm, term)
	}
	return item.(uint32), nil
}

// LocatePrefix returns the range of sorted positions of the terms starting
// with prefix. Positions are 0-based: add 1 to both bounds to obtain ids.
func (d *Dictionary) LocatePrefix(prefix string) codec.Range {
	if prefix == "" {
		return codec.Range{Begin: 0, End: uint64(len(d.terms))}
	}
	if !d.trie.MatchSubtree(patricia.Prefix(prefix)) {
		return codec.Range{}
	}
	lo := sort.SearchStrings(d.terms, prefix)
	hi := lo + sort.Search(len(d.terms)-lo, func(i int) bool {
		return !strings.HasPrefix(d.terms[lo+i], prefix)
	})
	return codec.Range{Begin: uint64(lo), End: uint64(hi)}
}

// Extract returns the term with the given id.
func (d *Dictionary) Extract(id uint32) (string, bool) {
	if id == 0 || int(id) > len(d.terms) {
		return "", false
	}
	return d.terms[id-1], true
}

// Bytes approximates the memory held by the vocabulary.
func (d *Dictionary) Bytes() int {
	n := 0
	for _, t := range d.terms {
		n += len(t) + 16
	}
	return n
}
