package completion

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/typeahead/pkg/codec"
)

// Inverted keeps one posting bitmap of completion ids per term id.
type Inverted struct {
	postings []*roaring.Bitmap
}

// NewInverted indexes every completion of src over term ids [0, numTerms].
func NewInverted(src Source, numTerms uint64) (*Inverted, error) {
	inv := &Inverted{postings: make([]*roaring.Bitmap, numTerms+1)}
	for t := range inv.postings {
		inv.postings[t] = roaring.New()
	}
	var terms []uint32
	for id := range src.NumDocs() {
		var err error
		terms, err = src.Terms(id, terms[:0])
		if err != nil {
			return nil, fmt.Errorf("completion %d: %w", id, err)
		}
		for _, t := range terms {
			if uint64(t) > numTerms {
				return nil, fmt.Errorf("%w: term %d in completion %d", codec.ErrValueOutOfUniverse, t, id)
			}
			inv.postings[t].Add(uint32(id))
		}
	}
	for _, p := range inv.postings {
		p.RunOptimize()
	}
	return inv, nil
}

// NumTerms returns the largest term id covered.
func (inv *Inverted) NumTerms() uint64 { return uint64(len(inv.postings)) - 1 }

// Postings returns the completions containing term, or nil when out of range.
func (inv *Inverted) Postings(term uint32) *roaring.Bitmap {
	if int(term) >= len(inv.postings) {
		return nil
	}
	return inv.postings[term]
}

// Conjunctive returns the completions containing every prefix term. Without
// prefix terms it returns the completions containing some term in suffix.
// The result is owned by the caller.
func (inv *Inverted) Conjunctive(prefix []uint32, suffix codec.Range) *roaring.Bitmap {
	if len(prefix) > 0 {
		lists := make([]*roaring.Bitmap, 0, len(prefix))
		for _, t := range prefix {
			p := inv.Postings(t)
			if p == nil {
				return roaring.New()
			}
			lists = append(lists, p)
		}
		if len(lists) == 1 {
			return lists[0].Clone()
		}
		return roaring.FastAnd(lists...)
	}
	end := min(suffix.End, uint64(len(inv.postings)))
	if suffix.Begin >= end {
		return roaring.New()
	}
	return roaring.FastOr(inv.postings[suffix.Begin:end]...)
}

// Bytes returns the serialized size of all postings.
func (inv *Inverted) Bytes() int {
	n := 0
	for _, p := range inv.postings {
		n += int(p.GetSerializedSizeInBytes())
	}
	return n
}

// MarshalPostings encodes each posting list in roaring's portable format.
func (inv *Inverted) MarshalPostings() ([][]byte, error) {
	out := make([][]byte, len(inv.postings))
	for t, p := range inv.postings {
		b, err := p.ToBytes()
		if err != nil {
			return nil, fmt.Errorf("postings of term %d: %w", t, err)
		}
		out[t] = b
	}
	return out, nil
}

// UnmarshalInverted rebuilds an index from MarshalPostings output.
func UnmarshalInverted(data [][]byte) (*Inverted, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("inverted index: no postings")
	}
	inv := &Inverted{postings: make([]*roaring.Bitmap, len(data))}
	for t, b := range data {
		p := roaring.New()
		if err := p.UnmarshalBinary(b); err != nil {
			return nil, fmt.Errorf("postings of term %d: %w", t, err)
		}
		inv.postings[t] = p
	}
	return inv, nil
}
