// Package suggest runs top-k autocomplete queries over a forward index.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/pkg/bitvec"
	"github.com/bastiangx/typeahead/pkg/codec"
	"github.com/bastiangx/typeahead/pkg/forward"
	"github.com/charmbracelet/log"
)

// checkEvery is how many candidates are scanned between context checks.
const checkEvery = 1024

// Dictionary resolves query terms to ids.
type Dictionary interface {
	Locate(term string) (uint32, error)
	// LocatePrefix returns 0-based positions; ids are positions+1.
	LocatePrefix(prefix string) codec.Range
}

// CompletionRanges maps a term-id prefix to the completions that start with it.
type CompletionRanges interface {
	LocatePrefix(prefix []uint32, suffix codec.Range) (codec.Range, error)
}

// Candidates narrows conjunctive queries before forward-index filtering.
type Candidates interface {
	Conjunctive(prefix []uint32, suffix codec.Range) *roaring.Bitmap
}

// ForwardIndex is the part of forward.Index used at query time.
type ForwardIndex interface {
	NumDocs() int
	Intersects(id int, r codec.Range) (bool, error)
	PermutingIterator(id int) (*forward.PermutingIterator, error)
}

// Scorer returns the static score of a completion, higher is better.
type Scorer interface {
	Score(id int) uint32
}

// Observer is told about every finished query.
type Observer func(mode Mode, t Timings, results int, err error)

// Option configures a Searcher.
type Option func(*Searcher)

// WithCandidates sets the conjunctive candidate generator. Without one,
// conjunctive queries scan every completion.
func WithCandidates(c Candidates) Option {
	return func(s *Searcher) { s.candidates = c }
}

// WithSeparator sets the term separator. An empty separator splits on white space.
func WithSeparator(sep string) Option {
	return func(s *Searcher) { s.sep = sep }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Searcher) { s.logger = l }
}

// WithObserver registers a callback run after each query.
func WithObserver(o Observer) Option {
	return func(s *Searcher) { s.observe = o }
}

// Searcher answers queries over immutable structures and is safe for
// concurrent use.
type Searcher struct {
	dict       Dictionary
	ranges     CompletionRanges
	candidates Candidates
	fwd        ForwardIndex
	scores     Scorer
	sep        string
	logger     *log.Logger
	observe    Observer
}

// NewSearcher composes the query pipeline.
func NewSearcher(dict Dictionary, ranges CompletionRanges, fwd ForwardIndex, scores Scorer, opts ...Option) *Searcher {
	s := &Searcher{
		dict:   dict,
		ranges: ranges,
		fwd:    fwd,
		scores: scores,
		sep:    " ",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.New("suggest")
	}
	return s
}

// Separator returns the term separator.
func (s *Searcher) Separator() string { return s.sep }

// PrefixTopK returns the k best completions starting with query.
func (s *Searcher) PrefixTopK(query string, k int) (*Results, error) {
	return s.Search(context.Background(), Request{Query: query, K: k, Mode: Prefix})
}

// ConjunctiveTopK returns the k best completions holding every query term.
func (s *Searcher) ConjunctiveTopK(query string, k int) (*Results, error) {
	return s.Search(context.Background(), Request{Query: query, K: k, Mode: Conjunctive})
}

// Search runs one query. Malformed queries fail with ErrEmptyQuery,
// ErrTooManyTerms or dictionary.ErrUnknownTerm. A query that cannot match
// returns empty results and no error.
func (s *Searcher) Search(ctx context.Context, req Request) (res *Results, err error) {
	var t Timings
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok || !errors.Is(perr, bitvec.ErrOutOfRange) {
				panic(r)
			}
			res, err = nil, fmt.Errorf("query %q: %w", req.Query, perr)
		}
		if err != nil {
			s.logger.Debug("query failed", "query", req.Query, "mode", req.Mode, "err", err)
		}
		if s.observe != nil {
			n := 0
			if res != nil {
				n = res.Len()
			}
			s.observe(req.Mode, t, n, err)
		}
	}()

	start := time.Now()
	complete, suffixText, err := parse(req.Query, s.sep)
	t.Parse = time.Since(start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	prefix := make([]uint32, len(complete))
	for i, term := range complete {
		if prefix[i], err = s.dict.Locate(term); err != nil {
			return nil, err
		}
	}
	suffix := s.dict.LocatePrefix(suffixText).Shift(1)
	t.Dictionary = time.Since(start)
	if suffix.Empty() || req.K <= 0 {
		return emptyResults(s.fwd, t), nil
	}

	start = time.Now()
	top := newTopK(req.K)
	switch req.Mode {
	case Prefix:
		err = s.prefixSearch(ctx, prefix, suffix, top)
	case Conjunctive:
		err = s.conjunctiveSearch(ctx, prefix, suffix, top)
	default:
		err = fmt.Errorf("unknown search mode %s", req.Mode)
	}
	t.Search = time.Since(start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	hits := top.drain()
	for _, h := range hits {
		if _, err := s.fwd.PermutingIterator(h.id); err != nil {
			return nil, err
		}
	}
	res = &Results{fwd: s.fwd, hits: hits}
	t.Reporting = time.Since(start)
	res.Timings = t
	return res, nil
}

func (s *Searcher) prefixSearch(ctx context.Context, prefix []uint32, suffix codec.Range, top *topK) error {
	r, err := s.ranges.LocatePrefix(prefix, suffix)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id := r.Begin; id < r.End; id++ {
		if (id-r.Begin)%checkEvery == checkEvery-1 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		top.offer(int(id), s.scores.Score(int(id)))
	}
	return nil
}

func (s *Searcher) conjunctiveSearch(ctx context.Context, prefix []uint32, suffix codec.Range, top *topK) error {
	r, err := s.ranges.LocatePrefix(prefix, suffix)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var next func() (int, bool)
	if s.candidates != nil {
		bm := s.candidates.Conjunctive(prefix, suffix)
		if !r.Empty() {
			bm.AddRange(r.Begin, r.End)
		}
		it := bm.Iterator()
		next = func() (int, bool) {
			if !it.HasNext() {
				return 0, false
			}
			return int(it.Next()), true
		}
	} else {
		id, n := -1, s.fwd.NumDocs()
		next = func() (int, bool) {
			id++
			return id, id < n
		}
	}

	scanned := 0
	for id, ok := next(); ok; id, ok = next() {
		scanned++
		if scanned%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		match, err := s.matches(id, prefix, suffix)
		if err != nil {
			return err
		}
		if match {
			top.offer(id, s.scores.Score(id))
		}
	}
	return nil
}

// matches reports whether completion id holds every prefix term and some
// term of the suffix range.
func (s *Searcher) matches(id int, prefix []uint32, suffix codec.Range) (bool, error) {
	for _, t := range prefix {
		ok, err := s.fwd.Intersects(id, codec.Range{Begin: uint64(t), End: uint64(t) + 1})
		if err != nil || !ok {
			return false, err
		}
	}
	return s.fwd.Intersects(id, suffix)
}
