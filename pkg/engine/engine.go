// Package engine ties the dictionary, forward index, completion ranges,
// inverted index and scores together and persists them as one file.
package engine

import (
	"fmt"
	"time"

	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/codec"
	"github.com/bastiangx/typeahead/pkg/collection"
	"github.com/bastiangx/typeahead/pkg/completion"
	"github.com/bastiangx/typeahead/pkg/dictionary"
	"github.com/bastiangx/typeahead/pkg/forward"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
)

// Options controls how an engine is built.
type Options struct {
	SortedCodec codec.Kind
	Pointers    codec.Kind
	Separator   string
	Logger      *log.Logger
}

// DefaultOptions uses Elias-Fano for both the term lists and the offsets.
func DefaultOptions() Options {
	return Options{
		SortedCodec: codec.KindEliasFano,
		Pointers:    codec.KindEliasFano,
		Separator:   " ",
	}
}

func (o *Options) fill() {
	d := DefaultOptions()
	if o.SortedCodec == 0 {
		o.SortedCodec = d.SortedCodec
	}
	if o.Pointers == 0 {
		o.Pointers = d.Pointers
	}
	if o.Separator == "" {
		o.Separator = d.Separator
	}
	if o.Logger == nil {
		o.Logger = logger.New("engine")
	}
}

// Engine is an immutable, queryable index.
type Engine struct {
	dict     *dictionary.Dictionary
	fwd      *forward.Index
	ranges   *completion.Ranges
	inverted *completion.Inverted
	scores   completion.Scores
	sep      string
}

// New assembles an engine and derives the ranges and inverted index from fwd.
func New(dict *dictionary.Dictionary, fwd *forward.Index, scores completion.Scores, sep string) (*Engine, error) {
	if len(scores) != fwd.NumDocs() {
		return nil, fmt.Errorf("%d scores for %d completions", len(scores), fwd.NumDocs())
	}
	if uint64(dict.Size()) != fwd.NumTerms() {
		return nil, fmt.Errorf("dictionary has %d terms, forward index %d", dict.Size(), fwd.NumTerms())
	}
	ranges, err := completion.NewRanges(fwd)
	if err != nil {
		return nil, err
	}
	inv, err := completion.NewInverted(fwd, fwd.NumTerms())
	if err != nil {
		return nil, err
	}
	return &Engine{dict: dict, fwd: fwd, ranges: ranges, inverted: inv, scores: scores, sep: sep}, nil
}

// Build prepares the collection at basename when needed and indexes it.
func Build(basename string, opts Options) (*Engine, error) {
	opts.fill()
	l := opts.Logger
	start := time.Now()

	stats, err := collection.LoadStats(basename)
	if err != nil {
		l.Info("preparing collection", "basename", basename)
		if stats, err = collection.Prepare(basename, opts.Separator); err != nil {
			return nil, fmt.Errorf("prepare %s: %w", basename, err)
		}
	}

	dict, err := collection.ReadDictionary(basename)
	if err != nil {
		return nil, fmt.Errorf("dictionary: %w", err)
	}
	scores, err := collection.ReadScores(basename)
	if err != nil {
		return nil, fmt.Errorf("scores: %w", err)
	}

	sorted, err := codec.SortedCodec(opts.SortedCodec)
	if err != nil {
		return nil, err
	}
	f, err := collection.OpenForward(basename)
	if err != nil {
		return nil, fmt.Errorf("forward lists: %w", err)
	}
	defer f.Close()
	b := forward.NewBuilder(stats.NumTerms,
		forward.WithSortedCodec(sorted),
		forward.WithPointers(opts.Pointers),
		forward.WithLogger(l))
	if err := b.ReadFrom(f, stats.NumCompletions); err != nil {
		return nil, err
	}
	fwd, err := b.Build()
	if err != nil {
		return nil, err
	}

	e, err := New(dict, fwd, scores, opts.Separator)
	if err != nil {
		return nil, err
	}
	l.Info("index built",
		"terms", utils.FormatWithCommas(int64(stats.NumTerms)),
		"completions", utils.FormatWithCommas(int64(stats.NumCompletions)),
		"took", time.Since(start).Round(time.Millisecond))
	return e, nil
}

// Dictionary returns the term dictionary.
func (e *Engine) Dictionary() *dictionary.Dictionary { return e.dict }

// Forward returns the forward index.
func (e *Engine) Forward() *forward.Index { return e.fwd }

// Separator returns the term separator the collection was split with.
func (e *Engine) Separator() string { return e.sep }

// Searcher returns a query pipeline over the engine.
func (e *Engine) Searcher(opts ...suggest.Option) *suggest.Searcher {
	base := []suggest.Option{suggest.WithCandidates(e.inverted), suggest.WithSeparator(e.sep)}
	return suggest.NewSearcher(e.dict, e.ranges, e.fwd, e.scores, append(base, opts...)...)
}

// Stats is the space breakdown of an engine.
type Stats struct {
	NumTerms        uint64
	NumCompletions  int
	SortedCodec     codec.Kind
	Pointers        codec.Kind
	DictionaryBytes int
	ForwardBytes    int
	InvertedBytes   int
	ScoresBytes     int
}

// TotalBytes sums every component.
func (s Stats) TotalBytes() int {
	return s.DictionaryBytes + s.ForwardBytes + s.InvertedBytes + s.ScoresBytes
}

// Components maps component names to their sizes in bytes.
func (s Stats) Components() map[string]int {
	return map[string]int{
		"dictionary": s.DictionaryBytes,
		"forward":    s.ForwardBytes,
		"inverted":   s.InvertedBytes,
		"scores":     s.ScoresBytes,
	}
}

// Stats reports sizes of the engine components.
func (e *Engine) Stats() Stats {
	return Stats{
		NumTerms:        e.fwd.NumTerms(),
		NumCompletions:  e.fwd.NumDocs(),
		SortedCodec:     e.fwd.SortedKind(),
		Pointers:        e.fwd.PointersKind(),
		DictionaryBytes: e.dict.Bytes(),
		ForwardBytes:    e.fwd.Bytes(),
		InvertedBytes:   e.inverted.Bytes(),
		ScoresBytes:     e.scores.Bytes(),
	}
}

// LogStats prints the space breakdown.
func (e *Engine) LogStats(l *log.Logger) {
	s := e.Stats()
	l.Info("index stats",
		"terms", utils.FormatWithCommas(int64(s.NumTerms)),
		"completions", utils.FormatWithCommas(int64(s.NumCompletions)),
		"codec", s.SortedCodec,
		"pointers", s.Pointers)
	l.Info("space",
		"dictionary", utils.FormatBytes(int64(s.DictionaryBytes)),
		"forward", utils.FormatBytes(int64(s.ForwardBytes)),
		"forward_bits_per_completion", utils.BitsPer(int64(s.ForwardBytes), s.NumCompletions),
		"inverted", utils.FormatBytes(int64(s.InvertedBytes)),
		"scores", utils.FormatBytes(int64(s.ScoresBytes)),
		"total", utils.FormatBytes(int64(s.TotalBytes())))
}
