package forward

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/pkg/bitvec"
	"github.com/bastiangx/typeahead/pkg/codec"
	"github.com/charmbracelet/log"
)

// MaxNumTermsPerQuery bounds both the terms of a completion and the terms of a query.
const MaxNumTermsPerQuery = 64

type options struct {
	sorted   codec.SortedSetCodec
	perm     codec.PermutationCodec
	pointers codec.Kind
	logger   *log.Logger
}

func defaultOptions() options {
	return options{
		sorted:   codec.EliasFano{},
		perm:     codec.Packed{},
		pointers: codec.KindEliasFano,
	}
}

// Option configures a Builder or a loaded Index.
type Option func(*options)

// WithSortedCodec selects the codec for the sorted term lists.
func WithSortedCodec(c codec.SortedSetCodec) Option {
	return func(o *options) { o.sorted = c }
}

// WithPointers selects the encoding of the offset table.
func WithPointers(kind codec.Kind) Option {
	return func(o *options) { o.pointers = kind }
}

// WithLogger sets the logger used while building.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Builder accumulates completions in input order. It is single use: Build hands
// the encoded data to the Index and leaves an empty builder behind.
type Builder struct {
	numTerms uint64
	opts     options
	offsets  []uint64
	bits     *bitvec.Builder
	count    int
	err      error

	order  []int
	sorted []uint64
	perm   []uint64
}

// NewBuilder starts a forward index over term ids in [0, numTerms].
func NewBuilder(numTerms uint64, opts ...Option) *Builder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.New("forward")
	}
	return &Builder{
		numTerms: numTerms,
		opts:     o,
		bits:     bitvec.NewBuilder(),
	}
}

// init turns a zero or consumed builder back into a default one.
func (b *Builder) init() {
	if b.bits == nil {
		*b = *NewBuilder(b.numTerms)
	}
}

// Len returns the number of completions added so far.
func (b *Builder) Len() int {
	return b.count
}

// Add appends one completion given its term ids in original order.
// The first failure is sticky and also reported by Build.
func (b *Builder) Add(terms []uint32) error {
	if b.err != nil {
		return b.err
	}
	b.init()
	n := len(terms)
	if n == 0 || n >= MaxNumTermsPerQuery {
		b.err = fmt.Errorf("%w: completion %d has %d terms", ErrInvalidLength, b.count, n)
		return b.err
	}

	b.order = b.order[:0]
	for i := range n {
		b.order = append(b.order, i)
	}
	slices.SortStableFunc(b.order, func(x, y int) int { return cmp.Compare(terms[x], terms[y]) })

	b.sorted = slices.Grow(b.sorted[:0], n)[:n]
	b.perm = slices.Grow(b.perm[:0], n)[:n]
	for rank, pos := range b.order {
		b.sorted[rank] = uint64(terms[pos])
		b.perm[pos] = uint64(rank)
	}

	b.offsets = append(b.offsets, b.bits.Len())
	b.bits.Append(uint64(n), 32)
	if err := b.opts.sorted.Encode(b.bits, b.sorted, b.numTerms+1); err != nil {
		b.err = fmt.Errorf("completion %d: %w", b.count, err)
		return b.err
	}
	b.bits.Pad(8)

	b.offsets = append(b.offsets, b.bits.Len())
	if err := b.opts.perm.Encode(b.bits, b.perm, uint64(n)+1); err != nil {
		b.err = fmt.Errorf("completion %d permutation: %w", b.count, err)
		return b.err
	}
	b.count++
	return nil
}

// ReadFrom reads up to count lines of the form "n t_1 ... t_n" and adds them.
// A negative count reads until EOF.
func (b *Builder) ReadFrom(r io.Reader, count int) error {
	b.init()
	b.opts.logger.Info("building forward index...")
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)

	next := func() (uint64, bool, error) {
		if !sc.Scan() {
			return 0, false, sc.Err()
		}
		v, err := strconv.ParseUint(sc.Text(), 10, 32)
		if err != nil {
			return 0, false, fmt.Errorf("forward list %d: %w", b.count, err)
		}
		return v, true, nil
	}

	terms := make([]uint32, 0, MaxNumTermsPerQuery)
	for count < 0 || b.count < count {
		n, ok, err := next()
		if err != nil {
			return err
		}
		if !ok {
			if count >= 0 {
				return fmt.Errorf("forward lists: got %d of %d completions: %w", b.count, count, io.ErrUnexpectedEOF)
			}
			break
		}
		if n == 0 || n >= MaxNumTermsPerQuery {
			return fmt.Errorf("%w: forward list %d declares %d terms", ErrInvalidLength, b.count, n)
		}
		terms = terms[:0]
		for k := uint64(0); k < n; k++ {
			id, ok, err := next()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("forward list %d: %w", b.count, io.ErrUnexpectedEOF)
			}
			terms = append(terms, uint32(id))
		}
		if err := b.Add(terms); err != nil {
			return err
		}
	}
	b.opts.logger.Info("DONE", "completions", b.count, "bits", b.bits.Len())
	return nil
}

// Build finalizes the index and resets the builder to its empty state.
func (b *Builder) Build() (*Index, error) {
	defer func() { *b = Builder{numTerms: b.numTerms} }()
	if b.err != nil {
		return nil, b.err
	}
	b.init()
	pointers, err := codec.NewPointers(b.opts.pointers, b.offsets)
	if err != nil {
		return nil, fmt.Errorf("offset table: %w", err)
	}
	return &Index{
		numTerms: b.numTerms,
		sorted:   b.opts.sorted,
		perm:     b.opts.perm,
		kind:     b.opts.pointers,
		pointers: pointers,
		data:     b.bits.Build(),
	}, nil
}
