package engine

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/bastiangx/typeahead/pkg/codec"
	"github.com/bastiangx/typeahead/pkg/completion"
	"github.com/bastiangx/typeahead/pkg/dictionary"
	"github.com/bastiangx/typeahead/pkg/forward"
	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// File layout:
//
//	magic [4]byte "TACX"
//	version, sorted codec kind, pointers kind, reserved: 1 byte each
//	zstd(msgpack payload)
//	xxhash64 of everything above, little endian
//
// The payload holds, in order: separator, dictionary terms, scores, the
// forward index in visitor order and the roaring posting lists.
const (
	magic       = "TACX"
	version     = 1
	headerSize  = 8
	trailerSize = 8
)

// Save writes the engine to w.
func (e *Engine) Save(w io.Writer) error {
	h := xxhash.New()
	out := io.MultiWriter(w, h)

	header := [headerSize]byte{}
	copy(header[:], magic)
	header[4] = version
	header[5] = byte(e.fwd.SortedKind())
	header[6] = byte(e.fwd.PointersKind())
	if _, err := out.Write(header[:]); err != nil {
		return err
	}

	zw, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(zw)
	if err := e.encodePayload(msgpack.NewEncoder(bw)); err != nil {
		zw.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	var trailer [trailerSize]byte
	binary.LittleEndian.PutUint64(trailer[:], h.Sum64())
	_, err = w.Write(trailer[:])
	return err
}

func (e *Engine) encodePayload(enc *msgpack.Encoder) error {
	enc.UseCompactInts(true)
	if err := enc.EncodeString(e.sep); err != nil {
		return err
	}

	terms := e.dict.Terms()
	if err := enc.EncodeArrayLen(len(terms)); err != nil {
		return err
	}
	for _, t := range terms {
		if err := enc.EncodeString(t); err != nil {
			return err
		}
	}

	if err := enc.EncodeArrayLen(len(e.scores)); err != nil {
		return err
	}
	for _, s := range e.scores {
		if err := enc.EncodeUint32(s); err != nil {
			return err
		}
	}

	if err := e.fwd.Visit(encodeVisitor{enc: enc}); err != nil {
		return fmt.Errorf("forward index: %w", err)
	}

	postings, err := e.inverted.MarshalPostings()
	if err != nil {
		return err
	}
	if err := enc.EncodeArrayLen(len(postings)); err != nil {
		return err
	}
	for _, p := range postings {
		if err := enc.EncodeBytes(p); err != nil {
			return err
		}
	}
	return nil
}

// SaveFile writes the engine to path.
func (e *Engine) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := e.Save(bw); err != nil {
		f.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads an engine written by Save.
func Load(r io.Reader) (*Engine, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < headerSize+trailerSize || string(data[:4]) != magic {
		return nil, ErrBadMagic
	}
	if data[4] != version {
		return nil, fmt.Errorf("%w: %d, want %d", ErrVersion, data[4], version)
	}
	body, trailer := data[:len(data)-trailerSize], data[len(data)-trailerSize:]
	if xxhash.Sum64(body) != binary.LittleEndian.Uint64(trailer) {
		return nil, ErrChecksum
	}

	sorted, err := codec.SortedCodec(codec.Kind(data[5]))
	if err != nil {
		return nil, err
	}
	pointers := codec.Kind(data[6])

	zr, err := zstd.NewReader(bytes.NewReader(body[headerSize:]))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return decodePayload(msgpack.NewDecoder(zr), sorted, pointers)
}

func decodePayload(dec *msgpack.Decoder, sorted codec.SortedSetCodec, pointers codec.Kind) (*Engine, error) {
	sep, err := dec.DecodeString()
	if err != nil {
		return nil, fmt.Errorf("separator: %w", err)
	}

	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, fmt.Errorf("dictionary: %w", err)
	}
	terms := make([]string, 0, max(n, 0))
	for range n {
		t, err := dec.DecodeString()
		if err != nil {
			return nil, fmt.Errorf("dictionary: %w", err)
		}
		terms = append(terms, t)
	}
	dict, err := dictionary.New(terms)
	if err != nil {
		return nil, err
	}

	if n, err = dec.DecodeArrayLen(); err != nil {
		return nil, fmt.Errorf("scores: %w", err)
	}
	scores := make(completion.Scores, max(n, 0))
	for i := range scores {
		if scores[i], err = dec.DecodeUint32(); err != nil {
			return nil, fmt.Errorf("scores: %w", err)
		}
	}

	fwd, err := forward.Load(decodeVisitor{dec: dec},
		forward.WithSortedCodec(sorted), forward.WithPointers(pointers))
	if err != nil {
		return nil, err
	}

	if n, err = dec.DecodeArrayLen(); err != nil {
		return nil, fmt.Errorf("postings: %w", err)
	}
	postings := make([][]byte, max(n, 0))
	for i := range postings {
		if postings[i], err = dec.DecodeBytes(); err != nil {
			return nil, fmt.Errorf("postings: %w", err)
		}
	}
	inv, err := completion.UnmarshalInverted(postings)
	if err != nil {
		return nil, err
	}
	if inv.NumTerms() != fwd.NumTerms() {
		return nil, fmt.Errorf("inverted index covers %d terms, forward index %d", inv.NumTerms(), fwd.NumTerms())
	}

	if len(scores) != fwd.NumDocs() || uint64(dict.Size()) != fwd.NumTerms() {
		return nil, fmt.Errorf("%w: %d terms, %d scores, forward index %d terms %d completions",
			forward.ErrCorrupt, dict.Size(), len(scores), fwd.NumTerms(), fwd.NumDocs())
	}
	ranges, err := completion.NewRanges(fwd)
	if err != nil {
		return nil, err
	}
	return &Engine{dict: dict, fwd: fwd, ranges: ranges, inverted: inv, scores: scores, sep: sep}, nil
}

// LoadFile reads an engine from path.
func LoadFile(path string) (*Engine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	e, err := Load(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return e, nil
}
