package engine

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// encodeVisitor writes the forward index structure as a msgpack stream.
type encodeVisitor struct {
	enc *msgpack.Encoder
}

func (v encodeVisitor) VisitUint64(x *uint64) error {
	return v.enc.EncodeUint64(*x)
}

func (v encodeVisitor) VisitWords(w *[]uint64) error {
	if err := v.enc.EncodeArrayLen(len(*w)); err != nil {
		return err
	}
	for _, word := range *w {
		if err := v.enc.EncodeUint64(word); err != nil {
			return err
		}
	}
	return nil
}

// decodeVisitor reads what encodeVisitor wrote.
type decodeVisitor struct {
	dec *msgpack.Decoder
}

func (v decodeVisitor) VisitUint64(x *uint64) error {
	val, err := v.dec.DecodeUint64()
	if err != nil {
		return err
	}
	*x = val
	return nil
}

// maxWords caps a single decoded word array at 8 GiB of bits.
const maxWords = 1 << 30

func (v decodeVisitor) VisitWords(w *[]uint64) error {
	n, err := v.dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n < 0 || n > maxWords {
		return fmt.Errorf("word array of length %d", n)
	}
	words := make([]uint64, n)
	for i := range words {
		if words[i], err = v.dec.DecodeUint64(); err != nil {
			return err
		}
	}
	*w = words
	return nil
}
