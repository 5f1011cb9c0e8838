package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Wire selects the message encoding.
type Wire uint8

const (
	// WireMsgpack streams msgpack maps back to back.
	WireMsgpack Wire = iota
	// WireJSON uses one JSON object per line.
	WireJSON
)

func (w Wire) String() string {
	if w == WireJSON {
		return "json"
	}
	return "msgpack"
}

// ParseWire accepts "msgpack" and "json".
func ParseWire(s string) (Wire, error) {
	switch s {
	case "", "msgpack", "mp":
		return WireMsgpack, nil
	case "json":
		return WireJSON, nil
	}
	return 0, fmt.Errorf("unknown wire format %q", s)
}

// framer frames messages. next returns io.EOF once the input is exhausted.
// A framing error is fatal; an unmarshal error only loses one message.
type framer interface {
	next() ([]byte, error)
	unmarshal(raw []byte, v any) error
	write(v any) error
}

func newFramer(w Wire, r io.Reader, out io.Writer) framer {
	bw := bufio.NewWriter(out)
	if w == WireJSON {
		return &jsonCodec{r: bufio.NewReader(r), w: bw}
	}
	enc := msgpack.NewEncoder(bw)
	enc.SetOmitEmpty(true)
	return &msgpackCodec{dec: msgpack.NewDecoder(bufio.NewReader(r)), enc: enc, w: bw}
}

type msgpackCodec struct {
	dec *msgpack.Decoder
	enc *msgpack.Encoder
	w   *bufio.Writer
}

func (c *msgpackCodec) next() ([]byte, error) {
	raw, err := c.dec.DecodeRaw()
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *msgpackCodec) unmarshal(raw []byte, v any) error {
	return msgpack.Unmarshal(raw, v)
}

func (c *msgpackCodec) write(v any) error {
	if err := c.enc.Encode(v); err != nil {
		return err
	}
	return c.w.Flush()
}

type jsonCodec struct {
	r *bufio.Reader
	w *bufio.Writer
}

func (c *jsonCodec) next() ([]byte, error) {
	for {
		line, err := c.r.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (c *jsonCodec) unmarshal(raw []byte, v any) error {
	return json.Unmarshal(raw, v)
}

func (c *jsonCodec) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := c.w.Write(data); err != nil {
		return err
	}
	return c.w.Flush()
}
