// Package wire implements the MOQT wire primitives: QUIC-style variable
// length integers, length-prefixed byte strings, parameter lists, and the
// control and object message framing.
package wire

import (
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// Reader is the minimal interface the decode side needs: ReadByte for
// quicvarint's prefix peek, plus plain byte reads for fixed-length fields.
type Reader interface {
	quicvarint.Reader
}

// NewReader adapts an io.Reader (typically a QUIC stream) to Reader.
func NewReader(r io.Reader) Reader {
	return quicvarint.NewReader(r)
}

// AppendVarint appends v to b using the shortest of the four QUIC
// variable-length-integer widths.
func AppendVarint(b []byte, v uint64) []byte {
	return quicvarint.Append(b, v)
}

// ReadVarint reads a QUIC variable-length integer. It accepts any of the
// four legal widths, not only the shortest one.
func ReadVarint(r Reader) (uint64, error) {
	return quicvarint.Read(r)
}

// AppendZigzag appends a signed integer using zigzag encoding over a
// varint, used for seqId and timestamp fields.
func AppendZigzag(b []byte, v int64) []byte {
	return AppendVarint(b, zigzagEncode(v))
}

// ReadZigzag reads a zigzag-encoded signed integer.
func ReadZigzag(r Reader) (int64, error) {
	u, err := ReadVarint(r)
	if err != nil {
		return 0, err
	}
	return zigzagDecode(u), nil
}

func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// AppendBytes appends a varint length followed by b's raw bytes (lp_bytes).
func AppendBytes(dst []byte, b []byte) []byte {
	dst = AppendVarint(dst, uint64(len(b)))
	return append(dst, b...)
}

// ReadBytes reads a varint length followed by that many raw bytes.
func ReadBytes(r Reader) ([]byte, error) {
	n, err := ReadVarint(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// AppendString appends a string as lp_bytes of its UTF-8 encoding.
func AppendString(dst []byte, s string) []byte {
	return AppendBytes(dst, []byte(s))
}

// ReadString reads an lp_string.
func ReadString(r Reader) (string, error) {
	b, err := ReadBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
