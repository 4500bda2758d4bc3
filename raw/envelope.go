// Package raw implements the RAW opaque-data envelope: the same
// primitive grammar as loc, with minimal metadata.
package raw

import (
	"errors"
	"io"

	"github.com/mtstreamer/moqtcore/internal/wire"
)

// DataMediaType is the only mediaType this packager recognizes.
const DataMediaType = "data"

// Errors returned by Decode.
var (
	ErrTruncatedHeader  = errors.New("raw: truncated header")
	ErrUnknownMediaType = errors.New("raw: unknown media type")
)

// Chunk is a RAW envelope carrying an opaque payload.
type Chunk struct {
	MediaType string
	ChunkType string
	SeqID     int64
	Data      []byte
}

// Encode writes the envelope in field order: mediaType, chunkType, seqId,
// data.
func (c Chunk) Encode(w io.Writer) error {
	b := make([]byte, 0, len(c.Data)+1<<4)

	b = wire.AppendString(b, c.MediaType)
	b = wire.AppendString(b, c.ChunkType)
	b = wire.AppendZigzag(b, c.SeqID)
	b = wire.AppendBytes(b, c.Data)

	_, err := w.Write(b)
	return err
}

// Decode reads a RAW envelope from r and rejects any mediaType other than
// "data".
func Decode(r wire.Reader) (Chunk, error) {
	var c Chunk

	mediaType, err := wire.ReadString(r)
	if err != nil {
		return c, ErrTruncatedHeader
	}
	if mediaType != DataMediaType {
		return c, ErrUnknownMediaType
	}
	c.MediaType = mediaType

	c.ChunkType, err = wire.ReadString(r)
	if err != nil {
		return c, ErrTruncatedHeader
	}

	c.SeqID, err = wire.ReadZigzag(r)
	if err != nil {
		return c, ErrTruncatedHeader
	}

	c.Data, err = wire.ReadBytes(r)
	if err != nil {
		return c, ErrTruncatedHeader
	}

	return c, nil
}
