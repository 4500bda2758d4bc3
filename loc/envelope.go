// Package loc implements the LOC media chunk envelope: a length-prefixed
// framing of an already-encoded audio/video chunk plus the timing and
// keyframe metadata a downstream decoder needs.
package loc

import (
	"errors"
	"io"

	"github.com/mtstreamer/moqtcore/internal/wire"
)

// MediaType selects the codec family the chunk belongs to.
type MediaType byte

const (
	MediaAudio MediaType = 1
	MediaVideo MediaType = 2
)

func (mt MediaType) String() string {
	switch mt {
	case MediaAudio:
		return "audio"
	case MediaVideo:
		return "video"
	default:
		return "unknown"
	}
}

// ChunkType distinguishes a keyframe (group-opening) object from a delta
// object that depends on the preceding keyframe.
type ChunkType byte

const (
	ChunkKey   ChunkType = 1
	ChunkDelta ChunkType = 2
)

func (ct ChunkType) String() string {
	switch ct {
	case ChunkKey:
		return "key"
	case ChunkDelta:
		return "delta"
	default:
		return "unknown"
	}
}

// IsKey reports whether ct is a keyframe chunk.
func (ct ChunkType) IsKey() bool { return ct == ChunkKey }

// Errors returned by Decode. Both the media type and the chunk type must
// be present and recognized; a chunk failing either check is not
// decodable.
var (
	ErrTruncatedHeader  = errors.New("loc: truncated header")
	ErrUnknownMediaType = errors.New("loc: unknown media type")
	ErrUnknownChunkType = errors.New("loc: unknown chunk type")
)

// Chunk is a LOC envelope: an encoded media chunk plus the fields a
// subscriber needs to schedule and decode it without touching the codec
// itself.
type Chunk struct {
	MediaType MediaType

	// Timestamp is the presentation timestamp in microseconds.
	Timestamp int64

	// Duration is the chunk's duration in microseconds.
	Duration uint32

	ChunkType ChunkType

	// SeqID is the application-level sequence number used to compute
	// sendOrder; negative values mean "send now".
	SeqID int64

	// FirstFrameClkms is the wall-clock capture time in milliseconds.
	FirstFrameClkms int64

	// Metadata is an opaque, possibly-empty byte string carried
	// alongside the payload.
	Metadata []byte

	Data []byte
}

// Encode writes the envelope in field order: mediaType, timestamp,
// duration, chunkType, seqId, firstFrameClkms, metadata, data. Media and
// chunk types travel as length-prefixed strings, signed integers as
// zigzag varints, byte buffers length-prefixed.
func (c Chunk) Encode(w io.Writer) error {
	b := make([]byte, 0, len(c.Metadata)+len(c.Data)+1<<5)

	b = wire.AppendString(b, c.MediaType.String())
	b = wire.AppendZigzag(b, c.Timestamp)
	b = wire.AppendVarint(b, uint64(c.Duration))
	b = wire.AppendString(b, c.ChunkType.String())
	b = wire.AppendZigzag(b, c.SeqID)
	b = wire.AppendZigzag(b, c.FirstFrameClkms)
	b = wire.AppendBytes(b, c.Metadata)
	b = wire.AppendBytes(b, c.Data)

	_, err := w.Write(b)
	return err
}

// Decode reads a LOC envelope from r, the exact inverse of Encode. Every
// field is mandatory; a short read anywhere yields ErrTruncatedHeader.
func Decode(r wire.Reader) (Chunk, error) {
	var c Chunk

	mt, err := wire.ReadString(r)
	if err != nil {
		return c, ErrTruncatedHeader
	}
	switch mt {
	case "audio":
		c.MediaType = MediaAudio
	case "video":
		c.MediaType = MediaVideo
	default:
		return c, ErrUnknownMediaType
	}

	c.Timestamp, err = wire.ReadZigzag(r)
	if err != nil {
		return c, ErrTruncatedHeader
	}

	duration, err := wire.ReadVarint(r)
	if err != nil {
		return c, ErrTruncatedHeader
	}
	c.Duration = uint32(duration)

	ct, err := wire.ReadString(r)
	if err != nil {
		return c, ErrTruncatedHeader
	}
	switch ct {
	case "key":
		c.ChunkType = ChunkKey
	case "delta":
		c.ChunkType = ChunkDelta
	default:
		return c, ErrUnknownChunkType
	}

	c.SeqID, err = wire.ReadZigzag(r)
	if err != nil {
		return c, ErrTruncatedHeader
	}

	c.FirstFrameClkms, err = wire.ReadZigzag(r)
	if err != nil {
		return c, ErrTruncatedHeader
	}

	c.Metadata, err = wire.ReadBytes(r)
	if err != nil {
		return c, ErrTruncatedHeader
	}

	c.Data, err = wire.ReadBytes(r)
	if err != nil {
		return c, ErrTruncatedHeader
	}

	return c, nil
}
