package loc

import (
	"bytes"
	"testing"

	"github.com/mtstreamer/moqtcore/internal/wire"
)

func TestChunkRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		chunk Chunk
	}{
		{
			name: "audio key with metadata",
			chunk: Chunk{
				MediaType:       MediaAudio,
				Timestamp:       1000,
				Duration:        20000,
				ChunkType:       ChunkKey,
				SeqID:           42,
				FirstFrameClkms: 1_700_000_000_000,
				Metadata:        []byte("x-capture=1"),
				Data:            []byte{0xAA, 0xBB, 0xCC},
			},
		},
		{
			name: "video delta, empty metadata, negative seq",
			chunk: Chunk{
				MediaType: MediaVideo,
				Timestamp: -500,
				Duration:  0,
				ChunkType: ChunkDelta,
				SeqID:     -1,
				Metadata:  nil,
				Data:      []byte{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.chunk.Encode(&buf); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			got, err := Decode(wire.NewReader(&buf))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if got.MediaType != tt.chunk.MediaType ||
				got.Timestamp != tt.chunk.Timestamp ||
				got.Duration != tt.chunk.Duration ||
				got.ChunkType != tt.chunk.ChunkType ||
				got.SeqID != tt.chunk.SeqID ||
				got.FirstFrameClkms != tt.chunk.FirstFrameClkms ||
				!bytes.Equal(got.Data, tt.chunk.Data) ||
				!bytes.Equal(got.Metadata, tt.chunk.Metadata) {
				t.Errorf("Decode(Encode(c)) = %+v, want %+v", got, tt.chunk)
			}
		})
	}
}

func TestDecodeUnknownMediaType(t *testing.T) {
	b := wire.AppendString(nil, "subtitle")
	if _, err := Decode(wire.NewReader(bytes.NewReader(b))); err != ErrUnknownMediaType {
		t.Errorf("Decode() error = %v, want ErrUnknownMediaType", err)
	}
}

func TestDecodeUnknownChunkType(t *testing.T) {
	b := wire.AppendString(nil, "audio")
	b = wire.AppendZigzag(b, 0)
	b = wire.AppendVarint(b, 0)
	b = wire.AppendString(b, "partial")
	if _, err := Decode(wire.NewReader(bytes.NewReader(b))); err != ErrUnknownChunkType {
		t.Errorf("Decode() error = %v, want ErrUnknownChunkType", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	b := wire.AppendString(nil, "audio")
	if _, err := Decode(wire.NewReader(bytes.NewReader(b))); err != ErrTruncatedHeader {
		t.Errorf("Decode() error = %v, want ErrTruncatedHeader", err)
	}
}
