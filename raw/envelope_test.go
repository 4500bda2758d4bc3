package raw

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
			name: "basic",
			chunk: Chunk{
				MediaType: "data",
				ChunkType: "key",
				SeqID:     7,
				Data:      []byte("hello"),
			},
		},
		{
			name: "empty payload, negative seq",
			chunk: Chunk{
				MediaType: "data",
				ChunkType: "delta",
				SeqID:     -1,
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
				got.ChunkType != tt.chunk.ChunkType ||
				got.SeqID != tt.chunk.SeqID ||
				!bytes.Equal(got.Data, tt.chunk.Data) {
				t.Errorf("Decode(Encode(c)) = %+v, want %+v", got, tt.chunk)
			}
		})
	}
}

func TestDecodeUnknownMediaType(t *testing.T) {
	var buf bytes.Buffer
	c := Chunk{MediaType: "video", ChunkType: "key", Data: []byte{}}
	_ = c.Encode(&buf)

	if _, err := Decode(wire.NewReader(&buf)); err != ErrUnknownMediaType {
		t.Errorf("Decode() error = %v, want ErrUnknownMediaType", err)
	}
}
