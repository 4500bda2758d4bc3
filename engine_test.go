package moqt

import (
	"context"
	"errors"
	"testing"

	"github.com/mtstreamer/moqtcore/transport"
)

func TestEngineRejectsEmptyTrackConfig(t *testing.T) {
	eng := NewEngine(func(ctx context.Context, urlHostPort string) (transport.Session, error) {
		t.Fatal("dial should not be reached with an empty track set")
		return nil, nil
	}, 8)

	eng.Handle(context.Background(), MuxerSendIniMessage{
		Config: MuxerSenderConfig{URLHostPort: "localhost:4433"},
	})

	ev := <-eng.Events()
	ee, ok := ev.(ErrorEvent)
	if !ok || !errors.Is(ee.Err, ErrConfig) {
		t.Errorf("got %#v, want ErrorEvent wrapping ErrConfig", ev)
	}
}

func TestEngineIgnoresMessagesAfterStop(t *testing.T) {
	control, _ := newFakeStreamPair()
	conn := newFakeSession(control)

	events := make(chan Event, 16)
	audio := &Track{Kind: "audio", Namespace: "ns", Name: "audio", AuthInfo: "x", MaxInFlight: 4}
	pub, err := NewPublisherEngine(conn, []*Track{audio}, events)
	if err != nil {
		t.Fatalf("NewPublisherEngine() error = %v", err)
	}
	if err := pub.session.Instantiate(); err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	if err := pub.session.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	eng := NewEngine(nil, 16)
	eng.events = events
	eng.pub = pub

	eng.Handle(context.Background(), StopMessage{})
	if got := <-events; got != (InfoEvent{Message: "stopped"}) {
		t.Fatalf("Stop: got %#v, want info stopped", got)
	}

	// Every later message, chunk or otherwise, only reports stopped.
	eng.Handle(context.Background(), ChunkMessage{Track: "audio", Chunk: ChunkSource{Type: "key"}})
	if got := <-events; got != (InfoEvent{Message: "stopped"}) {
		t.Errorf("chunk after stop: got %#v, want info stopped", got)
	}
	eng.Handle(context.Background(), StopMessage{})
	if got := <-events; got != (InfoEvent{Message: "stopped"}) {
		t.Errorf("stop after stop: got %#v, want info stopped", got)
	}
}
