package moqt

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/mtstreamer/moqtcore/internal/wire"
	"github.com/mtstreamer/moqtcore/transport"
)

func newRunningPublisherEngine(t *testing.T, tracks []*Track, conn transport.Session) (*PublisherEngine, chan Event) {
	t.Helper()
	events := make(chan Event, 64)
	pub, err := NewPublisherEngine(conn, tracks, events)
	if err != nil {
		t.Fatalf("NewPublisherEngine() error = %v", err)
	}
	if err := pub.session.Instantiate(); err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	if err := pub.session.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, tr := range tracks {
		tr.NumSubscribers = 1
	}
	return pub, events
}

func drainHeaders(t *testing.T, conn *fakeSession, n int) []wire.ObjectHeader {
	t.Helper()
	headers := make([]wire.ObjectHeader, 0, n)
	for i := 0; i < n; i++ {
		st := <-conn.uniOpened
		r := wire.NewReader(st)
		var h wire.ObjectHeader
		if err := h.Decode(r); err != nil {
			t.Fatalf("ObjectHeader.Decode() error = %v", err)
		}
		headers = append(headers, h)
	}
	return headers
}

func TestPublisherEngineGroupObjectSequencing(t *testing.T) {
	audio := &Track{Kind: "audio", Namespace: "ns", Name: "audio", AuthInfo: "x", ID: 0, IsHipri: true, MaxInFlight: 100}
	video := &Track{Kind: "video", Namespace: "ns", Name: "video", AuthInfo: "x", ID: 1, IsHipri: false, MaxInFlight: 100}

	control, _ := newFakeStreamPair()
	conn := newFakeSession(control)
	pub, events := newRunningPublisherEngine(t, []*Track{audio, video}, conn)

	pub.SendChunk(ChunkMessage{Track: "audio", SeqID: 0, Chunk: ChunkSource{Type: "key"}})
	pub.SendChunk(ChunkMessage{Track: "video", SeqID: 0, Chunk: ChunkSource{Type: "key"}})
	pub.SendChunk(ChunkMessage{Track: "audio", SeqID: 1, Chunk: ChunkSource{Type: "delta"}})
	pub.SendChunk(ChunkMessage{Track: "video", SeqID: 1, Chunk: ChunkSource{Type: "delta"}})

	headers := drainHeaders(t, conn, 4)

	byTrack := map[uint64][]wire.ObjectHeader{}
	for _, h := range headers {
		byTrack[h.TrackID] = append(byTrack[h.TrackID], h)
	}
	for _, trackID := range []uint64{audio.ID, video.ID} {
		hs := byTrack[trackID]
		if len(hs) != 2 {
			t.Fatalf("track %d: got %d objects, want 2", trackID, len(hs))
		}
		// Each dispatch runs in its own goroutine, so streams may open
		// out of arrival order even within one track; sort by
		// ObjectSequence.
		if hs[0].ObjectSequence > hs[1].ObjectSequence {
			hs[0], hs[1] = hs[1], hs[0]
		}
		if hs[0].GroupSequence != 1 || hs[0].ObjectSequence != 0 {
			t.Errorf("track %d first object = (group=%d,obj=%d), want (1,0)", trackID, hs[0].GroupSequence, hs[0].ObjectSequence)
		}
		if hs[1].GroupSequence != 1 || hs[1].ObjectSequence != 1 {
			t.Errorf("track %d second object = (group=%d,obj=%d), want (1,1)", trackID, hs[1].GroupSequence, hs[1].ObjectSequence)
		}
	}

	select {
	case ev := <-events:
		t.Errorf("unexpected event during clean dispatch: %#v", ev)
	default:
	}
}

func TestPublisherEngineDeltaBeforeKeyRejected(t *testing.T) {
	audio := &Track{Kind: "audio", Namespace: "ns", Name: "audio", AuthInfo: "x", IsHipri: true, MaxInFlight: 10}
	control, _ := newFakeStreamPair()
	conn := newFakeSession(control)
	pub, events := newRunningPublisherEngine(t, []*Track{audio}, conn)

	pub.SendChunk(ChunkMessage{Track: "audio", SeqID: 0, Chunk: ChunkSource{Type: "delta"}})

	ev := <-events
	drop, ok := ev.(DroppedEvent)
	if !ok || drop.Reason != "first object must be key" {
		t.Errorf("got %#v, want DroppedEvent{Reason: \"first object must be key\"}", ev)
	}
	if !errors.Is(drop.Err, ErrDeltaBeforeKey) {
		t.Errorf("drop.Err = %v, want ErrDeltaBeforeKey", drop.Err)
	}
}

func TestPublisherEngineSubscribeAuthGate(t *testing.T) {
	audio := &Track{Kind: "audio", Namespace: "ns", Name: "audio", AuthInfo: "secret", ID: 3, MaxInFlight: 10}
	control, _ := newFakeStreamPair()
	conn := newFakeSession(control)
	pub, events := newRunningPublisherEngine(t, []*Track{audio}, conn)
	audio.NumSubscribers = 0

	t.Run("wrong authInfo is ignored", func(t *testing.T) {
		req := wire.SubscribeRequestMessage{Namespace: "ns", TrackName: "audio", Parameters: wire.Parameters{}}
		req.Parameters.AddAuthInfo("wrong")

		var reply bytes.Buffer
		pub.HandleSubscribeRequest(req, &reply)

		if audio.NumSubscribers != 0 {
			t.Errorf("NumSubscribers = %d, want 0", audio.NumSubscribers)
		}
		if reply.Len() != 0 {
			t.Errorf("reply has %d bytes, want none", reply.Len())
		}
		ev := <-events
		ee, ok := ev.(ErrorEvent)
		if !ok {
			t.Fatalf("got %#v, want ErrorEvent", ev)
		}
		var authErr AuthError
		if !errors.As(ee.Err, &authErr) {
			t.Errorf("got error %v, want AuthError", ee.Err)
		}
	})

	t.Run("matching authInfo subscribes and replies", func(t *testing.T) {
		req := wire.SubscribeRequestMessage{Namespace: "ns", TrackName: "audio", Parameters: wire.Parameters{}}
		req.Parameters.AddAuthInfo("secret")

		var reply bytes.Buffer
		pub.HandleSubscribeRequest(req, &reply)

		if audio.NumSubscribers != 1 {
			t.Errorf("NumSubscribers = %d, want 1", audio.NumSubscribers)
		}

		r := wire.NewReader(&reply)
		tag, err := wire.ReadTag(r)
		if err != nil || tag != wire.TagSubscribeResponse {
			t.Fatalf("ReadTag() = %#x, %v, want SUBSCRIBE_RESPONSE", tag, err)
		}
		var resp wire.SubscribeResponseMessage
		if err := resp.Decode(r); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if resp.TrackID != audio.ID || resp.Expires != 0 {
			t.Errorf("got trackId=%d expires=%d, want trackId=%d expires=0", resp.TrackID, resp.Expires, audio.ID)
		}
	})
}

func TestPublisherEngineInFlightBound(t *testing.T) {
	audio := &Track{Kind: "audio", Namespace: "ns", Name: "audio", AuthInfo: "x", IsHipri: true, MaxInFlight: 2}
	control, _ := newFakeStreamPair()
	conn := &blockingFakeSession{fakeSession: newFakeSession(control)}
	pub, events := newRunningPublisherEngine(t, []*Track{audio}, conn)

	for i := 0; i < 5; i++ {
		pub.SendChunk(ChunkMessage{Track: "audio", SeqID: int64(i), Chunk: ChunkSource{Type: "key"}})
	}

	dropped := 0
	for i := 0; i < 3; i++ {
		ev := <-events
		d, ok := ev.(DroppedEvent)
		if !ok || d.Reason != "too many inflight" {
			continue
		}
		var bp BackpressureDrop
		if !errors.As(d.Err, &bp) || bp.TrackName != "audio" {
			t.Errorf("drop.Err = %v, want BackpressureDrop for audio", d.Err)
		}
		dropped++
	}
	if dropped != 3 {
		t.Errorf("got %d drops, want 3", dropped)
	}
}

func TestPublisherEngineStopAbortsPendingDispatches(t *testing.T) {
	audio := &Track{Kind: "audio", Namespace: "ns", Name: "audio", AuthInfo: "x", IsHipri: true, MaxInFlight: 4}
	control, _ := newFakeStreamPair()
	conn := &blockingFakeSession{fakeSession: newFakeSession(control)}
	pub, events := newRunningPublisherEngine(t, []*Track{audio}, conn)

	// All three dispatches wedge in OpenUniStreamSync and never settle
	// on their own.
	for i := 0; i < 3; i++ {
		pub.SendChunk(ChunkMessage{Track: "audio", SeqID: int64(i), Chunk: ChunkSource{Type: "key"}})
	}

	done := make(chan struct{})
	go func() {
		pub.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return; pending dispatches were not aborted")
	}

	select {
	case <-conn.closed:
	default:
		t.Error("transport not closed after Stop")
	}

	// The aborted dispatches surface as dropped events, then the final
	// info event reports the stop.
	var sawStopped bool
	for len(events) > 0 {
		if ev, ok := (<-events).(InfoEvent); ok && ev.Message == "stopped" {
			sawStopped = true
		}
	}
	if !sawStopped {
		t.Error("no info stopped event after Stop")
	}
}
