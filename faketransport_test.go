package moqt

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/mtstreamer/moqtcore/transport"
)

// fakeStream is an in-memory transport.Stream/SendStream/ReceiveStream
// backed by an io.Pipe pair, enough to drive the session handshake and
// object dispatch without a real QUIC connection.
type fakeStream struct {
	r        *io.PipeReader
	w        *io.PipeWriter
	priority int64
}

func newFakeStreamPair() (*fakeStream, *fakeStream) {
	ar, aw := io.Pipe()
	br, bw := io.Pipe()
	return &fakeStream{r: ar, w: bw}, &fakeStream{r: br, w: aw}
}

func (s *fakeStream) Read(b []byte) (int, error)  { return s.r.Read(b) }
func (s *fakeStream) Write(b []byte) (int, error) { return s.w.Write(b) }
func (s *fakeStream) Close() error                { return s.w.Close() }

func (s *fakeStream) StreamID() transport.StreamID { return 0 }
func (s *fakeStream) SetPriority(p int64)          { s.priority = p }

func (s *fakeStream) CancelWrite(transport.StreamErrorCode) {}
func (s *fakeStream) CancelRead(transport.StreamErrorCode)  {}

func (s *fakeStream) SetWriteDeadline(time.Time) error { return nil }
func (s *fakeStream) SetReadDeadline(time.Time) error  { return nil }

// fakeSession implements transport.Session with a fixed control stream
// and a channel of pre-opened uni streams, enough to exercise both
// engines end to end in-process.
type fakeSession struct {
	mu        sync.Mutex
	control   *fakeStream
	uniOpened chan *fakeStream
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeSession(control *fakeStream) *fakeSession {
	return &fakeSession{
		control:   control,
		uniOpened: make(chan *fakeStream, 64),
		closed:    make(chan struct{}),
	}
}

func (s *fakeSession) OpenStreamSync(ctx context.Context) (transport.Stream, error) {
	return s.control, nil
}

func (s *fakeSession) AcceptStream(ctx context.Context) (transport.Stream, error) {
	return s.control, nil
}

func (s *fakeSession) OpenUniStreamSync(ctx context.Context) (transport.SendStream, error) {
	a, b := newFakeStreamPair()
	select {
	case s.uniOpened <- b:
	default:
	}
	return a, nil
}

func (s *fakeSession) AcceptUniStream(ctx context.Context) (transport.ReceiveStream, error) {
	select {
	case st := <-s.uniOpened:
		return st, nil
	case <-s.closed:
		return nil, errors.New("session closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSession) Closed() <-chan struct{} { return s.closed }

func (s *fakeSession) CloseWithError(code transport.SessionErrorCode, reason string) error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// blockingFakeSession never completes OpenUniStreamSync, simulating a
// dispatch whose close future never settles, so the in-flight bound can
// be observed directly.
type blockingFakeSession struct {
	*fakeSession
}

func (s *blockingFakeSession) OpenUniStreamSync(ctx context.Context) (transport.SendStream, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
