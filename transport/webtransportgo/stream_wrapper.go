package webtransportgo

import (
	"time"

	"github.com/quic-go/webtransport-go"

	"github.com/mtstreamer/moqtcore/transport"
)

type streamWrapper struct {
	stream webtransport.Stream

	// sendOrder holds the scheduler hint for this stream.
	// webtransport-go does not expose quic-go's stream scheduler, so
	// the hint is recorded here; the object header carries it to the
	// peer regardless.
	sendOrder int64
}

func (w *streamWrapper) StreamID() transport.StreamID {
	return transport.StreamID(w.stream.StreamID())
}

func (w *streamWrapper) Read(b []byte) (int, error)  { return w.stream.Read(b) }
func (w *streamWrapper) Write(b []byte) (int, error) { return w.stream.Write(b) }
func (w *streamWrapper) Close() error                { return w.stream.Close() }

func (w *streamWrapper) SetPriority(sendOrder int64) {
	w.sendOrder = sendOrder
}

func (w *streamWrapper) CancelRead(code transport.StreamErrorCode) {
	w.stream.CancelRead(webtransport.StreamErrorCode(code))
}

func (w *streamWrapper) CancelWrite(code transport.StreamErrorCode) {
	w.stream.CancelWrite(webtransport.StreamErrorCode(code))
}

func (w *streamWrapper) SetReadDeadline(t time.Time) error  { return w.stream.SetReadDeadline(t) }
func (w *streamWrapper) SetWriteDeadline(t time.Time) error { return w.stream.SetWriteDeadline(t) }

type sendStreamWrapper struct {
	stream    webtransport.SendStream
	sendOrder int64
}

func (w *sendStreamWrapper) StreamID() transport.StreamID {
	return transport.StreamID(w.stream.StreamID())
}

func (w *sendStreamWrapper) Write(b []byte) (int, error) { return w.stream.Write(b) }
func (w *sendStreamWrapper) Close() error                { return w.stream.Close() }

func (w *sendStreamWrapper) SetPriority(sendOrder int64) {
	w.sendOrder = sendOrder
}

func (w *sendStreamWrapper) CancelWrite(code transport.StreamErrorCode) {
	w.stream.CancelWrite(webtransport.StreamErrorCode(code))
}

func (w *sendStreamWrapper) SetWriteDeadline(t time.Time) error {
	return w.stream.SetWriteDeadline(t)
}

type receiveStreamWrapper struct {
	stream webtransport.ReceiveStream
}

func (w *receiveStreamWrapper) StreamID() transport.StreamID {
	return transport.StreamID(w.stream.StreamID())
}

func (w *receiveStreamWrapper) Read(b []byte) (int, error) { return w.stream.Read(b) }

func (w *receiveStreamWrapper) CancelRead(code transport.StreamErrorCode) {
	w.stream.CancelRead(webtransport.StreamErrorCode(code))
}

func (w *receiveStreamWrapper) SetReadDeadline(t time.Time) error {
	return w.stream.SetReadDeadline(t)
}
