package transport

import (
	"context"
	"io"
	"time"
)

// StreamErrorCode identifies a stream-level application error, mirrored
// from the underlying WebTransport/QUIC implementation.
type StreamErrorCode uint64

// SessionErrorCode identifies a session-level application error.
type SessionErrorCode uint64

// StreamID uniquely identifies a stream within a Session.
type StreamID int64

// Session is the WebTransport-equivalent session handed to the engine.
// It abstracts github.com/quic-go/webtransport-go so the engine can be
// exercised against a fake in tests. Dialing is synchronous, so a
// Session is ready by construction; Closed signals termination.
type Session interface {
	// OpenStreamSync opens the bidirectional control stream, blocking
	// until the peer is ready to accept it.
	OpenStreamSync(ctx context.Context) (Stream, error)

	// AcceptStream accepts the peer's bidirectional control stream.
	AcceptStream(ctx context.Context) (Stream, error)

	// OpenUniStreamSync opens a unidirectional object stream, blocking
	// until the session's flow control admits it.
	OpenUniStreamSync(ctx context.Context) (SendStream, error)

	// AcceptUniStream accepts the next incoming unidirectional object
	// stream.
	AcceptUniStream(ctx context.Context) (ReceiveStream, error)

	// Closed resolves once the session has terminated, local or remote.
	Closed() <-chan struct{}

	// CloseWithError tears down the session with an application error
	// code and a human-readable reason.
	CloseWithError(code SessionErrorCode, reason string) error
}

// Stream is a bidirectional stream, used only for the control stream.
type Stream interface {
	SendStream
	ReceiveStream
}

// SendStream is a unidirectional stream for sending object bytes.
type SendStream interface {
	io.Writer
	io.Closer

	StreamID() StreamID

	// SetPriority sets the transport scheduler's sendOrder hint for this
	// stream. Higher values win.
	SetPriority(sendOrder int64)

	CancelWrite(StreamErrorCode)
	SetWriteDeadline(time.Time) error
}

// ReceiveStream is a unidirectional stream for receiving object bytes.
type ReceiveStream interface {
	io.Reader

	StreamID() StreamID

	CancelRead(StreamErrorCode)
	SetReadDeadline(time.Time) error
}
