// Package webtransportgo adapts github.com/quic-go/webtransport-go to the
// transport.Session/Stream interfaces consumed by the moqt engine.
package webtransportgo

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/quic-go/webtransport-go"

	"github.com/mtstreamer/moqtcore/transport"
)

// Dial opens a WebTransport session to addr, verifying the server
// certificate against the pinned fingerprint baked into tlsConfig by the
// caller (see transport.FetchFingerprint). It blocks until the session
// is established, so the returned Session is ready for use.
func Dial(ctx context.Context, addr string, header http.Header, tlsConfig *tls.Config) (*http.Response, transport.Session, error) {
	d := webtransport.Dialer{
		TLSClientConfig: tlsConfig,
	}

	rsp, sess, err := d.Dial(ctx, addr, header)
	if err != nil {
		return rsp, nil, err
	}

	return rsp, wrapSession(sess), nil
}

// Upgrade promotes an incoming HTTP request to a WebTransport session,
// used by the publisher side when it runs as the server endpoint.
func Upgrade(s *webtransport.Server, w http.ResponseWriter, r *http.Request) (transport.Session, error) {
	sess, err := s.Upgrade(w, r)
	if err != nil {
		return nil, err
	}
	return wrapSession(sess), nil
}

func wrapSession(sess *webtransport.Session) transport.Session {
	return &sessionWrapper{sess: sess}
}

type sessionWrapper struct {
	sess *webtransport.Session
}

func (w *sessionWrapper) OpenStreamSync(ctx context.Context) (transport.Stream, error) {
	stream, err := w.sess.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &streamWrapper{stream: stream}, nil
}

func (w *sessionWrapper) AcceptStream(ctx context.Context) (transport.Stream, error) {
	stream, err := w.sess.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return &streamWrapper{stream: stream}, nil
}

func (w *sessionWrapper) OpenUniStreamSync(ctx context.Context) (transport.SendStream, error) {
	stream, err := w.sess.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &sendStreamWrapper{stream: stream}, nil
}

func (w *sessionWrapper) AcceptUniStream(ctx context.Context) (transport.ReceiveStream, error) {
	stream, err := w.sess.AcceptUniStream(ctx)
	if err != nil {
		return nil, err
	}
	return &receiveStreamWrapper{stream: stream}, nil
}

func (w *sessionWrapper) Closed() <-chan struct{} {
	return w.sess.Context().Done()
}

func (w *sessionWrapper) CloseWithError(code transport.SessionErrorCode, reason string) error {
	return w.sess.CloseWithError(webtransport.SessionErrorCode(code), reason)
}
