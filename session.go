package moqt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mtstreamer/moqtcore/internal/wire"
	"github.com/mtstreamer/moqtcore/transport"
)

// State is a position in the session lifecycle: Created → Instantiated
// → Running → Stopped. Stopped is terminal.
type State int

const (
	StateCreated State = iota
	StateInstantiated
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInstantiated:
		return "instantiated"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// protocolVersion is the single SETUP version this endpoint speaks.
const protocolVersion = uint64(1)

// setupTimeout bounds the whole SETUP/ANNOUNCE/SUBSCRIBE exchange; a
// peer that goes quiet mid-handshake fails the session rather than
// wedging it.
const setupTimeout = 10 * time.Second

// handshakeReadErr classifies a failed control-stream read during the
// handshake: a deadline hit is a handshake timeout, an unrecognized tag
// is a protocol error, anything else means the transport went away.
func handshakeReadErr(reason string, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrHandshakeTimeout
	}
	if errors.Is(err, wire.ErrUnknownTag) {
		return ErrUnknownTag
	}
	return TransportClosed{Reason: reason, Err: err}
}

// Session owns the lifecycle state and the control stream handshake.
// Exactly one Session backs a PublisherEngine or SubscriberEngine.
type Session struct {
	mu    sync.Mutex
	state State

	control transport.Stream
}

// NewSession returns a Session in StateCreated, not yet bound to a
// control stream.
func NewSession() *Session {
	return &Session{state: StateCreated}
}

// State reports the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves the session from `from` to `to`, returning false
// (without mutating state) if the session was not in `from`.
func (s *Session) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

// Instantiate records that an init message (muxersendini/
// downloadersendini) has been accepted, moving Created → Instantiated.
// It is a ConfigError for the host to send more than one init message.
func (s *Session) Instantiate() error {
	if !s.transition(StateCreated, StateInstantiated) {
		return fmt.Errorf("%w: init message received outside Created", ErrConfig)
	}
	return nil
}

// Run records that the handshake below succeeded, moving
// Instantiated → Running.
func (s *Session) Run() error {
	if !s.transition(StateInstantiated, StateRunning) {
		return fmt.Errorf("%w: session was not Instantiated", ErrConfig)
	}
	return nil
}

// Stop moves the session to the terminal Stopped state. It is
// idempotent: stopping an already-Stopped session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
}

// BindControl attaches the bidirectional control stream the handshake
// and the publisher's subscribe-accept loop run on.
func (s *Session) BindControl(stream transport.Stream) {
	s.mu.Lock()
	s.control = stream
	s.mu.Unlock()
}

// SetupAsPublisher runs the publisher side of the handshake: advertise
// ROLE=PUBLISHER, require a SUBSCRIBER-or-BOTH peer, then ANNOUNCE each
// distinct namespace among tracks.
func (s *Session) SetupAsPublisher(ctx context.Context, tracks []*Track) error {
	r := wire.NewReader(s.control)
	_ = s.control.SetReadDeadline(time.Now().Add(setupTimeout))
	defer s.control.SetReadDeadline(time.Time{})

	setup := wire.SetupMessage{Version: protocolVersion, Parameters: wire.Parameters{}}
	setup.Parameters.AddRole(wire.RolePublisher)
	if err := setup.Encode(s.control); err != nil {
		return TransportClosed{Reason: "failed to send SETUP", Err: err}
	}

	tag, err := wire.ReadTag(r)
	if err != nil {
		return handshakeReadErr("failed to read SETUP_OK tag", err)
	}
	if tag != wire.TagSetupOK {
		return ErrMalformedMessage
	}
	var setupOK wire.SetupOkMessage
	if err := setupOK.Decode(r); err != nil {
		return ErrMalformedMessage
	}
	if setupOK.Version != protocolVersion {
		slog.Error("peer replied with an unsupported SETUP version",
			slog.Uint64("want", protocolVersion), slog.Uint64("got", setupOK.Version))
		return ErrVersionMismatch
	}
	peerRole, err := setupOK.Parameters.Role()
	if err != nil {
		return ErrRoleMismatch
	}
	if peerRole != wire.RoleSubscriber && peerRole != wire.RoleBoth {
		slog.Error("peer advertised an incompatible role", slog.Any("role", peerRole))
		return ErrRoleMismatch
	}

	announced := make(map[string]bool)
	for _, t := range tracks {
		if announced[t.Namespace] {
			continue
		}
		announced[t.Namespace] = true

		ann := wire.AnnounceMessage{Namespace: t.Namespace, Parameters: wire.Parameters{}}
		ann.Parameters.AddAuthInfo(t.AuthInfo)
		if err := ann.Encode(s.control); err != nil {
			return TransportClosed{Reason: "failed to send ANNOUNCE", Err: err}
		}

		tag, err := wire.ReadTag(r)
		if err != nil {
			return handshakeReadErr("failed to read ANNOUNCE_OK tag", err)
		}
		if tag != wire.TagAnnounceOK {
			return ErrMalformedMessage
		}
		var ok wire.AnnounceOkMessage
		if err := ok.Decode(r); err != nil {
			return ErrMalformedMessage
		}
		if ok.Namespace != t.Namespace {
			slog.Error("ANNOUNCE_OK namespace mismatch",
				slog.String("sent", t.Namespace), slog.String("got", ok.Namespace))
			return ErrAnnounceMismatch
		}
	}

	slog.Info("publisher handshake complete", slog.Int("namespaces", len(announced)))
	return nil
}

// SetupAsSubscriber runs the subscriber side of the handshake: advertise
// ROLE=SUBSCRIBER, require a PUBLISHER-or-BOTH peer, then
// SUBSCRIBE_REQUEST each configured track and update its ID from the
// response.
func (s *Session) SetupAsSubscriber(ctx context.Context, tracks []*Track) error {
	r := wire.NewReader(s.control)
	_ = s.control.SetReadDeadline(time.Now().Add(setupTimeout))
	defer s.control.SetReadDeadline(time.Time{})

	setup := wire.SetupMessage{Version: protocolVersion, Parameters: wire.Parameters{}}
	setup.Parameters.AddRole(wire.RoleSubscriber)
	if err := setup.Encode(s.control); err != nil {
		return TransportClosed{Reason: "failed to send SETUP", Err: err}
	}

	tag, err := wire.ReadTag(r)
	if err != nil {
		return handshakeReadErr("failed to read SETUP_OK tag", err)
	}
	if tag != wire.TagSetupOK {
		return ErrMalformedMessage
	}
	var setupOK wire.SetupOkMessage
	if err := setupOK.Decode(r); err != nil {
		return ErrMalformedMessage
	}
	if setupOK.Version != protocolVersion {
		slog.Error("peer replied with an unsupported SETUP version",
			slog.Uint64("want", protocolVersion), slog.Uint64("got", setupOK.Version))
		return ErrVersionMismatch
	}
	peerRole, err := setupOK.Parameters.Role()
	if err != nil {
		return ErrRoleMismatch
	}
	if peerRole != wire.RolePublisher && peerRole != wire.RoleBoth {
		slog.Error("peer advertised an incompatible role", slog.Any("role", peerRole))
		return ErrRoleMismatch
	}

	for _, t := range tracks {
		req := wire.SubscribeRequestMessage{Namespace: t.Namespace, TrackName: t.Name, Parameters: wire.Parameters{}}
		req.Parameters.AddAuthInfo(t.AuthInfo)
		if err := req.Encode(s.control); err != nil {
			return TransportClosed{Reason: "failed to send SUBSCRIBE_REQUEST", Err: err}
		}

		tag, err := wire.ReadTag(r)
		if err != nil {
			return handshakeReadErr("failed to read SUBSCRIBE_RESPONSE tag", err)
		}
		if tag != wire.TagSubscribeResponse {
			return ErrMalformedMessage
		}
		var resp wire.SubscribeResponseMessage
		if err := resp.Decode(r); err != nil {
			return ErrMalformedMessage
		}
		if resp.Namespace != t.Namespace || resp.TrackName != t.Name {
			slog.Error("SUBSCRIBE_RESPONSE identity mismatch",
				slog.String("wantNamespace", t.Namespace), slog.String("gotNamespace", resp.Namespace),
				slog.String("wantName", t.Name), slog.String("gotName", resp.TrackName))
			return ErrSubscribeMismatch
		}
		t.ID = resp.TrackID
	}

	slog.Info("subscriber handshake complete", slog.Int("tracks", len(tracks)))
	return nil
}
