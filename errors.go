package moqt

// Typed errors for the session, handshake, and delivery paths. The
// ConfigError, HandshakeError, ProtocolError, and AuthError kinds are
// small structs carrying a discriminant code and a reason string;
// BackpressureDrop and TransportClosed carry their context fields
// instead. Package-level sentinels cover the common causes so callers
// can branch with errors.Is.

// ConfigErrorCode discriminates ConfigError causes.
type ConfigErrorCode byte

const (
	configInvalidField ConfigErrorCode = iota
	configUnknownTrack
)

// ConfigError reports a malformed host configuration or chunk-ingress
// message: missing fields, unknown track references, malformed host
// messages.
type ConfigError struct {
	code   ConfigErrorCode
	reason string
}

func (e ConfigError) Error() string         { return e.reason }
func (e ConfigError) Code() ConfigErrorCode { return e.code }

// ErrConfig is the sentinel wrapped by field-validation errors so callers
// can use errors.Is(err, ErrConfig).
var ErrConfig = ConfigError{code: configInvalidField, reason: "invalid configuration"}

// ErrUnknownTrack is returned when a chunk-ingress message names a track
// that was never configured.
var ErrUnknownTrack = ConfigError{code: configUnknownTrack, reason: "unknown track"}

// HandshakeErrorCode discriminates HandshakeError causes.
type HandshakeErrorCode byte

const (
	handshakeVersionMismatch HandshakeErrorCode = iota
	handshakeRoleMismatch
	handshakeAnnounceMismatch
	handshakeSubscribeMismatch
	handshakeTimeout
)

// HandshakeError reports a SETUP/ANNOUNCE/SUBSCRIBE exchange that could
// not complete: an incompatible peer role, a reply naming a different
// namespace or track than was sent, or a timeout.
type HandshakeError struct {
	code   HandshakeErrorCode
	reason string
}

func (e HandshakeError) Error() string            { return e.reason }
func (e HandshakeError) Code() HandshakeErrorCode { return e.code }

var (
	ErrVersionMismatch   = HandshakeError{code: handshakeVersionMismatch, reason: "version mismatch"}
	ErrRoleMismatch      = HandshakeError{code: handshakeRoleMismatch, reason: "role mismatch"}
	ErrAnnounceMismatch  = HandshakeError{code: handshakeAnnounceMismatch, reason: "ANNOUNCE_OK namespace mismatch"}
	ErrSubscribeMismatch = HandshakeError{code: handshakeSubscribeMismatch, reason: "SUBSCRIBE_RESPONSE identity mismatch"}
	ErrHandshakeTimeout  = HandshakeError{code: handshakeTimeout, reason: "handshake timeout"}
)

// ProtocolErrorCode discriminates ProtocolError causes.
type ProtocolErrorCode byte

const (
	protocolUnknownTag ProtocolErrorCode = iota
	protocolMalformedMessage
	protocolDeltaBeforeKey
)

// ProtocolError reports a wire-level violation: an unknown message tag, a
// malformed message body, or a delta object arriving before any keyframe
// established its group.
type ProtocolError struct {
	code   ProtocolErrorCode
	reason string
}

func (e ProtocolError) Error() string           { return e.reason }
func (e ProtocolError) Code() ProtocolErrorCode { return e.code }

var (
	ErrUnknownTag       = ProtocolError{code: protocolUnknownTag, reason: "unknown message tag"}
	ErrMalformedMessage = ProtocolError{code: protocolMalformedMessage, reason: "malformed message"}
	ErrDeltaBeforeKey   = ProtocolError{code: protocolDeltaBeforeKey, reason: "delta chunk before first keyframe"}
)

// AuthErrorCode discriminates AuthError causes.
type AuthErrorCode byte

const (
	authInfoMismatch AuthErrorCode = iota
)

// AuthError reports a SUBSCRIBE_REQUEST whose authInfo did not match the
// track's configured value. It is logged and the request ignored; no
// SUBSCRIBE_ERROR goes back on the wire.
type AuthError struct {
	code      AuthErrorCode
	reason    string
	Namespace string
	TrackName string
}

func (e AuthError) Error() string       { return e.reason }
func (e AuthError) Code() AuthErrorCode { return e.code }

// NewAuthError builds an AuthError for the given track identity.
func NewAuthError(namespace, trackName string) AuthError {
	return AuthError{
		code:      authInfoMismatch,
		reason:    "authInfo mismatch",
		Namespace: namespace,
		TrackName: trackName,
	}
}

// BackpressureDrop reports that a chunk was dropped because a track's
// in-flight set was already at MaxInFlight.
type BackpressureDrop struct {
	Namespace string
	TrackName string
	DroppedAt int64 // seqId of the object that was dropped
}

func (e BackpressureDrop) Error() string {
	return "in-flight bound exceeded, dropped object"
}

// TransportClosed wraps the transport-level error observed when a
// session, stream, or connection closes, whether cleanly or not.
type TransportClosed struct {
	Reason string
	Err    error
}

func (e TransportClosed) Error() string { return e.Reason }
func (e TransportClosed) Unwrap() error { return e.Err }
