package moqt

import "fmt"

// TrackKind names a configured track by its host-message key ("audio",
// "video", or a data-track name). It doubles as the map key the host uses
// to address chunk-ingress messages at a specific track.
type TrackKind string

// Kind classifies how a track's objects are packaged.
type Kind byte

const (
	KindAudio Kind = iota
	KindVideo
	KindData
)

// Track describes one named object stream: identified by (namespace,
// name), carrying the fields either peer needs to run the handshake and,
// on the publisher side, to bound and account for in-flight objects.
type Track struct {
	Kind TrackKind

	Namespace string
	Name      string

	// ID is assigned by the publisher and echoed in the
	// SUBSCRIBE_RESPONSE; both sides keep it once the handshake
	// completes.
	ID uint64

	AuthInfo string

	// IsHipri feeds the sendOrder formula: audio is typically
	// configured true, video false.
	IsHipri bool

	// MaxInFlight bounds the publisher's per-track in-flight set.
	// Unused on the subscriber side.
	MaxInFlight uint32

	// NumSubscribers counts accepted SUBSCRIBE_REQUESTs for this track.
	// Publisher-only; starts at 0.
	NumSubscribers uint32
}

// PackagingKind reports which packager a track's objects use: data tracks
// use RAW, audio/video use LOC.
func (t Track) PackagingKind() Kind {
	if t.Kind == "data" {
		return KindData
	}
	if t.Kind == "video" {
		return KindVideo
	}
	return KindAudio
}

// Validate checks a configured track: namespace, name, and authInfo
// must all be non-empty.
func (t Track) Validate() error {
	if t.Namespace == "" {
		return fmt.Errorf("%w: track %q has empty namespace", ErrConfig, t.Kind)
	}
	if t.Name == "" {
		return fmt.Errorf("%w: track %q has empty name", ErrConfig, t.Kind)
	}
	if t.AuthInfo == "" {
		return fmt.Errorf("%w: track %q has empty authInfo", ErrConfig, t.Kind)
	}
	return nil
}

// publisherTrackState is the per-track group/object sequence accounting.
// It is created lazily on the first keyframe object for a track and does
// not exist before that.
type publisherTrackState struct {
	currentGroupSeq  uint64
	currentObjectSeq uint64
}
