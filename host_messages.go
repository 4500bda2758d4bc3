package moqt

// HostMessage is the tagged union of messages the host sends into the
// engine. Each concrete type below is one variant; the per-track chunk
// ingress messages collapse into the single ChunkMessage variant, with
// TrackKind validated against the configured track map.
type HostMessage interface {
	hostMessageTag()
}

// TrackConfig is one entry of the moqTracks mapping the host supplies at
// init: trackKind → descriptor. ID is optional on input; the publisher
// assigns/echoes it, the subscriber overwrites it from the handshake
// response.
type TrackConfig struct {
	Kind                TrackKind
	ID                  uint64
	Namespace           string
	Name                string
	AuthInfo            string
	IsHipri             bool
	MaxInFlightRequests uint32
}

// MuxerSenderConfig configures a publisher init message.
type MuxerSenderConfig struct {
	URLHostPort    string
	IsSendingStats bool
	MOQTracks      []TrackConfig
}

// MuxerSendIniMessage is the publisher-side init message ("muxersendini").
// Legal only before a session has started; the Engine reports a later
// init message as a ConfigError.
type MuxerSendIniMessage struct {
	Config MuxerSenderConfig
}

func (MuxerSendIniMessage) hostMessageTag() {}

// DownloaderConfig configures a subscriber init message.
type DownloaderConfig struct {
	URLHostPort    string
	URLPath        string
	IsSendingStats bool
	MOQTracks      []TrackConfig
}

// DownloaderSendIniMessage is the subscriber-side init message
// ("downloadersendini").
type DownloaderSendIniMessage struct {
	Config DownloaderConfig
}

func (DownloaderSendIniMessage) hostMessageTag() {}

// StopMessage requests graceful shutdown.
type StopMessage struct{}

func (StopMessage) hostMessageTag() {}

// ChunkSource is the encoded-chunk payload carried by a ChunkMessage,
// mirroring the host's `chunk: {byteLength, type, timestamp, duration}`
// shape.
type ChunkSource struct {
	ByteLength int
	Type       string // "key" or "delta"
	Timestamp  int64
	Duration   uint32
	Bytes      []byte
}

// ChunkMessage is publisher chunk ingress, addressed to a configured
// track by TrackKind.
type ChunkMessage struct {
	Track           TrackKind
	SeqID           int64
	FirstFrameClkms int64
	CompensatedTs   int64

	// PID correlates this chunk through the in-flight set and logs.
	// Hosts that do not assign one get a generated identifier.
	PID string

	// EstimatedDuration falls back to Chunk.Duration when unset by the
	// host; callers relying on the fallback must ensure Chunk.Duration
	// is present.
	EstimatedDuration uint32

	Chunk    ChunkSource
	Metadata []byte
}

func (ChunkMessage) hostMessageTag() {}

// Duration resolves EstimatedDuration, falling back to the embedded
// chunk's own duration field.
func (m ChunkMessage) Duration() uint32 {
	if m.EstimatedDuration != 0 {
		return m.EstimatedDuration
	}
	return m.Chunk.Duration
}

// IsKey reports whether this chunk starts a new group.
func (m ChunkMessage) IsKey() bool {
	return m.Chunk.Type == "key"
}
