package moqt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mtstreamer/moqtcore/inflight"
	"github.com/mtstreamer/moqtcore/internal/wire"
	"github.com/mtstreamer/moqtcore/loc"
	"github.com/mtstreamer/moqtcore/raw"
	"github.com/mtstreamer/moqtcore/transport"
)

// maxSafeSeq is the 2^53-1 constant the send-order formula offsets
// high-priority tracks by, kept at this value for compatibility with
// peers that compute priorities in double-precision floats.
const maxSafeSeq = uint64(1<<53 - 1)

// maxVarintValue is the largest integer quicvarint's 8-byte form can
// encode (62 bits of magnitude). "Send now" priority uses this instead
// of the full uint64 range so SendOrder always survives both the wire
// encoding and the int64 cast SetPriority requires.
const maxVarintValue = uint64(1)<<62 - 1

// PublisherEngine is the sending endpoint: it accepts SUBSCRIBE_REQUESTs
// on the control stream and, for each inbound chunk, opens a prioritized
// unidirectional object stream.
type PublisherEngine struct {
	session   *Session
	conn      transport.Session
	events    chan<- Event
	sendStats bool

	// ctx is the shared abort signal for every in-flight dispatch;
	// Stop cancels it so wedged writers settle before the join.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	tracks map[TrackKind]*Track

	state    map[TrackKind]*publisherTrackState
	inFlight map[TrackKind]*inflight.Set
}

// NewPublisherEngine builds a PublisherEngine bound to an open transport
// session. events is the host-bound channel; the caller owns its
// lifetime and should not close it until after Stop returns.
func NewPublisherEngine(conn transport.Session, tracks []*Track, events chan<- Event) (*PublisherEngine, error) {
	ctx, cancel := context.WithCancel(context.Background())
	e := &PublisherEngine{
		session:  NewSession(),
		conn:     conn,
		events:   events,
		ctx:      ctx,
		cancel:   cancel,
		tracks:   make(map[TrackKind]*Track, len(tracks)),
		state:    make(map[TrackKind]*publisherTrackState, len(tracks)),
		inFlight: make(map[TrackKind]*inflight.Set, len(tracks)),
	}
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		e.tracks[t.Kind] = t
		e.inFlight[t.Kind] = inflight.NewSet(t.MaxInFlight)
	}
	return e, nil
}

// Start runs the SETUP/ANNOUNCE handshake and transitions the session to
// Running on success.
func (e *PublisherEngine) Start(trackList []*Track) error {
	if err := e.session.Instantiate(); err != nil {
		return err
	}

	control, err := e.conn.OpenStreamSync(context.Background())
	if err != nil {
		return TransportClosed{Reason: "failed to open control stream", Err: err}
	}
	e.session.BindControl(control)

	if err := e.session.SetupAsPublisher(context.Background(), trackList); err != nil {
		e.emit(ErrorEvent{Err: err})
		return err
	}
	return e.session.Run()
}

// emit is a non-blocking best-effort send: a slow or absent host should
// never stall the engine's single task.
func (e *PublisherEngine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		slog.Warn("event channel full, dropping event", slog.Any("event", ev))
	}
}

// HandleSubscribeRequest processes one SUBSCRIBE_REQUEST read off the
// control stream by the caller's accept loop.
func (e *PublisherEngine) HandleSubscribeRequest(req wire.SubscribeRequestMessage, reply io.Writer) {
	e.mu.Lock()
	var matched *Track
	for _, t := range e.tracks {
		if t.Namespace == req.Namespace && t.Name == req.TrackName {
			matched = t
			break
		}
	}
	e.mu.Unlock()

	if matched == nil {
		slog.Error("SUBSCRIBE_REQUEST for unknown track",
			slog.String("namespace", req.Namespace), slog.String("name", req.TrackName))
		e.emit(ErrorEvent{Err: ErrUnknownTrack})
		return
	}

	authInfo, _ := req.Parameters.AuthInfo()
	if authInfo != matched.AuthInfo {
		e.emit(ErrorEvent{Err: NewAuthError(req.Namespace, req.TrackName)})
		return
	}

	e.mu.Lock()
	matched.NumSubscribers++
	e.mu.Unlock()

	resp := wire.SubscribeResponseMessage{
		Namespace: req.Namespace,
		TrackName: req.TrackName,
		TrackID:   matched.ID,
		Expires:   0,
	}
	if err := resp.Encode(reply); err != nil {
		e.emit(ErrorEvent{Err: TransportClosed{Reason: "failed to send SUBSCRIBE_RESPONSE", Err: err}})
	}
}

// SendChunk runs the accept path for one inbound chunk message: gate on
// session state, track existence, subscriber count, and the in-flight
// bound, then package, sequence, and dispatch.
func (e *PublisherEngine) SendChunk(msg ChunkMessage) {
	if e.session.State() != StateRunning {
		e.emit(DroppedEvent{Track: string(msg.Track), Reason: "transport not open"})
		return
	}

	e.mu.Lock()
	track, ok := e.tracks[msg.Track]
	e.mu.Unlock()
	if !ok {
		e.emit(ErrorEvent{Err: fmt.Errorf("%w: %s", ErrUnknownTrack, msg.Track)})
		return
	}

	e.mu.Lock()
	subs := track.NumSubscribers
	e.mu.Unlock()
	if subs == 0 {
		e.emit(DroppedEvent{Track: string(msg.Track), Reason: "no subscribers"})
		return
	}

	e.mu.Lock()
	set := e.inFlight[msg.Track]
	e.mu.Unlock()
	if set.Len() >= track.MaxInFlight {
		e.emit(DroppedEvent{Track: string(msg.Track), Reason: "too many inflight",
			Err: BackpressureDrop{Namespace: track.Namespace, TrackName: track.Name, DroppedAt: msg.SeqID}})
		return
	}

	e.mu.Lock()
	st := e.state[msg.Track]
	if st == nil && !msg.IsKey() {
		e.mu.Unlock()
		e.emit(DroppedEvent{Track: string(msg.Track), Reason: "first object must be key", Err: ErrDeltaBeforeKey})
		return
	}
	if st == nil {
		st = &publisherTrackState{}
		e.state[msg.Track] = st
	}
	// Every keyframe opens a new group; the first group is 1.
	if msg.IsKey() {
		st.currentGroupSeq++
		st.currentObjectSeq = 0
	}
	groupSeq, objSeq := st.currentGroupSeq, st.currentObjectSeq
	st.currentObjectSeq++
	e.mu.Unlock()

	payload, err := packagePayload(track, msg)
	if err != nil {
		e.emit(ErrorEvent{Err: err})
		return
	}

	sendOrder := computeSendOrder(msg.SeqID, track.IsHipri)
	header := wire.ObjectHeader{
		TrackID:        track.ID,
		GroupSequence:  groupSeq,
		ObjectSequence: objSeq,
		SendOrder:      sendOrder,
	}

	pID := msg.PID
	if pID == "" {
		pID = uuid.NewString()
	}
	accepted := set.TryAdd(func() error {
		return e.dispatch(track, header, payload, pID)
	})
	if !accepted {
		e.emit(DroppedEvent{Track: string(msg.Track), Reason: "too many inflight",
			Err: BackpressureDrop{Namespace: track.Namespace, TrackName: track.Name, DroppedAt: msg.SeqID}})
		return
	}

	if e.sendStats {
		e.emit(SendStats{ClkMs: time.Now().UnixMilli(), InFlightReq: e.inFlightCounts()})
	}
}

// inFlightCounts snapshots the pending handle count of every track.
func (e *PublisherEngine) inFlightCounts() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	counts := make(map[string]int, len(e.inFlight))
	for kind, set := range e.inFlight {
		counts[string(kind)] = int(set.Len())
	}
	return counts
}

// packagePayload builds the object payload: LOC for audio/video, RAW for
// data tracks.
func packagePayload(track *Track, msg ChunkMessage) ([]byte, error) {
	var buf bytes.Buffer
	switch track.PackagingKind() {
	case KindData:
		c := raw.Chunk{
			MediaType: raw.DataMediaType,
			ChunkType: msg.Chunk.Type,
			SeqID:     msg.SeqID,
			Data:      msg.Chunk.Bytes,
		}
		if err := c.Encode(&buf); err != nil {
			return nil, err
		}
	default:
		mt := loc.MediaAudio
		if track.PackagingKind() == KindVideo {
			mt = loc.MediaVideo
		}
		ct := loc.ChunkDelta
		if msg.IsKey() {
			ct = loc.ChunkKey
		}
		c := loc.Chunk{
			MediaType:       mt,
			Timestamp:       msg.CompensatedTs,
			Duration:        msg.Duration(),
			ChunkType:       ct,
			SeqID:           msg.SeqID,
			FirstFrameClkms: msg.FirstFrameClkms,
			Metadata:        msg.Metadata,
			Data:            msg.Chunk.Bytes,
		}
		if err := c.Encode(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// computeSendOrder maps a chunk's seqId and its track's priority class to
// the transport scheduler hint. Higher wins: negative seqIds jump the
// queue entirely, high-priority tracks sit a half-range above
// low-priority ones, and within a class newer seqIds out-rank older.
func computeSendOrder(seqID int64, isHipri bool) uint64 {
	if seqID < 0 {
		return maxVarintValue
	}
	if isHipri {
		return uint64(seqID) + maxSafeSeq/2
	}
	return uint64(seqID)
}

// dispatch opens a unidirectional object stream, writes the header and
// payload, and closes it. A failure drops this object only; the session
// stays up.
func (e *PublisherEngine) dispatch(track *Track, header wire.ObjectHeader, payload []byte, pID string) error {
	stream, err := e.conn.OpenUniStreamSync(e.ctx)
	if err != nil {
		e.emit(DroppedEvent{Track: string(track.Kind), Reason: "failed to open stream"})
		return err
	}
	stream.SetPriority(int64(header.SendOrder))

	// Aborting the engine must also unwedge a blocked write, which does
	// not observe ctx on its own.
	unregister := context.AfterFunc(e.ctx, func() { stream.CancelWrite(0) })
	defer unregister()

	if err := header.Encode(stream); err != nil {
		_ = stream.Close()
		e.emit(DroppedEvent{Track: string(track.Kind), Reason: "failed to write header"})
		return err
	}
	if _, err := stream.Write(payload); err != nil {
		_ = stream.Close()
		e.emit(DroppedEvent{Track: string(track.Kind), Reason: "failed to write payload"})
		return err
	}
	if err := stream.Close(); err != nil {
		e.emit(DroppedEvent{Track: string(track.Kind), Reason: "failed to close stream"})
		return err
	}
	slog.Debug("dispatched object", slog.String("pId", pID),
		slog.Uint64("group", header.GroupSequence), slog.Uint64("object", header.ObjectSequence))
	return nil
}

// Stop transitions to Stopped, signals the shared abort to every
// in-flight dispatch, joins them all, then closes the transport. Errors
// from handles settling during the abort are expected and surface as
// dropped events, not failures.
func (e *PublisherEngine) Stop() {
	e.session.Stop()
	e.cancel()
	e.mu.Lock()
	sets := make([]*inflight.Set, 0, len(e.inFlight))
	for _, s := range e.inFlight {
		sets = append(sets, s)
	}
	e.mu.Unlock()
	for _, s := range sets {
		s.Wait()
	}
	_ = e.conn.CloseWithError(0, "stopped")
	e.emit(InfoEvent{Message: "stopped"})
}
