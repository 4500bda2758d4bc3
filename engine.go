package moqt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mtstreamer/moqtcore/internal/wire"
	"github.com/mtstreamer/moqtcore/transport"
)

// Dialer opens the transport session for a given host message's
// urlHostPort. The engine never constructs a transport itself; TLS
// provisioning and fingerprint pinning live entirely outside this
// package (see transport.FetchFingerprint/PinnedTLSConfig).
type Dialer func(ctx context.Context, urlHostPort string) (transport.Session, error)

// Engine turns HostMessages into Session/PublisherEngine/
// SubscriberEngine lifecycle calls and owns the host-bound event
// channel. It is the single mutable aggregate the message-handling task
// holds; nothing else touches the track maps or the transport.
type Engine struct {
	dial   Dialer
	events chan Event

	mu  sync.Mutex
	pub *PublisherEngine
	sub *SubscriberEngine
}

// NewEngine returns an Engine with the given event channel capacity.
func NewEngine(dial Dialer, eventBuffer int) *Engine {
	return &Engine{
		dial:   dial,
		events: make(chan Event, eventBuffer),
	}
}

// Events returns the host-bound event channel.
func (e *Engine) Events() <-chan Event {
	return e.events
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		slog.Warn("event channel full, dropping event", slog.Any("event", ev))
	}
}

func buildTracks(cfgs []TrackConfig) []*Track {
	tracks := make([]*Track, 0, len(cfgs))
	for _, c := range cfgs {
		tracks = append(tracks, &Track{
			Kind:        c.Kind,
			Namespace:   c.Namespace,
			Name:        c.Name,
			ID:          c.ID,
			AuthInfo:    c.AuthInfo,
			IsHipri:     c.IsHipri,
			MaxInFlight: c.MaxInFlightRequests,
		})
	}
	return tracks
}

func validateMOQTracks(cfgs []TrackConfig) error {
	if len(cfgs) == 0 {
		return fmt.Errorf("%w: moqTracks must not be empty", ErrConfig)
	}
	for _, c := range cfgs {
		if c.Namespace == "" || c.Name == "" || c.AuthInfo == "" {
			return fmt.Errorf("%w: track %q missing namespace/name/authInfo", ErrConfig, c.Kind)
		}
	}
	return nil
}

// Handle dispatches one HostMessage. Messages received after the session
// reached Stopped are ignored with an info event.
func (e *Engine) Handle(ctx context.Context, msg HostMessage) {
	e.mu.Lock()
	stopped := (e.pub != nil && e.pub.session.State() == StateStopped) ||
		(e.sub != nil && e.sub.session.State() == StateStopped)
	initialized := e.pub != nil || e.sub != nil
	e.mu.Unlock()
	if stopped {
		e.emit(InfoEvent{Message: "stopped"})
		return
	}

	switch m := msg.(type) {
	case MuxerSendIniMessage, DownloaderSendIniMessage:
		if initialized {
			e.emit(ErrorEvent{Err: fmt.Errorf("%w: init message received after a session started", ErrConfig)})
			return
		}
		if mux, ok := m.(MuxerSendIniMessage); ok {
			e.handleMuxerSendIni(ctx, mux)
		} else {
			e.handleDownloaderSendIni(ctx, m.(DownloaderSendIniMessage))
		}
	case StopMessage:
		e.handleStop()
	case ChunkMessage:
		e.handleChunk(m)
	default:
		e.emit(ErrorEvent{Err: fmt.Errorf("%w: unrecognized host message", ErrConfig)})
	}
}

func (e *Engine) handleMuxerSendIni(ctx context.Context, m MuxerSendIniMessage) {
	if err := validateMOQTracks(m.Config.MOQTracks); err != nil {
		e.emit(ErrorEvent{Err: err})
		return
	}
	conn, err := e.dial(ctx, m.Config.URLHostPort)
	if err != nil {
		e.emit(ErrorEvent{Err: TransportClosed{Reason: "dial failed", Err: err}})
		return
	}

	tracks := buildTracks(m.Config.MOQTracks)
	pub, err := NewPublisherEngine(conn, tracks, e.events)
	if err != nil {
		e.emit(ErrorEvent{Err: err})
		return
	}
	pub.sendStats = m.Config.IsSendingStats
	if err := pub.Start(tracks); err != nil {
		e.emit(ErrorEvent{Err: err})
		return
	}

	e.mu.Lock()
	e.pub = pub
	e.mu.Unlock()

	go e.acceptSubscribeRequests(pub)
}

// acceptSubscribeRequests is the publisher's continuous control-stream
// read loop. A read error while Stopped is the normal shutdown signal.
func (e *Engine) acceptSubscribeRequests(pub *PublisherEngine) {
	r := wire.NewReader(pub.session.control)
	for pub.session.State() != StateStopped {
		tag, err := wire.ReadTag(r)
		if err != nil {
			if pub.session.State() == StateStopped {
				return
			}
			e.emit(ErrorEvent{Err: TransportClosed{Reason: "control stream closed", Err: err}})
			return
		}
		if tag != wire.TagSubscribeRequest {
			e.emit(ErrorEvent{Err: ErrMalformedMessage})
			continue
		}
		var req wire.SubscribeRequestMessage
		if err := req.Decode(r); err != nil {
			e.emit(ErrorEvent{Err: ErrMalformedMessage})
			continue
		}
		pub.HandleSubscribeRequest(req, pub.session.control)
	}
}

func (e *Engine) handleDownloaderSendIni(ctx context.Context, m DownloaderSendIniMessage) {
	if err := validateMOQTracks(m.Config.MOQTracks); err != nil {
		e.emit(ErrorEvent{Err: err})
		return
	}
	conn, err := e.dial(ctx, m.Config.URLHostPort)
	if err != nil {
		e.emit(ErrorEvent{Err: TransportClosed{Reason: "dial failed", Err: err}})
		return
	}

	tracks := buildTracks(m.Config.MOQTracks)
	sub := NewSubscriberEngine(conn, tracks, e.events)
	sub.sendStats = m.Config.IsSendingStats
	if err := sub.Start(tracks); err != nil {
		e.emit(ErrorEvent{Err: err})
		return
	}

	e.mu.Lock()
	e.sub = sub
	e.mu.Unlock()

	go sub.Run(ctx)
}

func (e *Engine) handleStop() {
	e.mu.Lock()
	pub, sub := e.pub, e.sub
	e.mu.Unlock()

	if pub != nil {
		pub.Stop()
	}
	if sub != nil {
		sub.Stop()
	}
	if pub == nil && sub == nil {
		e.emit(InfoEvent{Message: "stopped"})
	}
}

func (e *Engine) handleChunk(m ChunkMessage) {
	e.mu.Lock()
	pub := e.pub
	e.mu.Unlock()
	if pub == nil {
		e.emit(ErrorEvent{Err: fmt.Errorf("%w: chunk received before muxersendini", ErrConfig)})
		return
	}
	pub.SendChunk(m)
}
