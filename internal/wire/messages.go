package wire

import (
	"errors"
	"io"
)

// MessageTag identifies a control message on the wire.
type MessageTag byte

const (
	TagSubscribeRequest  MessageTag = 0x01
	TagSubscribeResponse MessageTag = 0x02
	TagSubscribeError    MessageTag = 0x03
	TagAnnounce          MessageTag = 0x06
	TagAnnounceOK        MessageTag = 0x07
	TagSetup             MessageTag = 0x40
	TagSetupOK           MessageTag = 0x41
)

// ErrUnknownTag is returned by ReadTag when the leading byte does not
// match any known MessageTag.
var ErrUnknownTag = errors.New("wire: unknown message tag")

// ReadTag reads and validates the varint message tag that precedes
// every control message (one byte for tags below 0x40, two bytes for
// SETUP and SETUP_OK).
func ReadTag(r Reader) (MessageTag, error) {
	n, err := ReadVarint(r)
	if err != nil {
		return 0, err
	}
	switch MessageTag(n) {
	case TagSubscribeRequest, TagSubscribeResponse, TagSubscribeError,
		TagAnnounce, TagAnnounceOK, TagSetup, TagSetupOK:
		return MessageTag(n), nil
	default:
		return 0, ErrUnknownTag
	}
}

// SetupMessage is sent by both peers to open the control session and
// negotiate a role.
type SetupMessage struct {
	Version    uint64
	Parameters Parameters
}

func (m SetupMessage) Encode(w io.Writer) error {
	b := make([]byte, 0, 1<<6)
	b = AppendVarint(b, uint64(TagSetup))
	b = AppendVarint(b, m.Version)
	b = m.Parameters.Append(b)
	_, err := w.Write(b)
	return err
}

func (m *SetupMessage) Decode(r Reader) error {
	var err error
	m.Version, err = ReadVarint(r)
	if err != nil {
		return err
	}
	m.Parameters, err = ParseParameters(r)
	return err
}

// SetupOkMessage is the response to SetupMessage.
type SetupOkMessage struct {
	Version    uint64
	Parameters Parameters
}

func (m SetupOkMessage) Encode(w io.Writer) error {
	b := make([]byte, 0, 1<<6)
	b = AppendVarint(b, uint64(TagSetupOK))
	b = AppendVarint(b, m.Version)
	b = m.Parameters.Append(b)
	_, err := w.Write(b)
	return err
}

func (m *SetupOkMessage) Decode(r Reader) error {
	var err error
	m.Version, err = ReadVarint(r)
	if err != nil {
		return err
	}
	m.Parameters, err = ParseParameters(r)
	return err
}

// AnnounceMessage advertises a namespace the publisher will serve
// SUBSCRIBE_REQUESTs for.
type AnnounceMessage struct {
	Namespace  string
	Parameters Parameters
}

func (m AnnounceMessage) Encode(w io.Writer) error {
	b := make([]byte, 0, 1<<6)
	b = AppendVarint(b, uint64(TagAnnounce))
	b = AppendString(b, m.Namespace)
	b = m.Parameters.Append(b)
	_, err := w.Write(b)
	return err
}

func (m *AnnounceMessage) Decode(r Reader) error {
	var err error
	m.Namespace, err = ReadString(r)
	if err != nil {
		return err
	}
	m.Parameters, err = ParseParameters(r)
	return err
}

// AnnounceOkMessage acknowledges an AnnounceMessage for the same namespace.
type AnnounceOkMessage struct {
	Namespace string
}

func (m AnnounceOkMessage) Encode(w io.Writer) error {
	b := make([]byte, 0, 1<<5)
	b = AppendVarint(b, uint64(TagAnnounceOK))
	b = AppendString(b, m.Namespace)
	_, err := w.Write(b)
	return err
}

func (m *AnnounceOkMessage) Decode(r Reader) error {
	var err error
	m.Namespace, err = ReadString(r)
	return err
}

// SubscribeRequestMessage asks the publisher to start sending objects for
// (namespace, trackName).
type SubscribeRequestMessage struct {
	Namespace  string
	TrackName  string
	Parameters Parameters
}

func (m SubscribeRequestMessage) Encode(w io.Writer) error {
	b := make([]byte, 0, 1<<6)
	b = AppendVarint(b, uint64(TagSubscribeRequest))
	b = AppendString(b, m.Namespace)
	b = AppendString(b, m.TrackName)
	b = m.Parameters.Append(b)
	_, err := w.Write(b)
	return err
}

func (m *SubscribeRequestMessage) Decode(r Reader) error {
	var err error
	m.Namespace, err = ReadString(r)
	if err != nil {
		return err
	}
	m.TrackName, err = ReadString(r)
	if err != nil {
		return err
	}
	m.Parameters, err = ParseParameters(r)
	return err
}

// SubscribeResponseMessage is the successful reply to a
// SubscribeRequestMessage, echoing the assigned track ID.
type SubscribeResponseMessage struct {
	Namespace string
	TrackName string
	TrackID   uint64
	Expires   uint64
}

func (m SubscribeResponseMessage) Encode(w io.Writer) error {
	b := make([]byte, 0, 1<<6)
	b = AppendVarint(b, uint64(TagSubscribeResponse))
	b = AppendString(b, m.Namespace)
	b = AppendString(b, m.TrackName)
	b = AppendVarint(b, m.TrackID)
	b = AppendVarint(b, m.Expires)
	_, err := w.Write(b)
	return err
}

func (m *SubscribeResponseMessage) Decode(r Reader) error {
	var err error
	m.Namespace, err = ReadString(r)
	if err != nil {
		return err
	}
	m.TrackName, err = ReadString(r)
	if err != nil {
		return err
	}
	m.TrackID, err = ReadVarint(r)
	if err != nil {
		return err
	}
	m.Expires, err = ReadVarint(r)
	return err
}

// SubscribeErrorMessage is parsed for completeness; this endpoint never
// emits it.
type SubscribeErrorMessage struct {
	Namespace string
	TrackName string
	Code      uint64
	Reason    string
}

func (m *SubscribeErrorMessage) Decode(r Reader) error {
	var err error
	m.Namespace, err = ReadString(r)
	if err != nil {
		return err
	}
	m.TrackName, err = ReadString(r)
	if err != nil {
		return err
	}
	m.Code, err = ReadVarint(r)
	if err != nil {
		return err
	}
	m.Reason, err = ReadString(r)
	return err
}

// ObjectHeader precedes the payload on every per-object unidirectional
// stream.
type ObjectHeader struct {
	TrackID        uint64
	GroupSequence  uint64
	ObjectSequence uint64
	SendOrder      uint64
}

// Encode writes the header fields only; the caller appends the payload
// and relies on stream end to frame it (no trailing delimiter).
func (h ObjectHeader) Encode(w io.Writer) error {
	b := make([]byte, 0, 1<<5)
	b = AppendVarint(b, h.TrackID)
	b = AppendVarint(b, h.GroupSequence)
	b = AppendVarint(b, h.ObjectSequence)
	b = AppendVarint(b, h.SendOrder)
	_, err := w.Write(b)
	return err
}

func (h *ObjectHeader) Decode(r Reader) error {
	var err error
	h.TrackID, err = ReadVarint(r)
	if err != nil {
		return err
	}
	h.GroupSequence, err = ReadVarint(r)
	if err != nil {
		return err
	}
	h.ObjectSequence, err = ReadVarint(r)
	if err != nil {
		return err
	}
	h.SendOrder, err = ReadVarint(r)
	return err
}
