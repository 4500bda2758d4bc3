// Package transport provides a WebTransport-over-QUIC abstraction for the
// moqt engine.
//
// The engine never talks to quic-go or webtransport-go directly; it is
// handed an already-established Session so that certificate pinning and
// connection bootstrapping stay outside the protocol core.
package transport
