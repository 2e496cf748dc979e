// SPDX-License-Identifier: MIT
/*
Package transport streams spectral rows to external consumers. Two carriers
are provided: a WebSocket hub that broadcasts rows as JSON, and a UDP
publisher (see the udp subpackage) that packs rows into a compact binary
format. Both are fed by a RowPublisher that polls a display consumer at a
fixed interval, well away from any real-time path.
*/
package transport

// Transport defines a generic interface for sending spectral data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}
