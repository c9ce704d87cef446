/*
@Description: Capability interfaces fragmentos exposes to its embedder
*/

package fragmentos

// Length is satisfied by anything traversing the rate shaper. For
// datagram tuples it is the payload size in bytes, not the wire size of
// any outer framing the embedder adds.
type Length interface {
	Len() int
}

// Datagram pairs a wire payload with an opaque destination/source
// address. The address is never interpreted by the core.
type Datagram struct {
	Payload []byte
	Addr    any
}

// Len implements Length, so a Datagram can be pushed through the shaper
// directly.
func (d Datagram) Len() int {
	return len(d.Payload)
}

// DatagramSource is the input port: a pull-based source of inbound
// datagrams. A zero-value, nil-error return with ready=false means "no
// datagram ready right now, try again later" (the equivalent of a
// future that is not yet ready); ready=false with a non-nil error means
// the source failed; ready=false with err=nil and closed=true means the
// source is exhausted.
type DatagramSource interface {
	// Recv returns the next available datagram. ready is false if none
	// is currently available. closed is true once the source will never
	// produce another datagram.
	Recv() (dgram Datagram, ready bool, closed bool, err error)
}

// DatagramSink is the output port: a push-based, backpressure-aware
// sink for outbound datagrams.
type DatagramSink interface {
	// TrySend attempts to forward one item. accepted is false when the
	// sink applies backpressure; the caller must retry the same item
	// later without reordering anything behind it.
	TrySend(item Length) (accepted bool, err error)
}

// TimeSource is the time port: a pull-based source of tick events, each
// one equal to exactly one time_tick call on whatever owns it.
type TimeSource interface {
	// Tick returns true if a tick is available right now.
	Tick() (ready bool, closed bool)
}
