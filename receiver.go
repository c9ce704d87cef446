/*
@Description: Receiver adapter: datagram-in -> state machine -> message-out,
driven by a separate time-tick input stream.
*/

package fragmentos

// Receiver pulls datagrams from a DatagramSource, feeds them to a
// StateMachine, and yields completed messages. A separate TimeSource
// drives StateMachine.TimeTick, serviced once per Poll call before any
// datagram is read (spec.md §4.6).
type Receiver struct {
	sm    *StateMachine
	src   DatagramSource
	ticks TimeSource
}

// NewReceiver builds a receiver over sm, pulling datagrams from src and
// ticks from ticks.
func NewReceiver(sm *StateMachine, src DatagramSource, ticks TimeSource) *Receiver {
	return &Receiver{sm: sm, src: src, ticks: ticks}
}

// Poll advances the receiver by at most one tick-service and a run of
// datagrams, stopping at the first completed message. ready=true means
// msg/addr are valid. closed=true means either port has permanently
// ended and the receiver will never produce anything else. addr is the
// address of the fragment that completed the message — per spec.md §9,
// fragments of one id may arrive from different addresses, and no
// all-equal check is performed; the last (completing) address wins.
func (r *Receiver) Poll() (msg []byte, addr any, ready bool, closed bool, err error) {
	if tickReady, tickClosed := r.ticks.Tick(); tickClosed {
		return nil, nil, false, true, nil
	} else if tickReady {
		r.sm.TimeTick()
	}

	for {
		dgram, dReady, dClosed, dErr := r.src.Recv()
		if dErr != nil {
			return nil, nil, false, false, newPortError("receiver.src", dErr)
		}
		if dClosed {
			return nil, nil, false, true, nil
		}
		if !dReady {
			return nil, nil, false, false, nil
		}

		if m, ok := r.sm.Ingest(dgram.Payload); ok {
			return m, dgram.Addr, true, false, nil
		}
	}
}
