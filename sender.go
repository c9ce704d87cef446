/*
@Description: Sender adapter: per-message nonce + split + enqueue into
the outbound sink, preserving per-message fragment-interleaving atomicity
under backpressure.
*/

package fragmentos

import "io"

type pendingSend struct {
	addr  any
	frags [][]byte
}

// Sender turns application messages into wire fragments and feeds them
// to a DatagramSink in ascending share_index order (spec.md §5). When
// the sink applies backpressure mid-message, the Sender retains the
// undelivered tail and the caller must retry TrySend with the *same*
// message and address until it reports accepted=true — only then may
// the next message be offered (spec.md §4.5).
type Sender struct {
	sink    DatagramSink
	d       int
	rand    io.Reader
	pending *pendingSend
}

// NewSender constructs a sender bound to sink, shaping fragments to fit
// datagram size d and drawing nonces from rand (crypto/rand.Reader in
// production; a seeded PRNG in tests, matching frag_msg_sender.rs's
// swappable Rng).
func NewSender(sink DatagramSink, d int, rand io.Reader) (*Sender, error) {
	if err := validateDatagramLen(d); err != nil {
		return nil, err
	}
	return &Sender{sink: sink, d: d, rand: rand}, nil
}

// Pending reports whether a previous TrySend is still draining.
func (s *Sender) Pending() bool {
	return s.pending != nil
}

// TrySend accepts one application message for transmission. If a prior
// message is still draining, msg and addr must be that same message;
// passing anything else while Pending() is true is a programmer error.
// accepted is true once every fragment of msg has been handed to the
// sink; false (with a nil error) means backpressure — call again with
// the same arguments.
func (s *Sender) TrySend(msg []byte, addr any) (accepted bool, err error) {
	if s.pending == nil {
		var nonce [NonceLen]byte
		if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
			return false, newPortError("sender.nonce", err)
		}

		frags, err := SplitMessage(msg, nonce, s.d)
		if err != nil {
			return false, err
		}
		s.pending = &pendingSend{addr: addr, frags: frags}
	}

	for len(s.pending.frags) > 0 {
		accepted, err := s.sink.TrySend(Datagram{Payload: s.pending.frags[0], Addr: s.pending.addr})
		if err != nil {
			return false, newPortError("sender.sink", err)
		}
		if !accepted {
			return false, nil
		}
		s.pending.frags = s.pending.frags[1:]
	}

	s.pending = nil
	return true, nil
}
