/*
@Description: Adaptive rate shaper: a paced, token-bucket forwarder
between an item source and an item sink, with feedback-driven rate
adjustment.
*/

package fragmentos

// maxTokensPerMs bounds the shaper's rate (spec.md §4.4 reference: 2^32).
const maxTokensPerMs = 1 << 32

// Source feeds items into the rate shaper. It mirrors DatagramSink's
// pull-based counterpart: ready=false means "nothing right now", and
// closed=true means the source will never yield again.
type Source interface {
	Recv() (item Length, ready bool, closed bool, err error)
}

// Shaper is a single-producer, single-consumer, byte-denominated token
// bucket between a Source and a DatagramSink. It is a poll-driven state
// machine: Tick must be called once per millisecond of wall-clock by
// the embedder (spec.md §5: the shaper is the one place besides the two
// port boundaries where the core suspends).
type Shaper struct {
	pending *RingBuffer[Length]
	q       int

	rate  uint64 // current R, bytes/ms
	rMin  uint64
	rMax  uint64

	tokensLeft uint64
	remainder  uint64
	shortage   bool

	upstreamClosed bool

	Metrics *Metrics
}

// NewShaper constructs a shaper with queue capacity q (items) and a
// rate floor/ceiling in bytes/ms. The shaper starts at rMin, the
// administrator-configured floor (spec.md §4.4).
func NewShaper(q int, rMin, rMax uint64) (*Shaper, error) {
	if q < 1 {
		return nil, newConfigError("queue_capacity", q, "must be at least 1")
	}
	if rMin < 1 {
		return nil, newConfigError("min_tokens_per_ms", int(rMin), "must be at least 1")
	}
	if rMax < rMin {
		rMax = maxTokensPerMs
	}
	return &Shaper{
		pending: newRingBuffer[Length](q),
		q:       q,
		rate:    rMin,
		rMin:    rMin,
		rMax:    rMax,
		Metrics: &Metrics{},
	}, nil
}

// Tick performs one millisecond's worth of refill, drain, and fill.
// It returns done=true once upstream has closed and every pending item
// has drained — the signal for the embedder to close its downstream
// sink (spec.md §4.4: "Termination").
func (s *Shaper) Tick(src Source, sink DatagramSink) (done bool, err error) {
	s.tokensLeft += s.rate

	if err := s.drain(sink); err != nil {
		return false, err
	}

	if !s.upstreamClosed {
		if err := s.fill(src); err != nil {
			return false, err
		}
	}

	return s.upstreamClosed && s.pending.Empty(), nil
}

func (s *Shaper) drain(sink DatagramSink) error {
	for {
		head, ok := s.pending.Peek()
		if !ok {
			return nil
		}
		item := *head
		avail := s.tokensLeft + s.remainder
		if uint64(item.Len()) > avail {
			s.remainder = avail
			s.tokensLeft = 0
			s.shortage = true
			return nil
		}

		cost := uint64(item.Len()) - s.remainder

		accepted, err := sink.TrySend(item)
		if err != nil {
			return newPortError("shaper.drain", err)
		}
		if !accepted {
			// Downstream backpressure, distinct from token scarcity:
			// leave the item at the head and stop for this tick
			// without spending tokens or declaring a shortage.
			return nil
		}

		s.pending.Pop()
		s.tokensLeft -= cost
		s.remainder = 0
		if s.Metrics != nil {
			s.Metrics.addForwarded(uint64(item.Len()))
		}
	}
}

func (s *Shaper) fill(src Source) error {
	for s.pending.Len() < s.q {
		item, ready, closed, err := src.Recv()
		if err != nil {
			return newPortError("shaper.fill", err)
		}
		if closed {
			s.upstreamClosed = true
			return nil
		}
		if !ready {
			return nil
		}
		s.pending.Push(item)
	}
	return nil
}

// AdaptRate reacts to whether the last drain ran short on tokens,
// raising the rate fast under scarcity and lowering it slowly when
// idle (spec.md §4.4: inverted from loss-driven congestion control,
// since the only signal here is downstream backpressure, never loss).
// It may be called every Tick or less often; it both consumes and
// clears the shortage flag so a slow caller still sees whatever
// shortage accumulated since the last call.
func (s *Shaper) AdaptRate() {
	if s.shortage {
		if s.Metrics != nil {
			s.Metrics.incShaperShortage()
		}
		next := 2*s.rate + 1
		if next > s.rMax {
			next = s.rMax
		}
		s.rate = next
	} else if s.rate > s.rMin {
		s.rate--
	}
	s.shortage = false
}

// Rate returns the shaper's current bytes/ms pacing rate.
func (s *Shaper) Rate() uint64 {
	return s.rate
}

// Len returns the number of items currently queued in the shaper.
func (s *Shaper) Len() int {
	return s.pending.Len()
}
