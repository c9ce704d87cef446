/*
@Description: Reassembly state machine: ingest fragments, dedupe by
message id, enforce per-fragment integrity, evict stale partial
messages on a time-tick.
*/

package fragmentos

// DefaultTTL is the reference time-to-live, in ticks, for both an
// in-progress reassembly and a completed/evicted id's replay guard
// (spec.md §4.3: "reference value: TTL = 30 ticks").
const DefaultTTL = 30

type assemblingEntry struct {
	b        int
	shareLen int
	shares   map[int][]byte
	age      int
}

// StateMachine is a per-message-id reassembly accumulator. It owns no
// goroutines and no locks: spec.md §5 requires it to run single-
// threaded, polled by a receiver adapter. A zero StateMachine is not
// usable; construct with NewStateMachine.
//
// Known limitation (spec.md §9, open question): the assembling map is
// bounded only by TTL eviction. An adversary sending many distinct,
// never-completing message ids can grow it up to (messages per TTL
// window); no LRU-by-age cap is implemented, matching the spec's
// stated current design rather than inventing an unspecified cap.
type StateMachine struct {
	ttl        int
	assembling map[[MessageIDLen]byte]*assemblingEntry
	used       map[[MessageIDLen]byte]int
	Metrics    Metrics
}

// NewStateMachine constructs a state machine with the given TTL, in
// ticks. ttl must be positive.
func NewStateMachine(ttl int) (*StateMachine, error) {
	if ttl <= 0 {
		return nil, newConfigError("ttl", ttl, "must be a positive number of ticks")
	}
	return &StateMachine{
		ttl:        ttl,
		assembling: make(map[[MessageIDLen]byte]*assemblingEntry),
		used:       make(map[[MessageIDLen]byte]int),
	}, nil
}

// Ingest feeds one raw wire fragment to the state machine. It returns
// the reassembled message exactly for the fragment that completes it;
// every other case (invalid, duplicate, mid-stream, replayed, stale)
// returns ok=false with no error — spec.md §7: soft failures here are
// absorbed, never propagated.
func (sm *StateMachine) Ingest(raw []byte) (msg []byte, ok bool) {
	frag, valid := ParseFragment(raw)
	if !valid {
		sm.Metrics.incInvalid()
		return nil, false
	}
	sm.Metrics.incIngested()

	if age, seen := sm.used[frag.ID]; seen {
		_ = age
		sm.used[frag.ID] = sm.ttl
		return nil, false
	}

	entry, exists := sm.assembling[frag.ID]
	if exists {
		if entry.b != frag.B || entry.shareLen != len(frag.ShareData) {
			return nil, false
		}
	} else {
		entry = &assemblingEntry{
			b:        frag.B,
			shareLen: len(frag.ShareData),
			shares:   make(map[int][]byte),
			age:      sm.ttl,
		}
		sm.assembling[frag.ID] = entry
	}

	if _, dup := entry.shares[frag.ShareIndex]; dup {
		sm.Metrics.incDuplicate()
		return nil, false
	}
	entry.shares[frag.ShareIndex] = frag.ShareData

	if len(entry.shares) < entry.b {
		return nil, false
	}

	delete(sm.assembling, frag.ID)
	sm.used[frag.ID] = sm.ttl

	united, err := UniteMessage(frag.ID, entry.b, entry.shareLen, entry.shares)
	if err != nil {
		sm.Metrics.incDecodeFailure()
		return nil, false
	}

	sm.Metrics.incCompleted()
	return united, true
}

// TimeTick advances every entry's age counter by one and evicts
// whatever reaches zero: an assembling entry becomes a fresh used-id
// entry (spec.md §4.3 step (b)); a used-id entry simply disappears.
func (sm *StateMachine) TimeTick() {
	for id, entry := range sm.assembling {
		entry.age--
		if entry.age <= 0 {
			delete(sm.assembling, id)
			sm.used[id] = sm.ttl
			sm.Metrics.incEvicted()
		}
	}

	for id, age := range sm.used {
		age--
		if age <= 0 {
			delete(sm.used, id)
			sm.Metrics.incUsedIDExpired()
		} else {
			sm.used[id] = age
		}
	}
}
