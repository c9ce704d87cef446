/*
@Description: Per-pipeline counters for the reassembly state machine and rate shaper
*/

package fragmentos

import "sync/atomic"

// Metrics holds the observable counters for one pipeline. Unlike the
// teacher's package-global Snmp, a Metrics value belongs to exactly one
// StateMachine or one Shaper: spec.md §5 requires independent pipelines
// to share no state, so there is no DefaultMetrics global here.
type Metrics struct {
	FragmentsIngested   uint64 // fragments accepted by parse_fragment
	FragmentsInvalid    uint64 // fragments rejected (bad hash, short, bad framing)
	FragmentsDuplicate  uint64 // fragments repeating a share index already held for an in-progress id
	MessagesCompleted   uint64 // messages successfully reassembled
	MessagesEvicted     uint64 // assembling entries aged out before completion
	DecodeFailures      uint64 // b shares collected but reconstruction/id-check failed
	UsedIDsExpired      uint64 // used-id entries aged out to the empty state
	ShaperShortages     uint64 // AdaptRate calls that saw a token shortage since the previous call
	ShaperBytesForwarded uint64
}

func (m *Metrics) incIngested()           { atomic.AddUint64(&m.FragmentsIngested, 1) }
func (m *Metrics) incInvalid()            { atomic.AddUint64(&m.FragmentsInvalid, 1) }
func (m *Metrics) incDuplicate()          { atomic.AddUint64(&m.FragmentsDuplicate, 1) }
func (m *Metrics) incCompleted()          { atomic.AddUint64(&m.MessagesCompleted, 1) }
func (m *Metrics) incEvicted()            { atomic.AddUint64(&m.MessagesEvicted, 1) }
func (m *Metrics) incDecodeFailure()      { atomic.AddUint64(&m.DecodeFailures, 1) }
func (m *Metrics) incUsedIDExpired()      { atomic.AddUint64(&m.UsedIDsExpired, 1) }
func (m *Metrics) incShaperShortage()     { atomic.AddUint64(&m.ShaperShortages, 1) }
func (m *Metrics) addForwarded(n uint64)  { atomic.AddUint64(&m.ShaperBytesForwarded, n) }

// Copy returns a consistent snapshot of all counters.
func (m *Metrics) Copy() Metrics {
	return Metrics{
		FragmentsIngested:    atomic.LoadUint64(&m.FragmentsIngested),
		FragmentsInvalid:     atomic.LoadUint64(&m.FragmentsInvalid),
		FragmentsDuplicate:   atomic.LoadUint64(&m.FragmentsDuplicate),
		MessagesCompleted:    atomic.LoadUint64(&m.MessagesCompleted),
		MessagesEvicted:      atomic.LoadUint64(&m.MessagesEvicted),
		DecodeFailures:       atomic.LoadUint64(&m.DecodeFailures),
		UsedIDsExpired:       atomic.LoadUint64(&m.UsedIDsExpired),
		ShaperShortages:      atomic.LoadUint64(&m.ShaperShortages),
		ShaperBytesForwarded: atomic.LoadUint64(&m.ShaperBytesForwarded),
	}
}
