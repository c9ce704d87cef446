package fragmentos

import (
	"bytes"
	"testing"
)

const testD = 22

func splitFor(t *testing.T, msg []byte, nonceSeed byte) [][]byte {
	t.Helper()
	var nonce [NonceLen]byte
	for i := range nonce {
		nonce[i] = nonceSeed + byte(i)
	}
	frags, err := SplitMessage(msg, nonce, testD)
	if err != nil {
		t.Fatalf("SplitMessage: %v", err)
	}
	return frags
}

// S1: feeding fragments one at a time completes the message on the b-th
// distinct share, never earlier.
func TestStateMachineIngestUntilComplete(t *testing.T) {
	sm, err := NewStateMachine(DefaultTTL)
	if err != nil {
		t.Fatalf("NewStateMachine: %v", err)
	}
	msg := []byte("hello, fragmentos")
	frags := splitFor(t, msg, 1)

	f0, _ := ParseFragment(frags[0])
	b := f0.B

	var got []byte
	completedAt := -1
	for i, f := range frags {
		m, ok := sm.Ingest(f)
		if ok {
			got = m
			completedAt = i
			break
		}
	}
	if completedAt != b-1 {
		t.Fatalf("message completed after %d fragments, want exactly %d", completedAt+1, b)
	}
	if !bytes.Equal(got, msg) {
		t.Fatalf("reassembled %q, want %q", got, msg)
	}
}

// S2: re-ingesting an already-accounted-for share index is a no-op.
func TestStateMachineDuplicateShareIsIdempotent(t *testing.T) {
	sm, err := NewStateMachine(DefaultTTL)
	if err != nil {
		t.Fatalf("NewStateMachine: %v", err)
	}
	frags := splitFor(t, []byte("duplicate me"), 2)

	if _, ok := sm.Ingest(frags[0]); ok {
		t.Fatal("single fragment should not complete the message")
	}
	if _, ok := sm.Ingest(frags[0]); ok {
		t.Fatal("duplicate fragment should not complete the message")
	}
	before := sm.Metrics.Copy().FragmentsDuplicate
	if _, ok := sm.Ingest(frags[0]); ok {
		t.Fatal("duplicate fragment should not complete the message")
	}
	after := sm.Metrics.Copy().FragmentsDuplicate
	if after != before+1 {
		t.Fatalf("duplicate counter = %d, want %d", after, before+1)
	}
}

// S3: an assembling message that never completes is evicted after TTL
// ticks into the used-id set; that entry rejects the id's fragments
// until it expires a further TTL ticks later, so the id is not
// permanently blocked.
func TestStateMachineTTLEviction(t *testing.T) {
	sm, err := NewStateMachine(3)
	if err != nil {
		t.Fatalf("NewStateMachine: %v", err)
	}
	frags := splitFor(t, []byte("will time out"), 3)

	sm.Ingest(frags[0])

	for i := 0; i < 3; i++ {
		sm.TimeTick()
	}
	if len(sm.assembling) != 0 {
		t.Fatal("assembling entry should be evicted after ttl ticks")
	}
	if len(sm.used) != 1 {
		t.Fatal("evicted id should move to the used-id set")
	}

	// Further fragments of the same id are now replay-rejected, not
	// reassembled, until the used-id entry itself expires.
	if _, ok := sm.Ingest(frags[1]); ok {
		t.Fatal("fragment of a used id should not complete a message")
	}

	for i := 0; i < 3; i++ {
		sm.TimeTick()
	}
	if len(sm.used) != 0 {
		t.Fatal("used-id entry should expire after a further ttl ticks")
	}
}

// S4: once a message has completed, replaying any of its fragments must
// never reassemble it again.
func TestStateMachineRejectsReplayAfterCompletion(t *testing.T) {
	sm, err := NewStateMachine(DefaultTTL)
	if err != nil {
		t.Fatalf("NewStateMachine: %v", err)
	}
	frags := splitFor(t, []byte("replay guard"), 4)

	var b int
	for _, f := range frags {
		if m, ok := sm.Ingest(f); ok {
			_ = m
			parsed, _ := ParseFragment(f)
			b = parsed.B
			break
		}
	}
	if b == 0 {
		t.Fatal("message never completed")
	}

	if _, ok := sm.Ingest(frags[0]); ok {
		t.Fatal("replaying a fragment of a completed message must not reassemble it")
	}
}

func TestStateMachineRejectsMismatchedB(t *testing.T) {
	sm, err := NewStateMachine(DefaultTTL)
	if err != nil {
		t.Fatalf("NewStateMachine: %v", err)
	}
	frags := splitFor(t, []byte("mismatch test message"), 5)

	sm.Ingest(frags[0])

	tampered := append([]byte(nil), frags[1]...)
	tampered[MessageIDLen] = byte(int(tampered[MessageIDLen]) + 1)
	hash := shortHash(tampered[:len(tampered)-ShortHashLen])
	copy(tampered[len(tampered)-ShortHashLen:], hash[:])

	if _, ok := sm.Ingest(tampered); ok {
		t.Fatal("fragment with a different b for the same id must be rejected")
	}
}

func TestNewStateMachineRejectsNonPositiveTTL(t *testing.T) {
	if _, err := NewStateMachine(0); err == nil {
		t.Error("ttl=0 should be rejected")
	}
	if _, err := NewStateMachine(-1); err == nil {
		t.Error("negative ttl should be rejected")
	}
}
