package fragmentos

import (
	"bytes"
	"testing"
)

func TestMaxMessage(t *testing.T) {
	if _, err := maxMessage(0); err == nil {
		t.Error("maxMessage(0) should fail")
	}
	if _, err := maxMessage(fieldsLen); err == nil {
		t.Error("maxMessage(fieldsLen) should fail")
	}
	limit, err := maxMessage(512)
	if err != nil {
		t.Fatalf("maxMessage(512): %v", err)
	}
	if limit <= 512 {
		t.Errorf("maxMessage(512) = %d, want > 512", limit)
	}
}

func TestSplitUniteMessage(t *testing.T) {
	orig := []byte("This is some message to be split")
	var nonce [NonceLen]byte
	copy(nonce[:], "nonce123")

	frags, err := SplitMessage(orig, nonce, 22)
	if err != nil {
		t.Fatalf("SplitMessage: %v", err)
	}
	if len(frags) <= 1 {
		t.Fatalf("expected more than one fragment, got %d", len(frags))
	}
	if len(frags)%2 != 1 {
		t.Errorf("expected an odd number of fragments (2b-1), got %d", len(frags))
	}

	frameLen := len(frags[0])
	for i, f := range frags {
		if len(f) != 22 {
			t.Errorf("fragment %d has length %d, want 22", i, len(f))
		}
		if len(f) != frameLen {
			t.Errorf("fragment %d length %d differs from fragment 0's %d", i, len(f), frameLen)
		}
	}

	parsed0, ok := ParseFragment(frags[0])
	if !ok {
		t.Fatal("fragment 0 failed to parse")
	}
	b := parsed0.B

	shares := make(map[int][]byte, b)
	for i := 0; i < b; i++ {
		f, ok := ParseFragment(frags[i])
		if !ok {
			t.Fatalf("fragment %d failed to parse", i)
		}
		shares[f.ShareIndex] = f.ShareData
	}

	united, err := UniteMessage(parsed0.ID, b, len(parsed0.ShareData), shares)
	if err != nil {
		t.Fatalf("UniteMessage: %v", err)
	}
	if !bytes.Equal(united, orig) {
		t.Fatalf("UniteMessage = %q, want %q", united, orig)
	}
}

func TestValidateFragmentRejectsCorruption(t *testing.T) {
	orig := []byte("This is some message to be split")
	var nonce [NonceLen]byte
	copy(nonce[:], "nonce123")

	frags, err := SplitMessage(orig, nonce, 22)
	if err != nil {
		t.Fatalf("SplitMessage: %v", err)
	}

	if !ValidateFragment(frags[0]) {
		t.Fatal("fragment 0 should be valid before corruption")
	}

	corrupted := append([]byte(nil), frags[0]...)
	corrupted[5] ^= 0xff
	corrupted[6] ^= 0xff
	corrupted[7] ^= 0xff
	corrupted[10] ^= 0xff

	if ValidateFragment(corrupted) {
		t.Fatal("corrupted fragment should fail validation")
	}
	if _, ok := ParseFragment(corrupted); ok {
		t.Fatal("corrupted fragment should fail to parse")
	}
}

func TestSplitMessageRejectsOversizeInput(t *testing.T) {
	d := 22
	limit, err := maxMessage(d)
	if err != nil {
		t.Fatalf("maxMessage: %v", err)
	}
	var nonce [NonceLen]byte
	_, err = SplitMessage(make([]byte, limit+1), nonce, d)
	if err == nil {
		t.Fatal("expected InputTooLarge error")
	}
	if _, ok := errUnwrapInputTooLarge(err); !ok {
		t.Fatalf("expected *InputTooLarge, got %T: %v", err, err)
	}
}

func errUnwrapInputTooLarge(err error) (*InputTooLarge, bool) {
	type causer interface{ Cause() error }
	for err != nil {
		if ite, ok := err.(*InputTooLarge); ok {
			return ite, true
		}
		c, ok := err.(causer)
		if !ok {
			return nil, false
		}
		err = c.Cause()
	}
	return nil, false
}

func TestSplitMessageRejectsBadDatagramLen(t *testing.T) {
	var nonce [NonceLen]byte
	if _, err := SplitMessage([]byte("x"), nonce, 10); err == nil {
		t.Fatal("expected ConfigError for D below minimum")
	}
	if _, err := SplitMessage([]byte("x"), nonce, 300); err == nil {
		t.Fatal("expected ConfigError for D above 255")
	}
}

// The spec.md §6 example: D=22, B=4, a 9-byte input split into 7 shares.
func TestExampleSplitData(t *testing.T) {
	data := []byte{0x12, 0x34, 0x56, 0x78, 0x90, 0xab, 0xcd, 0xef, 0x55}
	// pad to a multiple of 4 the way split_message would, for this
	// codec-only example (split_message handles the padding itself for
	// full messages; here we exercise splitData directly as the spec's
	// S6 scenario does).
	padded := append(append([]byte(nil), data...), 0, 0, 0)
	shares, err := splitData(padded, 4)
	if err != nil {
		t.Fatalf("splitData: %v", err)
	}
	if len(shares) != 7 {
		t.Fatalf("expected 7 shares, got %d", len(shares))
	}
	shareLen := len(shares[0])
	for i, s := range shares {
		if len(s) != shareLen {
			t.Errorf("share %d length %d != share 0 length %d", i, len(s), shareLen)
		}
	}

	m := map[int][]byte{0: shares[0], 1: shares[1], 2: shares[2], 3: shares[3]}
	got, err := reconstructData(m, 4, shareLen)
	if err != nil {
		t.Fatalf("reconstructData: %v", err)
	}
	if !bytes.Equal(got, padded) {
		t.Fatalf("reconstructData = %x, want %x", got, padded)
	}

	// Any four distinct shares reconstruct the input, not just the data ones.
	m2 := map[int][]byte{1: shares[1], 2: shares[2], 4: shares[4], 6: shares[6]}
	got2, err := reconstructData(m2, 4, shareLen)
	if err != nil {
		t.Fatalf("reconstructData from mixed shares: %v", err)
	}
	if !bytes.Equal(got2, padded) {
		t.Fatalf("reconstructData (mixed) = %x, want %x", got2, padded)
	}
}

func TestSplitDataBEqualsOne(t *testing.T) {
	t0 := []byte("abcdefgh")
	shares, err := splitData(t0, 1)
	if err != nil {
		t.Fatalf("splitData: %v", err)
	}
	if len(shares) != 1 {
		t.Fatalf("expected 1 share for b=1, got %d", len(shares))
	}
	if !bytes.Equal(shares[0], t0) {
		t.Fatalf("b=1 share should equal input verbatim")
	}

	got, err := reconstructData(map[int][]byte{0: shares[0]}, 1, len(t0))
	if err != nil {
		t.Fatalf("reconstructData: %v", err)
	}
	if !bytes.Equal(got, t0) {
		t.Fatalf("reconstructData(b=1) = %x, want %x", got, t0)
	}
}
