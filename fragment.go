/*
@Description: Fragment wire format: build/parse the wire fragment
(id ‖ b ‖ share_index ‖ share_data ‖ short_hash), split/unite messages.
*/

package fragmentos

import (
	"crypto/sha512"
)

const (
	// MessageIDLen is the length, in bytes, of a message id: the first
	// MessageIDLen bytes of SHA-512/256(T).
	MessageIDLen = 8
	// ShortHashLen is the length of a fragment's integrity trailer.
	ShortHashLen = 8
	// NonceLen is the length of the per-message nonce mixed into T.
	NonceLen = 8
	// ECCLen is kept for wire compatibility with the protocol's history
	// (spec.md §9: early revisions used an 8-byte Reed-Solomon ECC
	// trailer; current revisions use a truncated hash of the same
	// length instead). It equals ShortHashLen.
	ECCLen = ShortHashLen

	// fieldsLen is the fragment overhead outside of share data: id, b,
	// share_index, and the trailer.
	fieldsLen = MessageIDLen + 1 + 1 + ECCLen

	// minDatagramLen / maxDatagramLen bound the configuration parameter
	// D (spec.md §6).
	minDatagramLen = fieldsLen + 1
	maxDatagramLen = 255
)

func shortHash(data []byte) [ShortHashLen]byte {
	full := sha512.Sum512_256(data)
	var out [ShortHashLen]byte
	copy(out[:], full[:ShortHashLen])
	return out
}

// maxMessage returns the largest application message that fits under
// datagram size d, i.e. the tight bound such that b never needs to
// exceed maxShares.
func maxMessage(d int) (int, error) {
	if d <= fieldsLen {
		return 0, newConfigError("D", d, "must exceed the fragment field overhead")
	}
	return maxShares*(d-fieldsLen) - (NonceLen + 1), nil
}

// validateDatagramLen checks D against spec.md §6's configuration range.
func validateDatagramLen(d int) error {
	if d < minDatagramLen || d > maxDatagramLen {
		return newConfigError("D", d, "must be between 19 and 255")
	}
	return nil
}

// Fragment is a parsed wire fragment, produced by ParseFragment.
type Fragment struct {
	ID         [MessageIDLen]byte
	B          int
	ShareIndex int
	ShareData  []byte
}

// SplitMessage fragments an application message m into 2b-1 wire
// fragments of equal length, using nonce n (which must be NonceLen
// bytes) to randomize the message id. b is chosen as the smallest value
// that fits m plus its 1-byte pad count and 8-byte nonce into b shares
// of at most d-18 bytes. T is zero-padded only up to the next multiple
// of b, so each fragment is at most d bytes long, and exactly d bytes
// only when that padded length equals b*(d-18).
func SplitMessage(m []byte, n [NonceLen]byte, d int) ([][]byte, error) {
	if err := validateDatagramLen(d); err != nil {
		return nil, err
	}

	limit, err := maxMessage(d)
	if err != nil {
		return nil, err
	}
	if len(m) > limit {
		return nil, newInputTooLarge(len(m), limit)
	}

	shareLen := d - fieldsLen
	lenWithoutPadding := NonceLen + 1 + len(m)
	b := (lenWithoutPadding + shareLen - 1) / shareLen
	padCount := (b - (lenWithoutPadding % b)) % b

	t := make([]byte, 0, b*shareLen)
	t = append(t, n[:]...)
	t = append(t, byte(padCount))
	t = append(t, m...)
	for i := 0; i < padCount; i++ {
		t = append(t, 0)
	}

	id := shortHash(t)

	shares, err := splitData(t, b)
	if err != nil {
		return nil, err
	}

	frags := make([][]byte, len(shares))
	for i, shareData := range shares {
		frag := make([]byte, 0, d)
		frag = append(frag, id[:]...)
		frag = append(frag, byte(b))
		frag = append(frag, byte(i))
		frag = append(frag, shareData...)
		hash := shortHash(frag)
		frag = append(frag, hash[:]...)
		frags[i] = frag
	}
	return frags, nil
}

// ValidateFragment reports whether raw's trailing short_hash matches
// the hash of everything preceding it, without parsing any other field.
// This is the pre-filter named in spec.md §9's original_source note: a
// caller can discard garbage before ever touching ParseFragment.
func ValidateFragment(raw []byte) bool {
	if len(raw) < ShortHashLen {
		return false
	}
	body := raw[:len(raw)-ShortHashLen]
	want := raw[len(raw)-ShortHashLen:]
	got := shortHash(body)
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// ParseFragment validates and decodes a raw wire fragment. The trailer
// is verified before any other field is trusted (spec.md §9: "verify
// trailer first, then trust id").
func ParseFragment(raw []byte) (Fragment, bool) {
	if len(raw) < minDatagramLen {
		return Fragment{}, false
	}
	if !ValidateFragment(raw) {
		return Fragment{}, false
	}

	b := int(raw[MessageIDLen])
	shareIndex := int(raw[MessageIDLen+1])
	if b < 1 || shareIndex >= 2*b-1 {
		return Fragment{}, false
	}

	var f Fragment
	copy(f.ID[:], raw[:MessageIDLen])
	f.B = b
	f.ShareIndex = shareIndex
	shareData := raw[MessageIDLen+2 : len(raw)-ShortHashLen]
	f.ShareData = append([]byte(nil), shareData...)
	return f, true
}

// UniteMessage reconstructs the original application message from at
// least b shares of a single id. shares is keyed by share index.
func UniteMessage(id [MessageIDLen]byte, b int, shareLen int, shares map[int][]byte) ([]byte, error) {
	t, err := reconstructData(shares, b, shareLen)
	if err != nil {
		return nil, err
	}

	cid := shortHash(t)
	if cid != id {
		return nil, errDecodeFailed
	}

	if len(t) < NonceLen+1 {
		return nil, errDecodeFailed
	}
	padCount := int(t[NonceLen])
	if padCount > len(t)-(NonceLen+1) {
		return nil, errDecodeFailed
	}
	return t[NonceLen+1 : len(t)-padCount], nil
}
