/*
@Description: Reed-Solomon erasure codec over GF(2^8): split a buffer into
b data shares + (b-1) parity shares, reconstruct from any b of them.
*/

package fragmentos

import (
	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"
)

// maxShares is the largest b the codec accepts (spec.md §1: "no support
// for... more than 128 fragments per message" bounds 2b-1 <= 255).
const maxShares = 128

// splitData splits t into b data shares plus (b-1) parity shares, each
// of length len(t)/b. t's length must already be a multiple of b; the
// fragment codec (split_message) is responsible for padding T so that
// this holds. Returns 2b-1 shares indexed 0..2b-2, data shares first.
func splitData(t []byte, b int) ([][]byte, error) {
	if b < 1 || b > maxShares {
		return nil, newConfigError("b", b, "must be between 1 and 128")
	}
	if len(t)%b != 0 {
		return nil, newConfigError("len(t)", len(t), "must be a multiple of b")
	}

	shareLen := len(t) / b

	if b == 1 {
		// No parity is possible with a single share: split returns the
		// message verbatim.
		share := make([]byte, shareLen)
		copy(share, t)
		return [][]byte{share}, nil
	}

	shards := make([][]byte, 2*b-1)
	for i := 0; i < b; i++ {
		shards[i] = make([]byte, shareLen)
		copy(shards[i], t[i*shareLen:(i+1)*shareLen])
	}
	for i := b; i < 2*b-1; i++ {
		shards[i] = make([]byte, shareLen)
	}

	enc, err := reedsolomon.New(b, b-1)
	if err != nil {
		return nil, newConfigError("b", b, "reedsolomon rejected data/parity shard counts")
	}
	if err := enc.Encode(shards); err != nil {
		return nil, err
	}

	return shards, nil
}

// reconstructData rebuilds the original buffer of length b*shareLen from
// a set of shares keyed by share index (0..2b-2). At least b distinct
// indices must be present, and every present share must have length
// shareLen. Returns the reconstructed T (all b*shareLen bytes, still
// including any zero padding split_message added).
func reconstructData(shares map[int][]byte, b int, shareLen int) ([]byte, error) {
	if b < 1 || b > maxShares {
		return nil, newConfigError("b", b, "must be between 1 and 128")
	}
	if len(shares) < b {
		return nil, errDecodeFailed
	}
	for idx, s := range shares {
		if idx < 0 || idx >= 2*b-1 {
			return nil, errDecodeFailed
		}
		if len(s) != shareLen {
			return nil, errDecodeFailed
		}
	}

	if b == 1 {
		s, ok := shares[0]
		if !ok {
			return nil, errDecodeFailed
		}
		out := make([]byte, shareLen)
		copy(out, s)
		return out, nil
	}

	shards := make([][]byte, 2*b-1)
	for idx, s := range shares {
		shards[idx] = s
	}

	enc, err := reedsolomon.New(b, b-1)
	if err != nil {
		return nil, newConfigError("b", b, "reedsolomon rejected data/parity shard counts")
	}
	if err := enc.ReconstructData(shards); err != nil {
		return nil, errDecodeFailed
	}

	out := make([]byte, 0, b*shareLen)
	for i := 0; i < b; i++ {
		out = append(out, shards[i]...)
	}
	return out, nil
}

// errDecodeFailed is returned when reconstruction cannot produce a
// result from the shares given; it is never surfaced past unite_message
// (spec.md §7: DecodeFailed is absorbed, not propagated).
var errDecodeFailed = errors.New("fragmentos: insufficient or inconsistent shares for reconstruction")
