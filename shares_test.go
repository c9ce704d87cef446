package fragmentos

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitDataRejectsBadB(t *testing.T) {
	_, err := splitData([]byte("abcd"), 0)
	require.Error(t, err, "b=0 should be rejected")

	_, err = splitData([]byte("abcd"), maxShares+1)
	require.Error(t, err, "b above maxShares should be rejected")

	_, err = splitData([]byte("abc"), 2)
	require.Error(t, err, "len(t) not a multiple of b should be rejected")
}

func TestReconstructDataRejectsShortage(t *testing.T) {
	t0 := []byte("abcdefgh")
	shares, err := splitData(t0, 4)
	require.NoError(t, err)

	// Only 3 of the 4 needed shares.
	m := map[int][]byte{0: shares[0], 1: shares[1], 2: shares[2]}
	_, err = reconstructData(m, 4, len(shares[0]))
	require.Error(t, err, "expected decode failure with fewer than b shares")
}

func TestReconstructDataRejectsMismatchedLength(t *testing.T) {
	t0 := []byte("abcdefgh")
	shares, err := splitData(t0, 4)
	require.NoError(t, err)

	m := map[int][]byte{
		0: shares[0],
		1: shares[1],
		2: shares[2],
		3: append(append([]byte(nil), shares[3]...), 0x00),
	}
	_, err = reconstructData(m, 4, len(shares[0]))
	require.Error(t, err, "expected decode failure with a mismatched share length")
}

func TestReconstructDataRejectsOutOfRangeIndex(t *testing.T) {
	t0 := []byte("abcdefgh")
	shares, err := splitData(t0, 4)
	require.NoError(t, err)

	m := map[int][]byte{0: shares[0], 1: shares[1], 2: shares[2], 99: shares[3]}
	_, err = reconstructData(m, 4, len(shares[0]))
	require.Error(t, err, "expected decode failure with an out-of-range share index")
}
