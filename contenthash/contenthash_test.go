package contenthash

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumMatchesDigest(t *testing.T) {
	data := bytes.Repeat([]byte{0x00, 0x00, 0xff, 0xff}, 64)

	h := New()
	// Feed it in uneven chunks to exercise the streaming path
	_, err := h.Write(data[:7])
	require.NoError(t, err)
	_, err = h.Write(data[7:])
	require.NoError(t, err)

	assert.Equal(t, Checksum(data), h.Sum128())
	assert.Equal(t, Size, h.Size())

	sum := h.Sum([]byte{0xaa})
	require.Len(t, sum, Size+1)
	assert.Equal(t, byte(0xaa), sum[0])
	assert.Equal(t, h.Sum128().String(), hex.EncodeToString(sum[1:]))
}

func TestChecksumDistinguishesContent(t *testing.T) {
	a := Checksum([]byte{1, 2, 3, 4})
	b := Checksum([]byte{1, 2, 3, 5})
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsZero())
	assert.Len(t, a.String(), Size*2)
}

func TestReset(t *testing.T) {
	h := New()
	h.Write([]byte("discarded"))
	h.Reset()
	h.Write([]byte("kept"))
	assert.Equal(t, Checksum([]byte("kept")), h.Sum128())
}

func TestHalvesUseDifferentSeeds(t *testing.T) {
	h := Checksum([]byte("seed check"))
	assert.NotEqual(t, h[:8], h[8:])
}
