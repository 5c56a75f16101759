/*
Package contenthash implements the 128-bit digest used to address diced
units by their pixel content.

The digest is built from two 64-bit xxHash states fed the same input, one
with a zero seed and one with a fixed non-zero seed. Sum lays the value out
in big-endian byte order, high half first.
*/
package contenthash

import (
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/OneOfOne/xxhash"
)

// Size is the size of a content hash in bytes.
const Size = 16

const seedHi = 0x9e3779b97f4a7c15

// Hash is a 128-bit content hash. It is comparable and can be used as a map
// key.
type Hash [Size]byte

// String returns the hash as lowercase hexadecimal.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Hash128 is the common interface implemented by 128-bit hash functions.
type Hash128 interface {
	hash.Hash
	Sum128() Hash
}

type digest struct {
	lo *xxhash.XXHash64
	hi *xxhash.XXHash64
}

// New creates a new Hash128 computing the content hash.
func New() Hash128 {
	return &digest{
		lo: xxhash.NewS64(0),
		hi: xxhash.NewS64(seedHi),
	}
}

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return d.lo.BlockSize() }

func (d *digest) Reset() {
	d.lo.Reset()
	d.hi.Reset()
}

func (d *digest) Write(p []byte) (n int, err error) {
	d.lo.Write(p)
	d.hi.Write(p)
	return len(p), nil
}

func (d *digest) Sum128() Hash {
	return join(d.hi.Sum64(), d.lo.Sum64())
}

func (d *digest) Sum(in []byte) []byte {
	h := d.Sum128()
	return append(in, h[:]...)
}

func join(hi, lo uint64) (h Hash) {
	binary.BigEndian.PutUint64(h[:8], hi)
	binary.BigEndian.PutUint64(h[8:], lo)
	return
}

// Checksum returns the content hash of data.
func Checksum(data []byte) Hash {
	return join(xxhash.Checksum64S(data, seedHi), xxhash.Checksum64S(data, 0))
}
