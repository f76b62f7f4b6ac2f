// Package checksum implements the pluggable digest algorithms of the NVM
// container format.
//
// An algorithm is identified on disk by a small integer id in the file
// header. Digest size is a pure function of the id: 0, 4, or 32 bytes.
package checksum

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
)

// Algorithm identifies a checksum algorithm in the file header.
type Algorithm uint32

const (
	None   Algorithm = 0
	CRC32  Algorithm = 1
	SHA256 Algorithm = 2
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case CRC32:
		return "crc32"
	case SHA256:
		return "sha256"
	}
	return fmt.Sprintf("checksum(%d)", uint32(a))
}

// Valid reports whether the id names a known algorithm. Unknown ids must be
// rejected loudly, never downgraded to None.
func (a Algorithm) Valid() error {
	switch a {
	case None, CRC32, SHA256:
		return nil
	}
	return fmt.Errorf("unknown checksum algorithm id %d", uint32(a))
}

// Size returns the digest size in bytes for the algorithm.
func (a Algorithm) Size() int {
	switch a {
	case CRC32:
		return 4
	case SHA256:
		return sha256.Size
	}
	return 0
}

// Calculator computes digests over byte streams. Implementations are not
// safe for concurrent use.
type Calculator interface {
	// Algorithm returns the id this calculator implements.
	Algorithm() Algorithm
	// Reset clears accumulated state.
	Reset()
	// Update folds p into the running digest.
	Update(p []byte)
	// Finalize returns the digest of everything since the last Reset.
	Finalize() []byte
	// Calculate is shorthand for Reset/Update/Finalize over one buffer.
	Calculate(p []byte) []byte
}

// New returns a Calculator for the given algorithm id, or an error for an
// unknown id. None yields a calculator producing empty digests.
func New(a Algorithm) (Calculator, error) {
	switch a {
	case None:
		return nullCalculator{}, nil
	case CRC32:
		return &crcCalculator{h: crc32.NewIEEE()}, nil
	case SHA256:
		return &hashCalculator{alg: SHA256, h: sha256.New()}, nil
	}
	return nil, a.Valid()
}

// HexString renders a digest as lowercase hex.
func HexString(digest []byte) string {
	return hex.EncodeToString(digest)
}

type nullCalculator struct{}

func (nullCalculator) Algorithm() Algorithm    { return None }
func (nullCalculator) Reset()                  {}
func (nullCalculator) Update([]byte)           {}
func (nullCalculator) Finalize() []byte        { return nil }
func (nullCalculator) Calculate([]byte) []byte { return nil }

// crcCalculator wraps the standard reflected CRC-32 (polynomial 0xEDB88320,
// init and final XOR 0xFFFFFFFF). The digest is the 32-bit value stored
// little-endian, matching the rest of the format.
type crcCalculator struct {
	h hash.Hash32
}

func (c *crcCalculator) Algorithm() Algorithm { return CRC32 }
func (c *crcCalculator) Reset()               { c.h.Reset() }
func (c *crcCalculator) Update(p []byte)      { _, _ = c.h.Write(p) }

func (c *crcCalculator) Finalize() []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, c.h.Sum32())
	return out
}

func (c *crcCalculator) Calculate(p []byte) []byte {
	c.Reset()
	c.Update(p)
	return c.Finalize()
}

// hashCalculator adapts a hash.Hash whose Sum output is already in wire
// order (SHA-256 is big-endian per 32-bit word, per FIPS 180-4).
type hashCalculator struct {
	alg Algorithm
	h   hash.Hash
}

func (c *hashCalculator) Algorithm() Algorithm { return c.alg }
func (c *hashCalculator) Reset()               { c.h.Reset() }
func (c *hashCalculator) Update(p []byte)      { _, _ = c.h.Write(p) }
func (c *hashCalculator) Finalize() []byte     { return c.h.Sum(nil) }

func (c *hashCalculator) Calculate(p []byte) []byte {
	c.Reset()
	c.Update(p)
	return c.Finalize()
}
