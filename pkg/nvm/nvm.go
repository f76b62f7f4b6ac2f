// Package nvm implements the NVM voice-model container format.
//
// An NVM file is a single portable container for trained phoneme-HMM voice
// models: a fixed 64-byte header, followed by metadata, index, and model
// chunks. Chunk payloads may be individually compressed and checksummed;
// the algorithms are per-file settings recorded in the header.
package nvm

// Format constants. These are on-disk values and must never change.
const (
	// MagicNumber is the ASCII bytes "NVM1" as a little-endian u32.
	MagicNumber uint32 = 0x314D564E

	// FileHeaderSize is the fixed size of the file header in bytes.
	FileHeaderSize = 64

	// ChunkHeaderSize is the fixed size of every chunk header in bytes.
	ChunkHeaderSize = 16

	// Alignment for variable-length fields and chunk starts.
	Alignment = 8
)

// Chunk type tags, ASCII four-byte codes read little-endian.
const (
	ChunkHeaderTag uint32 = 0x52444548 // 'HEDR'
	ChunkMetadata  uint32 = 0x4154454D // 'META'
	ChunkIndex     uint32 = 0x58444E49 // 'INDX'
	ChunkModels    uint32 = 0x4C444F4D // 'MODL'
	ChunkContext   uint32 = 0x54585443 // 'CTXT'
	ChunkChecksum  uint32 = 0x4D555348 // 'HSUM'
	ChunkCustom    uint32 = 0x4D545543 // 'CUTM'
)

// Format limits.
const (
	MaxModelNameLength = 256
	MaxModelsPerFile   = 65536
	MaxChunkSize       = 0x7FFFFFFF
)

// CurrentVersion is the format version this build writes.
var CurrentVersion = SemanticVersion{Major: 1, Minor: 0, Patch: 0}

// MinSupportedVersion is the oldest format version this build can read.
var MinSupportedVersion = SemanticVersion{Major: 1, Minor: 0, Patch: 0}

// ChunkTypeString renders a chunk type tag as its four ASCII characters.
func ChunkTypeString(tag uint32) string {
	b := []byte{
		byte(tag), byte(tag >> 8), byte(tag >> 16), byte(tag >> 24),
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return "????"
		}
	}
	return string(b)
}
