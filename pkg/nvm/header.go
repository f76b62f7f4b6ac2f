package nvm

import (
	"bytes"
	"fmt"

	"github.com/nexussynth/nexusvoice/pkg/nvm/binio"
	"github.com/nexussynth/nexusvoice/pkg/nvm/checksum"
	"github.com/nexussynth/nexusvoice/pkg/nvm/compress"
)

// FileHeader is the fixed 64-byte structure at the start of every NVM file.
// All fields are little-endian on disk.
type FileHeader struct {
	Magic           uint32
	Version         uint32 // packed SemanticVersion
	NumChunks       uint32
	HeaderSize      uint32
	FileSize        uint64
	ModelsOffset    uint64
	MetadataOffset  uint64
	IndexOffset     uint64
	CreationTime    uint64 // seconds since epoch
	ChecksumType    uint32 // checksum.Algorithm
	CompressionType uint32 // compress.Algorithm
	Reserved        [8]byte
}

// NewFileHeader returns a header with the current format version and the
// given creation time.
func NewFileHeader(creationTime uint64) FileHeader {
	return FileHeader{
		Magic:        MagicNumber,
		Version:      CurrentVersion.Uint32(),
		HeaderSize:   FileHeaderSize,
		CreationTime: creationTime,
	}
}

// SemVer unpacks the header's format version.
func (h *FileHeader) SemVer() SemanticVersion {
	return VersionFromUint32(h.Version)
}

// Validate checks the header invariants: exact magic, declared header size
// equal to the format constant, version at or above the minimum supported.
// Each failure names the check, per the format's error-reporting contract.
func (h *FileHeader) Validate() error {
	if h.Magic != MagicNumber {
		return fmt.Errorf("%w: got 0x%08X want 0x%08X", ErrBadMagic, h.Magic, MagicNumber)
	}
	if h.HeaderSize != FileHeaderSize {
		return fmt.Errorf("%w: got %d want %d", ErrBadHeaderSize, h.HeaderSize, FileHeaderSize)
	}
	if v := h.SemVer(); v.Less(MinSupportedVersion) {
		return fmt.Errorf("%w: file version %s below minimum %s",
			ErrUnsupportedVersion, v, MinSupportedVersion)
	}
	if err := checksum.Algorithm(h.ChecksumType).Valid(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	if err := compress.Algorithm(h.CompressionType).Valid(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	return nil
}

// Encode renders the header as its fixed 64-byte wire form.
func (h *FileHeader) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(FileHeaderSize)
	w := binio.NewWriter(&buf)

	steps := []error{
		w.Uint32(h.Magic),
		w.Uint32(h.Version),
		w.Uint32(h.NumChunks),
		w.Uint32(h.HeaderSize),
		w.Uint64(h.FileSize),
		w.Uint64(h.ModelsOffset),
		w.Uint64(h.MetadataOffset),
		w.Uint64(h.IndexOffset),
		w.Uint64(h.CreationTime),
		w.Uint32(h.ChecksumType),
		w.Uint32(h.CompressionType),
		w.Bytes(h.Reserved[:]),
	}
	for _, err := range steps {
		if err != nil {
			return nil, err
		}
	}
	if buf.Len() != FileHeaderSize {
		return nil, fmt.Errorf("nvm: encoded header is %d bytes, want %d", buf.Len(), FileHeaderSize)
	}
	return buf.Bytes(), nil
}

// DecodeFileHeader parses a header from the first bytes of a file. It does
// not validate; call Validate on the result.
func DecodeFileHeader(r *binio.Reader) (FileHeader, error) {
	var h FileHeader
	var err error
	read32 := func(dst *uint32) bool {
		if err != nil {
			return false
		}
		*dst, err = r.Uint32()
		return err == nil
	}
	read64 := func(dst *uint64) bool {
		if err != nil {
			return false
		}
		*dst, err = r.Uint64()
		return err == nil
	}

	_ = read32(&h.Magic) &&
		read32(&h.Version) &&
		read32(&h.NumChunks) &&
		read32(&h.HeaderSize) &&
		read64(&h.FileSize) &&
		read64(&h.ModelsOffset) &&
		read64(&h.MetadataOffset) &&
		read64(&h.IndexOffset) &&
		read64(&h.CreationTime) &&
		read32(&h.ChecksumType) &&
		read32(&h.CompressionType)
	if err != nil {
		return FileHeader{}, err
	}
	reserved, err := r.Bytes(len(h.Reserved))
	if err != nil {
		return FileHeader{}, err
	}
	copy(h.Reserved[:], reserved)
	return h, nil
}
