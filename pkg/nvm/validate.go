package nvm

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/nexussynth/nexusvoice/pkg/nvm/binio"
	"github.com/nexussynth/nexusvoice/pkg/nvm/checksum"
	"github.com/nexussynth/nexusvoice/pkg/nvm/compress"
)

// ReadFileHeader reads and decodes only the 64-byte file header. It is the
// cheap probe used for version detection; the header is decoded but not
// validated beyond what decoding requires.
func ReadFileHeader(path string) (FileHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileHeader{}, err
	}
	defer f.Close()

	buf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return FileHeader{}, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	return DecodeFileHeader(binio.NewReader(bytes.NewReader(buf)))
}

// IsValidFile reports whether path holds a structurally valid container
// header. It does not decode chunk contents.
func IsValidFile(path string) bool {
	h, err := ReadFileHeader(path)
	if err != nil {
		return false
	}
	return h.Validate() == nil
}

// CheckFileIntegrity fully parses the container at path, returning the
// first structural error found. Checksums are verified as a side effect of
// chunk decoding when the file carries them.
func CheckFileIntegrity(path string) error {
	f, err := Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.VerifyIntegrity()
}

// VerifyFileChecksums verifies the stored digest of every chunk in the
// file against a fresh computation over the decompressed payload. A file
// whose header declares no checksum algorithm verifies trivially.
func VerifyFileChecksums(path string) error {
	data, cleanup, err := readFileBytes(path)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(data) < FileHeaderSize {
		return fmt.Errorf("%w: file is %d bytes, smaller than the header", ErrCorruptFile, len(data))
	}
	header, err := DecodeFileHeader(binio.NewReader(bytes.NewReader(data)))
	if err != nil {
		return err
	}
	if err := header.Validate(); err != nil {
		return err
	}
	if checksum.Algorithm(header.ChecksumType) == checksum.None {
		return nil
	}

	cc, err := newChunkCodecs(checksum.Algorithm(header.ChecksumType), compress.Algorithm(header.CompressionType))
	if err != nil {
		return err
	}
	chunks := []struct {
		offset uint64
		typ    uint32
	}{
		{header.MetadataOffset, ChunkMetadata},
		{header.IndexOffset, ChunkIndex},
		{header.ModelsOffset, ChunkModels},
	}
	for _, c := range chunks {
		if c.offset < FileHeaderSize || c.offset >= uint64(len(data)) {
			return fmt.Errorf("%w: %s chunk offset %d out of range",
				ErrCorruptFile, ChunkTypeString(c.typ), c.offset)
		}
		r := binio.NewReader(bytes.NewReader(data[c.offset:]))
		if _, hdr, err := cc.readChunk(r, c.typ); err != nil {
			return err
		} else if hdr.Flags&ChunkFlagChecksummed == 0 {
			return fmt.Errorf("%w: chunk %s carries no digest although the header declares %s",
				ErrCorruptFile, ChunkTypeString(c.typ), checksum.Algorithm(header.ChecksumType))
		}
	}
	return nil
}
