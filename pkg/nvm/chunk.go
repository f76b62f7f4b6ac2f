package nvm

import (
	"bytes"
	"fmt"

	"github.com/nexussynth/nexusvoice/pkg/nvm/binio"
	"github.com/nexussynth/nexusvoice/pkg/nvm/checksum"
	"github.com/nexussynth/nexusvoice/pkg/nvm/compress"
)

// Chunk flags.
const (
	// ChunkFlagCompressed marks a payload stored in compressed form using
	// the file header's compression algorithm.
	ChunkFlagCompressed uint32 = 1 << 0
	// ChunkFlagChecksummed marks a chunk whose header is followed by a
	// digest of the uncompressed payload, using the file header's checksum
	// algorithm.
	ChunkFlagChecksummed uint32 = 1 << 1
)

// ChunkHeader is the fixed 16-byte header preceding every chunk payload.
type ChunkHeader struct {
	Type    uint32
	Size    uint32 // payload bytes as stored (post-compression)
	Version uint32
	Flags   uint32
}

func (c *ChunkHeader) write(w *binio.Writer) error {
	for _, v := range [...]uint32{c.Type, c.Size, c.Version, c.Flags} {
		if err := w.Uint32(v); err != nil {
			return err
		}
	}
	return nil
}

func readChunkHeader(r *binio.Reader) (ChunkHeader, error) {
	var c ChunkHeader
	for _, dst := range [...]*uint32{&c.Type, &c.Size, &c.Version, &c.Flags} {
		v, err := r.Uint32()
		if err != nil {
			return ChunkHeader{}, err
		}
		*dst = v
	}
	return c, nil
}

// chunkCodecs bundles the per-file checksum and compression configuration
// used on the chunk write/read path. Both paths must honor it; a header
// that declares compression whose chunks were never compressed is exactly
// the corruption this layer exists to prevent.
type chunkCodecs struct {
	sum   checksum.Algorithm
	comp  compress.Algorithm
	calc  checksum.Calculator
	codec compress.Codec
}

func newChunkCodecs(sum checksum.Algorithm, comp compress.Algorithm) (*chunkCodecs, error) {
	cc := &chunkCodecs{sum: sum, comp: comp}
	var err error
	if cc.calc, err = checksum.New(sum); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	if cc.codec, err = compress.New(comp); err != nil {
		if compress.Algorithm(comp).Valid() == nil {
			// Recognized but unimplemented (the reserved LZ4 slot).
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFeature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	return cc, nil
}

// writeChunk emits a chunk header, the optional payload digest, the
// (possibly compressed) payload, and alignment padding. The digest always
// covers the raw uncompressed payload so verification is independent of
// the compression algorithm. Returns the absolute offset of the chunk
// header.
func (cc *chunkCodecs) writeChunk(w *binio.Writer, typ uint32, version uint32, payload []byte) (int64, error) {
	if err := w.AlignTo(Alignment); err != nil {
		return 0, err
	}
	offset := w.Position()

	var flags uint32
	var digest []byte
	if cc.sum != checksum.None {
		flags |= ChunkFlagChecksummed
		digest = cc.calc.Calculate(payload)
	}

	stored := payload
	if cc.comp != compress.None {
		packed, err := cc.codec.Compress(payload)
		if err != nil {
			return 0, err
		}
		stored = packed
		flags |= ChunkFlagCompressed
	}
	if len(stored) > MaxChunkSize {
		return 0, fmt.Errorf("%w: chunk %s payload is %d bytes",
			ErrCorruptFile, ChunkTypeString(typ), len(stored))
	}

	hdr := ChunkHeader{Type: typ, Size: uint32(len(stored)), Version: version, Flags: flags}
	if err := hdr.write(w); err != nil {
		return 0, err
	}
	if err := w.Bytes(digest); err != nil {
		return 0, err
	}
	if err := w.Bytes(stored); err != nil {
		return 0, err
	}
	if err := w.AlignTo(Alignment); err != nil {
		return 0, err
	}
	return offset, nil
}

// readChunk reads one chunk at the reader's current position, checks the
// declared type tag, verifies the stored digest, and returns the
// decompressed payload.
func (cc *chunkCodecs) readChunk(r *binio.Reader, wantType uint32) ([]byte, ChunkHeader, error) {
	hdr, err := readChunkHeader(r)
	if err != nil {
		return nil, ChunkHeader{}, fmt.Errorf("%w: chunk header: %v", ErrTruncatedChunk, err)
	}
	if hdr.Type != wantType {
		return nil, hdr, fmt.Errorf("%w: got %s want %s",
			ErrChunkTypeMismatch, ChunkTypeString(hdr.Type), ChunkTypeString(wantType))
	}
	if hdr.Size > MaxChunkSize {
		return nil, hdr, fmt.Errorf("%w: chunk %s declares %d bytes",
			ErrCorruptFile, ChunkTypeString(hdr.Type), hdr.Size)
	}

	var stored []byte
	var digest []byte
	if hdr.Flags&ChunkFlagChecksummed != 0 {
		if cc.sum == checksum.None {
			return nil, hdr, fmt.Errorf("%w: chunk %s carries a digest but the header declares no checksum algorithm",
				ErrCorruptFile, ChunkTypeString(hdr.Type))
		}
		if digest, err = r.Bytes(cc.sum.Size()); err != nil {
			return nil, hdr, fmt.Errorf("%w: chunk digest: %v", ErrTruncatedChunk, err)
		}
	}
	if stored, err = r.Bytes(int(hdr.Size)); err != nil {
		return nil, hdr, fmt.Errorf("%w: chunk payload: %v", ErrTruncatedChunk, err)
	}
	if err := r.AlignTo(Alignment); err != nil {
		return nil, hdr, fmt.Errorf("%w: chunk padding: %v", ErrTruncatedChunk, err)
	}

	payload := stored
	if hdr.Flags&ChunkFlagCompressed != 0 {
		if cc.comp == compress.None {
			return nil, hdr, fmt.Errorf("%w: chunk %s is compressed but the header declares no compression algorithm",
				ErrCorruptFile, ChunkTypeString(hdr.Type))
		}
		if payload, err = cc.codec.Decompress(stored); err != nil {
			return nil, hdr, err
		}
	}

	if digest != nil {
		actual := cc.calc.Calculate(payload)
		if !bytes.Equal(actual, digest) {
			return nil, hdr, fmt.Errorf("%w: chunk %s: stored %s actual %s",
				ErrChecksumMismatch, ChunkTypeString(hdr.Type),
				checksum.HexString(digest), checksum.HexString(actual))
		}
	}
	return payload, hdr, nil
}
