// Package compress implements the pluggable block codecs of the NVM
// container format.
//
// An algorithm is identified on disk by a small integer id in the file
// header. Id 2 (LZ4) is reserved: files declaring it are structurally valid
// but this build cannot decode their chunk payloads.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Algorithm identifies a compression algorithm in the file header.
type Algorithm uint32

const (
	None Algorithm = 0
	Zlib Algorithm = 1
	// LZ4 is a recognized id with no implementation in this build.
	LZ4 Algorithm = 2
)

// ErrCodec wraps any underlying codec failure. Truncated or corrupt
// streams surface as ErrCodec, never as silently shortened output.
var ErrCodec = errors.New("compress: codec failure")

// ErrUnsupported marks an algorithm id that is valid in the format but not
// implemented here. Callers must keep it distinct from format errors so a
// reader can tell "bad file" from "file uses a feature I lack".
var ErrUnsupported = errors.New("compress: algorithm not supported by this build")

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Zlib:
		return "zlib"
	case LZ4:
		return "lz4"
	}
	return fmt.Sprintf("compression(%d)", uint32(a))
}

// Valid reports whether the id is known to the format, including the
// reserved LZ4 slot.
func (a Algorithm) Valid() error {
	switch a {
	case None, Zlib, LZ4:
		return nil
	}
	return fmt.Errorf("unknown compression algorithm id %d", uint32(a))
}

// Codec compresses and decompresses whole chunk payloads.
type Codec interface {
	Algorithm() Algorithm
	Compress(p []byte) ([]byte, error)
	Decompress(p []byte) ([]byte, error)
}

// New returns the Codec for an algorithm id. The reserved LZ4 id returns
// ErrUnsupported; unknown ids return a format-level error.
func New(a Algorithm) (Codec, error) {
	switch a {
	case None:
		return identityCodec{}, nil
	case Zlib:
		return zlibCodec{}, nil
	case LZ4:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, a)
	}
	return nil, a.Valid()
}

type identityCodec struct{}

func (identityCodec) Algorithm() Algorithm { return None }

func (identityCodec) Compress(p []byte) ([]byte, error) {
	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}

func (identityCodec) Decompress(p []byte) ([]byte, error) {
	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}

type zlibCodec struct{}

func (zlibCodec) Algorithm() Algorithm { return Zlib }

func (zlibCodec) Compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(p)/2 + 64)
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(p); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return buf.Bytes(), nil
}

func (zlibCodec) Decompress(p []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		_ = zr.Close()
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	// Close checks the trailing Adler-32; a corrupt stream must not be
	// returned as truncated-but-ok output.
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return buf.Bytes(), nil
}
