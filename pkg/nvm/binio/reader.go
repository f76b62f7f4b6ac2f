package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrTruncated is returned when the stream ends before an expected field.
// Short reads are never zero-filled.
var ErrTruncated = errors.New("binio: truncated stream")

// Reader decodes little-endian primitives from an io.Reader and tracks the
// absolute stream position.
type Reader struct {
	r   io.Reader
	off int64
	buf [8]byte

	// maxAlloc bounds single length-prefixed allocations so a corrupt
	// length field cannot ask for gigabytes.
	maxAlloc uint32
}

// NewReader wraps r with the default allocation limit (2 GiB - 1, the
// format's maximum chunk size).
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, maxAlloc: math.MaxInt32}
}

// SetMaxAlloc lowers the limit on a single length-prefixed allocation.
func (r *Reader) SetMaxAlloc(n uint32) { r.maxAlloc = n }

// Position returns the number of bytes consumed so far.
func (r *Reader) Position() int64 { return r.off }

func (r *Reader) readFull(p []byte) error {
	n, err := io.ReadFull(r.r, p)
	r.off += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: need %d bytes at offset %d", ErrTruncated, len(p), r.off)
		}
		return err
	}
	return nil
}

func (r *Reader) Uint8() (uint8, error) {
	if err := r.readFull(r.buf[:1]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

func (r *Reader) Uint16() (uint16, error) {
	if err := r.readFull(r.buf[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.buf[:2]), nil
}

func (r *Reader) Uint32() (uint32, error) {
	if err := r.readFull(r.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.buf[:4]), nil
}

func (r *Reader) Uint64() (uint64, error) {
	if err := r.readFull(r.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.buf[:8]), nil
}

func (r *Reader) Int8() (int8, error) {
	v, err := r.Uint8()
	return int8(v), err
}

func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

func (r *Reader) Float32() (float32, error) {
	v, err := r.Uint32()
	return math.Float32frombits(v), err
}

func (r *Reader) Float64() (float64, error) {
	v, err := r.Uint64()
	return math.Float64frombits(v), err
}

// Bytes reads exactly n bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("binio: invalid read length %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if err := r.readFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// String reads a u32 length prefix, the raw bytes, and skips padding up to
// the format alignment.
func (r *Reader) String() (string, error) {
	n, err := r.Uint32()
	if err != nil {
		return "", err
	}
	if n > r.maxAlloc {
		return "", fmt.Errorf("binio: string length %d exceeds limit %d", n, r.maxAlloc)
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	if err := r.AlignTo(Align); err != nil {
		return "", err
	}
	return string(b), nil
}

// FixedString reads an n-byte field and trims it at the first NUL.
func (r *Reader) FixedString(n int) (string, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

// Float64Vector reads (dimension, elements...).
func (r *Reader) Float64Vector() ([]float64, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if n > r.maxAlloc/8 {
		return nil, fmt.Errorf("binio: vector dimension %d exceeds limit", n)
	}
	v := make([]float64, n)
	for i := range v {
		if v[i], err = r.Float64(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Float64Matrix reads (rows, cols, row-major elements...).
func (r *Reader) Float64Matrix() ([][]float64, error) {
	rows, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	cols, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if rows > 0 && uint64(rows)*uint64(cols) > uint64(r.maxAlloc)/8 {
		return nil, fmt.Errorf("binio: matrix %dx%d exceeds limit", rows, cols)
	}
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
		for j := range m[i] {
			if m[i][j], err = r.Float64(); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// AlignTo consumes padding bytes until the position is a multiple of n.
func (r *Reader) AlignTo(n int) error {
	if n <= 1 {
		return nil
	}
	pad := (int64(n) - r.off%int64(n)) % int64(n)
	for i := int64(0); i < pad; i++ {
		if _, err := r.Uint8(); err != nil {
			return err
		}
	}
	return nil
}
