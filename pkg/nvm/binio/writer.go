package binio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer encodes fixed-width primitives to an io.Writer in little-endian
// order and tracks the absolute stream position.
type Writer struct {
	w   io.Writer
	off int64
	buf [8]byte
}

// NewWriter wraps w. The position counter starts at zero; callers writing
// into the middle of a file should account for that themselves.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Position returns the number of bytes written so far.
func (w *Writer) Position() int64 { return w.off }

func (w *Writer) writeFull(p []byte) error {
	n, err := w.w.Write(p)
	w.off += int64(n)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}

func (w *Writer) Uint8(v uint8) error {
	w.buf[0] = v
	return w.writeFull(w.buf[:1])
}

func (w *Writer) Uint16(v uint16) error {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	return w.writeFull(w.buf[:2])
}

func (w *Writer) Uint32(v uint32) error {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	return w.writeFull(w.buf[:4])
}

func (w *Writer) Uint64(v uint64) error {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	return w.writeFull(w.buf[:8])
}

func (w *Writer) Int8(v int8) error   { return w.Uint8(uint8(v)) }
func (w *Writer) Int16(v int16) error { return w.Uint16(uint16(v)) }
func (w *Writer) Int32(v int32) error { return w.Uint32(uint32(v)) }
func (w *Writer) Int64(v int64) error { return w.Uint64(uint64(v)) }

func (w *Writer) Float32(v float32) error { return w.Uint32(math.Float32bits(v)) }
func (w *Writer) Float64(v float64) error { return w.Uint64(math.Float64bits(v)) }

// Bytes writes p verbatim.
func (w *Writer) Bytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return w.writeFull(p)
}

// String writes a u32 length prefix, the raw UTF-8 bytes, and zero padding
// up to the format alignment.
func (w *Writer) String(s string) error {
	if len(s) > math.MaxUint32 {
		return fmt.Errorf("binio: string too long (%d bytes)", len(s))
	}
	if err := w.Uint32(uint32(len(s))); err != nil {
		return err
	}
	if err := w.Bytes([]byte(s)); err != nil {
		return err
	}
	return w.AlignTo(Align)
}

// FixedString writes s into a fixed-size field of n bytes, zero padded.
// Strings longer than n are truncated.
func (w *Writer) FixedString(s string, n int) error {
	buf := make([]byte, n)
	copy(buf, s)
	return w.writeFull(buf)
}

// Float64Vector writes (dimension, elements...).
func (w *Writer) Float64Vector(v []float64) error {
	if err := w.Uint32(uint32(len(v))); err != nil {
		return err
	}
	for _, x := range v {
		if err := w.Float64(x); err != nil {
			return err
		}
	}
	return nil
}

// Float64Matrix writes (rows, cols, row-major elements...). Every row must
// have cols elements.
func (w *Writer) Float64Matrix(m [][]float64) error {
	rows := len(m)
	cols := 0
	if rows > 0 {
		cols = len(m[0])
	}
	if err := w.Uint32(uint32(rows)); err != nil {
		return err
	}
	if err := w.Uint32(uint32(cols)); err != nil {
		return err
	}
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("binio: ragged matrix: row %d has %d cols, want %d", i, len(row), cols)
		}
		for _, x := range row {
			if err := w.Float64(x); err != nil {
				return err
			}
		}
	}
	return nil
}

// AlignTo writes zero bytes until the stream position is a multiple of n.
func (w *Writer) AlignTo(n int) error {
	if n <= 1 {
		return nil
	}
	pad := (int64(n) - w.off%int64(n)) % int64(n)
	for i := int64(0); i < pad; i++ {
		if err := w.Uint8(0); err != nil {
			return err
		}
	}
	return nil
}
