package binio

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestPrimitivesLittleEndian(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Uint16(0x1122); err != nil {
		t.Fatalf("uint16: %v", err)
	}
	if err := w.Uint32(0x11223344); err != nil {
		t.Fatalf("uint32: %v", err)
	}
	if err := w.Uint64(0x0102030405060708); err != nil {
		t.Fatalf("uint64: %v", err)
	}

	raw := buf.Bytes()
	if raw[0] != 0x22 || raw[1] != 0x11 {
		t.Fatalf("uint16 not little-endian: %x", raw[:2])
	}
	if raw[2] != 0x44 || raw[5] != 0x11 {
		t.Fatalf("uint32 not little-endian: %x", raw[2:6])
	}
	if raw[6] != 0x08 || raw[13] != 0x01 {
		t.Fatalf("uint64 not little-endian: %x", raw[6:14])
	}
	if w.Position() != 14 {
		t.Fatalf("position: got %d want 14", w.Position())
	}
}

func TestRoundTripScalars(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	checks := []func() error{
		func() error { return w.Int8(-5) },
		func() error { return w.Int32(-123456) },
		func() error { return w.Int64(-1 << 40) },
		func() error { return w.Float32(3.5) },
		func() error { return w.Float64(math.Pi) },
	}
	for i, fn := range checks {
		if err := fn(); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	if v, err := r.Int8(); err != nil || v != -5 {
		t.Fatalf("int8: %d, %v", v, err)
	}
	if v, err := r.Int32(); err != nil || v != -123456 {
		t.Fatalf("int32: %d, %v", v, err)
	}
	if v, err := r.Int64(); err != nil || v != -1<<40 {
		t.Fatalf("int64: %d, %v", v, err)
	}
	if v, err := r.Float32(); err != nil || v != 3.5 {
		t.Fatalf("float32: %v, %v", v, err)
	}
	if v, err := r.Float64(); err != nil || v != math.Pi {
		t.Fatalf("float64: %v, %v", v, err)
	}
	if r.Position() != int64(buf.Len()) {
		t.Fatalf("reader position: got %d want %d", r.Position(), buf.Len())
	}
}

func TestStringAlignment(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.String("abc"); err != nil {
		t.Fatalf("string: %v", err)
	}
	// 4-byte length + 3 bytes + pad to 8.
	if buf.Len() != 8 {
		t.Fatalf("aligned length: got %d want 8", buf.Len())
	}
	if err := w.String(""); err != nil {
		t.Fatalf("empty string: %v", err)
	}
	// Empty string is length prefix plus pad to the next 8-byte boundary.
	if buf.Len() != 16 {
		t.Fatalf("aligned length after empty: got %d want 16", buf.Len())
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	s, err := r.String()
	if err != nil || s != "abc" {
		t.Fatalf("read string: %q, %v", s, err)
	}
	s, err = r.String()
	if err != nil || s != "" {
		t.Fatalf("read empty string: %q, %v", s, err)
	}
}

func TestFixedStringTrimsAtNUL(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.FixedString("ja-vcv", 16); err != nil {
		t.Fatalf("fixed string: %v", err)
	}
	if buf.Len() != 16 {
		t.Fatalf("fixed field length: got %d want 16", buf.Len())
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	s, err := r.FixedString(16)
	if err != nil || s != "ja-vcv" {
		t.Fatalf("read fixed string: %q, %v", s, err)
	}
}

func TestVectorMatrixRoundTrip(t *testing.T) {
	t.Parallel()

	vec := []float64{1.5, -2.25, 1e-9}
	mat := [][]float64{{1, 2, 3}, {4, 5, 6}}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Float64Vector(vec); err != nil {
		t.Fatalf("vector: %v", err)
	}
	if err := w.Float64Matrix(mat); err != nil {
		t.Fatalf("matrix: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	gotVec, err := r.Float64Vector()
	if err != nil {
		t.Fatalf("read vector: %v", err)
	}
	for i := range vec {
		if gotVec[i] != vec[i] {
			t.Fatalf("vector[%d]: got %v want %v", i, gotVec[i], vec[i])
		}
	}
	gotMat, err := r.Float64Matrix()
	if err != nil {
		t.Fatalf("read matrix: %v", err)
	}
	for i := range mat {
		for j := range mat[i] {
			if gotMat[i][j] != mat[i][j] {
				t.Fatalf("matrix[%d][%d]: got %v want %v", i, j, gotMat[i][j], mat[i][j])
			}
		}
	}
}

func TestRaggedMatrixRejected(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Float64Matrix([][]float64{{1, 2}, {3}}); err == nil {
		t.Fatal("want error for ragged matrix")
	}
}

func TestTruncatedStream(t *testing.T) {
	t.Parallel()

	r := NewReader(bytes.NewReader([]byte{0x01, 0x02}))
	if _, err := r.Uint32(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("want ErrTruncated, got %v", err)
	}

	// A string whose declared length exceeds the remaining bytes must fail,
	// not come back zero-filled.
	raw := []byte{0xFF, 0x00, 0x00, 0x00, 'a', 'b'}
	r = NewReader(bytes.NewReader(raw))
	if _, err := r.String(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("want ErrTruncated for short string, got %v", err)
	}
}

func TestMaxAllocGuard(t *testing.T) {
	t.Parallel()

	raw := []byte{0xFF, 0xFF, 0xFF, 0x7F}
	r := NewReader(bytes.NewReader(raw))
	r.SetMaxAlloc(1 << 20)
	if _, err := r.String(); err == nil {
		t.Fatal("want error for oversized string length")
	}
}
