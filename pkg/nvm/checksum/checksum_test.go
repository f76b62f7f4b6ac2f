package checksum

import (
	"bytes"
	"testing"
)

func TestSHA256KnownVectors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	c, err := New(SHA256)
	if err != nil {
		t.Fatalf("new sha256: %v", err)
	}
	for _, tc := range cases {
		got := HexString(c.Calculate([]byte(tc.in)))
		if got != tc.want {
			t.Errorf("sha256(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestCRC32ReferenceValue(t *testing.T) {
	t.Parallel()

	c, err := New(CRC32)
	if err != nil {
		t.Fatalf("new crc32: %v", err)
	}
	digest := c.Calculate([]byte("123456789"))
	if len(digest) != 4 {
		t.Fatalf("digest size: got %d want 4", len(digest))
	}
	// 0xCBF43926 stored little-endian.
	want := []byte{0x26, 0x39, 0xF4, 0xCB}
	if !bytes.Equal(digest, want) {
		t.Fatalf("crc32 digest: got %x want %x", digest, want)
	}
}

func TestIncrementalMatchesOneShot(t *testing.T) {
	t.Parallel()

	for _, alg := range []Algorithm{CRC32, SHA256} {
		c, err := New(alg)
		if err != nil {
			t.Fatalf("new %v: %v", alg, err)
		}
		oneShot := c.Calculate([]byte("hello world"))

		c.Reset()
		c.Update([]byte("hello "))
		c.Update([]byte("world"))
		if !bytes.Equal(c.Finalize(), oneShot) {
			t.Errorf("%v: incremental digest differs from one-shot", alg)
		}

		// Determinism: independent calls agree.
		if !bytes.Equal(c.Calculate([]byte("hello world")), oneShot) {
			t.Errorf("%v: calculate is not deterministic", alg)
		}
	}
}

func TestDigestSizes(t *testing.T) {
	t.Parallel()

	sizes := map[Algorithm]int{None: 0, CRC32: 4, SHA256: 32}
	for alg, want := range sizes {
		if got := alg.Size(); got != want {
			t.Errorf("%v size: got %d want %d", alg, got, want)
		}
		c, err := New(alg)
		if err != nil {
			t.Fatalf("new %v: %v", alg, err)
		}
		if got := len(c.Calculate([]byte("x"))); got != want {
			t.Errorf("%v digest length: got %d want %d", alg, got, want)
		}
	}
}

func TestUnknownAlgorithmRejected(t *testing.T) {
	t.Parallel()

	if _, err := New(Algorithm(7)); err == nil {
		t.Fatal("want error for unknown algorithm id")
	}
	if err := Algorithm(7).Valid(); err == nil {
		t.Fatal("want Valid error for unknown algorithm id")
	}
}
