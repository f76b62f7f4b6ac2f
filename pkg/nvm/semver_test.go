package nvm

import "testing"

func TestVersionPackUnpack(t *testing.T) {
	t.Parallel()

	cases := []struct {
		v      SemanticVersion
		packed uint32
	}{
		{SemanticVersion{1, 0, 0}, 0x00010000},
		{SemanticVersion{1, 2, 3}, 0x00010203},
		{SemanticVersion{65535, 255, 255}, 0xFFFFFFFF},
		{SemanticVersion{0, 0, 1}, 0x00000001},
	}
	for _, tc := range cases {
		if got := tc.v.Uint32(); got != tc.packed {
			t.Errorf("%s: packed 0x%08X, want 0x%08X", tc.v, got, tc.packed)
		}
		if got := VersionFromUint32(tc.packed); got != tc.v {
			t.Errorf("0x%08X: unpacked %s, want %s", tc.packed, got, tc.v)
		}
	}
}

func TestVersionParse(t *testing.T) {
	t.Parallel()

	v, err := ParseVersion("2.10.3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v != (SemanticVersion{2, 10, 3}) {
		t.Fatalf("got %+v", v)
	}
	if v.String() != "2.10.3" {
		t.Fatalf("render: %q", v.String())
	}

	for _, bad := range []string{"", "1", "1.2", "1.2.3.4", "a.b.c", "1.2.x", "-1.2.3"} {
		if _, err := ParseVersion(bad); err == nil {
			t.Errorf("parse %q: expected error", bad)
		}
	}
}

func TestVersionOrdering(t *testing.T) {
	t.Parallel()

	ordered := []SemanticVersion{
		{0, 9, 9},
		{1, 0, 0},
		{1, 0, 1},
		{1, 1, 0},
		{2, 0, 0},
	}
	for i := 1; i < len(ordered); i++ {
		lo, hi := ordered[i-1], ordered[i]
		if !lo.Less(hi) {
			t.Errorf("%s should be less than %s", lo, hi)
		}
		if hi.Less(lo) {
			t.Errorf("%s should not be less than %s", hi, lo)
		}
		if lo.Compare(hi) >= 0 || hi.Compare(lo) <= 0 {
			t.Errorf("compare disagrees for %s vs %s", lo, hi)
		}
	}
	v := SemanticVersion{1, 2, 3}
	if v.Less(v) || v.Compare(v) != 0 {
		t.Errorf("version not equal to itself")
	}
}

func TestVersionCompatibility(t *testing.T) {
	t.Parallel()

	v110 := SemanticVersion{1, 1, 0}
	v100 := SemanticVersion{1, 0, 0}
	v200 := SemanticVersion{2, 0, 0}

	if !v110.CompatibleWith(v100) {
		t.Error("same-major versions should be compatible")
	}
	if v110.CompatibleWith(v200) {
		t.Error("cross-major versions should be incompatible")
	}
	if !v110.BackwardCompatibleWith(v100) {
		t.Error("1.1.0 should read files written by 1.0.0")
	}
	if v100.BackwardCompatibleWith(v110) {
		t.Error("1.0.0 should not claim to read 1.1.0 files")
	}
	if !v100.ForwardCompatibleWith(v110) {
		t.Error("1.0.0 files should be forward compatible with 1.1.0")
	}
}
