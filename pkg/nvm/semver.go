package nvm

import (
	"fmt"
	"strconv"
	"strings"
)

// SemanticVersion is the file-format version stored packed in the header:
// major in the high 16 bits, minor and patch in 8 bits each.
//
// This type versions the binary layout only. Engine/model compatibility is
// the separate voicebank.Version and the two must not be unified.
type SemanticVersion struct {
	Major uint16
	Minor uint8
	Patch uint8
}

// VersionFromUint32 unpacks a header version field.
func VersionFromUint32(v uint32) SemanticVersion {
	return SemanticVersion{
		Major: uint16(v >> 16),
		Minor: uint8(v >> 8),
		Patch: uint8(v),
	}
}

// Uint32 packs the version for the header.
func (v SemanticVersion) Uint32() uint32 {
	return uint32(v.Major)<<16 | uint32(v.Minor)<<8 | uint32(v.Patch)
}

func (v SemanticVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion parses "major.minor.patch" within the packed field ranges.
func ParseVersion(s string) (SemanticVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return SemanticVersion{}, fmt.Errorf("nvm: invalid version %q", s)
	}
	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return SemanticVersion{}, fmt.Errorf("nvm: invalid version %q", s)
	}
	minor, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return SemanticVersion{}, fmt.Errorf("nvm: invalid version %q", s)
	}
	patch, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return SemanticVersion{}, fmt.Errorf("nvm: invalid version %q", s)
	}
	return SemanticVersion{Major: uint16(major), Minor: uint8(minor), Patch: uint8(patch)}, nil
}

// Compare orders versions by major, then minor, then patch. The ordering
// is strict and total.
func (v SemanticVersion) Compare(other SemanticVersion) int {
	switch {
	case v.Major != other.Major:
		if v.Major < other.Major {
			return -1
		}
		return 1
	case v.Minor != other.Minor:
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	case v.Patch != other.Patch:
		if v.Patch < other.Patch {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports v < other.
func (v SemanticVersion) Less(other SemanticVersion) bool {
	return v.Compare(other) < 0
}

// CompatibleWith is the coarse check: same major version, no ordering
// requirement.
func (v SemanticVersion) CompatibleWith(other SemanticVersion) bool {
	return v.Major == other.Major
}

// BackwardCompatibleWith reports whether data written at other can be read
// at v: same major and v >= other.
func (v SemanticVersion) BackwardCompatibleWith(other SemanticVersion) bool {
	return v.Major == other.Major && v.Compare(other) >= 0
}

// ForwardCompatibleWith reports whether data written at v can be read at
// other: same major and v <= other.
func (v SemanticVersion) ForwardCompatibleWith(other SemanticVersion) bool {
	return v.Major == other.Major && v.Compare(other) <= 0
}
