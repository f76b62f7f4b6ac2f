// Package binio provides the typed little-endian codec used by the NVM
// container format.
//
// All multi-byte values are encoded little-endian regardless of host byte
// order. Variable-length fields (strings, vectors, matrices) are
// length-prefixed and padded to the format alignment.
package binio

// Align is the NVM format alignment. Variable-length fields are zero-padded
// to this boundary.
const Align = 8
