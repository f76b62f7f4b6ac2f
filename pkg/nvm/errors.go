package nvm

import "errors"

// Format errors: the file is not a readable NVM container. Always fatal to
// the open attempt.
var (
	ErrBadMagic           = errors.New("nvm: invalid magic number")
	ErrBadHeaderSize      = errors.New("nvm: header size mismatch")
	ErrUnsupportedVersion = errors.New("nvm: unsupported format version")
	ErrChunkTypeMismatch  = errors.New("nvm: unexpected chunk type")
	ErrCorruptFile        = errors.New("nvm: corrupt file")
)

// Integrity errors: the structure parsed but the content cannot be trusted.
var (
	ErrChecksumMismatch = errors.New("nvm: chunk checksum mismatch")
	ErrTruncatedChunk   = errors.New("nvm: truncated chunk")
)

// ErrUnsupportedFeature marks files that are structurally valid but use an
// optional feature this build does not implement (e.g. the reserved LZ4
// compression slot). Distinct from format errors on purpose.
var ErrUnsupportedFeature = errors.New("nvm: unsupported optional feature")

// Handle state errors.
var (
	ErrClosed        = errors.New("nvm: file handle is closed")
	ErrNoPath        = errors.New("nvm: no file path associated with handle")
	ErrModelNotFound = errors.New("nvm: model not found")
	ErrTooManyModels = errors.New("nvm: model count exceeds format limit")
	ErrNameTooLong   = errors.New("nvm: model name exceeds format limit")
)
