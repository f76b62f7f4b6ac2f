package migrate

import (
	"fmt"
	"log/slog"

	"github.com/nexussynth/nexusvoice/pkg/nvm"
)

// Strategy selects how a deprecated field is treated when it is
// encountered in a file.
type Strategy int

const (
	// Ignore drops the field silently.
	Ignore Strategy = iota
	// Warn drops the field and logs once per handler instance.
	Warn
	// Error fails the read.
	Error
	// Preserve keeps the raw value so a later save round-trips it.
	Preserve
	// Convert rewrites the value into its replacement field.
	Convert
)

func (s Strategy) String() string {
	switch s {
	case Ignore:
		return "ignore"
	case Warn:
		return "warn"
	case Error:
		return "error"
	case Preserve:
		return "preserve"
	case Convert:
		return "convert"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// FieldRule describes one deprecated field.
type FieldRule struct {
	Name string
	// DeprecatedIn is the first version that deprecates the field.
	DeprecatedIn nvm.SemanticVersion
	// RemovedIn is the first version that drops the field from the wire
	// format; zero means the field is still written.
	RemovedIn nvm.SemanticVersion
	Strategy  Strategy
	// Converter rewrites the raw value for the Convert strategy.
	Converter func(value []byte) ([]byte, error)
}

// DeprecatedFieldHandler applies field rules during reads and writes.
// Warn-once state is per handler instance, so two open files do not
// suppress each other's warnings.
type DeprecatedFieldHandler struct {
	rules  map[string]FieldRule
	warned map[string]bool
	logger *slog.Logger
}

// NewDeprecatedFieldHandler builds a handler over the given rules.
// A nil logger falls back to slog.Default.
func NewDeprecatedFieldHandler(rules []FieldRule, logger *slog.Logger) *DeprecatedFieldHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &DeprecatedFieldHandler{
		rules:  make(map[string]FieldRule, len(rules)),
		warned: make(map[string]bool),
		logger: logger,
	}
	for _, r := range rules {
		h.rules[r.Name] = r
	}
	return h
}

// Rule returns the rule for a field, if any.
func (h *DeprecatedFieldHandler) Rule(name string) (FieldRule, bool) {
	r, ok := h.rules[name]
	return r, ok
}

// ShouldRead reports whether a field present in a file of the given
// version should be decoded at all.
func (h *DeprecatedFieldHandler) ShouldRead(name string, fileVersion nvm.SemanticVersion) bool {
	r, ok := h.rules[name]
	if !ok {
		return true
	}
	if fileVersion.Less(r.DeprecatedIn) {
		return true
	}
	switch r.Strategy {
	case Ignore, Warn:
		return false
	default:
		return true
	}
}

// ShouldWrite reports whether a field should be emitted when writing at
// the given version.
func (h *DeprecatedFieldHandler) ShouldWrite(name string, writeVersion nvm.SemanticVersion) bool {
	r, ok := h.rules[name]
	if !ok {
		return true
	}
	removed := r.RemovedIn != (nvm.SemanticVersion{})
	if removed && !writeVersion.Less(r.RemovedIn) {
		return false
	}
	if !writeVersion.Less(r.DeprecatedIn) {
		return r.Strategy == Preserve || r.Strategy == Convert
	}
	return true
}

// Apply processes one deprecated field value read from a file. The
// returned value is nil when the field is dropped.
func (h *DeprecatedFieldHandler) Apply(name string, value []byte, fileVersion nvm.SemanticVersion) ([]byte, error) {
	r, ok := h.rules[name]
	if !ok || fileVersion.Less(r.DeprecatedIn) {
		return value, nil
	}

	switch r.Strategy {
	case Ignore:
		return nil, nil
	case Warn:
		if !h.warned[name] {
			h.warned[name] = true
			h.logger.Warn("deprecated field dropped",
				"field", name,
				"file_version", fileVersion.String(),
				"deprecated_in", r.DeprecatedIn.String())
		}
		return nil, nil
	case Error:
		return nil, fmt.Errorf("%w: %s (deprecated in %s)", ErrDeprecatedField, name, r.DeprecatedIn)
	case Preserve:
		return value, nil
	case Convert:
		if r.Converter == nil {
			return nil, fmt.Errorf("%w: %s has no converter", ErrDeprecatedField, name)
		}
		out, err := r.Converter(value)
		if err != nil {
			return nil, fmt.Errorf("%w: convert %s: %v", ErrDeprecatedField, name, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s has unknown strategy %s", ErrDeprecatedField, name, r.Strategy)
	}
}
