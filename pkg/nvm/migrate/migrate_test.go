package migrate

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/nexussynth/nexusvoice/pkg/nvm"
)

var (
	v100 = nvm.SemanticVersion{Major: 1, Minor: 0, Patch: 0}
	v110 = nvm.SemanticVersion{Major: 1, Minor: 1, Patch: 0}
	v200 = nvm.SemanticVersion{Major: 2, Minor: 0, Patch: 0}
)

// stepMigrator supports exactly one version hop and records invocations.
type stepMigrator struct {
	from, to nvm.SemanticVersion
	calls    int
	fail     error
	mutate   func(f *nvm.File) error
}

func (s *stepMigrator) Supports(from, to nvm.SemanticVersion) bool {
	return from == s.from && to == s.to
}

func (s *stepMigrator) Migrate(f *nvm.File, from, to nvm.SemanticVersion) error {
	s.calls++
	if s.fail != nil {
		return s.fail
	}
	if s.mutate != nil {
		return s.mutate(f)
	}
	return nil
}

func TestMatrixFallbackRules(t *testing.T) {
	t.Parallel()

	m := NewCompatibilityMatrix()

	info := m.Lookup(v100, v110)
	if !info.CanRead {
		t.Error("1.1.0 reader should read 1.0.0 files")
	}
	if !info.CanWrite {
		t.Error("1.1.0 reader should write over 1.0.0 files")
	}

	info = m.Lookup(v110, v100)
	if !info.CanRead {
		t.Error("same-major newer file should still be readable")
	}
	if info.CanWrite {
		t.Error("1.0.0 reader must not rewrite a 1.1.0 file")
	}

	info = m.Lookup(v200, v100)
	if info.CanRead || info.CanWrite {
		t.Error("cross-major pair should be incompatible")
	}
	if !info.RequiresUpdate {
		t.Error("cross-major pair should require an update")
	}
}

func TestMatrixExplicitEntryWins(t *testing.T) {
	t.Parallel()

	m := NewCompatibilityMatrix()
	m.Register(CompatibilityInfo{
		FileVersion:      v110,
		ReaderVersion:    v100,
		CanRead:          false,
		DeprecatedFields: []string{"note_duration_frames"},
	})

	info := m.Lookup(v110, v100)
	if info.CanRead {
		t.Error("explicit record should override the fallback")
	}
	if len(info.DeprecatedFields) != 1 || info.DeprecatedFields[0] != "note_duration_frames" {
		t.Errorf("deprecated fields %v", info.DeprecatedFields)
	}
}

func TestMigrationPathIdentity(t *testing.T) {
	t.Parallel()

	p, err := GetMigrationPath(v100, v100, nil, nil)
	if err != nil {
		t.Fatalf("identity path: %v", err)
	}
	if !p.Empty() {
		t.Fatalf("identity path has %d steps", len(p.Steps))
	}
}

func TestMigrationPathChain(t *testing.T) {
	t.Parallel()

	first := &stepMigrator{from: v100, to: v110}
	second := &stepMigrator{from: v110, to: v200}

	p, err := GetMigrationPath(v100, v200, []Migrator{second, first}, []nvm.SemanticVersion{v110})
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if len(p.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(p.Steps))
	}
	if p.Steps[0].To != v110 || p.Steps[1].To != v200 {
		t.Errorf("path %v -> %v", p.Steps[0].To, p.Steps[1].To)
	}
}

func TestMigrationPathBrokenChain(t *testing.T) {
	t.Parallel()

	// Only the second hop exists.
	second := &stepMigrator{from: v110, to: v200}
	_, err := GetMigrationPath(v100, v200, []Migrator{second}, []nvm.SemanticVersion{v110})
	if !errors.Is(err, ErrNoMigrationPath) {
		t.Fatalf("got %v, want ErrNoMigrationPath", err)
	}

	_, err = GetMigrationPath(v100, v200, nil, nil)
	if !errors.Is(err, ErrNoMigrationPath) {
		t.Fatalf("no migrators: got %v, want ErrNoMigrationPath", err)
	}
}

func TestDeprecatedFieldStrategies(t *testing.T) {
	t.Parallel()

	rules := []FieldRule{
		{Name: "drop_me", DeprecatedIn: v110, Strategy: Ignore},
		{Name: "fail_me", DeprecatedIn: v110, Strategy: Error},
		{Name: "keep_me", DeprecatedIn: v110, Strategy: Preserve},
		{Name: "fix_me", DeprecatedIn: v110, Strategy: Convert,
			Converter: func(v []byte) ([]byte, error) { return append([]byte("ms:"), v...), nil }},
	}
	h := NewDeprecatedFieldHandler(rules, nil)

	// Fields in files older than the deprecation pass through unchanged.
	got, err := h.Apply("drop_me", []byte("x"), v100)
	if err != nil || string(got) != "x" {
		t.Errorf("pre-deprecation: %q, %v", got, err)
	}

	if got, err := h.Apply("drop_me", []byte("x"), v110); err != nil || got != nil {
		t.Errorf("ignore: %q, %v", got, err)
	}
	if _, err := h.Apply("fail_me", []byte("x"), v110); !errors.Is(err, ErrDeprecatedField) {
		t.Errorf("error strategy: %v", err)
	}
	if got, _ := h.Apply("keep_me", []byte("x"), v110); string(got) != "x" {
		t.Errorf("preserve: %q", got)
	}
	if got, _ := h.Apply("fix_me", []byte("120"), v110); string(got) != "ms:120" {
		t.Errorf("convert: %q", got)
	}
}

func TestDeprecatedFieldWarnOncePerInstance(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rules := []FieldRule{{Name: "old", DeprecatedIn: v110, Strategy: Warn}}

	h1 := NewDeprecatedFieldHandler(rules, logger)
	h2 := NewDeprecatedFieldHandler(rules, logger)

	for i := 0; i < 3; i++ {
		if _, err := h1.Apply("old", []byte("v"), v110); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := h2.Apply("old", []byte("v"), v110); err != nil {
		t.Fatal(err)
	}

	// Three applies on one handler warn once; the second handler warns
	// independently.
	if got := strings.Count(buf.String(), "deprecated field dropped"); got != 2 {
		t.Fatalf("warned %d times, want 2\n%s", got, buf.String())
	}
}

func TestDeprecatedFieldGating(t *testing.T) {
	t.Parallel()

	h := NewDeprecatedFieldHandler([]FieldRule{
		{Name: "legacy", DeprecatedIn: v110, RemovedIn: v200, Strategy: Warn},
		{Name: "held", DeprecatedIn: v110, Strategy: Preserve},
	}, nil)

	if !h.ShouldRead("legacy", v100) {
		t.Error("field should be read from pre-deprecation files")
	}
	if h.ShouldRead("legacy", v110) {
		t.Error("warn strategy should skip reading after deprecation")
	}
	if !h.ShouldRead("held", v110) {
		t.Error("preserve strategy should still read")
	}
	if !h.ShouldRead("unknown", v110) {
		t.Error("unknown fields are always read")
	}

	if !h.ShouldWrite("legacy", v100) {
		t.Error("field should be written before deprecation")
	}
	if h.ShouldWrite("legacy", v110) {
		t.Error("warn strategy should not write after deprecation")
	}
	if !h.ShouldWrite("held", v110) {
		t.Error("preserve strategy keeps writing until removal")
	}
	if h.ShouldWrite("legacy", v200) {
		t.Error("nothing is written at or past the removal version")
	}
}
