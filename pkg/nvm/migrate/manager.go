package migrate

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nexussynth/nexusvoice/pkg/nvm"
)

// Manager is the front door of the migration subsystem: it detects file
// versions, answers compatibility questions for the running reader, and
// rewrites files to other format versions.
type Manager struct {
	reader    nvm.SemanticVersion
	matrix    *CompatibilityMatrix
	migrators []Migrator
	logger    *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithReaderVersion overrides the version the manager reasons as.
func WithReaderVersion(v nvm.SemanticVersion) Option {
	return func(m *Manager) { m.reader = v }
}

// WithMatrix installs a custom compatibility matrix.
func WithMatrix(matrix *CompatibilityMatrix) Option {
	return func(m *Manager) { m.matrix = matrix }
}

// WithMigrators registers the migrators available for path finding.
func WithMigrators(migrators ...Migrator) Option {
	return func(m *Manager) { m.migrators = append(m.migrators, migrators...) }
}

// WithLogger sets the logger for migration progress.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager builds a manager for the current format version.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		reader: nvm.CurrentVersion,
		matrix: NewCompatibilityMatrix(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DetectFileVersion reads only the file header and returns the format
// version, without decoding any chunk.
func (m *Manager) DetectFileVersion(path string) (nvm.SemanticVersion, error) {
	h, err := nvm.ReadFileHeader(path)
	if err != nil {
		return nvm.SemanticVersion{}, err
	}
	if err := h.Validate(); err != nil {
		return nvm.SemanticVersion{}, err
	}
	return h.SemVer(), nil
}

// CanRead reports whether the manager's reader version can read a file
// written at the given version.
func (m *Manager) CanRead(fileVersion nvm.SemanticVersion) bool {
	return m.matrix.Lookup(fileVersion, m.reader).CanRead
}

// CanWrite reports whether the manager's reader version can rewrite a
// file at the given version without losing information.
func (m *Manager) CanWrite(fileVersion nvm.SemanticVersion) bool {
	return m.matrix.Lookup(fileVersion, m.reader).CanWrite
}

// Check returns the full compatibility record for a file on disk.
func (m *Manager) Check(path string) (CompatibilityInfo, error) {
	v, err := m.DetectFileVersion(path)
	if err != nil {
		return CompatibilityInfo{}, err
	}
	return m.matrix.Lookup(v, m.reader), nil
}

// ConvertOptions tune a file conversion.
type ConvertOptions struct {
	// Backup writes a sibling .bak copy of the original before the
	// converted file replaces it.
	Backup bool
}

// Upgrade rewrites the file in place to the manager's reader version.
func (m *Manager) Upgrade(path string, opts ConvertOptions) error {
	return m.Convert(path, m.reader, opts)
}

// Downgrade rewrites the file in place to an older target version.
func (m *Manager) Downgrade(path string, target nvm.SemanticVersion, opts ConvertOptions) error {
	if m.reader.Less(target) {
		return fmt.Errorf("%w: downgrade target %s is newer than reader %s",
			ErrNoMigrationPath, target, m.reader)
	}
	return m.Convert(path, target, opts)
}

// Convert rewrites the file at path to the target format version. The
// original file is left untouched on any failure; with equal source and
// target versions the file is not rewritten at all.
func (m *Manager) Convert(path string, target nvm.SemanticVersion, opts ConvertOptions) error {
	from, err := m.DetectFileVersion(path)
	if err != nil {
		return err
	}
	pathPlan, err := GetMigrationPath(from, target, m.migrators, m.matrix.KnownVersions())
	if err != nil {
		return err
	}
	if pathPlan.Empty() {
		m.logger.Debug("file already at target version", "path", path, "version", target.String())
		return nil
	}

	f, err := nvm.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, step := range pathPlan.Steps {
		m.logger.Info("migrating",
			"path", path,
			"from", step.From.String(),
			"to", step.To.String())
		if err := step.Migrator.Migrate(f, step.From, step.To); err != nil {
			return fmt.Errorf("%w: %s to %s: %v", ErrMigration, step.From, step.To, err)
		}
	}
	if err := f.SetFormatVersion(target); err != nil {
		return fmt.Errorf("%w: %v", ErrMigration, err)
	}

	if opts.Backup {
		if err := copyFile(path, path+".bak"); err != nil {
			return fmt.Errorf("%w: backup: %v", ErrMigration, err)
		}
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("%w: save: %v", ErrMigration, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
