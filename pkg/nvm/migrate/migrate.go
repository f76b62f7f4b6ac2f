// Package migrate implements version compatibility checks and file
// migration for NVM containers: a compatibility matrix over format
// versions, handlers for fields that versions deprecate, and a manager
// that upgrades or downgrades files on disk.
package migrate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nexussynth/nexusvoice/pkg/nvm"
)

var (
	// ErrNoMigrationPath means no migrator chain connects the two versions.
	ErrNoMigrationPath = errors.New("migrate: no migration path")
	// ErrMigration wraps a failure inside a migration step.
	ErrMigration = errors.New("migrate: migration failed")
	// ErrDeprecatedField is returned by the Error strategy.
	ErrDeprecatedField = errors.New("migrate: deprecated field")
)

// CompatibilityInfo records the relationship between one written version
// and one reading version.
type CompatibilityInfo struct {
	FileVersion    nvm.SemanticVersion
	ReaderVersion  nvm.SemanticVersion
	CanRead        bool
	CanWrite       bool
	RequiresUpdate bool

	DeprecatedFields []string
	RemovedFields    []string
	AddedFields      []string
}

// CompatibilityMatrix holds per-version-pair compatibility records and
// falls back to semantic-version rules for pairs without an explicit
// entry.
type CompatibilityMatrix struct {
	entries map[[2]uint32]CompatibilityInfo
}

// NewCompatibilityMatrix returns a matrix pre-loaded with the known
// format versions.
func NewCompatibilityMatrix() *CompatibilityMatrix {
	m := &CompatibilityMatrix{entries: make(map[[2]uint32]CompatibilityInfo)}
	v100 := nvm.SemanticVersion{Major: 1, Minor: 0, Patch: 0}
	m.Register(CompatibilityInfo{
		FileVersion:   v100,
		ReaderVersion: v100,
		CanRead:       true,
		CanWrite:      true,
	})
	return m
}

func pairKey(file, reader nvm.SemanticVersion) [2]uint32 {
	return [2]uint32{file.Uint32(), reader.Uint32()}
}

// Register adds or replaces the record for one version pair.
func (m *CompatibilityMatrix) Register(info CompatibilityInfo) {
	m.entries[pairKey(info.FileVersion, info.ReaderVersion)] = info
}

// Lookup returns the compatibility record for a file version read by a
// reader version. Pairs without an explicit record fall back to the
// format's semantic-version rules: same major reads; writing additionally
// requires the reader to be at or above the file version.
func (m *CompatibilityMatrix) Lookup(file, reader nvm.SemanticVersion) CompatibilityInfo {
	if info, ok := m.entries[pairKey(file, reader)]; ok {
		return info
	}
	return CompatibilityInfo{
		FileVersion:    file,
		ReaderVersion:  reader,
		CanRead:        reader.CompatibleWith(file),
		CanWrite:       reader.BackwardCompatibleWith(file),
		RequiresUpdate: !reader.CompatibleWith(file),
	}
}

// KnownVersions lists every version appearing in the matrix, ascending.
func (m *CompatibilityMatrix) KnownVersions() []nvm.SemanticVersion {
	seen := make(map[uint32]nvm.SemanticVersion)
	for _, info := range m.entries {
		seen[info.FileVersion.Uint32()] = info.FileVersion
		seen[info.ReaderVersion.Uint32()] = info.ReaderVersion
	}
	out := make([]nvm.SemanticVersion, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Migrator transforms a container from one specific version to another.
type Migrator interface {
	// Supports reports whether the migrator handles the from/to pair.
	Supports(from, to nvm.SemanticVersion) bool
	// Migrate rewrites the open container in place to the target version.
	Migrate(f *nvm.File, from, to nvm.SemanticVersion) error
}

// MigrationPath is the ordered version chain a file passes through.
type MigrationPath struct {
	Steps []MigrationStep
}

// MigrationStep is one hop of a migration path.
type MigrationStep struct {
	From     nvm.SemanticVersion
	To       nvm.SemanticVersion
	Migrator Migrator
}

// Empty reports whether the path has no steps (source equals target).
func (p MigrationPath) Empty() bool { return len(p.Steps) == 0 }

// GetMigrationPath finds an ordered chain of registered migrators from
// one version to another. Equal versions yield an empty path. Waypoints
// are the versions a chain may pass through; the search is a shortest-hop
// BFS over them with Supports as the edge predicate. A broken chain fails
// with ErrNoMigrationPath.
func GetMigrationPath(from, to nvm.SemanticVersion, migrators []Migrator, waypoints []nvm.SemanticVersion) (MigrationPath, error) {
	if from.Compare(to) == 0 {
		return MigrationPath{}, nil
	}

	nodes := make(map[uint32]nvm.SemanticVersion, len(waypoints)+2)
	nodes[from.Uint32()] = from
	nodes[to.Uint32()] = to
	for _, v := range waypoints {
		nodes[v.Uint32()] = v
	}

	type queued struct {
		version nvm.SemanticVersion
		steps   []MigrationStep
	}
	visited := map[uint32]bool{from.Uint32(): true}
	queue := []queued{{version: from}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range nodes {
			if visited[next.Uint32()] {
				continue
			}
			m := supporting(migrators, cur.version, next)
			if m == nil {
				continue
			}
			steps := append(append([]MigrationStep(nil), cur.steps...), MigrationStep{
				From:     cur.version,
				To:       next,
				Migrator: m,
			})
			if next.Compare(to) == 0 {
				return MigrationPath{Steps: steps}, nil
			}
			visited[next.Uint32()] = true
			queue = append(queue, queued{version: next, steps: steps})
		}
	}
	return MigrationPath{}, fmt.Errorf("%w: from %s to %s", ErrNoMigrationPath, from, to)
}

func supporting(migrators []Migrator, from, to nvm.SemanticVersion) Migrator {
	for _, m := range migrators {
		if m.Supports(from, to) {
			return m
		}
	}
	return nil
}
