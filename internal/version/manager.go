package version

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/wudi/specsync/internal/changedetect"
	"github.com/wudi/specsync/internal/contract"
	"github.com/wudi/specsync/internal/metadata"
)

var (
	// ErrVersionExists is returned when a target versioned file already exists.
	ErrVersionExists = errors.New("version already exists")
	// ErrVersionNotFound is returned when a requested version has no snapshot.
	ErrVersionNotFound = errors.New("version not found")
)

// CompatibilityEntry describes one version in the compatibility matrix.
type CompatibilityEntry struct {
	IsLatest           bool      `json:"is_latest"`
	HasBreakingChanges bool      `json:"has_breaking_changes"`
	CreatedAt          time.Time `json:"created_at"`
}

// Manager cuts and inspects versioned contract snapshots.
type Manager struct {
	store    *metadata.Store
	detector *changedetect.Detector
	specsDir string
	logger   *zap.Logger
}

// NewManager creates a version manager. specsDir is the specifications
// directory name relative to the project root.
func NewManager(store *metadata.Store, detector *changedetect.Detector, specsDir string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, detector: detector, specsDir: specsDir, logger: logger}
}

func (m *Manager) dir() string {
	return filepath.Join(m.store.Root(), m.specsDir)
}

// VersionsOf returns all snapshots of a contract, ascending by version.
// Files with unparseable versions or content are skipped.
func (m *Manager) VersionsOf(name string) ([]VersionedSpec, error) {
	entries, err := os.ReadDir(m.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read specifications dir: %w", err)
	}

	var versions []VersionedSpec
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base, versionStr, ok := contract.ParseVersionedFilename(e.Name())
		if !ok || base != name {
			continue
		}
		v, err := Parse(versionStr)
		if err != nil {
			continue
		}
		path := filepath.Join(m.dir(), e.Name())
		doc, err := contract.Load(path)
		if err != nil {
			m.logger.Warn("skipping unreadable snapshot",
				zap.String("file", path),
				zap.Error(err),
			)
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		versions = append(versions, VersionedSpec{
			Name:      name,
			Version:   v,
			FilePath:  path,
			Doc:       doc,
			CreatedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version.Less(versions[j].Version)
	})
	return versions, nil
}

// Latest returns the highest version snapshot of a contract, or nil.
func (m *Manager) Latest(name string) (*VersionedSpec, error) {
	versions, err := m.VersionsOf(name)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}
	return &versions[len(versions)-1], nil
}

// CreateVersion cuts a new immutable snapshot from a source contract. An
// explicit target version wins over the bump kind; the first version of a
// contract is always 1.0.0; BumpAuto derives the bump from a change
// analysis against the latest snapshot. Existing snapshots are never
// overwritten.
func (m *Manager) CreateVersion(sourcePath string, bump Bump, target string) (*VersionedSpec, error) {
	name := contract.Name(sourcePath)
	existing, err := m.VersionsOf(name)
	if err != nil {
		return nil, err
	}

	var next Version
	switch {
	case target != "":
		next, err = Parse(target)
		if err != nil {
			return nil, err
		}
	case len(existing) == 0:
		next = Version{Major: 1}
	default:
		latest := existing[len(existing)-1]
		kind := bump
		if kind == BumpAuto {
			kind = m.determineBump(sourcePath, &latest)
		}
		next, err = latest.Version.Bumped(kind)
		if err != nil {
			return nil, err
		}
	}

	ext := filepath.Ext(sourcePath)
	if ext == "" {
		ext = ".yaml"
	}
	newPath := filepath.Join(m.dir(), contract.VersionedFilename(name, next.String(), ext))
	if _, err := os.Stat(newPath); err == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrVersionExists, name, next)
	}

	if err := os.MkdirAll(m.dir(), 0o755); err != nil {
		return nil, fmt.Errorf("create specifications dir: %w", err)
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("read source contract: %w", err)
	}
	if err := os.WriteFile(newPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	// The filename is authoritative; a failed rewrite of the embedded
	// version field is logged, not fatal.
	if err := contract.RewriteVersion(newPath, next.String()); err != nil {
		m.logger.Warn("could not rewrite embedded version",
			zap.String("file", newPath),
			zap.Error(err),
		)
	}

	doc, err := contract.Load(newPath)
	if err != nil {
		return nil, err
	}

	if err := m.detector.UpdateTracking(newPath); err != nil {
		return nil, err
	}
	if err := m.updateLatestPointer(name, newPath, ext); err != nil {
		return nil, err
	}

	m.logger.Info("created contract version",
		zap.String("contract", name),
		zap.String("version", next.String()),
		zap.String("file", newPath),
	)

	return &VersionedSpec{
		Name:      name,
		Version:   next,
		FilePath:  newPath,
		Doc:       doc,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// determineBump maps a change analysis onto a bump kind: breaking changes
// force a major bump, any other change a minor one, no change a patch.
func (m *Manager) determineBump(sourcePath string, latest *VersionedSpec) Bump {
	current, err := contract.Load(sourcePath)
	if err != nil {
		m.logger.Warn("auto bump fell back to minor",
			zap.String("contract", sourcePath),
			zap.Error(err),
		)
		return BumpMinor
	}
	analysis := changedetect.Diff(sourcePath, latest.Doc, current)
	switch {
	case analysis.Breaking:
		return BumpMajor
	case len(analysis.Changes) > 0:
		return BumpMinor
	default:
		return BumpPatch
	}
}

// Compare diffs two snapshots of the same contract.
func (m *Manager) Compare(name, from, to string) (*changedetect.Analysis, error) {
	versions, err := m.VersionsOf(name)
	if err != nil {
		return nil, err
	}
	byVersion := make(map[string]*VersionedSpec, len(versions))
	for i := range versions {
		byVersion[versions[i].Version.String()] = &versions[i]
	}

	fromSpec, ok := byVersion[from]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrVersionNotFound, name, from)
	}
	toSpec, ok := byVersion[to]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrVersionNotFound, name, to)
	}

	return changedetect.Diff(toSpec.FilePath, fromSpec.Doc, toSpec.Doc), nil
}

// CompatibilityMatrix maps every contract to its versions with latest and
// breaking-change markers. A version is flagged breaking when its major
// component exceeds 1; v1 is treated as the compatibility baseline.
func (m *Manager) CompatibilityMatrix() (map[string]map[string]CompatibilityEntry, error) {
	entries, err := os.ReadDir(m.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]map[string]CompatibilityEntry{}, nil
		}
		return nil, fmt.Errorf("read specifications dir: %w", err)
	}

	names := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, _, ok := contract.ParseVersionedFilename(e.Name()); ok {
			names[contract.Name(e.Name())] = true
		}
	}

	matrix := make(map[string]map[string]CompatibilityEntry)
	for name := range names {
		versions, err := m.VersionsOf(name)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			continue
		}
		row := make(map[string]CompatibilityEntry, len(versions))
		for i, v := range versions {
			row[v.Version.String()] = CompatibilityEntry{
				IsLatest:           i == len(versions)-1,
				HasBreakingChanges: v.Version.Major > 1,
				CreatedAt:          v.CreatedAt,
			}
		}
		matrix[name] = row
	}
	return matrix, nil
}

// updateLatestPointer repoints specifications/latest/{name}.{ext} at the
// newest snapshot. The target is recomputed from the version scan, not
// taken from the file just written.
func (m *Manager) updateLatestPointer(name, newPath, ext string) error {
	latest, err := m.Latest(name)
	if err != nil {
		return err
	}
	target := newPath
	if latest != nil {
		target = latest.FilePath
	}

	latestDir := filepath.Join(m.dir(), "latest")
	if err := os.MkdirAll(latestDir, 0o755); err != nil {
		return fmt.Errorf("create latest dir: %w", err)
	}

	link := filepath.Join(latestDir, name+ext)
	if _, err := os.Lstat(link); err == nil {
		if err := os.Remove(link); err != nil {
			return fmt.Errorf("remove latest pointer: %w", err)
		}
	}
	if err := os.Symlink(filepath.Join("..", filepath.Base(target)), link); err != nil {
		return fmt.Errorf("create latest pointer: %w", err)
	}
	return nil
}
