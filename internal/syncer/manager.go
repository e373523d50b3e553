package syncer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wudi/specsync/internal/changedetect"
	"github.com/wudi/specsync/internal/contract"
	"github.com/wudi/specsync/internal/metadata"
	"github.com/wudi/specsync/internal/migration"
	"github.com/wudi/specsync/internal/scaffold"
	"github.com/wudi/specsync/internal/version"
)

// Manager orchestrates the detect -> plan -> execute pipeline.
type Manager struct {
	store    *metadata.Store
	detector *changedetect.Detector
	versions *version.Manager
	planner  *migration.Planner
	specsDir string
	implDir  string
	logger   *zap.Logger
	out      io.Writer
}

// NewManager wires the sync orchestrator. specsDir and implDir are
// directory names relative to the project root.
func NewManager(store *metadata.Store, detector *changedetect.Detector, versions *version.Manager, planner *migration.Planner, specsDir, implDir string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:    store,
		detector: detector,
		versions: versions,
		planner:  planner,
		specsDir: specsDir,
		implDir:  implDir,
		logger:   logger,
		out:      os.Stdout,
	}
}

// SetOutput redirects preview rendering, which otherwise goes to stdout.
func (m *Manager) SetOutput(w io.Writer) { m.out = w }

func (m *Manager) implDirAbs() string {
	return filepath.Join(m.store.Root(), m.implDir)
}

func (m *Manager) specsDirAbs() string {
	return filepath.Join(m.store.Root(), m.specsDir)
}

// Analyze computes the sync plan for the current project state. For every
// contract with a detected change: a missing artifact yields CREATE, a
// breaking change MIGRATE, anything else UPDATE. Contracts without any
// artifact and without detected changes also yield CREATE.
func (m *Manager) Analyze() (*Plan, error) {
	var (
		items           []Item
		breakingChanges []string
		requiresReview  bool
	)

	allChanges := m.detector.DetectAll()

	changedPaths := make([]string, 0, len(allChanges))
	for path := range allChanges {
		changedPaths = append(changedPaths, path)
	}
	sort.Strings(changedPaths)

	covered := make(map[string]bool)
	for _, specPath := range changedPaths {
		analysis := allChanges[specPath]
		name := contract.Name(specPath)
		covered[name] = true

		items = append(items, m.planItem(name, specPath, analysis))

		if analysis.Breaking {
			requiresReview = true
			for _, c := range analysis.BreakingChanges() {
				breakingChanges = append(breakingChanges, c.Description)
			}
		}
	}

	missing, err := m.findMissingArtifacts(covered)
	if err != nil {
		return nil, err
	}
	items = append(items, missing...)

	return &Plan{
		Items:                items,
		BreakingChanges:      breakingChanges,
		RequiresManualReview: requiresReview,
		EstimatedTime:        estimate(items, breakingChanges),
	}, nil
}

func (m *Manager) planItem(name, specPath string, analysis *changedetect.Analysis) Item {
	implPath, exists := scaffold.FindArtifact(m.implDirAbs(), name)
	if !exists {
		return Item{
			SpecName:    name,
			Action:      ActionCreate,
			SourcePath:  specPath,
			TargetPath:  scaffold.TargetPath(m.implDirAbs(), name),
			Description: fmt.Sprintf("Create implementation for %s", name),
		}
	}

	if analysis.Breaking {
		return Item{
			SpecName:             name,
			Action:               ActionMigrate,
			SourcePath:           specPath,
			TargetPath:           implPath,
			Description:          fmt.Sprintf("Migrate %s implementation (breaking changes)", name),
			RequiresManualReview: true,
			BackupPath:           m.backupPath(implPath),
		}
	}

	return Item{
		SpecName:    name,
		Action:      ActionUpdate,
		SourcePath:  specPath,
		TargetPath:  implPath,
		Description: fmt.Sprintf("Update %s implementation (non-breaking changes)", name),
		BackupPath:  m.backupPath(implPath),
	}
}

// findMissingArtifacts scans the specifications directory for contracts
// that have no artifact and were not already covered by a change item.
func (m *Manager) findMissingArtifacts(covered map[string]bool) ([]Item, error) {
	entries, err := os.ReadDir(m.specsDirAbs())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read specifications dir: %w", err)
	}

	var items []Item
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}

		name := contract.Name(e.Name())
		if covered[name] {
			continue
		}
		covered[name] = true

		if _, exists := scaffold.FindArtifact(m.implDirAbs(), name); exists {
			continue
		}
		items = append(items, Item{
			SpecName:    name,
			Action:      ActionCreate,
			SourcePath:  filepath.Join(m.specsDirAbs(), e.Name()),
			TargetPath:  scaffold.TargetPath(m.implDirAbs(), name),
			Description: fmt.Sprintf("Create missing implementation for %s", name),
		})
	}
	return items, nil
}

// backupPath computes a timestamped backup location for an artifact.
func (m *Manager) backupPath(implPath string) string {
	stem := strings.TrimSuffix(filepath.Base(implPath), filepath.Ext(implPath))
	timestamp := time.Now().Format("20060102_150405")
	return filepath.Join(m.store.BackupDir(), stem+"_"+timestamp+filepath.Ext(implPath))
}
