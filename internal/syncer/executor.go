package syncer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/wudi/specsync/internal/contract"
	"github.com/wudi/specsync/internal/migration"
	"github.com/wudi/specsync/internal/scaffold"
	"github.com/wudi/specsync/internal/version"
)

// ErrManualReviewRequired is returned when a plan with breaking changes is
// executed without force.
var ErrManualReviewRequired = errors.New("plan requires manual review")

// Execute applies a sync plan. In preview mode the plan is only rendered.
// Item failures are isolated: they are logged and counted but never abort
// the remaining items. When at least one item succeeded the shared
// entrypoint is regenerated and tracking plus the last-sync timestamp are
// updated. The run reports success only when every item succeeded.
func (m *Manager) Execute(plan *Plan, previewOnly, force bool) (bool, error) {
	if previewOnly {
		plan.Render(m.out)
		return true, nil
	}

	if len(plan.Items) == 0 {
		fmt.Fprintln(m.out, "Everything is already synchronized")
		return true, nil
	}

	if plan.RequiresManualReview && !force {
		return false, ErrManualReviewRequired
	}

	cfg, err := m.store.LoadConfig()
	if err != nil {
		return false, err
	}
	baseURL := ""
	if cfg != nil {
		baseURL = cfg.APIBaseURL
	}

	processed := 0
	for _, item := range plan.Items {
		if err := m.executeItem(item, baseURL); err != nil {
			m.logger.Error("sync item failed",
				zap.String("contract", item.SpecName),
				zap.String("action", string(item.Action)),
				zap.Error(err),
			)
			fmt.Fprintf(m.out, "not synced: %s: %v\n", item.Description, err)
			continue
		}
		processed++
		fmt.Fprintf(m.out, "synced: %s\n", item.Description)
	}

	if processed > 0 {
		if err := m.finalize(); err != nil {
			m.logger.Error("sync finalization failed", zap.Error(err))
			return false, err
		}
	}

	m.logger.Info("sync run finished",
		zap.Int("processed", processed),
		zap.Int("total", len(plan.Items)),
	)
	return processed > 0 && processed == len(plan.Items), nil
}

func (m *Manager) executeItem(item Item, baseURL string) error {
	switch item.Action {
	case ActionCreate, ActionUpdate:
		if err := m.backup(item); err != nil {
			return err
		}
		return m.regenerate(item, baseURL)
	case ActionMigrate:
		if err := m.backup(item); err != nil {
			return err
		}
		if err := m.writeMigrationGuide(item); err != nil {
			return err
		}
		return m.regenerate(item, baseURL)
	case ActionDelete:
		if err := m.backup(item); err != nil {
			return err
		}
		if err := os.Remove(item.TargetPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove artifact: %w", err)
		}
		return nil
	case ActionNoChange:
		return nil
	default:
		return fmt.Errorf("unknown sync action %q", item.Action)
	}
}

// regenerate validates the contract and rewrites the dependent artifact.
func (m *Manager) regenerate(item Item, baseURL string) error {
	cfg, err := scaffold.Generate(item.SourcePath, baseURL)
	if err != nil {
		return err
	}
	return scaffold.Write(cfg, item.TargetPath)
}

// backup copies the current artifact aside before it is overwritten.
// Nothing is backed up for a fresh CREATE.
func (m *Manager) backup(item Item) error {
	if item.BackupPath == "" {
		return nil
	}
	data, err := os.ReadFile(item.TargetPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read artifact for backup: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(item.BackupPath), 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	if err := os.WriteFile(item.BackupPath, data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}

// writeMigrationGuide renders a guide for the last version transition of
// the contract. With fewer than two snapshots a generic plan is rendered
// from whatever the transition would have looked like.
func (m *Manager) writeMigrationGuide(item Item) error {
	guidePath := filepath.Join(m.implDirAbs(), item.SpecName+"_migration.md")

	plan, err := m.latestTransitionPlan(item.SpecName)
	if err != nil {
		m.logger.Warn("using generic migration guide",
			zap.String("contract", item.SpecName),
			zap.Error(err),
		)
		plan = &migration.Plan{
			MigrationSteps: []string{
				"Compare the backup with the regenerated artifact",
				"Manually merge your custom logic",
				"Test the updated implementation",
			},
			RequiresManualIntervention: true,
			EstimatedEffort:            migration.EffortHigh,
		}
	}

	return migration.WriteGuide(guidePath, migration.GuideData{
		SpecName:   item.SpecName,
		Plan:       plan,
		TargetPath: item.TargetPath,
		BackupPath: item.BackupPath,
	})
}

func (m *Manager) latestTransitionPlan(name string) (*migration.Plan, error) {
	versions, err := m.versions.VersionsOf(name)
	if err != nil {
		return nil, err
	}
	if len(versions) < 2 {
		return nil, fmt.Errorf("%w: need two versions of %s for a transition", version.ErrVersionNotFound, name)
	}
	from := versions[len(versions)-2].Version.String()
	to := versions[len(versions)-1].Version.String()
	return m.planner.Plan(name, from, to)
}

// finalize regenerates the shared entrypoint over every contract that has
// an artifact, refreshes tracking for all discovered contracts, and stamps
// the last sync time.
func (m *Manager) finalize() error {
	var services []scaffold.EntrypointService
	seen := make(map[string]bool)
	for _, specPath := range m.detector.FindContracts() {
		name := contract.Name(specPath)
		if seen[name] {
			continue
		}
		seen[name] = true
		if artifact, ok := scaffold.FindArtifact(m.implDirAbs(), name); ok {
			services = append(services, scaffold.EntrypointService{
				Name:     name,
				Contract: specPath,
				Config:   artifact,
			})
		}
	}
	if err := scaffold.WriteEntrypoint(m.implDirAbs(), services); err != nil {
		return err
	}

	for _, specPath := range m.detector.FindContracts() {
		if err := m.detector.UpdateTracking(specPath); err != nil {
			return err
		}
	}
	return m.store.UpdateLastSync()
}
