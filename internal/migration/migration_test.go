package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wudi/specsync/internal/changedetect"
	"github.com/wudi/specsync/internal/version"
)

func v(major, minor, patch uint64) version.Version {
	return version.Version{Major: major, Minor: minor, Patch: patch}
}

func TestGenerateRemovalForcesManualHighEffort(t *testing.T) {
	analysis := &changedetect.Analysis{
		Changes: []changedetect.Change{
			{Kind: changedetect.KindDeleted, Description: "Removed endpoint: /users", Breaking: true},
		},
	}

	plan := Generate(analysis, v(1, 0, 0), v(2, 0, 0))

	if !plan.RequiresManualIntervention {
		t.Error("removals must require manual intervention")
	}
	if plan.EstimatedEffort != EffortHigh {
		t.Errorf("expected high effort, got %s", plan.EstimatedEffort)
	}
	if len(plan.MigrationSteps) != 1 || !strings.Contains(plan.MigrationSteps[0], "Remove deprecated code for") {
		t.Errorf("unexpected steps: %v", plan.MigrationSteps)
	}
	if len(plan.BreakingChanges) != 1 {
		t.Errorf("breaking changes not carried over: %v", plan.BreakingChanges)
	}
}

func TestGenerateNewRequirementMediumEffort(t *testing.T) {
	analysis := &changedetect.Analysis{
		Changes: []changedetect.Change{
			{Kind: changedetect.KindNew, Description: "Added parameter 'tenant_id' to GET /users (required)", Breaking: true},
		},
	}

	plan := Generate(analysis, v(1, 0, 0), v(2, 0, 0))

	if !plan.RequiresManualIntervention {
		t.Error("new requirements must require manual intervention")
	}
	if plan.EstimatedEffort != EffortMedium {
		t.Errorf("expected medium effort, got %s", plan.EstimatedEffort)
	}
}

func TestGenerateRemovalOutranksRequirement(t *testing.T) {
	analysis := &changedetect.Analysis{
		Changes: []changedetect.Change{
			{Description: "Added parameter 'tenant_id' to GET /users (required)", Breaking: true},
			{Description: "Removed endpoint: /orders", Breaking: true},
		},
	}

	plan := Generate(analysis, v(1, 0, 0), v(2, 0, 0))

	if plan.EstimatedEffort != EffortHigh {
		t.Errorf("removal must dominate the estimate, got %s", plan.EstimatedEffort)
	}
	if len(plan.MigrationSteps) != 2 {
		t.Errorf("expected 2 steps, got %v", plan.MigrationSteps)
	}
}

func TestGenerateVersionChangeOnly(t *testing.T) {
	analysis := &changedetect.Analysis{
		Changes: []changedetect.Change{
			{Kind: changedetect.KindModified, Description: "Version changed from 1.0.0 to 2.0.0", Breaking: true},
		},
	}

	plan := Generate(analysis, v(1, 0, 0), v(2, 0, 0))

	if plan.RequiresManualIntervention {
		t.Error("a bare version change needs no manual intervention")
	}
	if plan.EstimatedEffort != EffortLow {
		t.Errorf("expected low effort, got %s", plan.EstimatedEffort)
	}
	if len(plan.MigrationSteps) != 1 || plan.MigrationSteps[0] != "Update API version references in client code" {
		t.Errorf("unexpected steps: %v", plan.MigrationSteps)
	}
}

func TestGenerateNonBreakingAdditionIsOptionalStep(t *testing.T) {
	analysis := &changedetect.Analysis{
		Changes: []changedetect.Change{
			{Kind: changedetect.KindNew, Description: "Added endpoint: /orders", Breaking: false},
		},
	}

	plan := Generate(analysis, v(1, 0, 0), v(1, 1, 0))

	if plan.RequiresManualIntervention {
		t.Error("additions must not require manual intervention")
	}
	if len(plan.MigrationSteps) != 1 || !strings.HasPrefix(plan.MigrationSteps[0], "Optional: Utilize new feature") {
		t.Errorf("unexpected steps: %v", plan.MigrationSteps)
	}
}

func TestGenerateEmptyAnalysis(t *testing.T) {
	plan := Generate(&changedetect.Analysis{}, v(1, 0, 0), v(1, 0, 1))

	if plan.RequiresManualIntervention {
		t.Error("an empty analysis needs no manual intervention")
	}
	if plan.EstimatedEffort != EffortLow {
		t.Errorf("expected low effort, got %s", plan.EstimatedEffort)
	}
	if len(plan.MigrationSteps) != 1 || plan.MigrationSteps[0] != "No implementation changes required" {
		t.Errorf("unexpected steps: %v", plan.MigrationSteps)
	}
}

func TestWriteGuide(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guides", "users_migration.md")

	plan := &Plan{
		FromVersion:                v(1, 0, 0),
		ToVersion:                  v(2, 0, 0),
		BreakingChanges:            []string{"Removed endpoint: /users"},
		MigrationSteps:             []string{"Remove deprecated code for: Removed endpoint: /users", "Test the updated implementation"},
		RequiresManualIntervention: true,
		EstimatedEffort:            EffortHigh,
	}
	err := WriteGuide(path, GuideData{
		SpecName:   "users",
		Plan:       plan,
		TargetPath: "implementations/users.yaml",
		BackupPath: ".specsync/backups/users_20260101_000000.yaml",
	})
	if err != nil {
		t.Fatalf("write guide: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read guide: %v", err)
	}
	guide := string(data)

	for _, want := range []string{
		"# Migration Guide: users",
		"From: v1.0.0",
		"To: v2.0.0",
		"- Removed endpoint: /users",
		"1. Remove deprecated code for: Removed endpoint: /users",
		"2. Test the updated implementation",
		"Complexity: high",
		"Manual intervention required: Yes",
		"Backup: .specsync/backups/users_20260101_000000.yaml",
	} {
		if !strings.Contains(guide, want) {
			t.Errorf("guide missing %q:\n%s", want, guide)
		}
	}
}

func TestWriteGuideWithoutBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users_migration.md")

	err := WriteGuide(path, GuideData{
		SpecName: "users",
		Plan: &Plan{
			MigrationSteps:  []string{"No implementation changes required"},
			EstimatedEffort: EffortLow,
		},
		TargetPath: "implementations/users.yaml",
	})
	if err != nil {
		t.Fatalf("write guide: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read guide: %v", err)
	}
	guide := string(data)
	if strings.Contains(guide, "Backup:") {
		t.Errorf("guide must omit the backup line when no backup exists:\n%s", guide)
	}
	if !strings.Contains(guide, "Manual intervention required: No") {
		t.Errorf("unexpected manual intervention line:\n%s", guide)
	}
}
