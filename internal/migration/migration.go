// Package migration turns breaking change analyses into ordered,
// human-actionable migration plans and rendered migration guides.
package migration

import (
	"fmt"
	"strings"

	"github.com/wudi/specsync/internal/changedetect"
	"github.com/wudi/specsync/internal/version"
)

// Effort is the coarse migration effort estimate.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// Plan describes how to move an implementation between two contract versions.
type Plan struct {
	FromVersion                version.Version
	ToVersion                  version.Version
	BreakingChanges            []string
	MigrationSteps             []string
	RequiresManualIntervention bool
	EstimatedEffort            Effort
}

// Generate derives a migration plan from a change analysis. Removals force
// manual intervention and high effort; new requirements raise effort to at
// least medium.
func Generate(analysis *changedetect.Analysis, from, to version.Version) *Plan {
	plan := &Plan{
		FromVersion:     from,
		ToVersion:       to,
		EstimatedEffort: EffortLow,
	}

	for _, c := range analysis.BreakingChanges() {
		plan.BreakingChanges = append(plan.BreakingChanges, c.Description)

		desc := strings.ToLower(c.Description)
		switch {
		case strings.Contains(desc, "removed"):
			plan.MigrationSteps = append(plan.MigrationSteps,
				fmt.Sprintf("Remove deprecated code for: %s", c.Description))
			plan.RequiresManualIntervention = true
			plan.EstimatedEffort = EffortHigh
		case strings.Contains(desc, "required"):
			plan.MigrationSteps = append(plan.MigrationSteps,
				fmt.Sprintf("Update to handle new requirement: %s", c.Description))
			plan.RequiresManualIntervention = true
			if plan.EstimatedEffort == EffortLow {
				plan.EstimatedEffort = EffortMedium
			}
		case strings.Contains(desc, "version changed"):
			plan.MigrationSteps = append(plan.MigrationSteps,
				"Update API version references in client code")
		}
	}

	for _, c := range analysis.NonBreakingChanges() {
		if strings.Contains(strings.ToLower(c.Description), "added") {
			plan.MigrationSteps = append(plan.MigrationSteps,
				fmt.Sprintf("Optional: Utilize new feature: %s", c.Description))
		}
	}

	if len(plan.MigrationSteps) == 0 {
		plan.MigrationSteps = append(plan.MigrationSteps, "No implementation changes required")
	}

	return plan
}

// Planner resolves version pairs through the version manager and produces
// migration plans.
type Planner struct {
	versions *version.Manager
}

// NewPlanner creates a migration planner backed by a version manager.
func NewPlanner(versions *version.Manager) *Planner {
	return &Planner{versions: versions}
}

// Plan compares two versions of a contract and generates the migration plan
// for that transition.
func (p *Planner) Plan(name, from, to string) (*Plan, error) {
	fromV, err := version.Parse(from)
	if err != nil {
		return nil, err
	}
	toV, err := version.Parse(to)
	if err != nil {
		return nil, err
	}
	analysis, err := p.versions.Compare(name, from, to)
	if err != nil {
		return nil, err
	}
	return Generate(analysis, fromV, toV), nil
}
