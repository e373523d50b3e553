// Package syncer plans and executes the synchronization of generated
// artifacts with their contracts.
package syncer

import (
	"fmt"
	"io"
)

// Action is the kind of work a sync item performs.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionMigrate  Action = "migrate"
	ActionNoChange Action = "no_change"
)

// EstimatedTime is the coarse effort bucket for a whole plan.
type EstimatedTime string

const (
	TimeNone   EstimatedTime = "none"
	TimeLow    EstimatedTime = "low"
	TimeMedium EstimatedTime = "medium"
	TimeHigh   EstimatedTime = "high"
)

// Item is one planned synchronization action.
type Item struct {
	SpecName             string
	Action               Action
	SourcePath           string
	TargetPath           string
	Description          string
	RequiresManualReview bool
	BackupPath           string
}

// Plan is an ordered set of sync items. It is a pure value computed from
// file-system and tracking state; Execute is the only operation that
// mutates anything.
type Plan struct {
	Items                []Item
	BreakingChanges      []string
	RequiresManualReview bool
	EstimatedTime        EstimatedTime
}

func (p *Plan) itemsByAction(a Action) []Item {
	var out []Item
	for _, item := range p.Items {
		if item.Action == a {
			out = append(out, item)
		}
	}
	return out
}

// CreateItems returns the CREATE items of the plan.
func (p *Plan) CreateItems() []Item { return p.itemsByAction(ActionCreate) }

// UpdateItems returns the UPDATE items of the plan.
func (p *Plan) UpdateItems() []Item { return p.itemsByAction(ActionUpdate) }

// MigrateItems returns the MIGRATE items of the plan.
func (p *Plan) MigrateItems() []Item { return p.itemsByAction(ActionMigrate) }

// DeleteItems returns the DELETE items of the plan.
func (p *Plan) DeleteItems() []Item { return p.itemsByAction(ActionDelete) }

// Render writes a human-readable preview of the plan.
func (p *Plan) Render(w io.Writer) {
	if len(p.Items) == 0 {
		fmt.Fprintln(w, "Everything is already synchronized")
		return
	}

	fmt.Fprintf(w, "Sync plan (%d items):\n", len(p.Items))
	fmt.Fprintf(w, "  Estimated effort: %s\n", p.EstimatedTime)
	review := "no"
	if p.RequiresManualReview {
		review = "yes"
	}
	fmt.Fprintf(w, "  Manual review required: %s\n", review)

	if len(p.BreakingChanges) > 0 {
		fmt.Fprintf(w, "\nBreaking changes (%d):\n", len(p.BreakingChanges))
		for i, change := range p.BreakingChanges {
			if i == 5 {
				fmt.Fprintf(w, "  ... and %d more\n", len(p.BreakingChanges)-5)
				break
			}
			fmt.Fprintf(w, "  - %s\n", change)
		}
	}

	fmt.Fprintln(w, "\nActions:")
	for _, group := range []struct {
		label string
		items []Item
	}{
		{"create", p.CreateItems()},
		{"update", p.UpdateItems()},
		{"migrate", p.MigrateItems()},
		{"delete", p.DeleteItems()},
	} {
		if len(group.items) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s (%d):\n", group.label, len(group.items))
		for _, item := range group.items {
			fmt.Fprintf(w, "    - %s\n", item.Description)
		}
	}
}

// estimate buckets the plan effort from its composition.
func estimate(items []Item, breakingChanges []string) EstimatedTime {
	if len(items) == 0 {
		return TimeNone
	}

	var creates, updates, migrates int
	for _, item := range items {
		switch item.Action {
		case ActionCreate:
			creates++
		case ActionUpdate:
			updates++
		case ActionMigrate:
			migrates++
		}
	}

	switch {
	case migrates > 0 || len(breakingChanges) > 2:
		return TimeHigh
	case updates > 2 || creates > 1:
		return TimeMedium
	default:
		return TimeLow
	}
}
