package syncer

import (
	"strings"
	"testing"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name     string
		items    []Item
		breaking []string
		want     EstimatedTime
	}{
		{"empty", nil, nil, TimeNone},
		{"single update", []Item{{Action: ActionUpdate}}, nil, TimeLow},
		{"single create", []Item{{Action: ActionCreate}}, nil, TimeLow},
		{"two creates", []Item{{Action: ActionCreate}, {Action: ActionCreate}}, nil, TimeMedium},
		{"three updates", []Item{{Action: ActionUpdate}, {Action: ActionUpdate}, {Action: ActionUpdate}}, nil, TimeMedium},
		{"any migrate", []Item{{Action: ActionMigrate}}, []string{"x"}, TimeHigh},
		{"many breaking", []Item{{Action: ActionUpdate}}, []string{"a", "b", "c"}, TimeHigh},
	}
	for _, tt := range tests {
		if got := estimate(tt.items, tt.breaking); got != tt.want {
			t.Errorf("%s: estimate() = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestPlanItemsByAction(t *testing.T) {
	p := &Plan{Items: []Item{
		{SpecName: "a", Action: ActionCreate},
		{SpecName: "b", Action: ActionMigrate},
		{SpecName: "c", Action: ActionCreate},
	}}

	if got := p.CreateItems(); len(got) != 2 {
		t.Errorf("expected 2 creates, got %+v", got)
	}
	if got := p.MigrateItems(); len(got) != 1 || got[0].SpecName != "b" {
		t.Errorf("expected 1 migrate for b, got %+v", got)
	}
	if got := p.UpdateItems(); len(got) != 0 {
		t.Errorf("expected no updates, got %+v", got)
	}
}

func TestRenderEmptyPlan(t *testing.T) {
	var sb strings.Builder
	(&Plan{EstimatedTime: TimeNone}).Render(&sb)

	if !strings.Contains(sb.String(), "Everything is already synchronized") {
		t.Errorf("unexpected render output:\n%s", sb.String())
	}
}

func TestRenderGroupsActions(t *testing.T) {
	p := &Plan{
		Items: []Item{
			{SpecName: "users", Action: ActionMigrate, Description: "Migrate users implementation (breaking changes)"},
			{SpecName: "orders", Action: ActionCreate, Description: "Create implementation for orders"},
		},
		BreakingChanges:      []string{"Removed endpoint: /users"},
		RequiresManualReview: true,
		EstimatedTime:        TimeHigh,
	}

	var sb strings.Builder
	p.Render(&sb)
	out := sb.String()

	for _, want := range []string{
		"Sync plan (2 items):",
		"Estimated effort: high",
		"Manual review required: yes",
		"Breaking changes (1):",
		"- Removed endpoint: /users",
		"create (1):",
		"migrate (1):",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestRenderCapsBreakingChanges(t *testing.T) {
	p := &Plan{
		Items:           []Item{{Action: ActionMigrate, Description: "Migrate users"}},
		BreakingChanges: []string{"a", "b", "c", "d", "e", "f", "g"},
		EstimatedTime:   TimeHigh,
	}

	var sb strings.Builder
	p.Render(&sb)
	out := sb.String()

	if !strings.Contains(out, "... and 2 more") {
		t.Errorf("expected a capped breaking list:\n%s", out)
	}
	if strings.Contains(out, "- f\n") {
		t.Errorf("entries past the cap must not render:\n%s", out)
	}
}
