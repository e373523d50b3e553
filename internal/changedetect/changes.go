// Package changedetect compares contract revisions and classifies every
// difference as breaking or non-breaking.
package changedetect

import "fmt"

// Kind classifies a single change.
type Kind string

const (
	KindNew      Kind = "new"
	KindModified Kind = "modified"
	KindDeleted  Kind = "deleted"
)

// Change is one semantic difference between two contract revisions. The
// Path field is a dotted address into the document, e.g. "paths./users.get".
type Change struct {
	Kind        Kind   `json:"kind"`
	Path        string `json:"path"`
	Description string `json:"description"`
	OldValue    string `json:"old_value,omitempty"`
	NewValue    string `json:"new_value,omitempty"`
	Breaking    bool   `json:"breaking"`
}

// Analysis is the result of comparing two revisions of one contract.
// It is a derived value, recomputed on every detection pass.
type Analysis struct {
	SpecPath string   `json:"spec_path"`
	Changes  []Change `json:"changes"`
	Breaking bool     `json:"breaking"`
	Summary  string   `json:"summary"`
}

// BreakingChanges returns the subset of changes that are breaking.
func (a *Analysis) BreakingChanges() []Change {
	var out []Change
	for _, c := range a.Changes {
		if c.Breaking {
			out = append(out, c)
		}
	}
	return out
}

// NonBreakingChanges returns the subset of changes that are not breaking.
func (a *Analysis) NonBreakingChanges() []Change {
	var out []Change
	for _, c := range a.Changes {
		if !c.Breaking {
			out = append(out, c)
		}
	}
	return out
}

// summarize produces the human-readable roll-up line for an analysis.
func summarize(changes []Change) string {
	if len(changes) == 0 {
		return "No changes detected"
	}
	breaking := 0
	for _, c := range changes {
		if c.Breaking {
			breaking++
		}
	}
	if breaking > 0 {
		return fmt.Sprintf("%d breaking changes, %d non-breaking changes", breaking, len(changes)-breaking)
	}
	return fmt.Sprintf("%d non-breaking changes", len(changes))
}
