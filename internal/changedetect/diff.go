package changedetect

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/wudi/specsync/internal/contract"
)

// Diff computes the structural differences between two revisions of a
// contract document. Changes are emitted in a deterministic order: version
// first, then paths, then schema definitions, each alphabetically.
func Diff(specPath string, oldDoc, newDoc *openapi3.T) *Analysis {
	var changes []Change

	changes = append(changes, diffVersion(oldDoc, newDoc)...)
	changes = append(changes, diffPaths(oldDoc, newDoc)...)
	changes = append(changes, diffSchemas(oldDoc, newDoc)...)

	breaking := false
	for _, c := range changes {
		if c.Breaking {
			breaking = true
			break
		}
	}

	return &Analysis{
		SpecPath: specPath,
		Changes:  changes,
		Breaking: breaking,
		Summary:  summarize(changes),
	}
}

func diffVersion(oldDoc, newDoc *openapi3.T) []Change {
	oldVersion := docVersionOrDefault(oldDoc)
	newVersion := docVersionOrDefault(newDoc)
	if oldVersion == newVersion {
		return nil
	}
	return []Change{{
		Kind:        KindModified,
		Path:        "info.version",
		Description: fmt.Sprintf("Version changed from %s to %s", oldVersion, newVersion),
		OldValue:    oldVersion,
		NewValue:    newVersion,
		Breaking:    isMajorBump(oldVersion, newVersion),
	}}
}

func docVersionOrDefault(doc *openapi3.T) string {
	if v := contract.DocVersion(doc); v != "" {
		return v
	}
	return "1.0.0"
}

// isMajorBump reports whether the leading numeric component increased.
// Malformed version strings compare as non-breaking; tightening this is
// tracked as an open question in DESIGN.md.
func isMajorBump(oldVersion, newVersion string) bool {
	oldMajor, err1 := strconv.Atoi(strings.SplitN(oldVersion, ".", 2)[0])
	newMajor, err2 := strconv.Atoi(strings.SplitN(newVersion, ".", 2)[0])
	if err1 != nil || err2 != nil {
		return false
	}
	return newMajor > oldMajor
}

func diffPaths(oldDoc, newDoc *openapi3.T) []Change {
	oldPaths := pathMap(oldDoc)
	newPaths := pathMap(newDoc)

	var changes []Change

	for _, path := range sortedKeys(oldPaths) {
		if _, ok := newPaths[path]; !ok {
			changes = append(changes, Change{
				Kind:        KindDeleted,
				Path:        pathAddress(path, oldPaths[path]),
				Description: fmt.Sprintf("Removed endpoint: %s", path),
				OldValue:    path,
				Breaking:    true,
			})
		}
	}
	for _, path := range sortedKeys(newPaths) {
		if _, ok := oldPaths[path]; !ok {
			changes = append(changes, Change{
				Kind:        KindNew,
				Path:        pathAddress(path, newPaths[path]),
				Description: fmt.Sprintf("Added endpoint: %s", path),
				NewValue:    path,
				Breaking:    false,
			})
		}
	}
	for _, path := range sortedKeys(oldPaths) {
		if newItem, ok := newPaths[path]; ok {
			changes = append(changes, diffPathItem(path, oldPaths[path], newItem)...)
		}
	}

	return changes
}

// pathAddress is the dotted address of a whole added or removed route
// path. When the path carries exactly one operation the address names the
// verb too, so that single-operation endpoints stay addressable after the
// path disappears.
func pathAddress(path string, item *openapi3.PathItem) string {
	ops := item.Operations()
	if len(ops) == 1 {
		for method := range ops {
			return fmt.Sprintf("paths.%s.%s", path, strings.ToLower(method))
		}
	}
	return "paths." + path
}

func pathMap(doc *openapi3.T) map[string]*openapi3.PathItem {
	if doc == nil || doc.Paths == nil {
		return map[string]*openapi3.PathItem{}
	}
	return doc.Paths.Map()
}

func diffPathItem(path string, oldItem, newItem *openapi3.PathItem) []Change {
	oldOps := oldItem.Operations()
	newOps := newItem.Operations()

	var changes []Change

	for _, method := range sortedKeys(oldOps) {
		if _, ok := newOps[method]; !ok {
			changes = append(changes, Change{
				Kind:        KindDeleted,
				Path:        fmt.Sprintf("paths.%s.%s", path, strings.ToLower(method)),
				Description: fmt.Sprintf("Removed method %s from %s", method, path),
				Breaking:    true,
			})
		}
	}
	for _, method := range sortedKeys(newOps) {
		if _, ok := oldOps[method]; !ok {
			changes = append(changes, Change{
				Kind:        KindNew,
				Path:        fmt.Sprintf("paths.%s.%s", path, strings.ToLower(method)),
				Description: fmt.Sprintf("Added method %s to %s", method, path),
				Breaking:    false,
			})
		}
	}
	for _, method := range sortedKeys(oldOps) {
		if newOp, ok := newOps[method]; ok {
			changes = append(changes, diffOperation(path, method, oldOps[method], newOp)...)
		}
	}

	return changes
}

func diffOperation(path, method string, oldOp, newOp *openapi3.Operation) []Change {
	oldParams := paramMap(oldOp.Parameters)
	newParams := paramMap(newOp.Parameters)
	base := fmt.Sprintf("paths.%s.%s", path, strings.ToLower(method))

	var changes []Change

	// A removed parameter breaks clients only if it was required; an added
	// parameter breaks them only if it is required.
	for _, name := range sortedKeys(oldParams) {
		if _, ok := newParams[name]; !ok {
			changes = append(changes, Change{
				Kind:        KindDeleted,
				Path:        fmt.Sprintf("%s.parameters.%s", base, name),
				Description: fmt.Sprintf("Removed parameter '%s' from %s %s", name, method, path),
				Breaking:    oldParams[name].Required,
			})
		}
	}
	for _, name := range sortedKeys(newParams) {
		if _, ok := oldParams[name]; !ok {
			changes = append(changes, Change{
				Kind:        KindNew,
				Path:        fmt.Sprintf("%s.parameters.%s", base, name),
				Description: fmt.Sprintf("Added parameter '%s' to %s %s", name, method, path),
				Breaking:    newParams[name].Required,
			})
		}
	}

	return changes
}

func paramMap(params openapi3.Parameters) map[string]*openapi3.Parameter {
	m := make(map[string]*openapi3.Parameter)
	for _, p := range params {
		if p.Value != nil {
			m[p.Value.Name] = p.Value
		}
	}
	return m
}

// diffSchemas compares the named reusable definitions. Only additions and
// removals of whole definitions are detected; field-level diffing inside a
// surviving definition is an acknowledged gap.
func diffSchemas(oldDoc, newDoc *openapi3.T) []Change {
	oldSchemas := schemaMap(oldDoc)
	newSchemas := schemaMap(newDoc)

	var changes []Change

	for _, name := range sortedKeys(oldSchemas) {
		if _, ok := newSchemas[name]; !ok {
			changes = append(changes, Change{
				Kind:        KindDeleted,
				Path:        "components.schemas." + name,
				Description: fmt.Sprintf("Removed schema definition: %s", name),
				Breaking:    true,
			})
		}
	}
	for _, name := range sortedKeys(newSchemas) {
		if _, ok := oldSchemas[name]; !ok {
			changes = append(changes, Change{
				Kind:        KindNew,
				Path:        "components.schemas." + name,
				Description: fmt.Sprintf("Added schema definition: %s", name),
				Breaking:    false,
			})
		}
	}

	return changes
}

func schemaMap(doc *openapi3.T) map[string]*openapi3.SchemaRef {
	if doc == nil || doc.Components == nil {
		return map[string]*openapi3.SchemaRef{}
	}
	return doc.Components.Schemas
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
