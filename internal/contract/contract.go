// Package contract loads and inspects OpenAPI contract documents.
//
// All document access in the engine goes through the typed openapi3 tree;
// raw parsed maps never cross a package boundary.
package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-yaml"
)

// ErrNotAContract is returned when a file does not look like an OpenAPI document.
var ErrNotAContract = errors.New("file is not an OpenAPI contract")

// versionedFilePattern matches {name}_v{major}.{minor}.{patch}
var versionedFilePattern = regexp.MustCompile(`^(.+)_v(\d+\.\d+\.\d+)$`)

// newLoader builds an openapi3 loader that reads files directly. The
// default loader caches file bytes process-wide by URI, which would hand
// back the first read of a contract after it changed on disk.
func newLoader() *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.ReadFromURIFunc = openapi3.ReadFromFile
	return loader
}

// Load reads and parses an OpenAPI document from disk. YAML and JSON are
// handled equally by the loader.
func Load(path string) (*openapi3.T, error) {
	doc, err := newLoader().LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load contract %s: %w", path, err)
	}
	return doc, nil
}

// LoadFromData parses an OpenAPI document from raw bytes.
func LoadFromData(data []byte) (*openapi3.T, error) {
	doc, err := newLoader().LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("load contract data: %w", err)
	}
	return doc, nil
}

// Sniff reports whether a file structurally looks like an OpenAPI contract,
// by checking for a top-level openapi/swagger header field. Unreadable files
// are simply not contracts.
func Sniff(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	content := strings.ToLower(string(data))
	for _, indicator := range []string{"openapi:", "swagger:", `"openapi":`, `"swagger":`} {
		if strings.Contains(content, indicator) {
			return true
		}
	}
	return false
}

// Name extracts the base contract name from a file path, stripping any
// version suffix: users_v1.2.0.yaml -> users.
func Name(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := versionedFilePattern.FindStringSubmatch(stem); m != nil {
		return m[1]
	}
	return stem
}

// ParseVersionedFilename splits a versioned contract filename into its base
// name and version string. ok is false for unversioned filenames.
func ParseVersionedFilename(path string) (name, version string, ok bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m := versionedFilePattern.FindStringSubmatch(stem)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// VersionedFilename builds the on-disk name for a contract snapshot,
// e.g. users_v1.2.0.yaml.
func VersionedFilename(name, version, ext string) string {
	return fmt.Sprintf("%s_v%s%s", name, version, ext)
}

// DocVersion returns the info.version field of a document, or "" when the
// info section is missing.
func DocVersion(doc *openapi3.T) string {
	if doc == nil || doc.Info == nil {
		return ""
	}
	return doc.Info.Version
}

// RewriteVersion updates the info.version field of a contract file in
// place, preserving its serialization format. The document is decoded as a
// generic tree rather than through openapi3 so unknown fields survive the
// round trip.
func RewriteVersion(path, version string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read contract %s: %w", path, err)
	}

	isJSON := strings.EqualFold(filepath.Ext(path), ".json")

	var tree map[string]any
	if isJSON {
		err = json.Unmarshal(data, &tree)
	} else {
		err = yaml.Unmarshal(data, &tree)
	}
	if err != nil {
		return fmt.Errorf("parse contract %s: %w", path, err)
	}

	info, _ := tree["info"].(map[string]any)
	if info == nil {
		info = make(map[string]any)
		tree["info"] = info
	}
	info["version"] = version

	var out []byte
	if isJSON {
		out, err = json.MarshalIndent(tree, "", "  ")
	} else {
		out, err = yaml.Marshal(tree)
	}
	if err != nil {
		return fmt.Errorf("serialize contract %s: %w", path, err)
	}

	return os.WriteFile(path, out, 0o644)
}
