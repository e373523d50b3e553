// Package scaffold regenerates the dependent artifacts that wire a
// contract to the serving layer: one route config per contract plus a
// shared entrypoint covering every synced contract.
package scaffold

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/wudi/specsync/internal/contract"
)

// pathParamPattern matches OpenAPI path parameters like {user_id}.
var pathParamPattern = regexp.MustCompile(`\{([^}]+)\}`)

// RouteConfig wires one contract operation to a server route.
type RouteConfig struct {
	ID              string   `yaml:"id"`
	Path            string   `yaml:"path"`
	Methods         []string `yaml:"methods"`
	OperationID     string   `yaml:"operation_id,omitempty"`
	ValidateRequest bool     `yaml:"validate_request"`
}

// ServiceConfig is the per-contract generated artifact.
type ServiceConfig struct {
	Service  string        `yaml:"service"`
	Contract string        `yaml:"contract"`
	Version  string        `yaml:"version,omitempty"`
	BaseURL  string        `yaml:"base_url,omitempty"`
	Routes   []RouteConfig `yaml:"routes"`
}

// Entrypoint is the shared artifact listing every synced service.
type Entrypoint struct {
	Services []EntrypointService `yaml:"services"`
}

// EntrypointService references one generated service config.
type EntrypointService struct {
	Name     string `yaml:"name"`
	Contract string `yaml:"contract"`
	Config   string `yaml:"config"`
}

// Generate validates a contract document and derives its service config.
// Routes are emitted in path, then method order.
func Generate(specPath, baseURL string) (*ServiceConfig, error) {
	doc, err := contract.Load(specPath)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate contract %s: %w", specPath, err)
	}

	cfg := &ServiceConfig{
		Service:  contract.Name(specPath),
		Contract: specPath,
		Version:  contract.DocVersion(doc),
		BaseURL:  baseURL,
	}

	if doc.Paths == nil {
		return cfg, nil
	}

	paths := doc.Paths.Map()
	pathKeys := make([]string, 0, len(paths))
	for p := range paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	for _, p := range pathKeys {
		ops := paths[p].Operations()
		methods := make([]string, 0, len(ops))
		for m := range ops {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, method := range methods {
			op := ops[method]
			cfg.Routes = append(cfg.Routes, RouteConfig{
				ID:              routeID(method, p, op.OperationID),
				Path:            convertPath(p),
				Methods:         []string{strings.ToUpper(method)},
				OperationID:     op.OperationID,
				ValidateRequest: true,
			})
		}
	}

	return cfg, nil
}

// Write serializes a service config to its target path.
func Write(cfg *ServiceConfig, targetPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal service config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("create implementations dir: %w", err)
	}
	if err := os.WriteFile(targetPath, data, 0o644); err != nil {
		return fmt.Errorf("write service config: %w", err)
	}
	return nil
}

// WriteEntrypoint writes the shared artifact referencing all synced
// services, sorted by name for stable output.
func WriteEntrypoint(implDir string, services []EntrypointService) error {
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })

	data, err := yaml.Marshal(&Entrypoint{Services: services})
	if err != nil {
		return fmt.Errorf("marshal entrypoint: %w", err)
	}
	if err := os.MkdirAll(implDir, 0o755); err != nil {
		return fmt.Errorf("create implementations dir: %w", err)
	}
	path := filepath.Join(implDir, "gateway.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write entrypoint: %w", err)
	}
	return nil
}

// TargetPath returns the default artifact path for a contract name.
func TargetPath(implDir, name string) string {
	return filepath.Join(implDir, name+".yaml")
}

// FindArtifact locates an existing artifact for a contract, trying the
// naming patterns the generator has used over time.
func FindArtifact(implDir, name string) (string, bool) {
	for _, candidate := range []string{
		name + ".yaml",
		name + ".yml",
		name + "_service.yaml",
	} {
		path := filepath.Join(implDir, candidate)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func routeID(method, path, operationID string) string {
	if operationID != "" {
		return operationID
	}
	sanitized := strings.NewReplacer("/", "-", "{", "", "}", "").Replace(path)
	sanitized = strings.Trim(sanitized, "-")
	return fmt.Sprintf("%s-%s", strings.ToLower(method), sanitized)
}

// convertPath rewrites OpenAPI path params {id} to router params :id.
func convertPath(path string) string {
	return pathParamPattern.ReplaceAllString(path, ":$1")
}
